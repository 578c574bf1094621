// Package sites implements the per-source adapters: four seed vendors
// sharing one rule-table-driven scraper, the Trefle structured plant
// database, and the Wikipedia encyclopedia page.
package sites

import (
	"context"
	"net/url"
	"strings"

	"github.com/gardenshed/seedscout/internal/fetch"
	"github.com/gardenshed/seedscout/internal/plant"
)

// Fetcher retrieves one page. Satisfied by *fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (fetch.Page, error)
}

// Adapter is the uniform capability set every source exposes.
type Adapter interface {
	// Source returns the tag this adapter owns.
	Source() plant.Source
	// Search returns ephemeral hits for a free-text query.
	Search(ctx context.Context, query string) ([]plant.SearchResult, error)
	// FetchDetail fetches and extracts one product page. A page with no
	// extractable data yields plant.ErrEmptyExtraction.
	FetchDetail(ctx context.Context, pageURL string) (*plant.ProductRecord, error)
}

// hostPatterns maps URL hostname substrings to their owning source.
var hostPatterns = []struct {
	substr string
	source plant.Source
}{
	{"johnnyseeds.com", plant.SourceJohnnySeeds},
	{"rareseeds.com", plant.SourceBakerCreek},
	{"burpee.com", plant.SourceBurpee},
	{"territorialseed.com", plant.SourceTerritorial},
	{"trefle.io", plant.SourceTrefle},
	{"wikipedia.org", plant.SourceWikipedia},
}

// DetectSource maps a product URL to its owning source by hostname.
func DetectSource(rawURL string) (plant.Source, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, p := range hostPatterns {
		if host == p.substr || strings.HasSuffix(host, "."+p.substr) {
			return p.source, true
		}
	}
	return "", false
}

// SupportedSites lists display names for the scrapeable vendor sites,
// for user-facing "unsupported URL" errors.
func SupportedSites() []string {
	names := make([]string, 0, len(vendorSites))
	for _, site := range vendorSites {
		names = append(names, site.Source.DisplayName())
	}
	return names
}
