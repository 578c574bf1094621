// Package images finds candidate photos for a plant and materializes
// a bounded number of them on local disk.
package images

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/plant"
	"github.com/gardenshed/seedscout/internal/sites"
)

// bingImageSearchURL is the generic web image-search results page. The
// thumbnail grid embeds the full-size media URL in an escaped JSON
// attribute, so a regex over the raw body is enough.
const bingImageSearchURL = "https://www.bing.com/images/search?q=%s&form=HDRSC2"

var murlRe = regexp.MustCompile(`murl&quot;:&quot;(https?://[^&]+)&quot;`)

// webSearchLimit and trefleThumbLimit bound how many candidates each
// provider may contribute before the merged list is deduplicated.
const (
	webSearchLimit   = 15
	trefleThumbLimit = 5
)

// excludedImageHosts are search-engine self-links in the results page
// (thumbnails, tracking redirects) that never depict the plant.
var excludedImageHosts = []string{"bing.com", "microsoft.com"}

// Searcher fans an image query out to the generic web search, the
// plant database, and the encyclopedia, concurrently. Provider
// failures are logged and skipped; Search itself never fails.
type Searcher struct {
	fetcher sites.Fetcher
	trefle  *sites.Trefle
	wiki    *sites.Wikipedia
	logger  *zap.Logger
}

// NewSearcher builds a candidate searcher. trefle and wiki may be nil
// when those sources are not configured.
func NewSearcher(fetcher sites.Fetcher, trefle *sites.Trefle, wiki *sites.Wikipedia, logger *zap.Logger) *Searcher {
	return &Searcher{fetcher: fetcher, trefle: trefle, wiki: wiki, logger: logger}
}

// Search returns up to limit deduplicated candidates, generic web
// results ordered ahead of database and encyclopedia ones.
func (s *Searcher) Search(ctx context.Context, query string, limit int) []plant.ImageCandidate {
	if query == "" || limit <= 0 {
		return nil
	}

	// Indexed slots keep provider ordering deterministic regardless
	// of which goroutine finishes first.
	slots := make([][]plant.ImageCandidate, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		found, err := s.searchWeb(ctx, query)
		if err != nil {
			s.logger.Debug("web image search failed", zap.Error(err))
			return
		}
		slots[0] = found
	}()

	if s.trefle != nil && s.trefle.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found, err := s.trefle.Thumbnails(ctx, query, trefleThumbLimit)
			if err != nil {
				s.logger.Debug("trefle image search failed", zap.Error(err))
				return
			}
			slots[1] = found
		}()
	}

	if s.wiki != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found, err := s.wiki.InfoboxImages(ctx, query)
			if err != nil {
				s.logger.Debug("wikipedia image search failed", zap.Error(err))
				return
			}
			slots[2] = found
		}()
	}

	wg.Wait()

	seen := make(map[string]struct{})
	out := make([]plant.ImageCandidate, 0, limit)
	for _, found := range slots {
		for _, c := range found {
			if c.URL == "" {
				continue
			}
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			out = append(out, c)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// searchWeb scrapes the image-search results page for full-size media
// URLs.
func (s *Searcher) searchWeb(ctx context.Context, query string) ([]plant.ImageCandidate, error) {
	searchURL := fmt.Sprintf(bingImageSearchURL, url.QueryEscape(query+" plant"))
	page, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	matches := murlRe.FindAllSubmatch(page.Body, -1)
	candidates := make([]plant.ImageCandidate, 0, webSearchLimit)
	for _, m := range matches {
		mediaURL := string(m[1])
		if excludedHost(mediaURL) {
			continue
		}
		candidates = append(candidates, plant.ImageCandidate{
			URL:    mediaURL,
			Source: string(plant.SourceWeb),
			Alt:    query,
		})
		if len(candidates) == webSearchLimit {
			break
		}
	}
	return candidates, nil
}

func excludedHost(rawURL string) bool {
	for _, host := range excludedImageHosts {
		if strings.Contains(rawURL, host) {
			return true
		}
	}
	return false
}
