package sites

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/extract"
	"github.com/gardenshed/seedscout/internal/plant"
)

// maxSearchResults bounds how many tiles a vendor search returns.
const maxSearchResults = 8

// Vendor scrapes one seed vendor using its declarative rule tables.
type Vendor struct {
	site    SiteConfig
	fetcher Fetcher
	logger  *zap.Logger
}

// NewVendor builds an adapter for one vendor site config.
func NewVendor(site SiteConfig, fetcher Fetcher, logger *zap.Logger) *Vendor {
	return &Vendor{site: site, fetcher: fetcher, logger: logger}
}

// NewVendors builds adapters for every known vendor site.
func NewVendors(fetcher Fetcher, logger *zap.Logger) []Adapter {
	adapters := make([]Adapter, 0, len(vendorSites))
	for _, site := range vendorSites {
		adapters = append(adapters, NewVendor(site, fetcher, logger))
	}
	return adapters
}

// VendorFor returns an adapter for the vendor owning source, if any.
func VendorFor(source plant.Source, fetcher Fetcher, logger *zap.Logger) (Adapter, bool) {
	for _, site := range vendorSites {
		if site.Source == source {
			return NewVendor(site, fetcher, logger), true
		}
	}
	return nil, false
}

// Source implements Adapter.
func (v *Vendor) Source() plant.Source {
	return v.site.Source
}

// Search fetches the vendor's search results page and extracts tiles
// via the search rule table.
func (v *Vendor) Search(ctx context.Context, query string) ([]plant.SearchResult, error) {
	searchURL := fmt.Sprintf(v.site.SearchURL, url.QueryEscape(query))
	page, err := v.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var results []plant.SearchResult
	for _, itemSel := range v.site.Search.Item {
		doc.Find(itemSel).EachWithBreak(func(_ int, item *goquery.Selection) bool {
			if res, ok := v.searchResult(item, searchURL); ok {
				results = append(results, res)
			}
			return len(results) < maxSearchResults
		})
		if len(results) > 0 {
			break
		}
	}

	v.logger.Debug("vendor search finished",
		zap.String("source", string(v.site.Source)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

func (v *Vendor) searchResult(item *goquery.Selection, baseURL string) (plant.SearchResult, bool) {
	res := plant.SearchResult{Source: v.site.Source}

	for _, sel := range v.site.Search.Name {
		if text := strings.TrimSpace(item.Find(sel).First().Text()); text != "" {
			res.Name = strings.Join(strings.Fields(text), " ")
			break
		}
	}
	for _, sel := range v.site.Search.Link {
		if href, ok := item.Find(sel).First().Attr("href"); ok && href != "" {
			res.URL = resolveRef(baseURL, href)
			break
		}
	}
	for _, sel := range v.site.Search.Image {
		img := item.Find(sel).First()
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		if src != "" && !strings.HasPrefix(src, "data:") {
			res.ImageURL = resolveRef(baseURL, src)
			break
		}
	}
	for _, sel := range v.site.Search.Price {
		if text := strings.TrimSpace(item.Find(sel).First().Text()); text != "" {
			res.PriceText = strings.Join(strings.Fields(text), " ")
			break
		}
	}

	return res, res.Name != "" && res.URL != ""
}

// FetchDetail fetches one product page and runs the fallback chain
// with this vendor's detail rule table.
func (v *Vendor) FetchDetail(ctx context.Context, pageURL string) (*plant.ProductRecord, error) {
	page, err := v.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse product page: %w", err)
	}
	return extract.Product(doc, v.site.Detail, pageURL, v.site.Source)
}

// resolveRef makes href absolute against base. Scheme-relative and
// already-absolute URLs pass through.
func resolveRef(base, href string) string {
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
