package sites

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/plant"
)

// Description and growing-notes caps for encyclopedia prose.
const (
	wikiMinDescription = 50
	wikiMaxDescription = 500
	wikiMaxGrowing     = 1000
	wikiMaxImages      = 3
)

// Wikipedia is the encyclopedia adapter. It is detail-only: search is
// direct page-title URL construction, and a disambiguation page
// returns nothing rather than a wrong match.
type Wikipedia struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewWikipedia builds the encyclopedia adapter.
func NewWikipedia(fetcher Fetcher, logger *zap.Logger) *Wikipedia {
	return &Wikipedia{fetcher: fetcher, logger: logger}
}

// Source implements Adapter.
func (w *Wikipedia) Source() plant.Source {
	return plant.SourceWikipedia
}

// PageURL constructs the article URL for a query.
func (w *Wikipedia) PageURL(query string) string {
	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	return "https://en.wikipedia.org/wiki/" + url.PathEscape(title)
}

// Search implements Adapter by resolving the title page directly; at
// most one hit is possible. A disambiguation page returns nothing
// rather than a wrong match, so it is not a failed source.
func (w *Wikipedia) Search(ctx context.Context, query string) ([]plant.SearchResult, error) {
	pageURL := w.PageURL(query)
	rec, err := w.FetchDetail(ctx, pageURL)
	if errors.Is(err, plant.ErrEmptyExtraction) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Empty() {
		return nil, nil
	}
	res := plant.SearchResult{
		Name:    rec.Name,
		Variety: rec.Variety,
		URL:     pageURL,
		Source:  plant.SourceWikipedia,
	}
	if len(rec.Images) > 0 {
		res.ImageURL = rec.Images[0]
	}
	return []plant.SearchResult{res}, nil
}

// FetchDetail extracts a first-paragraph summary, the infobox
// scientific name, infobox images, and the cultivation section. A
// disambiguation page yields an absent record.
func (w *Wikipedia) FetchDetail(ctx context.Context, pageURL string) (*plant.ProductRecord, error) {
	page, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse article: %w", err)
	}

	if w.isDisambiguation(doc) {
		w.logger.Debug("wikipedia disambiguation page, skipping", zap.String("url", pageURL))
		return nil, plant.ErrEmptyExtraction
	}

	rec := &plant.ProductRecord{
		Name:       articleTitle(doc, pageURL),
		ProductURL: pageURL,
		Source:     plant.SourceWikipedia,
	}

	// First substantial paragraph as description.
	doc.Find("div.mw-parser-output > p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if len(text) < wikiMinDescription {
			return true
		}
		rec.Description = truncate(text, wikiMaxDescription)
		return false
	})

	if sci := w.scientificName(doc); sci != "" {
		rec.Variety = sci
	}

	for _, img := range w.InfoboxImageURLs(doc) {
		if len(rec.Images) >= wikiMaxImages {
			break
		}
		rec.AddImage(img)
	}

	if growing := w.cultivationSection(doc); growing != "" {
		rec.GrowingNotes = truncate(growing, wikiMaxGrowing)
	}

	if rec.Description == "" && rec.Variety == "" && len(rec.Images) == 0 {
		return nil, plant.ErrEmptyExtraction
	}
	return rec, nil
}

// InfoboxImages fetches the article for query and returns its infobox
// images as candidates for the generic image fan-out.
func (w *Wikipedia) InfoboxImages(ctx context.Context, query string) ([]plant.ImageCandidate, error) {
	page, err := w.fetcher.Fetch(ctx, w.PageURL(query))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse article: %w", err)
	}
	if w.isDisambiguation(doc) {
		return nil, nil
	}

	var images []plant.ImageCandidate
	for _, u := range w.InfoboxImageURLs(doc) {
		images = append(images, plant.ImageCandidate{
			URL:    u,
			Source: plant.SourceWikipedia.DisplayName(),
			Alt:    query,
		})
	}
	return images, nil
}

func (w *Wikipedia) isDisambiguation(doc *goquery.Document) bool {
	return doc.Find("#disambig, #disambigbox, .dmbox-disambig").Length() > 0
}

// thumbSizeRe rewrites thumbnail URLs to a 400px variant.
var thumbSizeRe = regexp.MustCompile(`/\d+px-`)

// InfoboxImageURLs collects article image URLs, skipping icons, logos,
// and svg decorations, and upgrading thumbnails to 400px.
func (w *Wikipedia) InfoboxImageURLs(doc *goquery.Document) []string {
	var urls []string
	seen := make(map[string]struct{})
	doc.Find(".infobox img, .thumbimage, .mw-file-element").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		lower := strings.ToLower(src)
		if strings.Contains(lower, "icon") || strings.Contains(lower, "logo") || strings.Contains(lower, ".svg") {
			return
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		src = thumbSizeRe.ReplaceAllString(src, "/400px-")
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	})
	return urls
}

// scientificName reads the infobox taxonomy rows.
func (w *Wikipedia) scientificName(doc *goquery.Document) string {
	selectors := []string{
		".infobox .binomial",
		".infobox tr:contains('Binomial name') + tr td",
		".infobox tr:contains('Species') td i",
	}
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return strings.Join(strings.Fields(text), " ")
		}
	}
	return ""
}

// cultivationSection collects the prose under a Cultivation / Growing
// / Care heading, stopping at the next section.
func (w *Wikipedia) cultivationSection(doc *goquery.Document) string {
	heading := doc.Find("h2:contains('Cultivation'), h2:contains('Growing'), h2:contains('Care')").First()
	if heading.Length() == 0 {
		return ""
	}
	// Headings are often wrapped in div.mw-heading; walk siblings of
	// the outermost wrapper.
	node := heading
	if parent := heading.Parent(); parent.Is("div.mw-heading, div.section-heading") {
		node = parent
	}
	var parts []string
	node.NextUntil("h2, div.mw-heading").Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func articleTitle(doc *goquery.Document, pageURL string) string {
	if title := strings.TrimSpace(doc.Find("h1#firstHeading").Text()); title != "" {
		return title
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	return strings.ReplaceAll(segments[len(segments)-1], "_", " ")
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
