// Package pipeline orchestrates one acquisition request end to end:
// fan-out search, canonical lookup, and image search run concurrently,
// then the merge engine folds their outputs into a single record.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/aggregate"
	"github.com/gardenshed/seedscout/internal/canonical"
	"github.com/gardenshed/seedscout/internal/images"
	"github.com/gardenshed/seedscout/internal/merge"
	"github.com/gardenshed/seedscout/internal/metrics"
	"github.com/gardenshed/seedscout/internal/plant"
	"github.com/gardenshed/seedscout/internal/sites"
)

// detailOrder is the source preference used when picking which search
// hit to fetch a full product page from. Vendors first: their pages
// carry price and growing data the reference sources lack.
var detailOrder = []plant.Source{
	plant.SourceJohnnySeeds,
	plant.SourceBakerCreek,
	plant.SourceBurpee,
	plant.SourceTerritorial,
	plant.SourceTrefle,
	plant.SourceWikipedia,
}

// Result is the caller-facing output of one lookup. Errors lists the
// sources that failed, in "{source}: {reason}" form; partial failure
// never fails the call.
type Result struct {
	Record plant.MergedRecord `json:"record"`
	Errors []string           `json:"errors,omitempty"`
}

// Pipeline wires the aggregator, canonical client, and image stages
// together. Built once at startup.
type Pipeline struct {
	agg        *aggregate.Aggregator
	canonical  *canonical.Client
	searcher   *images.Searcher
	downloader *images.Downloader
	maxImages  int
	logger     *zap.Logger
}

// New builds a pipeline. maxImages bounds the merged image list; zero
// falls back to the merge default.
func New(agg *aggregate.Aggregator, canon *canonical.Client, searcher *images.Searcher, downloader *images.Downloader, maxImages int, logger *zap.Logger) *Pipeline {
	if maxImages <= 0 {
		maxImages = merge.DefaultMaxImages
	}
	return &Pipeline{
		agg:        agg,
		canonical:  canon,
		searcher:   searcher,
		downloader: downloader,
		maxImages:  maxImages,
		logger:     logger,
	}
}

// Search runs the fan-out only, returning raw per-source hits for a
// picker UI.
func (p *Pipeline) Search(ctx context.Context, query string) (aggregate.Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return aggregate.Outcome{}, plant.ErrEmptyQuery
	}
	return p.agg.SearchAll(ctx, query), nil
}

// Lookup resolves a free-text query into one merged record. The
// fan-out, the canonical lookup, and the image search run
// concurrently; each contributes what it can.
func (p *Pipeline) Lookup(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, plant.ErrEmptyQuery
	}

	var (
		wg         sync.WaitGroup
		outcome    aggregate.Outcome
		canonRec   *plant.CanonicalRecord
		canonErr   error
		candidates []plant.ImageCandidate
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		outcome = p.agg.SearchAll(ctx, query)
	}()
	go func() {
		defer wg.Done()
		canonRec, canonErr = p.canonical.Lookup(ctx, query)
	}()
	go func() {
		defer wg.Done()
		candidates = p.searcher.Search(ctx, query, p.maxImages*2)
	}()
	wg.Wait()

	errs := outcome.ErrorStrings()
	if canonErr != nil && !errors.Is(canonErr, plant.ErrSourceDisabled) {
		errs = append(errs, plant.SourceError{Source: plant.SourceCanonical, Err: canonErr}.Error())
	}

	scraped, detailErrs := p.bestDetail(ctx, outcome)
	errs = append(errs, detailErrs...)

	record := merge.Merge(scraped, canonRec, candidates, query, merge.Options{MaxImages: p.maxImages})
	return Result{Record: record, Errors: errs}, nil
}

// ScrapeURL resolves one vendor product URL directly, then gap-fills
// from the canonical source. The grower chose this page, so its own
// images lead the merged list.
func (p *Pipeline) ScrapeURL(ctx context.Context, rawURL string) (Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Result{}, plant.ErrEmptyQuery
	}

	source, ok := sites.DetectSource(rawURL)
	if !ok {
		return Result{}, &plant.UnsupportedURLError{URL: rawURL, Supported: sites.SupportedSites()}
	}
	adapter, ok := p.agg.AdapterFor(source)
	if !ok {
		return Result{}, &plant.UnsupportedURLError{URL: rawURL, Supported: sites.SupportedSites()}
	}

	scraped, err := adapter.FetchDetail(ctx, rawURL)
	metrics.ObserveDetailFetch(source, err)
	if err != nil {
		return Result{}, plant.SourceError{Source: source, Err: err}
	}

	var errs []string
	canonRec, canonErr := p.canonical.Lookup(ctx, canonicalQuery(scraped, rawURL))
	if canonErr != nil {
		canonRec = nil
		if !errors.Is(canonErr, plant.ErrSourceDisabled) {
			errs = append(errs, plant.SourceError{Source: plant.SourceCanonical, Err: canonErr}.Error())
		}
	}

	record := merge.Merge(scraped, canonRec, nil, scraped.Name, merge.Options{
		VendorImagesFirst: true,
		MaxImages:         p.maxImages,
	})
	return Result{Record: record, Errors: errs}, nil
}

// SearchImages exposes the candidate search on its own.
func (p *Pipeline) SearchImages(ctx context.Context, query string, limit int) ([]plant.ImageCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, plant.ErrEmptyQuery
	}
	if limit <= 0 {
		limit = p.maxImages
	}
	return p.searcher.Search(ctx, query, limit), nil
}

// DownloadImages materializes up to the configured count of urls for
// ownerID and returns the files written.
func (p *Pipeline) DownloadImages(ctx context.Context, ownerID string, urls []string) []string {
	return p.downloader.Download(ctx, ownerID, urls)
}

// DownloadImage materializes a single image.
func (p *Pipeline) DownloadImage(ctx context.Context, ownerID, rawURL string) (string, error) {
	return p.downloader.DownloadOne(ctx, ownerID, rawURL)
}

// bestDetail walks sources in preference order, fetching the full
// product page of the first hit that yields a usable record. Detail
// failures are reported but never abort the lookup.
func (p *Pipeline) bestDetail(ctx context.Context, outcome aggregate.Outcome) (*plant.ProductRecord, []string) {
	var errs []string
	for _, source := range detailOrder {
		hits := outcome.BySource[source]
		if len(hits) == 0 {
			continue
		}
		adapter, ok := p.agg.AdapterFor(source)
		if !ok {
			continue
		}
		record, err := adapter.FetchDetail(ctx, hits[0].URL)
		metrics.ObserveDetailFetch(source, err)
		if err != nil {
			errs = append(errs, plant.SourceError{Source: source, Err: err}.Error())
			p.logger.Warn("detail fetch failed",
				zap.String("source", string(source)),
				zap.String("url", hits[0].URL),
				zap.Error(err),
			)
			continue
		}
		if record.Empty() {
			continue
		}
		return record, errs
	}
	return nil, errs
}

// canonicalQuery builds the lookup text for the direct-URL path from
// whatever the scrape produced.
func canonicalQuery(scraped *plant.ProductRecord, rawURL string) string {
	if scraped.Empty() {
		return rawURL
	}
	if scraped.Variety != "" && !strings.Contains(strings.ToLower(scraped.Name), strings.ToLower(scraped.Variety)) {
		return scraped.Variety + " " + scraped.Name
	}
	return scraped.Name
}
