package pipeline

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/aggregate"
	"github.com/gardenshed/seedscout/internal/canonical"
	"github.com/gardenshed/seedscout/internal/config"
	"github.com/gardenshed/seedscout/internal/fetch"
	"github.com/gardenshed/seedscout/internal/images"
	"github.com/gardenshed/seedscout/internal/plant"
	"github.com/gardenshed/seedscout/internal/sites"
)

type fakeAdapter struct {
	source    plant.Source
	results   []plant.SearchResult
	searchErr error
	detail    *plant.ProductRecord
	detailErr error
	detailURL string
}

func (f *fakeAdapter) Source() plant.Source { return f.source }

func (f *fakeAdapter) Search(_ context.Context, _ string) ([]plant.SearchResult, error) {
	return f.results, f.searchErr
}

func (f *fakeAdapter) FetchDetail(_ context.Context, pageURL string) (*plant.ProductRecord, error) {
	f.detailURL = pageURL
	return f.detail, f.detailErr
}

type fakeCompleter struct {
	content string
	err     error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

// stubFetcher fails every fetch so the image search contributes
// nothing unless a test wants it to.
type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, _ string) (fetch.Page, error) {
	return fetch.Page{}, &plant.HTTPStatusError{Status: 404}
}

const canonicalJSON = `{
  "name": "Tomato",
  "variety": "Brandywine",
  "category": "Want to Plant",
  "plant_type": "Tomato",
  "days_to_maturity": 85,
  "planting_season": "Spring",
  "planting_schedule": {"start_indoors_weeks_before_last_frost": 6},
  "growing_details": {"spacing": "24 inches", "sun_requirements": "Full Sun"},
  "seed_info": {}
}`

func disabledCanonical() *canonical.Client {
	return canonical.New(config.CanonicalConfig{Model: "gpt-4o-mini"}, config.GrowerConfig{}, zap.NewNop())
}

func activeCanonical(c *fakeCompleter) *canonical.Client {
	return canonical.NewWithClient(c, "gpt-4o-mini", config.GrowerConfig{}, zap.NewNop())
}

func emptySearcher() *images.Searcher {
	return images.NewSearcher(stubFetcher{}, nil, nil, zap.NewNop())
}

func newTestPipeline(canon *canonical.Client, adapters ...sites.Adapter) *Pipeline {
	return New(aggregate.New(adapters, zap.NewNop()), canon, emptySearcher(), nil, 3, zap.NewNop())
}

func TestLookupEmptyQuery(t *testing.T) {
	p := newTestPipeline(disabledCanonical())
	_, err := p.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, plant.ErrEmptyQuery)
}

func TestLookupMergesScrapedAndCanonical(t *testing.T) {
	vendor := &fakeAdapter{
		source: plant.SourceJohnnySeeds,
		results: []plant.SearchResult{
			{Name: "Brandywine Tomato", URL: "https://www.johnnyseeds.com/brandywine", Source: plant.SourceJohnnySeeds},
		},
		detail: &plant.ProductRecord{
			Name:       "Brandywine Tomato",
			SeedCost:   4.95,
			Spacing:    "18 in.",
			ProductURL: "https://www.johnnyseeds.com/brandywine",
			Source:     plant.SourceJohnnySeeds,
		},
	}
	p := newTestPipeline(activeCanonical(&fakeCompleter{content: canonicalJSON}), vendor)

	res, err := p.Lookup(context.Background(), "brandywine tomato")
	require.NoError(t, err)

	// Scraped wins where present, canonical fills the rest.
	assert.Equal(t, "Brandywine Tomato", res.Record.Name)
	assert.Equal(t, "18 in.", res.Record.Spacing)
	assert.InDelta(t, 4.95, res.Record.SeedCost, 0.001)
	assert.Equal(t, 85, res.Record.DaysToMaturity)
	assert.Equal(t, 6, res.Record.StartIndoors)
	assert.Equal(t, "Full Sun", res.Record.SunRequirements)
	assert.Equal(t, plant.SourceJohnnySeeds, res.Record.Source)
	assert.Equal(t, "https://www.johnnyseeds.com/brandywine", vendor.detailURL)
	assert.Empty(t, res.Errors)
}

func TestLookupDetailPreferenceOrder(t *testing.T) {
	territorial := &fakeAdapter{
		source: plant.SourceTerritorial,
		results: []plant.SearchResult{
			{Name: "Basil", URL: "https://territorialseed.com/basil", Source: plant.SourceTerritorial},
		},
		detail: &plant.ProductRecord{Name: "Basil (Territorial)", Source: plant.SourceTerritorial},
	}
	johnny := &fakeAdapter{
		source: plant.SourceJohnnySeeds,
		results: []plant.SearchResult{
			{Name: "Basil", URL: "https://www.johnnyseeds.com/basil", Source: plant.SourceJohnnySeeds},
		},
		detail: &plant.ProductRecord{Name: "Basil (Johnny's)", Source: plant.SourceJohnnySeeds},
	}
	// Registration order differs from preference order on purpose.
	p := newTestPipeline(disabledCanonical(), territorial, johnny)

	res, err := p.Lookup(context.Background(), "basil")
	require.NoError(t, err)
	assert.Equal(t, "Basil (Johnny's)", res.Record.Name)
}

func TestLookupFallsBackWhenDetailFails(t *testing.T) {
	johnny := &fakeAdapter{
		source: plant.SourceJohnnySeeds,
		results: []plant.SearchResult{
			{Name: "Basil", URL: "https://www.johnnyseeds.com/basil", Source: plant.SourceJohnnySeeds},
		},
		detailErr: plant.ErrEmptyExtraction,
	}
	burpee := &fakeAdapter{
		source: plant.SourceBurpee,
		results: []plant.SearchResult{
			{Name: "Basil", URL: "https://www.burpee.com/basil", Source: plant.SourceBurpee},
		},
		detail: &plant.ProductRecord{Name: "Basil (Burpee)", Source: plant.SourceBurpee},
	}
	p := newTestPipeline(disabledCanonical(), johnny, burpee)

	res, err := p.Lookup(context.Background(), "basil")
	require.NoError(t, err)
	assert.Equal(t, "Basil (Burpee)", res.Record.Name)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Johnny's Seeds")
}

func TestLookupPartialFailureNeverRaises(t *testing.T) {
	blocked := &fakeAdapter{
		source:    plant.SourceBurpee,
		searchErr: &plant.BotBlockedError{Host: "www.burpee.com"},
	}
	p := newTestPipeline(disabledCanonical(), blocked)

	res, err := p.Lookup(context.Background(), "basil")
	require.NoError(t, err)

	// No scraped record anywhere: the stub carries the query as name.
	assert.Equal(t, "basil", res.Record.Name)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "www.burpee.com")
}

func TestLookupCanonicalFailureReported(t *testing.T) {
	p := newTestPipeline(activeCanonical(&fakeCompleter{err: errors.New("rate limited")}))

	res, err := p.Lookup(context.Background(), "basil")
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "AI Lookup")
}

func TestLookupDisabledCanonicalSilent(t *testing.T) {
	p := newTestPipeline(disabledCanonical())

	res, err := p.Lookup(context.Background(), "basil")
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
}

func TestScrapeURLUnsupportedHost(t *testing.T) {
	p := newTestPipeline(disabledCanonical())

	_, err := p.ScrapeURL(context.Background(), "https://www.example.com/basil")
	var unsupported *plant.UnsupportedURLError
	assert.ErrorAs(t, err, &unsupported)
}

func TestScrapeURLVendorImagesLead(t *testing.T) {
	vendor := &fakeAdapter{
		source: plant.SourceBakerCreek,
		detail: &plant.ProductRecord{
			Name:       "Brandywine Tomato",
			Images:     []string{"https://www.rareseeds.com/img/1.jpg"},
			ProductURL: "https://www.rareseeds.com/brandywine",
			Source:     plant.SourceBakerCreek,
		},
	}
	p := newTestPipeline(activeCanonical(&fakeCompleter{content: canonicalJSON}), vendor)

	res, err := p.ScrapeURL(context.Background(), "https://www.rareseeds.com/brandywine")
	require.NoError(t, err)

	assert.Equal(t, "Brandywine Tomato", res.Record.Name)
	assert.Equal(t, []string{"https://www.rareseeds.com/img/1.jpg"}, res.Record.Images)
	assert.Equal(t, 85, res.Record.DaysToMaturity)
}

func TestScrapeURLBlockedVendor(t *testing.T) {
	vendor := &fakeAdapter{
		source:    plant.SourceBurpee,
		detailErr: &plant.BotBlockedError{Host: "www.burpee.com"},
	}
	p := newTestPipeline(disabledCanonical(), vendor)

	_, err := p.ScrapeURL(context.Background(), "https://www.burpee.com/brandywine")
	var blocked *plant.BotBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "www.burpee.com", blocked.Host)
}

func TestSearchImagesEmptyQuery(t *testing.T) {
	p := newTestPipeline(disabledCanonical())
	_, err := p.SearchImages(context.Background(), "", 3)
	assert.ErrorIs(t, err, plant.ErrEmptyQuery)
}
