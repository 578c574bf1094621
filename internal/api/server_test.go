package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/aggregate"
	"github.com/gardenshed/seedscout/internal/canonical"
	"github.com/gardenshed/seedscout/internal/config"
	"github.com/gardenshed/seedscout/internal/fetch"
	"github.com/gardenshed/seedscout/internal/images"
	"github.com/gardenshed/seedscout/internal/pipeline"
	"github.com/gardenshed/seedscout/internal/plant"
	"github.com/gardenshed/seedscout/internal/sites"
)

type fakeAdapter struct {
	source    plant.Source
	results   []plant.SearchResult
	searchErr error
	detail    *plant.ProductRecord
	detailErr error
}

func (f *fakeAdapter) Source() plant.Source { return f.source }

func (f *fakeAdapter) Search(_ context.Context, _ string) ([]plant.SearchResult, error) {
	return f.results, f.searchErr
}

func (f *fakeAdapter) FetchDetail(_ context.Context, _ string) (*plant.ProductRecord, error) {
	return f.detail, f.detailErr
}

type failFetcher struct{}

func (failFetcher) Fetch(_ context.Context, _ string) (fetch.Page, error) {
	return fetch.Page{}, &plant.HTTPStatusError{Status: 404}
}

func newTestServer(t *testing.T, adapters ...sites.Adapter) *Server {
	t.Helper()
	canon := canonical.New(config.CanonicalConfig{Model: "gpt-4o-mini"}, config.GrowerConfig{}, zap.NewNop())
	searcher := images.NewSearcher(failFetcher{}, nil, nil, zap.NewNop())
	downloader, err := images.NewDownloader(config.ImagesConfig{
		BaseDir:     t.TempDir(),
		MaxDownload: 3,
		MaxPixels:   1200,
		JPEGQuality: 85,
	}, "test-agent", zap.NewNop())
	require.NoError(t, err)

	p := pipeline.New(aggregate.New(adapters, zap.NewNop()), canon, searcher, downloader, 3, zap.NewNop())
	return NewServer(p, zap.NewNop())
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestSearchReturnsMergedRecordWithErrors(t *testing.T) {
	healthy := &fakeAdapter{
		source: plant.SourceJohnnySeeds,
		results: []plant.SearchResult{
			{Name: "Brandywine Tomato", URL: "https://www.johnnyseeds.com/brandywine", Source: plant.SourceJohnnySeeds},
		},
		detail: &plant.ProductRecord{
			Name:       "Brandywine Tomato",
			SeedCost:   3.5,
			ProductURL: "https://www.johnnyseeds.com/brandywine",
			Source:     plant.SourceJohnnySeeds,
		},
	}
	blocked := &fakeAdapter{
		source:    plant.SourceBurpee,
		searchErr: &plant.BotBlockedError{Host: "www.burpee.com"},
	}
	s := newTestServer(t, healthy, blocked)

	rec := doJSON(t, s, http.MethodPost, "/v1/plants/search", `{"query":"brandywine tomato"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Brandywine Tomato", res.Record.Name)
	assert.InDelta(t, 3.5, res.Record.SeedCost, 0.001)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "www.burpee.com")
}

func TestSearchEmptyQueryRejected(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/plants/search", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchInvalidJSONRejected(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/plants/search", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrapeURLBotBlockedYields403WithHost(t *testing.T) {
	blocked := &fakeAdapter{
		source:    plant.SourceBurpee,
		detailErr: &plant.BotBlockedError{Host: "www.burpee.com"},
	}
	s := newTestServer(t, blocked)

	rec := doJSON(t, s, http.MethodPost, "/v1/plants/scrape-url", `{"url":"https://www.burpee.com/brandywine"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "www.burpee.com", body["host"])
}

func TestScrapeURLUnsupportedHostListsSites(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/plants/scrape-url", `{"url":"https://www.example.com/basil"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Supported []string `json:"supported"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Supported)
}

func TestSearchImagesEmptyResultIsArray(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/plants/search-images", `{"query":"basil"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"images":[]`)
}

func TestDownloadImageRequiresFields(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/plants/download-image", `{"plant_id":"","url":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadImageSavesFile(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	t.Cleanup(imgSrv.Close)

	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/plants/download-image",
		`{"plant_id":"plant-7","url":"`+imgSrv.URL+`/a.png"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["path"], "plant-7_web_")
}

func TestRequestIDHeaderSet(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
