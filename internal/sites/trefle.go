package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gardenshed/seedscout/internal/plant"
)

// Trefle queries the Trefle structured plant database. Its data is
// already structured, so no fallback chain is involved: the native
// schema maps directly onto the product record. A two-step call per
// query: search by text, then detail by identifier.
type Trefle struct {
	httpClient *http.Client
	token      string
	baseURL    string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewTrefle builds the structured-database adapter. An empty token
// yields an adapter whose calls report plant.ErrSourceDisabled; the
// registry skips registering it.
func NewTrefle(token, baseURL string, logger *zap.Logger) *Trefle {
	return &Trefle{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		// Trefle rate-limits aggressively on free tokens.
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		logger:  logger,
	}
}

// Enabled reports whether a credential is configured.
func (t *Trefle) Enabled() bool {
	return t.token != ""
}

// Source implements Adapter.
func (t *Trefle) Source() plant.Source {
	return plant.SourceTrefle
}

// treflePlant is the subset of Trefle's native schema the pipeline
// consumes.
type treflePlant struct {
	ID             int    `json:"id"`
	Slug           string `json:"slug"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
	ImageURL       string `json:"image_url"`
}

type trefleSearchResponse struct {
	Data []treflePlant `json:"data"`
}

type trefleDetail struct {
	treflePlant
	Growth struct {
		Habit            string `json:"habit"`
		Rate             string `json:"rate"`
		ShadeTolerance   string `json:"shade_tolerance"`
		DroughtTolerance string `json:"drought_tolerance"`
	} `json:"growth"`
	Specifications struct {
		MinimumTemperature struct {
			DegF *float64 `json:"deg_f"`
		} `json:"minimum_temperature"`
		PHMinimum *float64 `json:"ph_minimum"`
		PHMaximum *float64 `json:"ph_maximum"`
	} `json:"specifications"`
}

type trefleDetailResponse struct {
	Data trefleDetail `json:"data"`
}

// Search implements Adapter via GET /plants/search.
func (t *Trefle) Search(ctx context.Context, query string) ([]plant.SearchResult, error) {
	var resp trefleSearchResponse
	if err := t.get(ctx, "/plants/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}
	results := make([]plant.SearchResult, 0, len(resp.Data))
	for _, p := range resp.Data {
		name := p.CommonName
		if name == "" {
			name = p.ScientificName
		}
		if name == "" {
			continue
		}
		res := plant.SearchResult{
			Name:     name,
			URL:      t.plantURL(p),
			ImageURL: p.ImageURL,
			Source:   plant.SourceTrefle,
		}
		if p.ScientificName != "" && p.ScientificName != name {
			res.Variety = p.ScientificName
		}
		results = append(results, res)
	}
	return results, nil
}

// FetchDetail implements Adapter. The identifier is the trailing path
// segment of a trefle.io plant URL.
func (t *Trefle) FetchDetail(ctx context.Context, pageURL string) (*plant.ProductRecord, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return nil, fmt.Errorf("no plant identifier in %q", pageURL)
	}
	return t.Detail(ctx, id)
}

// Detail fetches full data for one plant identifier or slug.
func (t *Trefle) Detail(ctx context.Context, id string) (*plant.ProductRecord, error) {
	var resp trefleDetailResponse
	if err := t.get(ctx, "/plants/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	d := resp.Data

	name := d.CommonName
	if name == "" {
		name = d.ScientificName
	}
	if name == "" {
		return nil, plant.ErrEmptyExtraction
	}

	rec := &plant.ProductRecord{
		Name:       name,
		ProductURL: t.plantURL(d.treflePlant),
		Source:     plant.SourceTrefle,
	}
	if d.ScientificName != "" && d.ScientificName != name {
		rec.Variety = d.ScientificName
	}
	rec.AddImage(d.ImageURL)
	if d.Growth.ShadeTolerance != "" {
		rec.SunRequirements = d.Growth.ShadeTolerance
	}
	if d.Growth.DroughtTolerance != "" {
		rec.WaterNeeds = d.Growth.DroughtTolerance
	}

	var notes []string
	if d.Growth.Habit != "" {
		notes = append(notes, "Growth habit: "+d.Growth.Habit)
	}
	if d.Growth.Rate != "" {
		notes = append(notes, "Growth rate: "+d.Growth.Rate)
	}
	if f := d.Specifications.MinimumTemperature.DegF; f != nil {
		notes = append(notes, fmt.Sprintf("Minimum temperature: %.0f°F", *f))
	}
	if lo, hi := d.Specifications.PHMinimum, d.Specifications.PHMaximum; lo != nil && hi != nil {
		notes = append(notes, fmt.Sprintf("pH range: %.1f-%.1f", *lo, *hi))
	}
	rec.GrowingNotes = strings.Join(notes, ". ")

	return rec, nil
}

// Thumbnails returns image candidates from the top search hits, for
// the generic image fan-out.
func (t *Trefle) Thumbnails(ctx context.Context, query string, limit int) ([]plant.ImageCandidate, error) {
	var resp trefleSearchResponse
	if err := t.get(ctx, "/plants/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}
	var images []plant.ImageCandidate
	for _, p := range resp.Data {
		if len(images) >= limit {
			break
		}
		if p.ImageURL == "" {
			continue
		}
		alt := p.CommonName
		if alt == "" {
			alt = p.ScientificName
		}
		images = append(images, plant.ImageCandidate{
			URL:    p.ImageURL,
			Source: plant.SourceTrefle.DisplayName(),
			Alt:    alt,
		})
	}
	return images, nil
}

func (t *Trefle) get(ctx context.Context, path string, params url.Values, out any) error {
	if !t.Enabled() {
		return plant.ErrSourceDisabled
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", t.token)
	reqURL := fmt.Sprintf("%s%s?%s", t.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return &plant.HTTPStatusError{Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (t *Trefle) plantURL(p treflePlant) string {
	ref := p.Slug
	if ref == "" {
		ref = fmt.Sprint(p.ID)
	}
	return "https://trefle.io/plants/" + ref
}
