// Package canonical produces the AI-derived, schema-complete record
// used to fill gaps left by scraping. It is an independent source run
// in parallel with the site fan-out, never a required one.
package canonical

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/config"
	"github.com/gardenshed/seedscout/internal/plant"
)

// Completer is the slice of the OpenAI client the lookup needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client performs canonical plant lookups. Built once at startup and
// passed in; no module-level singleton.
type Client struct {
	api    Completer
	model  string
	grower config.GrowerConfig
	logger *zap.Logger
}

// New builds a lookup client. An empty API key yields a disabled
// client whose Lookup reports plant.ErrSourceDisabled.
func New(cfg config.CanonicalConfig, grower config.GrowerConfig, logger *zap.Logger) *Client {
	c := &Client{model: cfg.Model, grower: grower, logger: logger}
	if cfg.APIKey != "" {
		c.api = openai.NewClient(cfg.APIKey)
	}
	return c
}

// NewWithClient builds a lookup client on a caller-provided API, used
// when the caller manages the underlying client itself.
func NewWithClient(api Completer, model string, grower config.GrowerConfig, logger *zap.Logger) *Client {
	return &Client{api: api, model: model, grower: grower, logger: logger}
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c.api != nil
}

const systemMessage = `You are a gardening data assistant specializing in home vegetable and flower gardening.
Return ONLY valid JSON matching the requested shape exactly.
If a field is truly unknown, use null (not an empty string).
Prefer common, broadly-correct horticultural guidance when variety-specific details are unknown.
Always try to provide days_to_maturity, spacing, mature_height, sun_requirements, water_needs, companion_plants, growing_notes, harvesting_notes, and the planting schedule.
For planting_season use "Spring", "Fall", or "Spring and Fall".
For category always return "Want to Plant".`

// plantTypes is the fixed classification vocabulary.
var plantTypes = []string{
	"Tomato", "Pepper", "Onion", "Squash", "Bean", "Pea", "Lettuce", "Greens",
	"Herb", "Flower", "Root Vegetable", "Brassica", "Cucumber", "Melon",
	"Corn", "Berry", "Fruit Tree", "Other",
}

// lookupWire mirrors the JSON shape the model is asked to return.
type lookupWire struct {
	Name             string `json:"name"`
	Variety          string `json:"variety"`
	Category         string `json:"category"`
	PlantType        string `json:"plant_type"`
	DaysToMaturity   *int   `json:"days_to_maturity"`
	PlantingSeason   string `json:"planting_season"`
	PlantingSchedule struct {
		StartIndoorsWeeksBeforeLastFrost     *int `json:"start_indoors_weeks_before_last_frost"`
		TransplantOutdoorsWeeksAfterLastFrost *int `json:"transplant_outdoors_weeks_after_last_frost"`
		DirectSowWeeksAfterLastFrost         *int `json:"direct_sow_weeks_after_last_frost"`
	} `json:"planting_schedule"`
	GrowingDetails struct {
		Spacing         string   `json:"spacing"`
		SunRequirements string   `json:"sun_requirements"`
		WaterNeeds      string   `json:"water_needs"`
		CompanionPlants []string `json:"companion_plants"`
		MatureHeight    string   `json:"mature_height"`
		GrowingNotes    string   `json:"growing_notes"`
		HarvestingNotes string   `json:"harvesting_notes"`
	} `json:"growing_details"`
	SeedInfo struct {
		SeedSource    string   `json:"seed_source"`
		SeedSourceURL string   `json:"seed_source_url"`
		SeedCost      *float64 `json:"seed_cost"`
	} `json:"seed_info"`
}

// Lookup asks the model for an import-ready record for query. Failures
// degrade to plant.ErrCanonicalUnavailable; they never abort sibling
// pipeline work.
func (c *Client) Lookup(ctx context.Context, query string) (*plant.CanonicalRecord, error) {
	if !c.Enabled() {
		return nil, plant.ErrSourceDisabled
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.3,
		MaxTokens:   2000,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: c.userMessage(query)},
		},
	})
	if err != nil {
		c.logger.Warn("canonical lookup request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s", plant.ErrCanonicalUnavailable, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty completion", plant.ErrCanonicalUnavailable)
	}

	var wire lookupWire
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &wire); err != nil {
		c.logger.Warn("canonical lookup returned malformed JSON", zap.Error(err))
		return nil, fmt.Errorf("%w: %s", plant.ErrCanonicalUnavailable, err)
	}

	return mapWire(wire, query), nil
}

func (c *Client) userMessage(query string) string {
	return fmt.Sprintf(`Create an import-ready plant record for a garden planner app.

Grower context:
- Location: %s
- USDA Hardiness Zone: %s
- Average last spring frost date: %s
- Average first fall frost date: %s

Plant to look up: %s

Fill in ALL fields you can with accurate horticultural data for this plant.
For plant_type choose exactly one of: %s.
For seed_source, suggest a reputable online seed company that sells this plant if known.

Return a JSON object with keys: name, variety, category, plant_type, days_to_maturity,
planting_season, planting_schedule {start_indoors_weeks_before_last_frost,
transplant_outdoors_weeks_after_last_frost, direct_sow_weeks_after_last_frost},
growing_details {spacing, sun_requirements, water_needs, companion_plants, mature_height,
growing_notes, harvesting_notes}, seed_info {seed_source, seed_source_url, seed_cost}.`,
		c.grower.Location, c.grower.HardinessZone,
		c.grower.LastSpringFrost, c.grower.FirstFallFrost,
		query, strings.Join(plantTypes, ", "))
}

// mapWire converts the model's free labels to domain enums at the
// boundary so downstream stages only ever see mapped values.
func mapWire(w lookupWire, query string) *plant.CanonicalRecord {
	rec := &plant.CanonicalRecord{
		Name:            w.Name,
		Variety:         w.Variety,
		Category:        plant.MapCategory(w.Category),
		PlantType:       w.PlantType,
		DaysToMaturity:  nonNegative(w.DaysToMaturity),
		PlantingSeason:  plant.MapSeason(w.PlantingSeason),
		StartIndoors:    nonNegative(w.PlantingSchedule.StartIndoorsWeeksBeforeLastFrost),
		TransplantWeeks: nonNegative(w.PlantingSchedule.TransplantOutdoorsWeeksAfterLastFrost),
		DirectSowWeeks:  nonNegative(w.PlantingSchedule.DirectSowWeeksAfterLastFrost),
		Spacing:         w.GrowingDetails.Spacing,
		SunRequirements: w.GrowingDetails.SunRequirements,
		WaterNeeds:      w.GrowingDetails.WaterNeeds,
		MatureHeight:    w.GrowingDetails.MatureHeight,
		GrowingNotes:    w.GrowingDetails.GrowingNotes,
		HarvestingNotes: w.GrowingDetails.HarvestingNotes,
		SeedSource:      w.SeedInfo.SeedSource,
		SeedSourceURL:   w.SeedInfo.SeedSourceURL,
	}
	if rec.Name == "" {
		rec.Name = query
	}
	if len(w.GrowingDetails.CompanionPlants) > 0 {
		rec.CompanionPlants = strings.Join(w.GrowingDetails.CompanionPlants, ", ")
	}
	if w.SeedInfo.SeedCost != nil && *w.SeedInfo.SeedCost >= 0 {
		rec.SeedCost = w.SeedInfo.SeedCost
	}
	return rec
}

func nonNegative(v *int) *int {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}
