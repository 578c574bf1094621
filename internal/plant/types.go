// Package plant defines the domain types shared across the acquisition
// pipeline: per-source search results, scraped product records, the
// AI-derived canonical record, and the merged caller-facing output.
package plant

// Source identifies one external data provider.
type Source string

// Known sources. Every record and error in the pipeline is tagged with
// exactly one of these.
const (
	SourceJohnnySeeds Source = "johnnyseeds"
	SourceBakerCreek  Source = "bakercreek"
	SourceBurpee      Source = "burpee"
	SourceTerritorial Source = "territorial"
	SourceTrefle      Source = "trefle"
	SourceWikipedia   Source = "wikipedia"
	SourceWeb         Source = "web"
	SourceCanonical   Source = "canonical"
)

// displayNames maps sources to the names shown in user-facing errors.
var displayNames = map[Source]string{
	SourceJohnnySeeds: "Johnny's Seeds",
	SourceBakerCreek:  "Baker Creek",
	SourceBurpee:      "Burpee",
	SourceTerritorial: "Territorial Seed",
	SourceTrefle:      "Trefle",
	SourceWikipedia:   "Wikipedia",
	SourceWeb:         "Web",
	SourceCanonical:   "AI Lookup",
}

// DisplayName returns the human-readable name for a source. Unknown
// sources fall back to the raw tag.
func (s Source) DisplayName() string {
	if name, ok := displayNames[s]; ok {
		return name
	}
	return string(s)
}

// Category is the catalog state a plant record lands in.
type Category string

// Catalog categories.
const (
	CategoryWant    Category = "want"
	CategoryCurrent Category = "current"
	CategoryPast    Category = "past"
)

// Season is the planting-season classification.
type Season string

// Planting seasons.
const (
	SeasonSpring Season = "spring"
	SeasonFall   Season = "fall"
	SeasonBoth   Season = "both"
)

// SearchResult is one hit from a source's search page or search API.
// Ephemeral; produced per query and never persisted.
type SearchResult struct {
	Name      string `json:"name"`
	Variety   string `json:"variety,omitempty"`
	URL       string `json:"url"`
	ImageURL  string `json:"image_url,omitempty"`
	PriceText string `json:"price,omitempty"`
	Source    Source `json:"source"`
}

// ProductRecord is the structured output of one successful detail
// fetch. Days-to-maturity and seed cost are non-negative when set;
// zero means unknown.
type ProductRecord struct {
	Name            string   `json:"name"`
	Variety         string   `json:"variety,omitempty"`
	Description     string   `json:"description,omitempty"`
	Spacing         string   `json:"spacing,omitempty"`
	SunRequirements string   `json:"sun_requirements,omitempty"`
	WaterNeeds      string   `json:"water_needs,omitempty"`
	DaysToMaturity  int      `json:"days_to_maturity,omitempty"`
	GrowingNotes    string   `json:"growing_notes,omitempty"`
	HarvestingNotes string   `json:"harvesting_notes,omitempty"`
	PriceText       string   `json:"price,omitempty"`
	SeedCost        float64  `json:"seed_cost,omitempty"`
	ProductURL      string   `json:"product_url"`
	Images          []string `json:"images,omitempty"`
	Source          Source   `json:"source"`
	StartIndoors    int      `json:"start_indoors_weeks,omitempty"`
}

// Empty reports whether the record should be treated as absent. A
// record without a name is not a zero-value result, it is no result.
func (p *ProductRecord) Empty() bool {
	return p == nil || p.Name == ""
}

// AddImage appends url unless it is blank or already present.
func (p *ProductRecord) AddImage(url string) {
	if url == "" {
		return
	}
	for _, existing := range p.Images {
		if existing == url {
			return
		}
	}
	p.Images = append(p.Images, url)
}

// CanonicalRecord is the schema-complete best-guess record produced by
// the AI lookup. Pointer fields distinguish "unknown" from zero.
type CanonicalRecord struct {
	Name            string   `json:"name"`
	Variety         string   `json:"variety,omitempty"`
	Category        Category `json:"category"`
	PlantType       string   `json:"plant_type,omitempty"`
	DaysToMaturity  *int     `json:"days_to_maturity,omitempty"`
	PlantingSeason  Season   `json:"planting_season,omitempty"`
	StartIndoors    *int     `json:"start_indoors_weeks,omitempty"`
	TransplantWeeks *int     `json:"transplant_weeks,omitempty"`
	DirectSowWeeks  *int     `json:"direct_sow_weeks,omitempty"`
	Spacing         string   `json:"spacing,omitempty"`
	SunRequirements string   `json:"sun_requirements,omitempty"`
	WaterNeeds      string   `json:"water_needs,omitempty"`
	CompanionPlants string   `json:"companion_plants,omitempty"`
	MatureHeight    string   `json:"mature_height,omitempty"`
	GrowingNotes    string   `json:"growing_notes,omitempty"`
	HarvestingNotes string   `json:"harvesting_notes,omitempty"`
	SeedSource      string   `json:"seed_source,omitempty"`
	SeedSourceURL   string   `json:"seed_source_url,omitempty"`
	SeedCost        *float64 `json:"seed_cost,omitempty"`
}

// MergedRecord is the caller-facing union of scraped and canonical
// data under field-level precedence, plus the deduplicated image list
// selected for download.
type MergedRecord struct {
	Name            string   `json:"name"`
	Variety         string   `json:"variety,omitempty"`
	Description     string   `json:"description,omitempty"`
	Category        Category `json:"category"`
	PlantType       string   `json:"plant_type,omitempty"`
	Spacing         string   `json:"spacing,omitempty"`
	SunRequirements string   `json:"sun_requirements,omitempty"`
	WaterNeeds      string   `json:"water_needs,omitempty"`
	DaysToMaturity  int      `json:"days_to_maturity,omitempty"`
	PlantingSeason  Season   `json:"planting_season,omitempty"`
	StartIndoors    int      `json:"start_indoors_weeks,omitempty"`
	TransplantWeeks int      `json:"transplant_weeks,omitempty"`
	DirectSowWeeks  int      `json:"direct_sow_weeks,omitempty"`
	CompanionPlants string   `json:"companion_plants,omitempty"`
	MatureHeight    string   `json:"mature_height,omitempty"`
	GrowingNotes    string   `json:"growing_notes,omitempty"`
	HarvestingNotes string   `json:"harvesting_notes,omitempty"`
	SeedSource      string   `json:"seed_source,omitempty"`
	SeedSourceURL   string   `json:"seed_source_url,omitempty"`
	SeedCost        float64  `json:"seed_cost,omitempty"`
	SourceURL       string   `json:"source_url,omitempty"`
	Source          Source   `json:"source,omitempty"`
	Images          []string `json:"images,omitempty"`
}

// ImageCandidate is a downloadable image discovered by search.
type ImageCandidate struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Alt    string `json:"alt,omitempty"`
}
