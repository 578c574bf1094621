// Package merge combines a scraped product record, the canonical
// lookup record, and generic image candidates into one caller-facing
// record under field-level precedence: scraped values are never
// overwritten, canonical only fills gaps.
package merge

import (
	"github.com/gardenshed/seedscout/internal/plant"
)

// DefaultMaxImages caps the merged image list selected for download.
const DefaultMaxImages = 3

// Options tune a merge. The zero value is usable.
type Options struct {
	// VendorImagesFirst orders the scraped record's own images ahead
	// of generic candidates. Used on the direct-URL path, where the
	// grower already picked the vendor page; the query path prefers
	// generic web candidates, which tend to show the plant rather
	// than a seed packet.
	VendorImagesFirst bool

	// MaxImages bounds the merged image list. Zero means
	// DefaultMaxImages.
	MaxImages int
}

// Merge builds the output record. scraped and canonical are both
// optional; when scraped is absent the baseline is a stub carrying
// only the query text as name.
func Merge(scraped *plant.ProductRecord, canonical *plant.CanonicalRecord, candidates []plant.ImageCandidate, query string, opts Options) plant.MergedRecord {
	max := opts.MaxImages
	if max <= 0 {
		max = DefaultMaxImages
	}

	out := plant.MergedRecord{Name: query, Category: plant.CategoryWant}
	if !scraped.Empty() {
		out.Name = scraped.Name
		out.Variety = scraped.Variety
		out.Description = scraped.Description
		out.Spacing = scraped.Spacing
		out.SunRequirements = scraped.SunRequirements
		out.WaterNeeds = scraped.WaterNeeds
		out.DaysToMaturity = scraped.DaysToMaturity
		out.GrowingNotes = scraped.GrowingNotes
		out.HarvestingNotes = scraped.HarvestingNotes
		out.SeedCost = scraped.SeedCost
		out.StartIndoors = scraped.StartIndoors
		out.SourceURL = scraped.ProductURL
		out.Source = scraped.Source
	}

	if canonical != nil {
		fillString(&out.Variety, canonical.Variety)
		fillString(&out.PlantType, canonical.PlantType)
		fillString(&out.Spacing, canonical.Spacing)
		fillString(&out.SunRequirements, canonical.SunRequirements)
		fillString(&out.WaterNeeds, canonical.WaterNeeds)
		fillString(&out.CompanionPlants, canonical.CompanionPlants)
		fillString(&out.MatureHeight, canonical.MatureHeight)
		fillString(&out.GrowingNotes, canonical.GrowingNotes)
		fillString(&out.HarvestingNotes, canonical.HarvestingNotes)
		fillString(&out.SeedSource, canonical.SeedSource)
		fillString(&out.SeedSourceURL, canonical.SeedSourceURL)
		fillInt(&out.DaysToMaturity, canonical.DaysToMaturity)
		fillInt(&out.StartIndoors, canonical.StartIndoors)
		fillInt(&out.TransplantWeeks, canonical.TransplantWeeks)
		fillInt(&out.DirectSowWeeks, canonical.DirectSowWeeks)
		fillFloat(&out.SeedCost, canonical.SeedCost)
		if out.PlantingSeason == "" {
			out.PlantingSeason = canonical.PlantingSeason
		}
		if canonical.Category != "" {
			out.Category = canonical.Category
		}
	}

	out.Images = mergeImages(scraped, candidates, opts.VendorImagesFirst, max)
	return out
}

// mergeImages unions scraped images with generic candidates,
// deduplicated by exact URL and capped to max.
func mergeImages(scraped *plant.ProductRecord, candidates []plant.ImageCandidate, vendorFirst bool, max int) []string {
	var ordered []string
	if vendorFirst && !scraped.Empty() {
		ordered = append(ordered, scraped.Images...)
	}
	for _, c := range candidates {
		ordered = append(ordered, c.URL)
	}
	if !vendorFirst && !scraped.Empty() {
		ordered = append(ordered, scraped.Images...)
	}

	seen := make(map[string]struct{}, len(ordered))
	out := make([]string, 0, max)
	for _, url := range ordered {
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
		if len(out) == max {
			break
		}
	}
	return out
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

func fillInt(dst *int, src *int) {
	if *dst == 0 && src != nil {
		*dst = *src
	}
}

func fillFloat(dst *float64, src *float64) {
	if *dst == 0 && src != nil {
		*dst = *src
	}
}
