package plant

import "strings"

// categoryLabels maps the free-text category labels emitted by the
// canonical source onto catalog categories.
var categoryLabels = map[string]Category{
	"want to plant": CategoryWant,
	"planted":       CategoryCurrent,
	"harvested":     CategoryPast,
	"archived":      CategoryPast,
}

// MapCategory converts a canonical-source category label to a catalog
// category. Unrecognized labels default to "want".
func MapCategory(label string) Category {
	if cat, ok := categoryLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
		return cat
	}
	return CategoryWant
}

// MapSeason converts free season text to a Season. Text naming both
// spring and fall maps to "both"; otherwise whichever single season
// word is present wins. Unrecognized text maps to the empty Season.
func MapSeason(text string) Season {
	lower := strings.ToLower(text)
	spring := strings.Contains(lower, "spring")
	fall := strings.Contains(lower, "fall") || strings.Contains(lower, "autumn")
	switch {
	case spring && fall:
		return SeasonBoth
	case spring:
		return SeasonSpring
	case fall:
		return SeasonFall
	default:
		return ""
	}
}
