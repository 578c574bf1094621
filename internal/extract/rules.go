package extract

// RuleSet is a declarative, per-source table of alternative selectors.
// Each field lists selectors in priority order; the first one yielding
// non-empty content wins. Adding a source means adding a table, not
// new control flow. These rot with vendor markup and are expected to
// be replaced wholesale.
type RuleSet struct {
	// Name selectors resolve to the product title text.
	Name []string
	// Description selectors resolve to the long-form description text.
	Description []string
	// Images selectors resolve to <img> elements; src then data-src are
	// consulted on each match.
	Images []string
	// Price selectors resolve to the displayed price text.
	Price []string
	// SpecRows selectors resolve to label/value rows (tr, dl div, li).
	// The first cell-ish child is the label, the rest the value.
	SpecRows []string
}

// specField is a target field a spec-table label can map to.
type specField int

const (
	specNone specField = iota
	specDays
	specSpacing
	specSun
	specWater
	specHarvest
)

// specKeywords maps label substrings to target fields, checked in
// order so "days to harvest" resolves as maturity, not harvest notes.
var specKeywords = []struct {
	keywords []string
	field    specField
}{
	{[]string{"maturity", "days"}, specDays},
	{[]string{"spacing"}, specSpacing},
	{[]string{"sun", "light"}, specSun},
	{[]string{"water"}, specWater},
	{[]string{"harvest"}, specHarvest},
}
