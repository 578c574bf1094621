package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gardenshed/seedscout/internal/plant"
)

// Text-scan patterns for labeled quantities in page prose. A day range
// resolves to its arithmetic mean, rounded.
var (
	daysAfterLabelRe  = regexp.MustCompile(`(?i)(?:maturity|matures?\s+in|harvest\s+in)\D{0,20}?(\d{1,3})(?:\s*[-–—]\s*(\d{1,3}))?\s*days?`)
	daysBeforeLabelRe = regexp.MustCompile(`(?i)(\d{1,3})(?:\s*[-–—]\s*(\d{1,3}))?\s*days?\s*(?:to|until|till)\s*(?:maturity|harvest)`)
	daysBareRe        = regexp.MustCompile(`(?i)^\D{0,10}?(\d{1,3})(?:\s*[-–—]\s*(\d{1,3}))?\s*days?\b`)

	sunRe = regexp.MustCompile(`(?i)\b(full sun(?:\s*(?:to|/|,)\s*part(?:ial)?\s+shade)?|part(?:ial)?\s+(?:sun|shade)|full shade)\b`)

	spacingRe = regexp.MustCompile(`(?i)(?:spac\w+|plant|sow|thin)\D{0,25}?(\d{1,3}(?:\s*[-–—]\s*\d{1,3})?\s*(?:inches|inch|in\.|"|feet|foot|ft\.?|cm)(?:\s*apart)?)`)

	startIndoorsRe = regexp.MustCompile(`(?i)start\w*\s+(?:seeds?\s+)?indoors?\D{0,25}?(\d{1,2})(?:\s*[-–—]\s*(\d{1,2}))?\s*weeks?\s+before`)

	priceRe = regexp.MustCompile(`(\d+(?:\.\d{1,2})?)`)
)

// applyText is the last chain step: regex pattern matching over the
// page's visible text for labeled quantities.
func applyText(doc *goquery.Document, rec *plant.ProductRecord) {
	text := visibleText(doc)
	if text == "" {
		return
	}

	if rec.DaysToMaturity == 0 {
		for _, re := range []*regexp.Regexp{daysAfterLabelRe, daysBeforeLabelRe} {
			if m := re.FindStringSubmatch(text); m != nil {
				rec.DaysToMaturity = meanDays(m[1], m[2])
				break
			}
		}
	}
	if rec.SunRequirements == "" {
		if m := sunRe.FindString(text); m != "" {
			rec.SunRequirements = collapseSpace(m)
		}
	}
	if rec.Spacing == "" {
		if m := spacingRe.FindStringSubmatch(text); m != nil {
			rec.Spacing = collapseSpace(m[1])
		}
	}
	if rec.StartIndoors == 0 {
		if m := startIndoorsRe.FindStringSubmatch(text); m != nil {
			rec.StartIndoors = meanDays(m[1], m[2])
		}
	}
}

// ParseDays parses a day count or day range. "60-70 days" yields 65
// (mean, rounded); "45 days" yields 45; unparseable text yields 0.
func ParseDays(value string) int {
	for _, re := range []*regexp.Regexp{daysBareRe, daysAfterLabelRe, daysBeforeLabelRe} {
		if m := re.FindStringSubmatch(value); m != nil {
			return meanDays(m[1], m[2])
		}
	}
	// A bare number in a "Days to Maturity" table cell.
	trimmed := strings.TrimSpace(value)
	if n, err := strconv.Atoi(trimmed); err == nil && n > 0 {
		return n
	}
	return 0
}

func meanDays(lo, hi string) int {
	a, err := strconv.Atoi(lo)
	if err != nil || a < 0 {
		return 0
	}
	if hi == "" {
		return a
	}
	b, err := strconv.Atoi(hi)
	if err != nil || b < a {
		return a
	}
	return int(math.Round(float64(a+b) / 2))
}

// ParsePrice extracts a non-negative price from text like "$3.50" or
// "From $4.25". Unparseable text yields 0.
func ParsePrice(text string) float64 {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	price, err := strconv.ParseFloat(m[1], 64)
	if err != nil || price < 0 {
		return 0
	}
	return price
}

// visibleText returns the page's prose with script and style content
// removed.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	if body.Length() == 0 {
		return collapseSpace(doc.Text())
	}
	body.Find("script, style, noscript").Remove()
	return collapseSpace(body.Text())
}
