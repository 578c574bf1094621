// Package extract turns one fetched document into a partial product
// record via an ordered fallback chain: embedded structured metadata,
// then per-source selector rules, then a full-text heuristic scan.
// Each step only fills fields still empty; earlier, stronger steps are
// never overwritten by later ones.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gardenshed/seedscout/internal/plant"
)

// Product runs the full fallback chain over doc and returns the
// extracted record. The record is discarded (ErrEmptyExtraction) only
// if no step produced a name.
func Product(doc *goquery.Document, rules RuleSet, pageURL string, source plant.Source) (*plant.ProductRecord, error) {
	rec := &plant.ProductRecord{
		ProductURL: pageURL,
		Source:     source,
	}

	applyStructured(doc, rec, pageURL)
	if !complete(rec) {
		applyRules(doc, rec, rules, pageURL)
	}
	if !complete(rec) {
		applyText(doc, rec)
	}

	if rec.Empty() {
		return nil, plant.ErrEmptyExtraction
	}
	if rec.PriceText != "" && rec.SeedCost == 0 {
		rec.SeedCost = ParsePrice(rec.PriceText)
	}
	return rec, nil
}

// complete reports whether every field the chain targets is filled,
// allowing the chain to stop early.
func complete(rec *plant.ProductRecord) bool {
	return rec.Name != "" &&
		rec.Description != "" &&
		len(rec.Images) > 0 &&
		rec.PriceText != "" &&
		rec.DaysToMaturity > 0 &&
		rec.Spacing != "" &&
		rec.SunRequirements != "" &&
		rec.WaterNeeds != "" &&
		rec.HarvestingNotes != ""
}

// applyRules is the second chain step: ordered alternative selector
// rules tuned per source, plus a keyword-mapped specs table.
func applyRules(doc *goquery.Document, rec *plant.ProductRecord, rules RuleSet, pageURL string) {
	if rec.Name == "" {
		rec.Name = firstText(doc, rules.Name)
	}
	if rec.Description == "" {
		rec.Description = firstText(doc, rules.Description)
	}
	if rec.PriceText == "" {
		rec.PriceText = firstText(doc, rules.Price)
	}
	if len(rec.Images) == 0 {
		for _, sel := range rules.Images {
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				rec.AddImage(imageURL(s, pageURL))
			})
			if len(rec.Images) > 0 {
				break
			}
		}
	}

	for _, sel := range rules.SpecRows {
		doc.Find(sel).Each(func(_ int, row *goquery.Selection) {
			label, value := splitSpecRow(row)
			if label == "" || value == "" {
				return
			}
			applySpec(rec, label, value)
		})
	}
}

// applySpec maps one label/value pair from a specs table onto the
// record, filling only empty fields.
func applySpec(rec *plant.ProductRecord, label, value string) {
	lower := strings.ToLower(label)
	for _, entry := range specKeywords {
		if !containsAny(lower, entry.keywords) {
			continue
		}
		switch entry.field {
		case specDays:
			if rec.DaysToMaturity == 0 {
				rec.DaysToMaturity = ParseDays(value)
			}
		case specSpacing:
			if rec.Spacing == "" {
				rec.Spacing = value
			}
		case specSun:
			if rec.SunRequirements == "" {
				rec.SunRequirements = value
			}
		case specWater:
			if rec.WaterNeeds == "" {
				rec.WaterNeeds = value
			}
		case specHarvest:
			if rec.HarvestingNotes == "" {
				rec.HarvestingNotes = value
			}
		}
		return
	}
}

// firstText tries selectors in order and returns the first non-empty
// trimmed text match.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return collapseSpace(text)
		}
	}
	return ""
}

// splitSpecRow pulls a label/value pair out of a table-ish row. The
// first cell child is the label; the remaining cells join as value.
func splitSpecRow(row *goquery.Selection) (string, string) {
	cells := row.Find("th, td, dt, dd, span, strong").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) != ""
	})
	if cells.Length() < 2 {
		// "Label: value" in one element.
		text := strings.TrimSpace(row.Text())
		if label, value, ok := strings.Cut(text, ":"); ok {
			return collapseSpace(label), collapseSpace(value)
		}
		return "", ""
	}
	label := strings.TrimSuffix(strings.TrimSpace(cells.First().Text()), ":")
	var parts []string
	cells.Slice(1, cells.Length()).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return collapseSpace(label), collapseSpace(strings.Join(parts, " "))
}

// imageURL resolves an <img> selection to an absolute URL, preferring
// src over lazy-load attributes.
func imageURL(s *goquery.Selection, pageURL string) string {
	src, ok := s.Attr("src")
	if !ok || src == "" || strings.HasPrefix(src, "data:") {
		src, _ = s.Attr("data-src")
	}
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	return absoluteURL(src, pageURL)
}

func absoluteURL(src, pageURL string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
