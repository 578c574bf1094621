package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gardenshed/seedscout/internal/plant"
)

// ldNode is a loosely-typed JSON-LD node. Vendors disagree on whether
// image and offers are scalars or arrays, so everything nontrivial is
// decoded as raw JSON and normalized by hand.
type ldNode struct {
	Type        json.RawMessage `json:"@type"`
	Graph       []ldNode        `json:"@graph"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image"`
	Offers      json.RawMessage `json:"offers"`
}

// applyStructured is the first chain step: machine-readable Product
// blocks embedded in the page. Highest trust; fills any target field
// still empty.
func applyStructured(doc *goquery.Document, rec *plant.ProductRecord, pageURL string) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, node := range decodeLD(s.Text()) {
			if !isProductNode(node) {
				continue
			}
			applyProductNode(node, rec, pageURL)
		}
		return !complete(rec)
	})
}

// decodeLD tolerates a single node, a top-level array, and @graph
// wrappers, flattening all of them into a node list.
func decodeLD(raw string) []ldNode {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var nodes []ldNode
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
			return nil
		}
	} else {
		var node ldNode
		if err := json.Unmarshal([]byte(raw), &node); err != nil {
			return nil
		}
		nodes = []ldNode{node}
	}
	var flat []ldNode
	for _, node := range nodes {
		if len(node.Graph) > 0 {
			flat = append(flat, node.Graph...)
		}
		flat = append(flat, node)
	}
	return flat
}

func isProductNode(node ldNode) bool {
	if len(node.Type) == 0 {
		return false
	}
	var single string
	if err := json.Unmarshal(node.Type, &single); err == nil {
		return strings.EqualFold(single, "Product")
	}
	var many []string
	if err := json.Unmarshal(node.Type, &many); err == nil {
		for _, t := range many {
			if strings.EqualFold(t, "Product") {
				return true
			}
		}
	}
	return false
}

func applyProductNode(node ldNode, rec *plant.ProductRecord, pageURL string) {
	if rec.Name == "" && node.Name != "" {
		rec.Name = collapseSpace(node.Name)
	}
	if rec.Description == "" && node.Description != "" {
		rec.Description = collapseSpace(node.Description)
	}
	if len(rec.Images) == 0 {
		for _, img := range stringList(node.Image) {
			rec.AddImage(absoluteURL(img, pageURL))
		}
	}
	if rec.PriceText == "" {
		if price := offerPrice(node.Offers); price != "" {
			rec.PriceText = price
		}
	}
}

// stringList normalizes a JSON value that may be a string, a list of
// strings, or a list of {url: ...} objects.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var objs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &objs); err == nil {
		out := make([]string, 0, len(objs))
		for _, o := range objs {
			if o.URL != "" {
				out = append(out, o.URL)
			}
		}
		return out
	}
	return nil
}

type ldOffer struct {
	Price    json.RawMessage `json:"price"`
	LowPrice json.RawMessage `json:"lowPrice"`
}

// offerPrice digs the price out of an offers value that may be an
// object or an array, with price encoded as string or number.
func offerPrice(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var offers []ldOffer
	var single ldOffer
	if err := json.Unmarshal(raw, &single); err == nil {
		offers = []ldOffer{single}
	} else if err := json.Unmarshal(raw, &offers); err != nil {
		return ""
	}
	for _, offer := range offers {
		for _, candidate := range [][]byte{offer.Price, offer.LowPrice} {
			if price := rawNumber(candidate); price != "" {
				return price
			}
		}
	}
	return ""
}

func rawNumber(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
