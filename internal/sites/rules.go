package sites

import (
	"github.com/gardenshed/seedscout/internal/extract"
	"github.com/gardenshed/seedscout/internal/plant"
)

// SearchRules selects result tiles on a vendor search page. Like
// extract.RuleSet, each field is an ordered alternative list.
type SearchRules struct {
	Item  []string
	Name  []string
	Link  []string
	Image []string
	Price []string
}

// SiteConfig is the declarative definition of one vendor site. Markup
// rules are data: they rot per vendor and get swapped without touching
// control flow.
type SiteConfig struct {
	Source    plant.Source
	SearchURL string // %s receives the escaped query
	Search    SearchRules
	Detail    extract.RuleSet
}

// vendorSites holds the rule tables for every scrapeable vendor.
var vendorSites = []SiteConfig{
	{
		Source:    plant.SourceJohnnySeeds,
		SearchURL: "https://www.johnnyseeds.com/search?q=%s",
		Search: SearchRules{
			Item:  []string{"div.product-tile", "div.product-grid .product"},
			Name:  []string{"a.link.product-name", ".pdp-link a", ".product-name"},
			Link:  []string{"a.link.product-name", ".pdp-link a", "a"},
			Image: []string{"img.tile-image", "img"},
			Price: []string{"span.sales .value", ".price .value", ".price"},
		},
		Detail: extract.RuleSet{
			Name:        []string{"h1.product-name", "h1"},
			Description: []string{"div.product-detail-description", "div.short-description", "div.description-and-detail"},
			Images:      []string{"div.primary-images img", "img.product-image", "div.carousel-item img"},
			Price:       []string{"span.sales .value", ".prices .price .value", ".price"},
			SpecRows:    []string{"div.product-attributes .attribute", "table.product-specs tr", "ul.specs li"},
		},
	},
	{
		Source:    plant.SourceBakerCreek,
		SearchURL: "https://www.rareseeds.com/catalogsearch/result/?q=%s",
		Search: SearchRules{
			Item:  []string{"li.item.product", "div.product-item"},
			Name:  []string{"a.product-item-link", ".product-name a"},
			Link:  []string{"a.product-item-link", ".product-item-photo", "a"},
			Image: []string{"img.product-image-photo", "img"},
			Price: []string{"span.price", ".price-box .price"},
		},
		Detail: extract.RuleSet{
			Name:        []string{"h1.page-title span", "h1.page-title", "h1"},
			Description: []string{"div.product.attribute.description .value", "div.product-info-description", "#description"},
			Images:      []string{"div.gallery-placeholder img", "img.gallery-image", ".fotorama__stage img"},
			Price:       []string{"span.price-wrapper .price", "span.price"},
			SpecRows:    []string{"table.additional-attributes tr", "div.product-info-attributes li"},
		},
	},
	{
		Source:    plant.SourceBurpee,
		SearchURL: "https://www.burpee.com/search?q=%s",
		Search: SearchRules{
			Item:  []string{"div.product-tile", "li.grid-tile"},
			Name:  []string{"a.product-tile-title", ".product-name a", ".tile-body a"},
			Link:  []string{"a.product-tile-title", ".product-name a", "a"},
			Image: []string{"img.product-tile-image", "img"},
			Price: []string{"span.sales", ".product-pricing .price", ".price"},
		},
		Detail: extract.RuleSet{
			Name:        []string{"h1.product-name", "h1[itemprop=name]", "h1"},
			Description: []string{"div.product-long-description", "div[itemprop=description]", ".pdp-description"},
			Images:      []string{"div.product-images img", "img.primary-image", "picture img"},
			Price:       []string{"span.sales .value", "span[itemprop=price]", ".price"},
			SpecRows:    []string{"div.product-specs .spec-row", "table.specs tr", "ul.product-attributes li"},
		},
	},
	{
		Source:    plant.SourceTerritorial,
		SearchURL: "https://territorialseed.com/search?q=%s",
		Search: SearchRules{
			Item:  []string{"div.product-card", "div.grid-product"},
			Name:  []string{"a.product-card-title", ".grid-product__title"},
			Link:  []string{"a.product-card-title", "a.grid-product__link", "a"},
			Image: []string{"img.product-card-image", "img"},
			Price: []string{"span.product-card-price", ".grid-product__price"},
		},
		Detail: extract.RuleSet{
			Name:        []string{"h1.product-single-title", "h1.product__title", "h1"},
			Description: []string{"div.product-single-description", "div.product__description", ".rte"},
			Images:      []string{"div.product-single-photos img", "img.product-featured-img", ".product__media img"},
			Price:       []string{"span.product-single-price", "span.product__price", ".price-item"},
			SpecRows:    []string{"div.product-specs tr", "ul.product-details li", "table tr"},
		},
	},
}
