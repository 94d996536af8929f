// Package catalog narrows a product list by search text, price, vehicle
// compatibility and discount, and derives the cascading vehicle facets shown
// next to the results.
//
// Everything here is a pure function of its inputs: callers fetch the full
// list and pass the current selection on every call.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/nks-storefront/internal/domain/product"
)

// Selection is the set of active filters. Zero value selects everything.
type Selection struct {
	// Text is matched case-insensitively against title, description and
	// reference. Empty means inactive.
	Text string
	// MinPrice and MaxPrice bound netPrice inclusively. Nil means unbounded.
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal

	Brands      []string
	Models      []string
	EngineSizes []string
	Years       []string

	// DiscountOnly keeps only products with discount > 0.
	DiscountOnly bool
}

// Facets lists the option values available for each vehicle attribute.
// Values keep the order in which they first appear in the product list.
type Facets struct {
	Brands      []string
	Models      []string
	EngineSizes []string
	Years       []string
	References  []string
}

// PriceBounds is the default price range: zero up to the highest netPrice.
type PriceBounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Result is the output of Apply.
type Result struct {
	Visible []product.Product
	Facets  Facets
	Bounds  PriceBounds
}

// Apply filters products by sel and computes facets over the full list.
func Apply(products []product.Product, sel Selection) Result {
	m := newMatcher(sel)

	visible := make([]product.Product, 0, len(products))
	for _, p := range products {
		if m.match(p) {
			visible = append(visible, p)
		}
	}

	return Result{
		Visible: visible,
		Facets:  DeriveFacets(products, sel),
		Bounds:  Bounds(products),
	}
}

// Bounds returns [0, max netPrice] over products.
func Bounds(products []product.Product) PriceBounds {
	b := PriceBounds{Min: decimal.Zero, Max: decimal.Zero}
	for _, p := range products {
		if p.NetPrice.GreaterThan(b.Max) {
			b.Max = p.NetPrice
		}
	}
	return b
}

type matcher struct {
	text        string
	sel         Selection
	brands      set
	models      set
	engineSizes set
	years       set
}

func newMatcher(sel Selection) matcher {
	return matcher{
		text:        strings.ToLower(sel.Text),
		sel:         sel,
		brands:      newSet(sel.Brands),
		models:      newSet(sel.Models),
		engineSizes: newSet(sel.EngineSizes),
		years:       newSet(sel.Years),
	}
}

func (m matcher) match(p product.Product) bool {
	if m.text != "" &&
		!strings.Contains(strings.ToLower(p.Title), m.text) &&
		!strings.Contains(strings.ToLower(p.Description), m.text) &&
		!strings.Contains(strings.ToLower(p.Reference), m.text) {
		return false
	}
	if m.sel.MinPrice != nil && p.NetPrice.LessThan(*m.sel.MinPrice) {
		return false
	}
	if m.sel.MaxPrice != nil && p.NetPrice.GreaterThan(*m.sel.MaxPrice) {
		return false
	}
	if !anyVehicle(p, m.brands, func(v product.Vehicle) string { return v.Brand }) ||
		!anyVehicle(p, m.models, func(v product.Vehicle) string { return v.Model }) ||
		!anyVehicle(p, m.engineSizes, func(v product.Vehicle) string { return v.EngineSize }) ||
		!anyVehicle(p, m.years, func(v product.Vehicle) string { return v.Year }) {
		return false
	}
	if m.sel.DiscountOnly && !p.HasDiscount() {
		return false
	}
	return true
}

// anyVehicle reports whether some compatible vehicle has attr in s.
// An empty set always matches.
func anyVehicle(p product.Product, s set, attr func(product.Vehicle) string) bool {
	if len(s) == 0 {
		return true
	}
	for _, v := range p.CompatibleVehicles {
		if s.has(attr(v)) {
			return true
		}
	}
	return false
}

type set map[string]struct{}

func newSet(values []string) set {
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

// allows is like has but an empty set admits every value.
func (s set) allows(v string) bool {
	return len(s) == 0 || s.has(v)
}
