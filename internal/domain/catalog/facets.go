package catalog

import "github.com/xenking/nks-storefront/internal/domain/product"

// ordered collects distinct non-empty values in insertion order.
type ordered struct {
	seen   set
	values []string
}

func (o *ordered) add(v string) {
	if v == "" {
		return
	}
	if o.seen == nil {
		o.seen = make(set)
	}
	if o.seen.has(v) {
		return
	}
	o.seen[v] = struct{}{}
	o.values = append(o.values, v)
}

func (o *ordered) list() []string {
	if o.values == nil {
		return []string{}
	}
	return o.values
}

// DeriveFacets computes facet options over the full product list.
//
// Brands are never narrowed. Models follow the brand selection, engine sizes
// follow brand and model, years follow brand, model and engine size. Each
// vehicle entry is checked on its own, so a product fitting a Mazda 3 and a
// Kia Rio does not offer "Rio" under a Mazda selection. Downstream selections
// never narrow upstream facets.
//
// References are narrowed per product: a product contributes its reference
// when it has some vehicle with a selected brand and some vehicle with a
// selected model.
func DeriveFacets(products []product.Product, sel Selection) Facets {
	brandSel := newSet(sel.Brands)
	modelSel := newSet(sel.Models)
	engineSel := newSet(sel.EngineSizes)

	var brands, models, engines, years, refs ordered
	for _, p := range products {
		for _, v := range p.CompatibleVehicles {
			brands.add(v.Brand)

			if !brandSel.allows(v.Brand) {
				continue
			}
			models.add(v.Model)

			if !modelSel.allows(v.Model) {
				continue
			}
			engines.add(v.EngineSize)

			if !engineSel.allows(v.EngineSize) {
				continue
			}
			years.add(v.Year)
		}

		if anyVehicle(p, brandSel, func(v product.Vehicle) string { return v.Brand }) &&
			anyVehicle(p, modelSel, func(v product.Vehicle) string { return v.Model }) {
			refs.add(p.Reference)
		}
	}

	return Facets{
		Brands:      brands.list(),
		Models:      models.list(),
		EngineSizes: engines.list(),
		Years:       years.list(),
		References:  refs.list(),
	}
}
