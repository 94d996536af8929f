package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Query parameter names understood by ParseSelection.
const (
	ParamText        = "q"
	ParamMinPrice    = "minPrice"
	ParamMaxPrice    = "maxPrice"
	ParamBrands      = "brands"
	ParamModels      = "models"
	ParamEngineSizes = "engineSizes"
	ParamYears       = "years"
	ParamDiscount    = "discount"
)

// InvalidParamError reports a query parameter that could not be parsed.
type InvalidParamError struct {
	Param string
	Value string
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Param)
}

// ParseSelection reads a Selection from query parameters. Facet parameters
// are repeated, one value each.
func ParseSelection(q url.Values) (Selection, error) {
	sel := Selection{
		Text:         strings.TrimSpace(q.Get(ParamText)),
		Brands:       values(q, ParamBrands),
		Models:       values(q, ParamModels),
		EngineSizes:  values(q, ParamEngineSizes),
		Years:        values(q, ParamYears),
		DiscountOnly: q.Get(ParamDiscount) == "true",
	}

	var err error
	if sel.MinPrice, err = price(q, ParamMinPrice); err != nil {
		return Selection{}, err
	}
	if sel.MaxPrice, err = price(q, ParamMaxPrice); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func values(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func price(q url.Values, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.Wrap(&InvalidParamError{Param: key, Value: raw}, "parse selection")
	}
	return &d, nil
}
