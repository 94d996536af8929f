package product

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Document field names shared by every document store adapter.
const (
	FieldTitle              = "title"
	FieldDescription        = "description"
	FieldPrice              = "price"
	FieldNetPrice           = "netPrice"
	FieldDiscount           = "discount"
	FieldStock              = "stock"
	FieldThumbnail          = "thumbnail"
	FieldReference          = "reference"
	FieldAdditionalImages   = "additionalImages"
	FieldCompatibleVehicles = "compatibleVehicles"
)

// FromDocument builds a Product from a raw store document.
//
// Documents are written by hand in the admin console, so numeric fields may
// arrive as strings, integers or floats. Prices parse the leading numeric
// prefix and fall back to zero, stock is truncated to a non-negative integer
// and a missing discount means zero.
func FromDocument(id string, doc map[string]any) Product {
	p := Product{
		ID:          id,
		Title:       stringValue(doc[FieldTitle]),
		Description: stringValue(doc[FieldDescription]),
		Price:       decimalValue(doc[FieldPrice]),
		NetPrice:    decimalValue(doc[FieldNetPrice]),
		Discount:    decimalValue(doc[FieldDiscount]),
		Stock:       intValue(doc[FieldStock]),
		Thumbnail:   stringValue(doc[FieldThumbnail]),
		Reference:   stringValue(doc[FieldReference]),
	}
	if p.Stock < 0 {
		p.Stock = 0
	}

	if images, ok := doc[FieldAdditionalImages].([]any); ok {
		for _, img := range images {
			if s := stringValue(img); s != "" {
				p.AdditionalImages = append(p.AdditionalImages, s)
			}
		}
	}

	if vehicles, ok := doc[FieldCompatibleVehicles].([]any); ok {
		for _, raw := range vehicles {
			v, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			p.CompatibleVehicles = append(p.CompatibleVehicles, Vehicle{
				Brand:      stringValue(v["brand"]),
				Model:      stringValue(v["model"]),
				Year:       stringValue(v["year"]),
				EngineSize: stringValue(v["engineSize"]),
			})
		}
	}

	return p
}

// ToDocument is the inverse of FromDocument, used when seeding stores.
func ToDocument(p Product) map[string]any {
	vehicles := make([]any, len(p.CompatibleVehicles))
	for i, v := range p.CompatibleVehicles {
		vehicles[i] = map[string]any{
			"brand":      v.Brand,
			"model":      v.Model,
			"year":       v.Year,
			"engineSize": v.EngineSize,
		}
	}
	images := make([]any, len(p.AdditionalImages))
	for i, img := range p.AdditionalImages {
		images[i] = img
	}
	return map[string]any{
		FieldTitle:              p.Title,
		FieldDescription:        p.Description,
		FieldPrice:              p.Price.String(),
		FieldNetPrice:           p.NetPrice.String(),
		FieldDiscount:           p.Discount.String(),
		FieldStock:              int64(p.Stock),
		FieldThumbnail:          p.Thumbnail,
		FieldReference:          p.Reference,
		FieldAdditionalImages:   images,
		FieldCompatibleVehicles: vehicles,
	}
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

func decimalValue(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(n))
		if m == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(m)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(n)
	case float32:
		return decimalValue(float64(n))
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	case bool:
		return decimal.Zero
	case fmt.Stringer:
		return decimalValue(n.String())
	default:
		return decimal.Zero
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(n))
		if i := strings.IndexAny(m, ".eE"); i >= 0 {
			m = m[:i]
		}
		i, err := strconv.Atoi(m)
		if err != nil {
			return 0
		}
		return i
	default:
		return int(decimalValue(v).IntPart())
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case decimal.Decimal:
		return s.String()
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
