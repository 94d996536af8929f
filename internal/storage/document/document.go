// Package document converts between JSON and the generic document maps the
// stores pass around. Numbers decode to decimal.Decimal so prices keep their
// exact value.
package document

import (
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Decode parses a JSON object into a map. Nested objects become
// map[string]any, arrays []any and numbers decimal.Decimal.
func Decode(b []byte) (map[string]any, error) {
	d := jx.DecodeBytes(b)
	if d.Next() != jx.Object {
		return nil, errors.New("document is not an object")
	}
	v, err := decodeValue(d)
	if err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	return v.(map[string]any), nil
}

func decodeValue(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.Object:
		m := map[string]any{}
		err := d.Obj(func(d *jx.Decoder, key string) error {
			v, err := decodeValue(d)
			m[key] = v
			return err
		})
		return m, err
	case jx.Array:
		arr := []any{}
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeValue(d)
			arr = append(arr, v)
			return err
		})
		return arr, err
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		return decimal.NewFromString(n.String())
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	default:
		return nil, errors.Errorf("unexpected token %s", d.Next())
	}
}

// Encode writes m as a JSON object with keys sorted.
func Encode(m map[string]any) []byte {
	var e jx.Encoder
	encodeValue(&e, m)
	return e.Bytes()
}

func encodeValue(e *jx.Encoder, v any) {
	switch t := v.(type) {
	case nil:
		e.Null()
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.ObjStart()
		for _, k := range keys {
			e.FieldStart(k)
			encodeValue(e, t[k])
		}
		e.ObjEnd()
	case []any:
		e.ArrStart()
		for _, item := range t {
			encodeValue(e, item)
		}
		e.ArrEnd()
	case []string:
		e.ArrStart()
		for _, item := range t {
			e.Str(item)
		}
		e.ArrEnd()
	case string:
		e.Str(t)
	case bool:
		e.Bool(t)
	case int:
		e.Int(t)
	case int32:
		e.Int32(t)
	case int64:
		e.Int64(t)
	case float64:
		e.Float64(t)
	case float32:
		e.Float32(t)
	case decimal.Decimal:
		e.Num(jx.Num(t.String()))
	case time.Time:
		e.Str(t.UTC().Format(time.RFC3339Nano))
	default:
		e.Null()
	}
}
