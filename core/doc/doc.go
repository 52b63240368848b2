// Package doc provides the client-side document representation used by the
// document-mode statements. A Doc normalizes object, JSON-text and struct
// input into a plain map so statements and transports can treat every
// document uniformly.
package doc

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IDField is the reserved document identifier member.
const IDField = "_id"

// Doc is a normalized document value.
type Doc map[string]any

// New builds a Doc from the supported input shapes: a Doc, a map, a JSON
// object text ([]byte or string), or a struct (converted through a JSON
// round-trip so field tags are honored).
func New(value any) (Doc, error) {
	switch v := value.(type) {
	case nil:
		return Doc{}, nil
	case Doc:
		// A nil Doc is a valid zero value; normalize it so callers can add
		// members (EnsureID writes into the map).
		if v == nil {
			return Doc{}, nil
		}
		return v, nil
	case map[string]any:
		return normalizeMap(v), nil
	case string:
		return fromJSON([]byte(v))
	case []byte:
		return fromJSON(v)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot build a document from a nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot build a document from %T", value)
	}

	// Structs go through a JSON round-trip so json tags, omitempty and nested
	// values behave exactly as they would on the wire.
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize struct to document: %w", err)
	}
	return fromJSON(raw)
}

func fromJSON(raw []byte) (Doc, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	return Doc(m), nil
}

// normalizeMap copies the input map, converting values the JSON encoder
// cannot represent faithfully. Exact numerics (decimal.Decimal) become
// json.Number so they serialize without float rounding.
func normalizeMap(m map[string]any) Doc {
	out := make(Doc, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return json.Number(val.String())
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		return json.Number(val.String())
	case map[string]any:
		return map[string]any(normalizeMap(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// ID returns the document identifier, if present.
func (d Doc) ID() (string, bool) {
	v, ok := d[IDField]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// EnsureID assigns a generated identifier when the document has none and
// returns the identifier in effect. Existing identifiers are never
// overwritten.
func (d Doc) EnsureID() string {
	if id, ok := d.ID(); ok {
		return id
	}
	id := uuid.NewString()
	d[IDField] = id
	return id
}

// Keys returns the member names of the document in unspecified order.
func (d Doc) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// String returns the stable JSON serialization of the document. Marshaling a
// map sorts keys, so equal documents always serialize identically.
func (d Doc) String() string {
	if d == nil {
		return "{}"
	}
	raw, err := json.Marshal(map[string]any(d))
	if err != nil {
		return "{}"
	}
	return string(raw)
}
