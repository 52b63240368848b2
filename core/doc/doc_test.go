package doc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromMap(t *testing.T) {
	d, err := New(map[string]any{"name": "Fred", "age": 21})
	require.NoError(t, err)
	assert.Equal(t, "Fred", d["name"])
	assert.Equal(t, 21, d["age"])
}

func TestNewFromJSONText(t *testing.T) {
	d, err := New(`{"name": "Fred", "nested": {"city": "Springfield"}}`)
	require.NoError(t, err)
	assert.Equal(t, "Fred", d["name"])
	nested, ok := d["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Springfield", nested["city"])
}

func TestNewFromStruct(t *testing.T) {
	type address struct {
		City string `json:"city"`
	}
	type person struct {
		Name    string  `json:"name"`
		Address address `json:"address"`
	}

	d, err := New(person{Name: "Fred", Address: address{City: "Springfield"}})
	require.NoError(t, err)
	assert.Equal(t, "Fred", d["name"])
	nested, ok := d["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Springfield", nested["city"])
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New("not json")
	assert.Error(t, err)

	_, err = New(42)
	assert.Error(t, err)

	_, err = New(`["an", "array"]`)
	assert.Error(t, err)
}

func TestNewPassesThroughDoc(t *testing.T) {
	original := Doc{"a": 1}
	d, err := New(original)
	require.NoError(t, err)
	assert.Equal(t, original, d)
}

func TestNewNormalizesNilDoc(t *testing.T) {
	d, err := New(Doc(nil))
	require.NoError(t, err)
	require.NotNil(t, d)

	// The normalized document must accept members.
	assert.NotEmpty(t, d.EnsureID())
}

func TestStringNilDoc(t *testing.T) {
	assert.Equal(t, "{}", Doc(nil).String())
}

func TestEnsureID(t *testing.T) {
	d := Doc{"name": "Fred"}
	id := d.EnsureID()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, d[IDField])

	// A second call must not rotate the identifier.
	assert.Equal(t, id, d.EnsureID())

	existing := Doc{IDField: "doc-1"}
	assert.Equal(t, "doc-1", existing.EnsureID())
}

func TestDecimalNormalization(t *testing.T) {
	price := decimal.RequireFromString("19.990000000000001")
	d, err := New(map[string]any{"price": price})
	require.NoError(t, err)
	assert.Contains(t, d.String(), "19.990000000000001")
}

func TestStringStableSerialization(t *testing.T) {
	d := Doc{"b": 2, "a": 1}
	// Map marshaling sorts keys.
	assert.Equal(t, `{"a":1,"b":2}`, d.String())
}
