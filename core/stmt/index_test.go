package stmt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlersick/go-mysqlx/core"
)

func indexField(field, fieldType string, extra map[string]any) map[string]any {
	m := map[string]any{"field": field, "type": fieldType}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func TestCreateIndexValidDescription(t *testing.T) {
	conn := newFakeProtocol()
	desc := map[string]any{
		"fields": []map[string]any{
			indexField("$.name", "TEXT(10)", map[string]any{"required": true, "collation": "utf8_general_ci"}),
			indexField("$.age", "INT", nil),
		},
	}
	_, err := NewCreateCollectionIndex(conn, collectionTarget(), "idx_name", desc).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, conn.admin, 1)

	call := conn.admin[0]
	assert.Equal(t, "mysqlx", call.namespace)
	assert.Equal(t, "create_collection_index", call.command)
	assert.True(t, call.mustSucceed)

	args, ok := call.args.(*core.IndexArgs)
	require.True(t, ok)
	assert.Equal(t, "idx_name", args.Name)
	assert.Equal(t, "coll", args.Collection)
	assert.Equal(t, "s", args.Schema)
	assert.Equal(t, "INDEX", args.Type)
	require.Len(t, args.Constraint, 2)
	assert.Equal(t, "$.name", args.Constraint[0].Member)
	assert.Equal(t, "utf8_general_ci", args.Constraint[0].Collation)
	assert.Equal(t, "$.age", args.Constraint[1].Member)
}

func TestCreateIndexSpatialGeoJSON(t *testing.T) {
	conn := newFakeProtocol()
	desc := map[string]any{
		"type": "SPATIAL",
		"fields": []map[string]any{
			indexField("$.coords", "GEOJSON", map[string]any{
				"required": true,
				"options":  2,
				"srid":     4326,
			}),
		},
	}
	_, err := NewCreateCollectionIndex(conn, collectionTarget(), "idx_geo", desc).Execute(context.Background())
	require.NoError(t, err)

	args := conn.admin[0].args.(*core.IndexArgs)
	assert.Equal(t, "SPATIAL", args.Type)
	require.Len(t, args.Constraint, 1)
	require.NotNil(t, args.Constraint[0].Options)
	assert.Equal(t, uint64(2), *args.Constraint[0].Options)
	require.NotNil(t, args.Constraint[0].SRID)
	assert.Equal(t, uint64(4326), *args.Constraint[0].SRID)
	assert.True(t, args.Constraint[0].Required)
}

func TestCreateIndexValidationFailures(t *testing.T) {
	wellFormed := func() map[string]any {
		return map[string]any{
			"fields": []map[string]any{indexField("$.a", "INT", nil)},
		}
	}

	tests := []struct {
		name    string
		index   string
		desc    map[string]any
		message string
	}{
		{
			"empty name", "", wellFormed(),
			"is not valid",
		},
		{
			"non-identifier name", "not an identifier", wellFormed(),
			"is not valid",
		},
		{
			"missing fields", "idx", map[string]any{},
			`required member "fields" not found`,
		},
		{
			"empty fields list", "idx", map[string]any{"fields": []map[string]any{}},
			`required member "fields" not found`,
		},
		{
			"fields not a list", "idx", map[string]any{"fields": "nope"},
			`required member "fields" must contain a list`,
		},
		{
			"stray top-level key", "idx", map[string]any{
				"fields": []map[string]any{indexField("$.a", "INT", nil)},
				"extra":  1,
				"bogus":  2,
			},
			"unidentified fields: bogus, extra",
		},
		{
			"missing field member", "idx", map[string]any{
				"fields": []map[string]any{{"type": "INT"}},
			},
			`required inner member "field" not found`,
		},
		{
			"missing type member", "idx", map[string]any{
				"fields": []map[string]any{{"field": "$.a"}},
			},
			`required inner member "type" not found`,
		},
		{
			"stray inner key", "idx", map[string]any{
				"fields": []map[string]any{indexField("$.a", "INT", map[string]any{"weird": true})},
			},
			"unidentified inner fields: weird",
		},
		{
			// Extraction of every field finishes before the stray-key sweep,
			// so the later field's missing member is reported first.
			"missing member outranks earlier stray key", "idx", map[string]any{
				"fields": []map[string]any{
					indexField("$.a", "INT", map[string]any{"weird": true}),
					{"field": "$.b"},
				},
			},
			`required inner member "type" not found`,
		},
		{
			"spatial without required", "idx", map[string]any{
				"type":   "SPATIAL",
				"fields": []map[string]any{indexField("$.coords", "GEOJSON", nil)},
			},
			`"required" must be set to true when index type is set to "SPATIAL"`,
		},
		{
			"geojson under plain index", "idx", map[string]any{
				"fields": []map[string]any{indexField("$.coords", "GEOJSON", map[string]any{"required": true})},
			},
			`index type must be set to "SPATIAL" when field type is set to "GEOJSON"`,
		},
		{
			"collation on non-text", "idx", map[string]any{
				"fields": []map[string]any{indexField("$.a", "INT", map[string]any{"collation": "utf8_general_ci"})},
			},
			`"collation" member can only be used when field type is set to "TEXT"`,
		},
		{
			"options on non-geojson", "idx", map[string]any{
				"fields": []map[string]any{indexField("$.a", "INT", map[string]any{"options": 2})},
			},
			`"options" member can only be used when field type is set to "GEOJSON"`,
		},
		{
			"srid on non-geojson", "idx", map[string]any{
				"fields": []map[string]any{indexField("$.a", "INT", map[string]any{"srid": 4326})},
			},
			`"srid" member can only be used when field type is set to "GEOJSON"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeProtocol()
			_, err := NewCreateCollectionIndex(conn, collectionTarget(), tt.index, tt.desc).Execute(context.Background())
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.Contains(t, err.Error(), tt.message)
			assert.Empty(t, conn.admin, "a rejected description must not reach the transport")
		})
	}
}

func TestCreateIndexUniqueRefused(t *testing.T) {
	conn := newFakeProtocol()
	desc := map[string]any{
		"unique": true,
		"fields": []map[string]any{indexField("$.a", "INT", nil)},
	}
	_, err := NewCreateCollectionIndex(conn, collectionTarget(), "idx", desc).Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotSupported))
	assert.Empty(t, conn.admin)
}

func TestCreateIndexDescriptionNotMutated(t *testing.T) {
	desc := map[string]any{
		"fields": []map[string]any{indexField("$.a", "INT", nil)},
		"stray":  true,
	}
	conn := newFakeProtocol()
	_, err := NewCreateCollectionIndex(conn, collectionTarget(), "idx", desc).Execute(context.Background())
	require.Error(t, err)

	assert.Len(t, desc, 2, "validation must not mutate the caller's description")
	assert.Contains(t, desc, "stray")
	assert.Contains(t, desc, "fields")
}

func TestCreateIndexJSONDecodedShapes(t *testing.T) {
	// JSON decoding produces []any and float64 values; the validator accepts
	// both shapes.
	conn := newFakeProtocol()
	desc := map[string]any{
		"type": "SPATIAL",
		"fields": []any{
			map[string]any{
				"field":    "$.coords",
				"type":     "GEOJSON",
				"required": true,
				"srid":     float64(4326),
			},
		},
	}
	_, err := NewCreateCollectionIndex(conn, collectionTarget(), "idx", desc).Execute(context.Background())
	require.NoError(t, err)

	args := conn.admin[0].args.(*core.IndexArgs)
	require.Len(t, args.Constraint, 1)
	require.NotNil(t, args.Constraint[0].SRID)
	assert.Equal(t, uint64(4326), *args.Constraint[0].SRID)
}
