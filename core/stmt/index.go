package stmt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/expr"
)

// Index types with constraint-level rules attached to them.
const (
	indexTypeDefault = "INDEX"
	indexTypeSpatial = "SPATIAL"
	fieldTypeGeoJSON = "GEOJSON"
)

// CreateCollectionIndexStatement validates a raw index description and, only
// when every stage passes, hands the canonical argument structure to the
// administrative create-index command. The raw description is never mutated:
// validation runs against the caller's maps with an explicit consumed-key
// set, and leftovers are reported as set difference.
type CreateCollectionIndexStatement struct {
	statement
	indexName string
	indexDesc map[string]any
}

// NewCreateCollectionIndex builds a collection index creation statement.
func NewCreateCollectionIndex(conn core.Protocol, target core.Target, indexName string, indexDesc map[string]any) *CreateCollectionIndexStatement {
	return &CreateCollectionIndexStatement{
		statement: newStatement(conn, target),
		indexName: indexName,
		indexDesc: indexDesc,
	}
}

// Execute validates the index description and runs the administrative
// command. Each validation stage fails fast with a specific error; nothing
// reaches the transport unless all stages pass.
func (s *CreateCollectionIndexStatement) Execute(ctx context.Context) (*core.Result, error) {
	args, err := s.validate()
	if err != nil {
		return nil, err
	}
	return s.conn.ExecuteAdminCommand(ctx, "mysqlx", "create_collection_index", true, args)
}

func (s *CreateCollectionIndexStatement) validate() (*core.IndexArgs, error) {
	// Stage 1: the index name must parse to a plain identifier expression.
	if s.indexName == "" {
		return nil, core.NewValidationError("create_index",
			"the given index name %q is not valid", s.indexName)
	}
	parsed, err := expr.ParseExpr(s.indexName, false)
	if err != nil || parsed.Tree.Kind != expr.KindIdent {
		return nil, core.NewValidationError("create_index",
			"the given index name %q is not valid", s.indexName)
	}

	consumed := map[string]bool{}

	// Stage 2: the fields member must be present and hold a non-empty list.
	rawFields, ok := s.indexDesc["fields"]
	fields, isList := asFieldList(rawFields)
	if !ok || (isList && len(fields) == 0) {
		return nil, core.NewValidationError("create_index",
			"required member \"fields\" not found in the given index description")
	}
	if !isList {
		return nil, core.NewValidationError("create_index",
			"required member \"fields\" must contain a list")
	}
	consumed["fields"] = true

	args := &core.IndexArgs{
		Name:       s.indexName,
		Collection: s.target.Name,
		Schema:     s.target.Schema,
		Type:       indexTypeDefault,
	}
	if rawType, ok := s.indexDesc["type"]; ok {
		typeStr, isStr := rawType.(string)
		if !isStr {
			return nil, core.NewValidationError("create_index",
				"index member \"type\" must be a string")
		}
		args.Type = typeStr
		consumed["type"] = true
	}

	// Stage 3: unique is read out before the unconsumed-key check so that any
	// other stray key is still reported, but a true value is refused outright.
	if rawUnique, ok := s.indexDesc["unique"]; ok {
		unique, isBool := rawUnique.(bool)
		if !isBool {
			return nil, core.NewValidationError("create_index",
				"index member \"unique\" must be a boolean")
		}
		args.Unique = unique
		consumed["unique"] = true
	}
	if args.Unique {
		return nil, core.NotSupportedError("unique indexes are not supported")
	}

	// Stage 4: no unrecognized top-level keys.
	if leftover := unconsumedKeys(s.indexDesc, consumed); len(leftover) > 0 {
		return nil, core.NewValidationError("create_index",
			"unidentified fields: %s", strings.Join(leftover, ", "))
	}

	// Stage 5: per-field constraint extraction and cross-field rules.
	indexType := strings.ToUpper(args.Type)
	extracted := make([]constraintResult, 0, len(fields))
	for _, fieldDesc := range fields {
		constraint, err := validateConstraint(indexType, fieldDesc)
		if err != nil {
			return nil, err
		}
		args.Constraint = append(args.Constraint, constraint.IndexConstraint)
		extracted = append(extracted, constraint)
	}

	// Stage 6: no unrecognized keys inside any field entry. The sweep runs
	// only after every constraint extracted, so a missing required member in
	// a later field outranks a stray key in an earlier one.
	for i, fieldDesc := range fields {
		if leftover := unconsumedKeys(fieldDesc, extracted[i].consumed); len(leftover) > 0 {
			return nil, core.NewValidationError("create_index",
				"unidentified inner fields: %s", strings.Join(leftover, ", "))
		}
	}

	return args, nil
}

// constraintResult pairs a validated constraint with the keys its extraction
// consumed.
type constraintResult struct {
	core.IndexConstraint
	consumed map[string]bool
}

func validateConstraint(indexType string, fieldDesc map[string]any) (constraintResult, error) {
	res := constraintResult{consumed: map[string]bool{}}

	member, ok := fieldDesc["field"].(string)
	if !ok {
		return res, core.NewValidationError("create_index",
			"required inner member \"field\" not found in constraint: %v", fieldDesc)
	}
	res.consumed["field"] = true
	res.Member = member

	fieldType, ok := fieldDesc["type"].(string)
	if !ok {
		return res, core.NewValidationError("create_index",
			"required inner member \"type\" not found in constraint: %v", fieldDesc)
	}
	res.consumed["type"] = true
	res.Type = fieldType

	if rawRequired, ok := fieldDesc["required"]; ok {
		required, isBool := rawRequired.(bool)
		if !isBool {
			return res, core.NewValidationError("create_index",
				"inner member \"required\" must be a boolean")
		}
		res.Required = required
		res.consumed["required"] = true
	}

	upperFieldType := strings.ToUpper(fieldType)
	if indexType == indexTypeSpatial && !res.Required {
		return res, core.NewValidationError("create_index",
			"field member \"required\" must be set to true when index type is set to \"SPATIAL\"")
	}
	if indexType == indexTypeDefault && upperFieldType == fieldTypeGeoJSON {
		return res, core.NewValidationError("create_index",
			"index type must be set to \"SPATIAL\" when field type is set to \"GEOJSON\"")
	}

	if rawCollation, ok := fieldDesc["collation"]; ok {
		if !strings.HasPrefix(upperFieldType, "TEXT") {
			return res, core.NewValidationError("create_index",
				"the \"collation\" member can only be used when field type is set to \"TEXT\"")
		}
		collation, isStr := rawCollation.(string)
		if !isStr {
			return res, core.NewValidationError("create_index",
				"inner member \"collation\" must be a string")
		}
		res.Collation = collation
		res.consumed["collation"] = true
	}

	// options and srid are legal only on GEOJSON members.
	for _, key := range []string{"options", "srid"} {
		rawValue, ok := fieldDesc[key]
		if !ok {
			continue
		}
		if upperFieldType != fieldTypeGeoJSON {
			return res, core.NewValidationError("create_index",
				"the %q member can only be used when field type is set to \"GEOJSON\"", key)
		}
		value, err := asUint64(rawValue)
		if err != nil {
			return res, core.NewValidationError("create_index",
				"inner member %q must be an unsigned integer", key)
		}
		if key == "options" {
			res.Options = &value
		} else {
			res.SRID = &value
		}
		res.consumed[key] = true
	}

	return res, nil
}

// asFieldList accepts the JSON-decoded and the directly-constructed shapes of
// the fields member.
func asFieldList(raw any) ([]map[string]any, bool) {
	switch v := raw.(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	default:
		return nil, false
	}
}

func asUint64(raw any) (uint64, error) {
	switch v := raw.(type) {
	case int:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d", v)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d", v)
		}
		return uint64(v), nil
	case uint64:
		return v, nil
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("value %v is not an unsigned integer", v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

// unconsumedKeys returns the keys of m missing from consumed, sorted for
// stable error messages.
func unconsumedKeys(m map[string]any, consumed map[string]bool) []string {
	var leftover []string
	for key := range m {
		if !consumed[key] {
			leftover = append(leftover, key)
		}
	}
	sort.Strings(leftover)
	return leftover
}
