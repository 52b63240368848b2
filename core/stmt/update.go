package stmt

import (
	"strings"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/expr"
)

// tableSetOperation resolves the target of a table-column SET. The source is
// parsed as a table update-field reference; no document-path syntax applies.
func tableSetOperation(field string, value any) (core.UpdateOperation, error) {
	ident, err := expr.ParseTableUpdateField(field)
	if err != nil {
		return core.UpdateOperation{}, core.NewValidationError("set", "invalid update field %q: %v", field, err)
	}
	return core.UpdateOperation{Kind: core.UpdateSet, Path: ident, Value: value}, nil
}

// docPathOperation resolves a document-path update operation. One leading "$"
// is stripped; a bare "$" addresses the document root and resolves to an
// empty path.
func docPathOperation(kind core.UpdateKind, path string, value any) (core.UpdateOperation, error) {
	source := path
	if strings.HasPrefix(source, "$") {
		source = source[1:]
	}
	source = strings.TrimPrefix(source, ".")
	if source == "" {
		return core.UpdateOperation{Kind: kind, Path: &expr.Ident{}, Value: value}, nil
	}
	ident, err := expr.ParseDocumentField(source)
	if err != nil {
		return core.UpdateOperation{}, core.NewValidationError("modify", "invalid document path %q: %v", path, err)
	}
	return core.UpdateOperation{Kind: kind, Path: ident, Value: value}, nil
}

// mergePatchOperation builds the MERGE_PATCH operation: an empty path and the
// patch document as value. Path parsing is skipped entirely.
func mergePatchOperation(value any) core.UpdateOperation {
	return core.UpdateOperation{Kind: core.UpdateMergePatch, Path: &expr.Ident{}, Value: value}
}
