package sqlbridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/dialect"
	"github.com/crawlersick/go-mysqlx/core/doc"
	"github.com/crawlersick/go-mysqlx/core/expr"
)

// docColumn is the JSON payload column of a collection table. The identifier
// column is kept alongside it so upserts have a conflict target.
const (
	docColumn = "doc"
	idColumn  = "_id"
)

// sqliteMode selects double-quoted identifiers, which SQLite always accepts.
const sqliteMode = dialect.SQLMode("ANSI_QUOTES")

func quote(identifier string) string {
	return dialect.Quote(identifier, sqliteMode)
}

// renderer translates one descriptor into SQL text plus positional
// parameters. A renderer is single-use: params accumulates in render order.
type renderer struct {
	model    core.DataModel
	bindings map[string]any
	params   []any
}

func newRenderer(model core.DataModel, filter core.Filter) *renderer {
	bindings := make(map[string]any, len(filter.Bindings))
	for _, b := range filter.Bindings {
		bindings[b.Name] = b.Value
	}
	return &renderer{model: model, bindings: bindings}
}

// addParam appends one positional parameter, converting values the driver
// cannot take directly.
func (r *renderer) addParam(value any) {
	switch v := value.(type) {
	case decimal.Decimal:
		r.params = append(r.params, v.String())
	case json.Number:
		r.params = append(r.params, v.String())
	default:
		r.params = append(r.params, value)
	}
}

// fieldSQL renders an identifier path. Table mode quotes the column
// reference; document mode extracts the field from the JSON payload column.
func (r *renderer) fieldSQL(ident *expr.Ident) string {
	if r.model.TableMode() {
		if len(ident.Parts) == 1 && ident.Parts[0] == "*" {
			return "*"
		}
		return dialect.QuoteMultipart(ident.Parts, sqliteMode)
	}
	if len(ident.Parts) == 0 {
		return quote(docColumn)
	}
	if len(ident.Parts) == 1 && ident.Parts[0] == "*" {
		return quote(docColumn)
	}
	return fmt.Sprintf("json_extract(%s, '%s')", quote(docColumn), docPath(ident))
}

// docPath renders an identifier as a SQLite JSON path. Array index suffixes
// are already embedded in the path parts.
func docPath(ident *expr.Ident) string {
	return "$." + strings.Join(ident.Parts, ".")
}

// exprSQL renders an expression tree into SQL, collecting parameters.
func (r *renderer) exprSQL(e *expr.Expr) (string, error) {
	switch e.Kind {
	case expr.KindIdent:
		return r.fieldSQL(e.Ident), nil

	case expr.KindLiteral:
		if e.Literal == nil {
			return "NULL", nil
		}
		r.addParam(e.Literal)
		return "?", nil

	case expr.KindPlaceholder:
		value, ok := r.bindings[e.Placeholder]
		if !ok {
			return "", core.NewValidationError("bind",
				"cannot find placeholder %q in bound values", e.Placeholder)
		}
		r.addParam(value)
		return "?", nil

	case expr.KindOperator:
		return r.operatorSQL(e)

	case expr.KindFuncCall:
		args := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			sql, err := r.exprSQL(arg)
			if err != nil {
				return "", err
			}
			args = append(args, sql)
		}
		return fmt.Sprintf("%s(%s)", e.Op, strings.Join(args, ", ")), nil
	}
	return "", fmt.Errorf("unsupported expression kind %d", e.Kind)
}

func (r *renderer) operatorSQL(e *expr.Expr) (string, error) {
	switch e.Op {
	case "&&", "||":
		sqlOp := "AND"
		if e.Op == "||" {
			sqlOp = "OR"
		}
		left, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		right, err := r.exprSQL(e.Args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, sqlOp, right), nil

	case "not", "u!":
		arg, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT (%s)", arg), nil

	case "u-", "u+":
		arg, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s%s", e.Op[1:], arg), nil

	case "==", "!=", "<", "<=", ">", ">=", "+", "-", "*", "/", "%":
		sqlOp := e.Op
		if sqlOp == "==" {
			sqlOp = "="
		}
		left, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		right, err := r.exprSQL(e.Args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, sqlOp, right), nil

	case "in":
		target, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		if len(e.Args) == 1 {
			return "1=0", nil
		}
		members := make([]string, 0, len(e.Args)-1)
		for _, arg := range e.Args[1:] {
			sql, err := r.exprSQL(arg)
			if err != nil {
				return "", err
			}
			members = append(members, sql)
		}
		return fmt.Sprintf("%s IN (%s)", target, strings.Join(members, ", ")), nil

	case "like":
		left, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		right, err := r.exprSQL(e.Args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s LIKE %s", left, right), nil

	case "between":
		target, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		low, err := r.exprSQL(e.Args[1])
		if err != nil {
			return "", err
		}
		high, err := r.exprSQL(e.Args[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", target, low, high), nil

	case "regexp":
		left, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		right, err := r.exprSQL(e.Args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s REGEXP %s", left, right), nil

	case "is", "is_not":
		target, err := r.exprSQL(e.Args[0])
		if err != nil {
			return "", err
		}
		if e.Op == "is_not" {
			return fmt.Sprintf("%s IS NOT NULL", target), nil
		}
		return fmt.Sprintf("%s IS NULL", target), nil
	}
	return "", fmt.Errorf("unsupported operator %q", e.Op)
}

// tableRef renders the qualified, quoted target reference.
func tableRef(target core.Target) string {
	if target.Schema == "" {
		return quote(target.Name)
	}
	return dialect.QuoteMultipart([]string{target.Schema, target.Name}, sqliteMode)
}

// selectSQL renders a find descriptor.
func selectSQL(d *core.FindDescriptor) (string, []any, error) {
	r := newRenderer(d.Target.Model, d.Filter)

	var fields []string
	if len(d.Projection) == 0 {
		if d.Target.Model.TableMode() {
			fields = append(fields, "*")
		} else {
			fields = append(fields, quote(docColumn))
		}
	} else {
		for _, proj := range d.Projection {
			sql, err := r.exprSQL(proj.Expr)
			if err != nil {
				return "", nil, fmt.Errorf("projection: %w", err)
			}
			alias := proj.Alias
			if alias == "" && proj.Expr.Kind == expr.KindIdent {
				alias = proj.Expr.Ident.String()
			}
			if alias != "" {
				sql = fmt.Sprintf("%s AS %s", sql, quote(alias))
			}
			fields = append(fields, sql)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(fields, ", "), tableRef(d.Target))

	if d.Filter.Condition != nil {
		where, err := r.exprSQL(d.Filter.Condition)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHERE " + where)
	}
	if len(d.Grouping) > 0 {
		var groups []string
		for _, g := range d.Grouping {
			sql, err := r.exprSQL(g)
			if err != nil {
				return "", nil, fmt.Errorf("grouping: %w", err)
			}
			groups = append(groups, sql)
		}
		sb.WriteString(" GROUP BY " + strings.Join(groups, ", "))
	}
	if d.Having != nil {
		having, err := r.exprSQL(d.Having)
		if err != nil {
			return "", nil, fmt.Errorf("having: %w", err)
		}
		sb.WriteString(" HAVING " + having)
	}
	if orderBy, err := r.orderBySQL(d.Filter.Sort); err != nil {
		return "", nil, err
	} else if orderBy != "" {
		sb.WriteString(orderBy)
	}
	if d.Filter.Limit != nil {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", d.Filter.Limit.RowCount, d.Filter.Limit.Offset)
	}
	// Row locks are a server feature with no SQLite counterpart; the whole
	// database locks on write anyway, so lock requests render to nothing.
	return sb.String(), r.params, nil
}

func (r *renderer) orderBySQL(sort []expr.SortKey) (string, error) {
	if len(sort) == 0 {
		return "", nil
	}
	var clauses []string
	for _, key := range sort {
		sql, err := r.exprSQL(key.Expr)
		if err != nil {
			return "", fmt.Errorf("sort: %w", err)
		}
		direction := " ASC"
		if key.Desc {
			direction = " DESC"
		}
		clauses = append(clauses, sql+direction)
	}
	return " ORDER BY " + strings.Join(clauses, ", "), nil
}

// insertSQL renders an insert descriptor. Document inserts write the
// identifier column and the JSON payload; an upsert replaces the payload of a
// conflicting identifier. Table upserts use INSERT OR REPLACE.
func insertSQL(d *core.InsertDescriptor) (string, []any, error) {
	if !d.Target.Model.TableMode() {
		return docInsertSQL(d)
	}

	if len(d.Columns) == 0 {
		return "", nil, core.NewValidationError("insert", "no columns provided for insert")
	}
	if len(d.Rows) == 0 {
		return "", nil, core.NewValidationError("insert", "no rows provided for insert")
	}

	verb := "INSERT"
	if d.Upsert {
		verb = "INSERT OR REPLACE"
	}
	quoted := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		quoted[i] = quote(col)
	}

	r := &renderer{model: d.Target.Model}
	var rows []string
	for _, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return "", nil, core.NewValidationError("insert",
				"row has %d values for %d columns", len(row), len(d.Columns))
		}
		placeholders := make([]string, len(row))
		for i, value := range row {
			placeholders[i] = "?"
			r.addParam(value)
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
	}

	sql := fmt.Sprintf("%s INTO %s (%s) VALUES %s",
		verb, tableRef(d.Target), strings.Join(quoted, ", "), strings.Join(rows, ", "))
	return sql, r.params, nil
}

func docInsertSQL(d *core.InsertDescriptor) (string, []any, error) {
	if len(d.Documents) == 0 {
		return "", nil, core.NewValidationError("insert", "no documents provided for insert")
	}

	var params []any
	var rows []string
	for _, document := range d.Documents {
		rows = append(rows, "(?, ?)")
		params = append(params, document.EnsureID(), document.String())
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES %s",
		tableRef(d.Target), quote(idColumn), quote(docColumn), strings.Join(rows, ", "))
	if d.Upsert {
		sql += fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET %s = excluded.%s",
			quote(idColumn), quote(docColumn), quote(docColumn))
	}
	return sql, params, nil
}

// updateSQL renders an update descriptor. Document operations fold into a
// nested json function chain over the payload column; table operations become
// plain SET assignments.
func updateSQL(d *core.UpdateDescriptor) (string, []any, error) {
	if len(d.Operations) == 0 {
		return "", nil, core.NewValidationError("update", "no update operations provided")
	}
	if len(d.Filter.Sort) > 0 || d.Filter.Limit != nil {
		return "", nil, core.NotSupportedError("sort and limit on update statements")
	}

	r := newRenderer(d.Target.Model, d.Filter)

	var setSQL string
	if d.Target.Model.TableMode() {
		var clauses []string
		for _, op := range d.Operations {
			if op.Kind != core.UpdateSet {
				return "", nil, fmt.Errorf("unsupported table update kind %d", op.Kind)
			}
			clauses = append(clauses, fmt.Sprintf("%s = ?",
				dialect.QuoteMultipart(op.Path.Parts, sqliteMode)))
			r.addParam(prepareDocValue(op.Value))
		}
		setSQL = strings.Join(clauses, ", ")
	} else {
		chain, err := r.docUpdateChain(d.Operations)
		if err != nil {
			return "", nil, err
		}
		setSQL = fmt.Sprintf("%s = %s", quote(docColumn), chain)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", tableRef(d.Target), setSQL)
	if d.Filter.Condition != nil {
		where, err := r.exprSQL(d.Filter.Condition)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHERE " + where)
	}
	return sb.String(), r.params, nil
}

// docUpdateChain folds the update operations into nested json function calls,
// innermost first, starting from the current payload.
func (r *renderer) docUpdateChain(ops []core.UpdateOperation) (string, error) {
	current := quote(docColumn)
	for _, op := range ops {
		var err error
		current, err = r.applyDocOperation(current, op)
		if err != nil {
			return "", err
		}
	}
	return current, nil
}

func (r *renderer) applyDocOperation(current string, op core.UpdateOperation) (string, error) {
	switch op.Kind {
	case core.UpdateItemSet:
		if len(op.Path.Parts) == 0 {
			// Root replacement keeps the row identity: the new payload gets
			// the existing identifier written back into it.
			r.addParam(prepareDocValue(op.Value))
			return fmt.Sprintf("json_set(json(?), '$.%s', %s)", idColumn, quote(idColumn)), nil
		}
		r.addParam(prepareDocValue(op.Value))
		return fmt.Sprintf("json_set(%s, '%s', %s)", current, docPath(op.Path), jsonValueSQL(op.Value)), nil

	case core.UpdateItemReplace:
		r.addParam(prepareDocValue(op.Value))
		return fmt.Sprintf("json_replace(%s, '%s', %s)", current, docPath(op.Path), jsonValueSQL(op.Value)), nil

	case core.UpdateItemRemove:
		return fmt.Sprintf("json_remove(%s, '%s')", current, docPath(op.Path)), nil

	case core.UpdateArrayInsert:
		r.addParam(prepareDocValue(op.Value))
		return fmt.Sprintf("json_insert(%s, '%s', %s)", current, docPath(op.Path), jsonValueSQL(op.Value)), nil

	case core.UpdateArrayAppend:
		r.addParam(prepareDocValue(op.Value))
		return fmt.Sprintf("json_insert(%s, '%s[#]', %s)", current, docPath(op.Path), jsonValueSQL(op.Value)), nil

	case core.UpdateMergePatch:
		r.addParam(preparePatchValue(op.Value))
		return fmt.Sprintf("json_patch(%s, json(?))", current), nil
	}
	return "", fmt.Errorf("unsupported document update kind %d", op.Kind)
}

// jsonValueSQL wraps the positional parameter so structured values land as
// JSON rather than as escaped text.
func jsonValueSQL(value any) string {
	if isStructured(value) {
		return "json(?)"
	}
	return "?"
}

func isStructured(value any) bool {
	switch value.(type) {
	case map[string]any, doc.Doc, []any, []string, []int, []int64, []float64:
		return true
	}
	return false
}

// prepareDocValue converts a Go value into a driver-acceptable parameter,
// serializing structured values to JSON text.
func prepareDocValue(value any) any {
	switch v := value.(type) {
	case doc.Doc:
		return v.String()
	case decimal.Decimal:
		return v.String()
	default:
		if isStructured(value) {
			data, err := json.Marshal(value)
			if err == nil {
				return string(data)
			}
		}
		return value
	}
}

// preparePatchValue normalizes a merge patch argument to JSON text. An empty
// patch becomes the empty object.
func preparePatchValue(value any) any {
	switch v := value.(type) {
	case string:
		if v == "" {
			return "{}"
		}
		return v
	default:
		return prepareDocValue(value)
	}
}

// deleteSQL renders a delete descriptor.
func deleteSQL(d *core.DeleteDescriptor) (string, []any, error) {
	if len(d.Filter.Sort) > 0 || d.Filter.Limit != nil {
		return "", nil, core.NotSupportedError("sort and limit on delete statements")
	}

	r := newRenderer(d.Target.Model, d.Filter)
	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", tableRef(d.Target))
	if d.Filter.Condition != nil {
		where, err := r.exprSQL(d.Filter.Condition)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHERE " + where)
	}
	return sb.String(), r.params, nil
}
