package stmt

import (
	"encoding/json"
	"strings"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/doc"
	"github.com/crawlersick/go-mysqlx/core/expr"
)

// FilterCriteria holds the shared filtering state of a statement: condition,
// bindings, ordering, limit, grouping, projection and lock mode. Statement
// kinds embed it and expose only the mutator subset their kind allows; every
// mutator either leaves the criteria fully consistent or returns an error for
// the owning statement to record.
type FilterCriteria struct {
	model core.DataModel

	condition     string
	conditionExpr *expr.Expr
	bindingMap    map[string]int
	bindings      []core.Binding

	sortStr  string
	sortExpr []expr.SortKey

	limit core.Limit

	groupingStr string
	grouping    []*expr.Expr
	havingStr   string
	having      *expr.Expr

	projectionStr  string
	projectionExpr []expr.Projection

	lock core.LockMode

	hasWhere   bool
	hasLimit   bool
	hasSort    bool
	hasGroupBy bool
	hasHaving  bool
}

func newFilterCriteria(model core.DataModel) FilterCriteria {
	return FilterCriteria{model: model}
}

// where parses and stores the search condition along with the placeholder map
// the parser produced.
func (f *FilterCriteria) where(condition string) error {
	parsed, err := expr.ParseExpr(condition, f.model.TableMode())
	if err != nil {
		return core.NewValidationError("where", "invalid condition %q: %v", condition, err)
	}
	f.hasWhere = true
	f.condition = condition
	f.conditionExpr = parsed.Tree
	f.bindingMap = parsed.Placeholders
	return nil
}

// setLimit stores the row count and offset. Range validation is left to the
// transport.
func (f *FilterCriteria) setLimit(rowCount, offset int64) {
	f.hasLimit = true
	f.limit = core.Limit{RowCount: rowCount, Offset: offset}
}

// setSort joins the clauses and parses them as an order specification.
func (f *FilterCriteria) setSort(clauses []string) error {
	sortStr := strings.Join(clauses, ",")
	keys, err := expr.ParseOrderSpec(sortStr, f.model.TableMode())
	if err != nil {
		return core.NewValidationError("sort", "invalid sort specification %q: %v", sortStr, err)
	}
	f.hasSort = true
	f.sortStr = sortStr
	f.sortExpr = keys
	return nil
}

// setGroupBy joins the fields and parses them as a grouping list.
func (f *FilterCriteria) setGroupBy(fields []string) error {
	groupingStr := strings.Join(fields, ",")
	grouping, err := expr.ParseExprList(groupingStr, f.model.TableMode())
	if err != nil {
		return core.NewValidationError("group_by", "invalid grouping %q: %v", groupingStr, err)
	}
	f.hasGroupBy = true
	f.groupingStr = groupingStr
	f.grouping = grouping
	return nil
}

// setHaving parses the aggregate condition.
func (f *FilterCriteria) setHaving(condition string) error {
	parsed, err := expr.ParseExpr(condition, f.model.TableMode())
	if err != nil {
		return core.NewValidationError("having", "invalid condition %q: %v", condition, err)
	}
	f.hasHaving = true
	f.havingStr = condition
	f.having = parsed.Tree
	return nil
}

// setProjection joins the fields and parses them with the mode-specific
// projection grammar: document field extraction or table column selection.
func (f *FilterCriteria) setProjection(fields []string) error {
	projectionStr := strings.Join(fields, ",")
	projection, err := expr.ParseProjection(projectionStr, f.model.TableMode())
	if err != nil {
		return core.NewValidationError("projection", "invalid projection %q: %v", projectionStr, err)
	}
	f.projectionStr = projectionStr
	f.projectionExpr = projection
	return nil
}

// lockShared requests a shared lock, displacing an exclusive one.
func (f *FilterCriteria) lockShared() {
	f.lock = core.LockShared
}

// lockExclusive requests an exclusive lock, displacing a shared one.
func (f *FilterCriteria) lockExclusive() {
	f.lock = core.LockExclusive
}

// bindKind discriminates the accepted bind argument shapes.
type bindKind int

const (
	bindPair bindKind = iota
	bindDocument
	bindJSONText
)

// bindArg is the decoded form of a Bind call. The argument shape is sniffed
// exactly once, here; downstream logic dispatches on the variant tag.
type bindArg struct {
	kind  bindKind
	name  string
	value any
	doc   doc.Doc
	text  string
}

// decodeBindArg turns the raw variadic Bind arguments into one tagged
// variant. A single argument must be a document value or a JSON object text;
// two arguments are a (name, value) pair; any other arity is invalid.
func decodeBindArg(args []any) (bindArg, error) {
	switch len(args) {
	case 1:
		switch v := args[0].(type) {
		case doc.Doc:
			return bindArg{kind: bindDocument, doc: v}, nil
		case map[string]any:
			return bindArg{kind: bindDocument, doc: doc.Doc(v)}, nil
		case string:
			return bindArg{kind: bindJSONText, text: v}, nil
		default:
			return bindArg{}, core.NewValidationError("bind", "invalid JSON string or object to bind")
		}
	case 2:
		name, ok := args[0].(string)
		if !ok {
			return bindArg{}, core.NewValidationError("bind", "placeholder name must be a string, got %T", args[0])
		}
		return bindArg{kind: bindPair, name: name, value: args[1]}, nil
	default:
		return bindArg{}, core.NewValidationError("bind", "invalid number of arguments to bind")
	}
}

// bind registers placeholder values. Bindings may arrive before the condition
// is set; they are associated with positions only at execute time, by the
// transport, through the placeholder map.
func (f *FilterCriteria) bind(args []any) error {
	arg, err := decodeBindArg(args)
	if err != nil {
		return err
	}
	switch arg.kind {
	case bindPair:
		f.bindings = append(f.bindings, core.Binding{Name: arg.name, Value: arg.value})
		return nil
	case bindDocument:
		return f.bindMapping(map[string]any(arg.doc))
	default:
		var decoded any
		if err := json.Unmarshal([]byte(arg.text), &decoded); err != nil {
			return core.NewValidationError("bind", "invalid JSON string to bind")
		}
		mapping, ok := decoded.(map[string]any)
		if !ok {
			return core.NewValidationError("bind", "invalid JSON string to bind")
		}
		return f.bindMapping(mapping)
	}
}

func (f *FilterCriteria) bindMapping(mapping map[string]any) error {
	for name, value := range mapping {
		f.bindings = append(f.bindings, core.Binding{Name: name, Value: value})
	}
	return nil
}

// HasWhere reports whether a search condition has been set.
func (f *FilterCriteria) HasWhere() bool {
	return f.hasWhere
}

// Condition returns the raw condition text.
func (f *FilterCriteria) Condition() string {
	return f.condition
}

// Bindings returns the registered bindings in registration order.
func (f *FilterCriteria) Bindings() []core.Binding {
	return f.bindings
}

// BindingMap returns the placeholder-name-to-position map produced when the
// condition was parsed. It is nil until a condition is set.
func (f *FilterCriteria) BindingMap() map[string]int {
	return f.bindingMap
}

// Lock returns the active lock mode.
func (f *FilterCriteria) Lock() core.LockMode {
	return f.lock
}

// descriptorFilter assembles the filter portion of a descriptor.
func (f *FilterCriteria) descriptorFilter() core.Filter {
	filter := core.Filter{
		Condition:    f.conditionExpr,
		ConditionStr: f.condition,
		Bindings:     f.bindings,
		BindingMap:   f.bindingMap,
		Sort:         f.sortExpr,
	}
	if f.hasLimit {
		limit := f.limit
		filter.Limit = &limit
	}
	return filter
}
