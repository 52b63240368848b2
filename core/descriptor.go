package core

import (
	"github.com/crawlersick/go-mysqlx/core/doc"
	"github.com/crawlersick/go-mysqlx/core/expr"
)

// DataModel selects how a statement addresses its target: as a schema-less
// document collection or as a relational table.
type DataModel int

// Supported data models.
const (
	DocumentModel DataModel = iota
	TableModel
)

// TableMode reports whether expressions for this model parse with table
// (column reference) semantics.
func (m DataModel) TableMode() bool {
	return m == TableModel
}

// LockMode is the row/document locking requested by a read statement. At most
// one of shared and exclusive is ever active.
type LockMode int

// Supported lock modes.
const (
	LockNone LockMode = iota
	LockShared
	LockExclusive
)

// Binding is one named placeholder value registered on a statement.
type Binding struct {
	Name  string
	Value any
}

// Limit caps the number of records or documents returned or affected.
type Limit struct {
	RowCount int64
	Offset   int64
}

// UpdateKind discriminates the canonical update operation variants.
type UpdateKind int

// Update operation kinds. UpdateSet is the table-column variant; the item,
// array and patch kinds address document paths.
const (
	UpdateSet UpdateKind = iota
	UpdateItemSet
	UpdateItemReplace
	UpdateItemRemove
	UpdateArrayInsert
	UpdateArrayAppend
	UpdateMergePatch
)

// UpdateOperation is one canonical (kind, path, value) edit instruction
// accumulated by a modify or update statement. The path is already resolved:
// a column reference for UpdateSet, a document path for the item and array
// kinds, and empty for UpdateMergePatch.
type UpdateOperation struct {
	Kind  UpdateKind
	Path  *expr.Ident
	Value any
}

// Target names the database object a descriptor operates on.
type Target struct {
	Schema string
	Name   string
	Model  DataModel
}

// Filter carries the shared filtering state of a descriptor: the parsed
// condition with its placeholder map and bindings, ordering and limit.
type Filter struct {
	Condition    *expr.Expr
	ConditionStr string
	Bindings     []Binding
	BindingMap   map[string]int
	Sort         []expr.SortKey
	Limit        *Limit
}

// FindDescriptor is the canonical form of a read operation.
type FindDescriptor struct {
	Target Target
	Filter Filter

	Projection []expr.Projection
	Grouping   []*expr.Expr
	Having     *expr.Expr
	Lock       LockMode
}

// InsertDescriptor is the canonical form of a document add or table insert.
// Document inserts carry Documents; table inserts carry Columns and Rows.
type InsertDescriptor struct {
	Target Target

	Documents []doc.Doc
	Columns   []string
	Rows      [][]any
	Upsert    bool
}

// UpdateDescriptor is the canonical form of a document modify or table
// update. The filter condition is always present: the builders refuse to
// produce an update descriptor without one.
type UpdateDescriptor struct {
	Target Target
	Filter Filter

	Operations []UpdateOperation
}

// DeleteDescriptor is the canonical form of a document remove or table
// delete. As with updates, the condition is mandatory.
type DeleteDescriptor struct {
	Target Target
	Filter Filter
}

// IndexConstraint is one validated field constraint of a collection index.
type IndexConstraint struct {
	Member    string
	Type      string
	Required  bool
	Collation string
	Options   *uint64
	SRID      *uint64
}

// IndexArgs is the canonical, validated argument structure handed to the
// administrative create-index command.
type IndexArgs struct {
	Name       string
	Collection string
	Schema     string
	Type       string
	Unique     bool
	Constraint []IndexConstraint
}
