package stmt

import (
	"context"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/doc"
)

// ModifyStatement accumulates document update operations. Executing a modify
// without a condition is refused: destructive statements always require an
// explicit filter.
type ModifyStatement struct {
	statement
	criteria FilterCriteria
	ops      []core.UpdateOperation
}

// NewModify builds a document modify statement. A non-empty condition is
// applied as an initial Where.
func NewModify(conn core.Protocol, target core.Target, condition string) *ModifyStatement {
	s := &ModifyStatement{
		statement: newStatement(conn, target),
		criteria:  newFilterCriteria(core.DocumentModel),
	}
	if condition != "" {
		s.Where(condition)
	}
	return s
}

// Where sets the search condition identifying the documents to modify.
func (s *ModifyStatement) Where(condition string) *ModifyStatement {
	s.setErr(s.criteria.where(condition))
	return s
}

// Sort sets the order in which documents are modified.
func (s *ModifyStatement) Sort(clauses ...string) *ModifyStatement {
	s.setErr(s.criteria.setSort(clauses))
	return s
}

// Limit caps the number of documents modified.
func (s *ModifyStatement) Limit(rowCount int64) *ModifyStatement {
	s.criteria.setLimit(rowCount, 0)
	return s
}

// Bind binds placeholder values: either one document/JSON-object argument or
// a (name, value) pair.
func (s *ModifyStatement) Bind(args ...any) *ModifyStatement {
	s.setErr(s.criteria.bind(args))
	return s
}

// Set creates or updates the attribute at the document path.
func (s *ModifyStatement) Set(docPath string, value any) *ModifyStatement {
	s.appendOp(docPathOperation(core.UpdateItemSet, docPath, value))
	return s
}

// Change updates the attribute at the document path only if it already
// exists.
func (s *ModifyStatement) Change(docPath string, value any) *ModifyStatement {
	s.appendOp(docPathOperation(core.UpdateItemReplace, docPath, value))
	return s
}

// Unset removes the attributes at the document paths.
func (s *ModifyStatement) Unset(docPaths ...string) *ModifyStatement {
	for _, path := range docPaths {
		s.appendOp(docPathOperation(core.UpdateItemRemove, path, nil))
	}
	return s
}

// ArrayInsert inserts a value at the array position the document path
// identifies.
func (s *ModifyStatement) ArrayInsert(docPath string, value any) *ModifyStatement {
	s.appendOp(docPathOperation(core.UpdateArrayInsert, docPath, value))
	return s
}

// ArrayAppend appends a value to the array attribute the document path
// identifies.
func (s *ModifyStatement) ArrayAppend(docPath string, value any) *ModifyStatement {
	s.appendOp(docPathOperation(core.UpdateArrayAppend, docPath, value))
	return s
}

// Patch merges the given document into the matching documents. The patch must
// be a mapping, a document value or a JSON text; nil is treated as an empty
// patch.
func (s *ModifyStatement) Patch(patch any) *ModifyStatement {
	if patch == nil {
		patch = ""
	}
	switch patch.(type) {
	case map[string]any, doc.Doc, string:
		s.ops = append(s.ops, mergePatchOperation(patch))
	default:
		s.setErr(core.NewValidationError("patch",
			"invalid data for update operation on document collection: %T", patch))
	}
	return s
}

func (s *ModifyStatement) appendOp(op core.UpdateOperation, err error) {
	if err != nil {
		s.setErr(err)
		return
	}
	s.ops = append(s.ops, op)
}

// Operations returns the accumulated update operations.
func (s *ModifyStatement) Operations() []core.UpdateOperation {
	return s.ops
}

// Criteria exposes the filter state for transports and tests.
func (s *ModifyStatement) Criteria() *FilterCriteria {
	return &s.criteria
}

// Execute runs the modify on the transport. It fails unless a condition was
// set.
func (s *ModifyStatement) Execute(ctx context.Context) (*core.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.criteria.hasWhere {
		return nil, core.NewValidationError("modify", "no condition found for modify")
	}
	return s.conn.Update(ctx, &core.UpdateDescriptor{
		Target:     s.target,
		Filter:     s.criteria.descriptorFilter(),
		Operations: s.ops,
	})
}

// UpdateStatement accumulates column assignments for a table update. Like
// modify, it refuses to execute without a condition.
type UpdateStatement struct {
	statement
	criteria FilterCriteria
	ops      []core.UpdateOperation
}

// NewUpdate builds a table update statement.
func NewUpdate(conn core.Protocol, target core.Target) *UpdateStatement {
	return &UpdateStatement{
		statement: newStatement(conn, target),
		criteria:  newFilterCriteria(core.TableModel),
	}
}

// Where sets the search condition identifying the rows to update.
func (s *UpdateStatement) Where(condition string) *UpdateStatement {
	s.setErr(s.criteria.where(condition))
	return s
}

// Sort sets the order in which rows are updated.
func (s *UpdateStatement) Sort(clauses ...string) *UpdateStatement {
	s.setErr(s.criteria.setSort(clauses))
	return s
}

// Limit caps the number of rows updated.
func (s *UpdateStatement) Limit(rowCount int64) *UpdateStatement {
	s.criteria.setLimit(rowCount, 0)
	return s
}

// Bind binds placeholder values: either one document/JSON-object argument or
// a (name, value) pair.
func (s *UpdateStatement) Bind(args ...any) *UpdateStatement {
	s.setErr(s.criteria.bind(args))
	return s
}

// Set assigns a value to the column on the matching rows.
func (s *UpdateStatement) Set(field string, value any) *UpdateStatement {
	op, err := tableSetOperation(field, value)
	if err != nil {
		s.setErr(err)
		return s
	}
	s.ops = append(s.ops, op)
	return s
}

// Operations returns the accumulated update operations.
func (s *UpdateStatement) Operations() []core.UpdateOperation {
	return s.ops
}

// Criteria exposes the filter state for transports and tests.
func (s *UpdateStatement) Criteria() *FilterCriteria {
	return &s.criteria
}

// Execute runs the update on the transport. It fails unless a condition was
// set.
func (s *UpdateStatement) Execute(ctx context.Context) (*core.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.criteria.hasWhere {
		return nil, core.NewValidationError("update", "no condition found for update")
	}
	return s.conn.Update(ctx, &core.UpdateDescriptor{
		Target:     s.target,
		Filter:     s.criteria.descriptorFilter(),
		Operations: s.ops,
	})
}

// RemoveStatement deletes documents from a collection. It refuses to execute
// without a condition.
type RemoveStatement struct {
	statement
	criteria FilterCriteria
}

// NewRemove builds a document remove statement. A non-empty condition is
// applied as an initial Where.
func NewRemove(conn core.Protocol, target core.Target, condition string) *RemoveStatement {
	s := &RemoveStatement{
		statement: newStatement(conn, target),
		criteria:  newFilterCriteria(core.DocumentModel),
	}
	if condition != "" {
		s.Where(condition)
	}
	return s
}

// Where sets the search condition identifying the documents to remove.
func (s *RemoveStatement) Where(condition string) *RemoveStatement {
	s.setErr(s.criteria.where(condition))
	return s
}

// Sort sets the order in which documents are removed.
func (s *RemoveStatement) Sort(clauses ...string) *RemoveStatement {
	s.setErr(s.criteria.setSort(clauses))
	return s
}

// Limit caps the number of documents removed.
func (s *RemoveStatement) Limit(rowCount int64) *RemoveStatement {
	s.criteria.setLimit(rowCount, 0)
	return s
}

// Bind binds placeholder values: either one document/JSON-object argument or
// a (name, value) pair.
func (s *RemoveStatement) Bind(args ...any) *RemoveStatement {
	s.setErr(s.criteria.bind(args))
	return s
}

// Criteria exposes the filter state for transports and tests.
func (s *RemoveStatement) Criteria() *FilterCriteria {
	return &s.criteria
}

// Execute runs the remove on the transport. It fails unless a condition was
// set.
func (s *RemoveStatement) Execute(ctx context.Context) (*core.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.criteria.hasWhere {
		return nil, core.NewValidationError("remove", "no condition found for remove")
	}
	return s.conn.Delete(ctx, &core.DeleteDescriptor{
		Target: s.target,
		Filter: s.criteria.descriptorFilter(),
	})
}

// DeleteStatement deletes rows from a table. It refuses to execute without a
// condition.
type DeleteStatement struct {
	statement
	criteria FilterCriteria
}

// NewDelete builds a table delete statement. A non-empty condition is applied
// as an initial Where.
func NewDelete(conn core.Protocol, target core.Target, condition string) *DeleteStatement {
	s := &DeleteStatement{
		statement: newStatement(conn, target),
		criteria:  newFilterCriteria(core.TableModel),
	}
	if condition != "" {
		s.Where(condition)
	}
	return s
}

// Where sets the search condition identifying the rows to delete.
func (s *DeleteStatement) Where(condition string) *DeleteStatement {
	s.setErr(s.criteria.where(condition))
	return s
}

// Sort sets the order in which rows are deleted.
func (s *DeleteStatement) Sort(clauses ...string) *DeleteStatement {
	s.setErr(s.criteria.setSort(clauses))
	return s
}

// Limit caps the number of rows deleted.
func (s *DeleteStatement) Limit(rowCount int64) *DeleteStatement {
	s.criteria.setLimit(rowCount, 0)
	return s
}

// Bind binds placeholder values: either one document/JSON-object argument or
// a (name, value) pair.
func (s *DeleteStatement) Bind(args ...any) *DeleteStatement {
	s.setErr(s.criteria.bind(args))
	return s
}

// Criteria exposes the filter state for transports and tests.
func (s *DeleteStatement) Criteria() *FilterCriteria {
	return &s.criteria
}

// Execute runs the delete on the transport. It fails unless a condition was
// set.
func (s *DeleteStatement) Execute(ctx context.Context) (*core.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.criteria.hasWhere {
		return nil, core.NewValidationError("delete", "no condition found for delete")
	}
	return s.conn.Delete(ctx, &core.DeleteDescriptor{
		Target: s.target,
		Filter: s.criteria.descriptorFilter(),
	})
}
