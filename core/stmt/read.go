package stmt

import (
	"context"
	"fmt"
	"strings"

	"github.com/crawlersick/go-mysqlx/core"
)

// FindStatement retrieves documents from a collection. A find without a
// condition returns every document, so Execute never demands a prior Where.
type FindStatement struct {
	statement
	criteria FilterCriteria
}

// NewFind builds a document find statement. A non-empty condition is applied
// as an initial Where.
func NewFind(conn core.Protocol, target core.Target, condition string) *FindStatement {
	s := &FindStatement{
		statement: newStatement(conn, target),
		criteria:  newFilterCriteria(core.DocumentModel),
	}
	if condition != "" {
		s.Where(condition)
	}
	return s
}

// Where sets the search condition to filter documents.
func (s *FindStatement) Where(condition string) *FindStatement {
	s.setErr(s.criteria.where(condition))
	return s
}

// Fields sets the document fields to be extracted.
func (s *FindStatement) Fields(fields ...string) *FindStatement {
	s.setErr(s.criteria.setProjection(fields))
	return s
}

// Sort sets the sorting criteria.
func (s *FindStatement) Sort(clauses ...string) *FindStatement {
	s.setErr(s.criteria.setSort(clauses))
	return s
}

// Limit caps the number of documents returned, skipping the first offset
// matches.
func (s *FindStatement) Limit(rowCount, offset int64) *FindStatement {
	s.criteria.setLimit(rowCount, offset)
	return s
}

// GroupBy sets the grouping criteria for the result set.
func (s *FindStatement) GroupBy(fields ...string) *FindStatement {
	s.setErr(s.criteria.setGroupBy(fields))
	return s
}

// Having sets a condition on the aggregate functions of the grouping
// criteria.
func (s *FindStatement) Having(condition string) *FindStatement {
	s.setErr(s.criteria.setHaving(condition))
	return s
}

// Bind binds placeholder values: either one document/JSON-object argument or
// a (name, value) pair.
func (s *FindStatement) Bind(args ...any) *FindStatement {
	s.setErr(s.criteria.bind(args))
	return s
}

// LockShared executes the read with a shared lock. Only one lock mode can be
// active at a time.
func (s *FindStatement) LockShared() *FindStatement {
	s.criteria.lockShared()
	return s
}

// LockExclusive executes the read with an exclusive lock. Only one lock mode
// can be active at a time.
func (s *FindStatement) LockExclusive() *FindStatement {
	s.criteria.lockExclusive()
	return s
}

// Criteria exposes the filter state for transports and tests.
func (s *FindStatement) Criteria() *FilterCriteria {
	return &s.criteria
}

// Descriptor assembles the canonical read descriptor.
func (s *FindStatement) Descriptor() *core.FindDescriptor {
	return &core.FindDescriptor{
		Target:     s.target,
		Filter:     s.criteria.descriptorFilter(),
		Projection: s.criteria.projectionExpr,
		Grouping:   s.criteria.grouping,
		Having:     s.criteria.having,
		Lock:       s.criteria.lock,
	}
}

// Execute runs the find on the transport.
func (s *FindStatement) Execute(ctx context.Context) (*core.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.conn.Find(ctx, s.Descriptor())
}

// SelectStatement retrieves rows from a table. Alongside the canonical
// descriptor it can render itself as single-table SELECT text.
type SelectStatement struct {
	statement
	criteria FilterCriteria
}

// NewSelect builds a table select statement projecting the given columns; no
// columns means every column.
func NewSelect(conn core.Protocol, target core.Target, fields ...string) *SelectStatement {
	s := &SelectStatement{
		statement: newStatement(conn, target),
		criteria:  newFilterCriteria(core.TableModel),
	}
	if len(fields) > 0 {
		s.setErr(s.criteria.setProjection(fields))
	}
	return s
}

// Where sets the search condition to filter rows.
func (s *SelectStatement) Where(condition string) *SelectStatement {
	s.setErr(s.criteria.where(condition))
	return s
}

// OrderBy sets the order-by criteria.
func (s *SelectStatement) OrderBy(clauses ...string) *SelectStatement {
	s.setErr(s.criteria.setSort(clauses))
	return s
}

// Limit caps the number of rows returned, skipping the first offset matches.
func (s *SelectStatement) Limit(rowCount, offset int64) *SelectStatement {
	s.criteria.setLimit(rowCount, offset)
	return s
}

// GroupBy sets the grouping criteria for the result set.
func (s *SelectStatement) GroupBy(fields ...string) *SelectStatement {
	s.setErr(s.criteria.setGroupBy(fields))
	return s
}

// Having sets a condition on the aggregate functions of the grouping
// criteria.
func (s *SelectStatement) Having(condition string) *SelectStatement {
	s.setErr(s.criteria.setHaving(condition))
	return s
}

// Bind binds placeholder values: either one document/JSON-object argument or
// a (name, value) pair.
func (s *SelectStatement) Bind(args ...any) *SelectStatement {
	s.setErr(s.criteria.bind(args))
	return s
}

// LockShared executes the read with a shared lock.
func (s *SelectStatement) LockShared() *SelectStatement {
	s.criteria.lockShared()
	return s
}

// LockExclusive executes the read with an exclusive lock.
func (s *SelectStatement) LockExclusive() *SelectStatement {
	s.criteria.lockExclusive()
	return s
}

// Criteria exposes the filter state for transports and tests.
func (s *SelectStatement) Criteria() *FilterCriteria {
	return &s.criteria
}

// GetSQL renders the statement as single-table SELECT text, emitting each
// clause only when set, in the fixed order WHERE, GROUP BY, HAVING, ORDER BY,
// LIMIT/OFFSET.
func (s *SelectStatement) GetSQL() string {
	var sb strings.Builder
	projection := s.criteria.projectionStr
	if projection == "" {
		projection = "*"
	}
	fmt.Fprintf(&sb, "SELECT %s FROM %s.%s", projection, s.target.Schema, s.target.Name)
	if s.criteria.hasWhere {
		fmt.Fprintf(&sb, " WHERE %s", s.criteria.condition)
	}
	if s.criteria.hasGroupBy {
		fmt.Fprintf(&sb, " GROUP BY %s", s.criteria.groupingStr)
	}
	if s.criteria.hasHaving {
		fmt.Fprintf(&sb, " HAVING %s", s.criteria.havingStr)
	}
	if s.criteria.hasSort {
		fmt.Fprintf(&sb, " ORDER BY %s", s.criteria.sortStr)
	}
	if s.criteria.hasLimit {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", s.criteria.limit.RowCount, s.criteria.limit.Offset)
	}
	return sb.String()
}

// Descriptor assembles the canonical read descriptor.
func (s *SelectStatement) Descriptor() *core.FindDescriptor {
	return &core.FindDescriptor{
		Target:     s.target,
		Filter:     s.criteria.descriptorFilter(),
		Projection: s.criteria.projectionExpr,
		Grouping:   s.criteria.grouping,
		Having:     s.criteria.having,
		Lock:       s.criteria.lock,
	}
}

// Execute runs the select on the transport.
func (s *SelectStatement) Execute(ctx context.Context) (*core.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.conn.Find(ctx, s.Descriptor())
}
