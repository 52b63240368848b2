package stmt

import (
	"context"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/doc"
)

// AddStatement accumulates documents for insertion into a collection.
type AddStatement struct {
	statement
	values []doc.Doc
	upsert bool
}

// NewAdd builds a document add statement.
func NewAdd(conn core.Protocol, target core.Target) *AddStatement {
	return &AddStatement{statement: newStatement(conn, target)}
}

// Add appends documents to the statement, coercing maps, JSON texts and
// structs into the document representation.
func (s *AddStatement) Add(values ...any) *AddStatement {
	for _, value := range values {
		d, err := doc.New(value)
		if err != nil {
			s.setErr(core.NewValidationError("add", "invalid document: %v", err))
			return s
		}
		s.values = append(s.values, d)
	}
	return s
}

// Upsert makes the add replace matching documents instead of failing on
// duplicate identifiers.
func (s *AddStatement) Upsert(val bool) *AddStatement {
	s.upsert = val
	return s
}

// IsUpsert reports whether the upsert flag is set.
func (s *AddStatement) IsUpsert() bool {
	return s.upsert
}

// Values returns the accumulated documents.
func (s *AddStatement) Values() []doc.Doc {
	return s.values
}

// Execute inserts the accumulated documents. With nothing accumulated it
// returns an empty result without contacting the transport. Documents
// without an identifier get a client-generated one, reported through the
// result.
func (s *AddStatement) Execute(ctx context.Context) (*core.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.values) == 0 {
		return &core.Result{}, nil
	}

	ids := make([]string, len(s.values))
	for i, d := range s.values {
		ids[i] = d.EnsureID()
	}

	result, err := s.conn.SendInsert(ctx, &core.InsertDescriptor{
		Target:    s.target,
		Documents: s.values,
		Upsert:    s.upsert,
	})
	if err != nil {
		return nil, err
	}
	result.DocumentIDs = ids
	return result, nil
}

// InsertStatement accumulates named columns and value rows for a table
// insert.
type InsertStatement struct {
	statement
	fields []string
	rows   [][]any
	upsert bool
}

// NewInsert builds a table insert statement over the given columns.
func NewInsert(conn core.Protocol, target core.Target, fields ...string) *InsertStatement {
	return &InsertStatement{
		statement: newStatement(conn, target),
		fields:    fields,
	}
}

// Values appends one row of column values.
func (s *InsertStatement) Values(values ...any) *InsertStatement {
	row := make([]any, len(values))
	copy(row, values)
	s.rows = append(s.rows, row)
	return s
}

// Upsert makes the insert replace matching rows instead of failing on
// duplicate keys.
func (s *InsertStatement) Upsert(val bool) *InsertStatement {
	s.upsert = val
	return s
}

// Fields returns the column names of the insert.
func (s *InsertStatement) Fields() []string {
	return s.fields
}

// Rows returns the accumulated value rows.
func (s *InsertStatement) Rows() [][]any {
	return s.rows
}

// Execute sends the insert to the transport.
func (s *InsertStatement) Execute(ctx context.Context) (*core.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.conn.SendInsert(ctx, &core.InsertDescriptor{
		Target:  s.target,
		Columns: s.fields,
		Rows:    s.rows,
		Upsert:  s.upsert,
	})
}
