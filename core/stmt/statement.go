// Package stmt implements the fluent statement builders of the client. Each
// statement kind composes exactly the capabilities it supports (filtering,
// value accumulation, update operations) and, on Execute, performs its final
// invariant checks before handing a canonical descriptor to the transport
// Protocol. A builder is either fully consistent or carries a recorded error;
// a statement with a recorded error never reaches the transport.
package stmt

import (
	"context"

	"github.com/crawlersick/go-mysqlx/core"
)

// statement is the state shared by every statement kind: the target database
// object, the owning connection, and the first error recorded by a fluent
// mutator. Fluent chains cannot return errors mid-chain, so mutator failures
// are recorded here and surfaced by Execute before any transport call.
type statement struct {
	target core.Target
	conn   core.Protocol
	err    error
}

func newStatement(conn core.Protocol, target core.Target) statement {
	return statement{target: target, conn: conn}
}

// setErr records the first mutator error. Later errors are dropped: once a
// builder is inconsistent, reporting the original cause is what matters.
func (s *statement) setErr(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

// Err returns the first error recorded by a fluent mutator, if any.
func (s *statement) Err() error {
	return s.err
}

// Target returns the database object this statement operates on.
func (s *statement) Target() core.Target {
	return s.target
}

// DataModel reports whether the statement addresses documents or rows.
func (s *statement) DataModel() core.DataModel {
	return s.target.Model
}

// SqlStatement executes a raw SQL text unchanged.
type SqlStatement struct {
	conn core.Protocol
	sql  string
}

// NewSql builds a SQL pass-through statement.
func NewSql(conn core.Protocol, sql string) *SqlStatement {
	return &SqlStatement{conn: conn, sql: sql}
}

// SQL returns the statement text.
func (s *SqlStatement) SQL() string {
	return s.sql
}

// Execute sends the SQL text to the transport.
func (s *SqlStatement) Execute(ctx context.Context) (*core.Result, error) {
	return s.conn.SendSQL(ctx, s.sql)
}
