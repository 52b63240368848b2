package core

import "context"

// Result is the outcome a transport reports for an executed descriptor.
type Result struct {
	// AffectedItems is the number of documents or rows the operation touched.
	AffectedItems uint64
	// DocumentIDs lists the identifiers of documents added by an insert,
	// including client-generated ones.
	DocumentIDs []string
	// LastInsertID is the auto-increment value of a table insert, when the
	// server reports one.
	LastInsertID int64
	// Rows holds the decoded result set of a read or SQL operation.
	Rows []map[string]any
}

// Protocol executes canonical descriptors over the wire. The statement layer
// treats every method as an opaque, blocking remote call: it performs no
// retries, timeouts or error translation of its own, and only structurally
// valid descriptors ever reach a Protocol.
type Protocol interface {
	// SendSQL executes a raw SQL statement.
	SendSQL(ctx context.Context, sql string) (*Result, error)
	// SendInsert executes a document add or table insert.
	SendInsert(ctx context.Context, d *InsertDescriptor) (*Result, error)
	// Update executes a document modify or table update.
	Update(ctx context.Context, d *UpdateDescriptor) (*Result, error)
	// Delete executes a document remove or table delete.
	Delete(ctx context.Context, d *DeleteDescriptor) (*Result, error)
	// Find executes a document find or table select.
	Find(ctx context.Context, d *FindDescriptor) (*Result, error)
	// ExecuteAdminCommand runs a named administrative command in a namespace.
	// When mustSucceed is false, "object missing" failures are swallowed.
	ExecuteAdminCommand(ctx context.Context, namespace, command string, mustSucceed bool, args any) (*Result, error)
}
