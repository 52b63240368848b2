// Package catalog provides client-side handles for schemas, collections,
// tables and views. A handle owns no server state: it carries the transport
// Protocol and names, builds statements through the stmt package, and runs
// count and existence checks as SQL built with the dialect quoting rules.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/dialect"
	"github.com/crawlersick/go-mysqlx/core/stmt"
)

// Option configures a Schema handle.
type Option func(*Schema)

// WithLogger sets the logger used by the schema and every handle derived from
// it.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Schema) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSQLMode sets the SQL mode string consulted for identifier quoting.
func WithSQLMode(mode dialect.SQLMode) Option {
	return func(s *Schema) {
		s.sqlMode = mode
	}
}

// Schema is a client-side representation of a database schema.
type Schema struct {
	conn    core.Protocol
	name    string
	logger  *zap.Logger
	sqlMode dialect.SQLMode
}

// NewSchema builds a schema handle over the given transport.
func NewSchema(conn core.Protocol, name string, opts ...Option) *Schema {
	s := &Schema{
		conn:   conn,
		name:   name,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// Collection returns a handle for the named collection. The handle is built
// unconditionally; use ExistsInDatabase to verify the collection is real.
func (s *Schema) Collection(name string) (*Collection, error) {
	return newCollection(s, name)
}

// Table returns a handle for the named table.
func (s *Schema) Table(name string) *Table {
	return &Table{schema: s, name: name}
}

// View returns a handle for the named view.
func (s *Schema) View(name string) *View {
	return &View{Table{schema: s, name: name}}
}

// CollectionAsTable returns a table handle over the named collection, exposing
// its document column for relational access.
func (s *Schema) CollectionAsTable(name string) *Table {
	return s.Table(name)
}

// CreateCollection creates a collection in this schema and returns its handle.
// With reuse set an existing collection of that name is adopted; without it an
// existing collection is an error.
func (s *Schema) CreateCollection(ctx context.Context, name string, reuse bool) (*Collection, error) {
	if name == "" {
		return nil, core.NewValidationError("create_collection", "collection name is invalid")
	}

	exists, err := s.objectExists(ctx, name, core.ObjectCollection)
	if err != nil {
		return nil, err
	}
	if exists {
		if !reuse {
			return nil, fmt.Errorf("collection %s.%s already exists", s.name, name)
		}
		return s.Collection(name)
	}

	_, err = s.conn.ExecuteAdminCommand(ctx, core.AdminNamespace, core.AdminCreateCollection, true,
		&core.ObjectArgs{Schema: s.name, Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s.%s: %w", s.name, name, err)
	}
	s.logger.Info("collection created", zap.String("schema", s.name), zap.String("collection", name))
	return s.Collection(name)
}

// DropCollection drops a collection. Dropping a missing collection is not an
// error.
func (s *Schema) DropCollection(ctx context.Context, name string) error {
	_, err := s.conn.ExecuteAdminCommand(ctx, core.AdminNamespace, core.AdminDropCollection, false,
		&core.ObjectArgs{Schema: s.name, Name: name})
	if err != nil {
		return fmt.Errorf("failed to drop collection %s.%s: %w", s.name, name, err)
	}
	s.logger.Info("collection dropped", zap.String("schema", s.name), zap.String("collection", name))
	return nil
}

// Collections lists the collection handles of this schema.
func (s *Schema) Collections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.listObjects(ctx, "")
	if err != nil {
		return nil, err
	}
	var collections []*Collection
	for _, row := range rows {
		if objectType(row) != core.ObjectCollection {
			continue
		}
		collection, err := s.Collection(objectName(row))
		if err != nil {
			return nil, err
		}
		collections = append(collections, collection)
	}
	return collections, nil
}

// Tables lists the table handles of this schema, views included.
func (s *Schema) Tables(ctx context.Context) ([]*Table, error) {
	rows, err := s.listObjects(ctx, "")
	if err != nil {
		return nil, err
	}
	var tables []*Table
	for _, row := range rows {
		switch objectType(row) {
		case core.ObjectTable, core.ObjectView:
			tables = append(tables, s.Table(objectName(row)))
		}
	}
	return tables, nil
}

// ExistsInDatabase reports whether the schema holds any objects the transport
// can enumerate.
func (s *Schema) ExistsInDatabase(ctx context.Context) (bool, error) {
	_, err := s.listObjects(ctx, "")
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Schema) listObjects(ctx context.Context, pattern string) ([]map[string]any, error) {
	result, err := s.conn.ExecuteAdminCommand(ctx, core.AdminNamespace, core.AdminListObjects, true,
		&core.ListObjectsArgs{Schema: s.name, Pattern: pattern})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects of %s: %w", s.name, err)
	}
	return result.Rows, nil
}

func (s *Schema) objectExists(ctx context.Context, name, objType string) (bool, error) {
	rows, err := s.listObjects(ctx, name)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if objectName(row) == name && objectType(row) == objType {
			return true, nil
		}
	}
	return false, nil
}

// countObject runs a COUNT over the named object, with identifiers quoted per
// the schema's SQL mode.
func (s *Schema) countObject(ctx context.Context, name string) (int64, error) {
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s",
		dialect.QuoteMultipart([]string{s.name, name}, s.sqlMode))
	result, err := s.conn.SendSQL(ctx, sql)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s.%s: %w", s.name, name, err)
	}
	return scalarCount(result)
}

func objectName(row map[string]any) string {
	name, _ := row["name"].(string)
	return name
}

func objectType(row map[string]any) string {
	t, _ := row["type"].(string)
	return t
}

// scalarCount extracts the single numeric value of a one-row, one-column
// result.
func scalarCount(result *core.Result) (int64, error) {
	if len(result.Rows) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	for _, value := range result.Rows[0] {
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case float64:
			return int64(v), nil
		case []byte:
			return strconv.ParseInt(string(v), 10, 64)
		case string:
			return strconv.ParseInt(v, 10, 64)
		}
	}
	return 0, fmt.Errorf("count query returned no numeric column")
}

// Table represents a database table on a schema. Statement constructors
// return builders; nothing touches the transport until Execute.
type Table struct {
	schema *Schema
	name   string
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Schema returns the owning schema handle.
func (t *Table) Schema() *Schema {
	return t.schema
}

func (t *Table) target() core.Target {
	return core.Target{Schema: t.schema.name, Name: t.name, Model: core.TableModel}
}

// Select builds a select statement over the given columns; no columns means
// every column.
func (t *Table) Select(fields ...string) *stmt.SelectStatement {
	return stmt.NewSelect(t.schema.conn, t.target(), fields...)
}

// Insert builds an insert statement over the given columns.
func (t *Table) Insert(fields ...string) *stmt.InsertStatement {
	return stmt.NewInsert(t.schema.conn, t.target(), fields...)
}

// Update builds an update statement.
func (t *Table) Update() *stmt.UpdateStatement {
	return stmt.NewUpdate(t.schema.conn, t.target())
}

// Delete builds a delete statement with an optional initial condition.
func (t *Table) Delete(condition string) *stmt.DeleteStatement {
	return stmt.NewDelete(t.schema.conn, t.target(), condition)
}

// Count returns the number of rows in the table.
func (t *Table) Count(ctx context.Context) (int64, error) {
	return t.schema.countObject(ctx, t.name)
}

// ExistsInDatabase reports whether the table exists.
func (t *Table) ExistsInDatabase(ctx context.Context) (bool, error) {
	exists, err := t.schema.objectExists(ctx, t.name, core.ObjectTable)
	if err != nil || exists {
		return exists, err
	}
	return t.schema.objectExists(ctx, t.name, core.ObjectView)
}

// IsView reports whether the underlying object is a view.
func (t *Table) IsView(ctx context.Context) (bool, error) {
	return t.schema.objectExists(ctx, t.name, core.ObjectView)
}

// View represents a database view on a schema. It reads like a table.
type View struct {
	Table
}

// ExistsInDatabase reports whether the view exists.
func (v *View) ExistsInDatabase(ctx context.Context) (bool, error) {
	return v.schema.objectExists(ctx, v.name, core.ObjectView)
}
