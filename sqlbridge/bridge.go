// Package sqlbridge implements the transport Protocol over a database/sql
// connection, rendering canonical descriptors into SQLite SQL. Collections
// are stored as two-column tables: the document identifier and the JSON
// payload. The bridge is the serving side of the statement layer; it assumes
// descriptors arrive already validated by the builders.
package sqlbridge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crawlersick/go-mysqlx/core"
)

// Bridge executes descriptors against a SQL database.
type Bridge struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ core.Protocol = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New builds a bridge over an open database handle.
func New(db *sql.DB, opts ...Option) *Bridge {
	b := &Bridge{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SendSQL executes a raw SQL text. Row-returning statements come back as
// Rows; everything else reports affected items and the last insert id.
func (b *Bridge) SendSQL(ctx context.Context, sqlText string) (*core.Result, error) {
	if isRowReturning(sqlText) {
		return b.query(ctx, sqlText, nil)
	}
	return b.exec(ctx, sqlText, nil)
}

// SendInsert executes an insert descriptor.
func (b *Bridge) SendInsert(ctx context.Context, d *core.InsertDescriptor) (*core.Result, error) {
	sqlText, params, err := insertSQL(d)
	if err != nil {
		return nil, err
	}
	return b.exec(ctx, sqlText, params)
}

// Update executes an update descriptor.
func (b *Bridge) Update(ctx context.Context, d *core.UpdateDescriptor) (*core.Result, error) {
	sqlText, params, err := updateSQL(d)
	if err != nil {
		return nil, err
	}
	return b.exec(ctx, sqlText, params)
}

// Delete executes a delete descriptor.
func (b *Bridge) Delete(ctx context.Context, d *core.DeleteDescriptor) (*core.Result, error) {
	sqlText, params, err := deleteSQL(d)
	if err != nil {
		return nil, err
	}
	return b.exec(ctx, sqlText, params)
}

// Find executes a find descriptor. Document reads with a bare projection
// decode the payload column back into document maps.
func (b *Bridge) Find(ctx context.Context, d *core.FindDescriptor) (*core.Result, error) {
	sqlText, params, err := selectSQL(d)
	if err != nil {
		return nil, err
	}
	result, err := b.query(ctx, sqlText, params)
	if err != nil {
		return nil, err
	}
	if !d.Target.Model.TableMode() {
		decodeDocRows(result.Rows)
	}
	return result, nil
}

// ExecuteAdminCommand runs one of the administrative commands. Commands with
// mustSucceed unset tolerate missing objects through IF EXISTS variants.
func (b *Bridge) ExecuteAdminCommand(ctx context.Context, namespace, command string, mustSucceed bool, args any) (*core.Result, error) {
	if namespace != core.AdminNamespace {
		return nil, core.NotSupportedError("admin namespace %q", namespace)
	}

	switch command {
	case core.AdminCreateCollection:
		objectArgs, ok := args.(*core.ObjectArgs)
		if !ok {
			return nil, fmt.Errorf("create_collection: unexpected args type %T", args)
		}
		sqlText := fmt.Sprintf("CREATE TABLE %s (%s TEXT PRIMARY KEY, %s TEXT NOT NULL)",
			tableRef(core.Target{Schema: objectArgs.Schema, Name: objectArgs.Name}),
			quote(idColumn), quote(docColumn))
		return b.exec(ctx, sqlText, nil)

	case core.AdminDropCollection:
		objectArgs, ok := args.(*core.ObjectArgs)
		if !ok {
			return nil, fmt.Errorf("drop_collection: unexpected args type %T", args)
		}
		verb := "DROP TABLE"
		if !mustSucceed {
			verb = "DROP TABLE IF EXISTS"
		}
		sqlText := fmt.Sprintf("%s %s", verb,
			tableRef(core.Target{Schema: objectArgs.Schema, Name: objectArgs.Name}))
		return b.exec(ctx, sqlText, nil)

	case core.AdminCreateCollectionIndex:
		indexArgs, ok := args.(*core.IndexArgs)
		if !ok {
			return nil, fmt.Errorf("create_collection_index: unexpected args type %T", args)
		}
		return b.createIndex(ctx, indexArgs)

	case core.AdminDropCollectionIndex:
		dropArgs, ok := args.(*core.DropIndexArgs)
		if !ok {
			return nil, fmt.Errorf("drop_collection_index: unexpected args type %T", args)
		}
		verb := "DROP INDEX"
		if !mustSucceed {
			verb = "DROP INDEX IF EXISTS"
		}
		return b.exec(ctx, fmt.Sprintf("%s %s", verb, indexRef(dropArgs.Schema, dropArgs.Name)), nil)

	case core.AdminListObjects:
		listArgs, ok := args.(*core.ListObjectsArgs)
		if !ok {
			return nil, fmt.Errorf("list_objects: unexpected args type %T", args)
		}
		return b.listObjects(ctx, listArgs)
	}

	return nil, core.NotSupportedError("admin command %q", command)
}

// createIndex builds an expression index over the constrained document
// members.
func (b *Bridge) createIndex(ctx context.Context, args *core.IndexArgs) (*core.Result, error) {
	members := make([]string, 0, len(args.Constraint))
	for _, constraint := range args.Constraint {
		path := constraint.Member
		if !strings.HasPrefix(path, "$") {
			path = "$." + path
		}
		members = append(members, fmt.Sprintf("json_extract(%s, '%s')", quote(docColumn), path))
	}
	// SQLite attaches the schema to the index name; the table stays bare.
	sqlText := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		indexRef(args.Schema, args.Name),
		quote(args.Collection),
		strings.Join(members, ", "))
	return b.exec(ctx, sqlText, nil)
}

func indexRef(schema, name string) string {
	if schema == "" {
		return quote(name)
	}
	return quote(schema) + "." + quote(name)
}

// listObjects enumerates tables and views, classifying two-column document
// tables as collections.
func (b *Bridge) listObjects(ctx context.Context, args *core.ListObjectsArgs) (*core.Result, error) {
	sqlText := "SELECT name, type, sql FROM sqlite_master " +
		"WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'"
	var params []any
	if args.Pattern != "" {
		sqlText += " AND name = ?"
		params = append(params, args.Pattern)
	}
	sqlText += " ORDER BY name"

	result, err := b.query(ctx, sqlText, params)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		name, _ := row["name"].(string)
		rawType, _ := row["type"].(string)
		ddl, _ := row["sql"].(string)

		objType := core.ObjectTable
		switch {
		case rawType == "view":
			objType = core.ObjectView
		case isCollectionDDL(ddl):
			objType = core.ObjectCollection
		}
		rows = append(rows, map[string]any{"name": name, "type": objType})
	}
	return &core.Result{Rows: rows}, nil
}

// isCollectionDDL recognizes the table shape create_collection produces.
func isCollectionDDL(ddl string) bool {
	return strings.Contains(ddl, `"`+idColumn+`" TEXT PRIMARY KEY`) &&
		strings.Contains(ddl, `"`+docColumn+`" TEXT`)
}

func (b *Bridge) exec(ctx context.Context, sqlText string, params []any) (*core.Result, error) {
	b.logger.Debug("executing SQL", zap.String("sql", sqlText), zap.Any("params", params))

	res, err := b.db.ExecContext(ctx, sqlText, params...)
	if err != nil {
		b.logger.Error("SQL execution failed", zap.Error(err), zap.String("sql", sqlText))
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}

	result := &core.Result{}
	if affected, err := res.RowsAffected(); err == nil {
		result.AffectedItems = uint64(affected)
	}
	if lastID, err := res.LastInsertId(); err == nil {
		result.LastInsertID = lastID
	}
	return result, nil
}

func (b *Bridge) query(ctx context.Context, sqlText string, params []any) (*core.Result, error) {
	b.logger.Debug("querying SQL", zap.String("sql", sqlText), zap.Any("params", params))

	rows, err := b.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		b.logger.Error("SQL query failed", zap.Error(err), zap.String("sql", sqlText))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	scanned, err := readRows(rows)
	if err != nil {
		return nil, err
	}
	return &core.Result{Rows: scanned}, nil
}

// readRows scans every row into a map keyed by column name. Byte slices come
// back as strings; the driver's other types pass through.
func readRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if byteVal, ok := values[i].([]byte); ok {
				row[col] = string(byteVal)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return results, nil
}

// decodeDocRows replaces the JSON payload text of document reads with the
// decoded document fields, in place.
func decodeDocRows(rows []map[string]any) {
	for _, row := range rows {
		payload, ok := row[docColumn].(string)
		if !ok {
			continue
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			continue
		}
		delete(row, docColumn)
		for key, value := range decoded {
			row[key] = value
		}
	}
}

// isRowReturning reports whether the SQL text produces a result set.
func isRowReturning(sqlText string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(sqlText))
	return strings.HasPrefix(trimmed, "SELECT") ||
		strings.HasPrefix(trimmed, "PRAGMA") ||
		strings.HasPrefix(trimmed, "WITH")
}
