package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/doc"
	"github.com/crawlersick/go-mysqlx/core/stmt"
)

// Collection represents a collection of documents on a schema. Statement
// constructors return builders; the one-shot helpers execute immediately and
// emit lifecycle events on the collection's bus.
type Collection struct {
	schema *Schema
	name   string
	logger *zap.Logger
	hub    *eventHub
}

func newCollection(schema *Schema, name string) (*Collection, error) {
	hub, err := newEventHub(name, schema.logger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus for %s: %w", name, err)
	}
	return &Collection{
		schema: schema,
		name:   name,
		logger: schema.logger,
		hub:    hub,
	}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Schema returns the owning schema handle.
func (c *Collection) Schema() *Schema {
	return c.schema
}

func (c *Collection) target() core.Target {
	return core.Target{Schema: c.schema.name, Name: c.name, Model: core.DocumentModel}
}

// Find builds a find statement with an optional initial condition.
func (c *Collection) Find(condition string) *stmt.FindStatement {
	return stmt.NewFind(c.schema.conn, c.target(), condition)
}

// Add builds an add statement seeded with the given documents.
func (c *Collection) Add(values ...any) *stmt.AddStatement {
	return stmt.NewAdd(c.schema.conn, c.target()).Add(values...)
}

// Modify builds a modify statement with an optional initial condition.
func (c *Collection) Modify(condition string) *stmt.ModifyStatement {
	return stmt.NewModify(c.schema.conn, c.target(), condition)
}

// Remove builds a remove statement with an optional initial condition.
func (c *Collection) Remove(condition string) *stmt.RemoveStatement {
	return stmt.NewRemove(c.schema.conn, c.target(), condition)
}

// CreateIndex builds a create-index statement over the raw index description.
func (c *Collection) CreateIndex(indexName string, indexDesc map[string]any) *stmt.CreateCollectionIndexStatement {
	return stmt.NewCreateCollectionIndex(c.schema.conn, c.target(), indexName, indexDesc)
}

// DropIndex drops a collection index. Dropping a missing index is not an
// error.
func (c *Collection) DropIndex(ctx context.Context, indexName string) error {
	_, err := c.schema.conn.ExecuteAdminCommand(ctx, core.AdminNamespace, core.AdminDropCollectionIndex, false,
		&core.DropIndexArgs{Schema: c.schema.name, Collection: c.name, Name: indexName})
	if err != nil {
		return fmt.Errorf("failed to drop index %s on %s.%s: %w", indexName, c.schema.name, c.name, err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	return c.schema.countObject(ctx, c.name)
}

// ExistsInDatabase reports whether the collection exists.
func (c *Collection) ExistsInDatabase(ctx context.Context) (bool, error) {
	return c.schema.objectExists(ctx, c.name, core.ObjectCollection)
}

// GetOne returns the document matching the identifier, or nil when no
// document matches.
func (c *Collection) GetOne(ctx context.Context, docID string) (map[string]any, error) {
	result, err := c.hub.withEvents("get",
		DocumentGetStart, DocumentGetSuccess, DocumentGetFailed,
		map[string]any{"id": docID},
		func() (any, error) {
			res, err := c.Find("_id = :id").Bind("id", docID).Execute(ctx)
			if err != nil {
				return nil, err
			}
			if len(res.Rows) == 0 {
				return (map[string]any)(nil), nil
			}
			return res.Rows[0], nil
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(map[string]any), nil
}

// ReplaceOne replaces the document matching the identifier with the given
// document.
func (c *Collection) ReplaceOne(ctx context.Context, docID string, value any) (*core.Result, error) {
	result, err := c.hub.withEvents("replace",
		DocumentReplaceStart, DocumentReplaceSuccess, DocumentReplaceFailed,
		map[string]any{"id": docID, "doc": value},
		func() (any, error) {
			return c.Modify("_id = :id").Set("$", value).Bind("id", docID).Execute(ctx)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*core.Result), nil
}

// AddOrReplaceOne upserts the document under the given identifier.
func (c *Collection) AddOrReplaceOne(ctx context.Context, docID string, value any) (*core.Result, error) {
	result, err := c.hub.withEvents("upsert",
		DocumentUpsertStart, DocumentUpsertSuccess, DocumentUpsertFailed,
		map[string]any{"id": docID, "doc": value},
		func() (any, error) {
			s := c.Add(value).Upsert(true)
			for _, d := range s.Values() {
				d[doc.IDField] = docID
			}
			return s.Execute(ctx)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*core.Result), nil
}

// RemoveOne removes the document matching the identifier.
func (c *Collection) RemoveOne(ctx context.Context, docID string) (*core.Result, error) {
	result, err := c.hub.withEvents("remove",
		DocumentRemoveStart, DocumentRemoveSuccess, DocumentRemoveFailed,
		map[string]any{"id": docID},
		func() (any, error) {
			return c.Remove("_id = :id").Bind("id", docID).Execute(ctx)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*core.Result), nil
}

// Watch registers a callback for the given event type and returns a handle
// for Unwatch.
func (c *Collection) Watch(event EventType, cb WatchCallback) string {
	return c.hub.watch(event, cb)
}

// Unwatch removes a watch by its handle.
func (c *Collection) Unwatch(id string) {
	c.hub.unwatch(id)
}
