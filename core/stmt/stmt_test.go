package stmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlersick/go-mysqlx/core"
	"github.com/crawlersick/go-mysqlx/core/doc"
)

// fakeProtocol records every descriptor it receives and returns canned
// results.
type fakeProtocol struct {
	sqlTexts []string
	inserts  []*core.InsertDescriptor
	updates  []*core.UpdateDescriptor
	deletes  []*core.DeleteDescriptor
	finds    []*core.FindDescriptor
	admin    []adminCall

	result *core.Result
	err    error
}

type adminCall struct {
	namespace   string
	command     string
	mustSucceed bool
	args        any
}

func newFakeProtocol() *fakeProtocol {
	return &fakeProtocol{result: &core.Result{}}
}

func (f *fakeProtocol) SendSQL(_ context.Context, sql string) (*core.Result, error) {
	f.sqlTexts = append(f.sqlTexts, sql)
	return f.result, f.err
}

func (f *fakeProtocol) SendInsert(_ context.Context, d *core.InsertDescriptor) (*core.Result, error) {
	f.inserts = append(f.inserts, d)
	return f.result, f.err
}

func (f *fakeProtocol) Update(_ context.Context, d *core.UpdateDescriptor) (*core.Result, error) {
	f.updates = append(f.updates, d)
	return f.result, f.err
}

func (f *fakeProtocol) Delete(_ context.Context, d *core.DeleteDescriptor) (*core.Result, error) {
	f.deletes = append(f.deletes, d)
	return f.result, f.err
}

func (f *fakeProtocol) Find(_ context.Context, d *core.FindDescriptor) (*core.Result, error) {
	f.finds = append(f.finds, d)
	return f.result, f.err
}

func (f *fakeProtocol) ExecuteAdminCommand(_ context.Context, namespace, command string, mustSucceed bool, args any) (*core.Result, error) {
	f.admin = append(f.admin, adminCall{namespace, command, mustSucceed, args})
	return f.result, f.err
}

func collectionTarget() core.Target {
	return core.Target{Schema: "s", Name: "coll", Model: core.DocumentModel}
}

func tableTarget() core.Target {
	return core.Target{Schema: "s", Name: "t", Model: core.TableModel}
}

func TestFindExecuteWithoutConditionIsAllowed(t *testing.T) {
	conn := newFakeProtocol()
	_, err := NewFind(conn, collectionTarget(), "").Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, conn.finds, 1)
	assert.Nil(t, conn.finds[0].Filter.Condition)
}

func TestFindInvalidConditionFailsAtExecute(t *testing.T) {
	conn := newFakeProtocol()
	_, err := NewFind(conn, collectionTarget(), "").Where("age >").Execute(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Empty(t, conn.finds, "a statement with a recorded error must not reach the transport")
}

func TestFindDescriptorCarriesFilterState(t *testing.T) {
	conn := newFakeProtocol()
	s := NewFind(conn, collectionTarget(), "age > :min").
		Fields("name", "age").
		Sort("age DESC").
		GroupBy("age").
		Having("count(name) > 1").
		Limit(10, 2).
		Bind("min", 18)
	require.NoError(t, s.Err())

	d := s.Descriptor()
	assert.Equal(t, "age > :min", d.Filter.ConditionStr)
	assert.Equal(t, map[string]int{"min": 0}, d.Filter.BindingMap)
	assert.Equal(t, []core.Binding{{Name: "min", Value: 18}}, d.Filter.Bindings)
	assert.Len(t, d.Projection, 2)
	assert.Len(t, d.Filter.Sort, 1)
	assert.True(t, d.Filter.Sort[0].Desc)
	assert.Len(t, d.Grouping, 1)
	assert.NotNil(t, d.Having)
	require.NotNil(t, d.Filter.Limit)
	assert.Equal(t, int64(10), d.Filter.Limit.RowCount)
	assert.Equal(t, int64(2), d.Filter.Limit.Offset)
}

func TestLockExclusivity(t *testing.T) {
	s := NewFind(newFakeProtocol(), collectionTarget(), "")

	s.LockShared().LockExclusive()
	assert.Equal(t, core.LockExclusive, s.Criteria().Lock())

	s.LockShared()
	assert.Equal(t, core.LockShared, s.Criteria().Lock())
}

func TestBindShapes(t *testing.T) {
	t.Run("pair", func(t *testing.T) {
		s := NewFind(newFakeProtocol(), collectionTarget(), "").Bind("a", 1)
		require.NoError(t, s.Err())
		assert.Equal(t, []core.Binding{{Name: "a", Value: 1}}, s.Criteria().Bindings())
	})

	t.Run("json object text", func(t *testing.T) {
		s := NewFind(newFakeProtocol(), collectionTarget(), "").Bind(`{"a": 1}`)
		require.NoError(t, s.Err())
		require.Len(t, s.Criteria().Bindings(), 1)
		assert.Equal(t, "a", s.Criteria().Bindings()[0].Name)
	})

	t.Run("document", func(t *testing.T) {
		s := NewFind(newFakeProtocol(), collectionTarget(), "").Bind(doc.Doc{"a": 1})
		require.NoError(t, s.Err())
		require.Len(t, s.Criteria().Bindings(), 1)
	})

	t.Run("non-object json", func(t *testing.T) {
		s := NewFind(newFakeProtocol(), collectionTarget(), "").Bind(`[1, 2]`)
		require.Error(t, s.Err())
		assert.Contains(t, s.Err().Error(), "invalid JSON string to bind")
	})

	t.Run("malformed json", func(t *testing.T) {
		s := NewFind(newFakeProtocol(), collectionTarget(), "").Bind(`{"a"`)
		require.Error(t, s.Err())
	})

	t.Run("bad arity", func(t *testing.T) {
		s := NewFind(newFakeProtocol(), collectionTarget(), "").Bind("a", 1, 2)
		require.Error(t, s.Err())
		assert.Contains(t, s.Err().Error(), "invalid number of arguments")
	})

	t.Run("bindings before condition", func(t *testing.T) {
		s := NewFind(newFakeProtocol(), collectionTarget(), "").Bind("min", 1).Where("age > :min")
		require.NoError(t, s.Err())
		assert.Equal(t, map[string]int{"min": 0}, s.Criteria().BindingMap())
	})
}

func TestSelectGetSQL(t *testing.T) {
	conn := newFakeProtocol()

	s := NewSelect(conn, tableTarget()).Where("a>1").OrderBy("a").Limit(10, 5)
	assert.Equal(t, "SELECT * FROM s.t WHERE a>1 ORDER BY a LIMIT 10 OFFSET 5", s.GetSQL())

	full := NewSelect(conn, tableTarget(), "a", "b").
		Where("a > 1").
		GroupBy("a").
		Having("count(b) > 2").
		OrderBy("b DESC")
	assert.Equal(t, "SELECT a,b FROM s.t WHERE a > 1 GROUP BY a HAVING count(b) > 2 ORDER BY b DESC", full.GetSQL())

	bare := NewSelect(conn, tableTarget())
	assert.Equal(t, "SELECT * FROM s.t", bare.GetSQL())
}

func TestEmptyAddIsNoOp(t *testing.T) {
	conn := newFakeProtocol()
	result, err := NewAdd(conn, collectionTarget()).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &core.Result{}, result)
	assert.Empty(t, conn.inserts, "empty add must not contact the transport")
}

func TestAddGeneratesDocumentIDs(t *testing.T) {
	conn := newFakeProtocol()
	result, err := NewAdd(conn, collectionTarget()).
		Add(map[string]any{"name": "Fred"}, doc.Doc{"_id": "doc-1", "name": "Wilma"}).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, conn.inserts, 1)
	require.Len(t, result.DocumentIDs, 2)
	assert.NotEmpty(t, result.DocumentIDs[0])
	assert.Equal(t, "doc-1", result.DocumentIDs[1])
}

func TestAddNilDocument(t *testing.T) {
	conn := newFakeProtocol()
	result, err := NewAdd(conn, collectionTarget()).
		Add(doc.Doc(nil)).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, conn.inserts, 1)
	require.Len(t, result.DocumentIDs, 1)
	assert.NotEmpty(t, result.DocumentIDs[0])
}

func TestAddCoercesValues(t *testing.T) {
	s := NewAdd(newFakeProtocol(), collectionTarget()).
		Add(`{"name": "Fred"}`).
		Add(map[string]any{"name": "Wilma"})
	require.NoError(t, s.Err())
	require.Len(t, s.Values(), 2)
	assert.Equal(t, "Fred", s.Values()[0]["name"])

	bad := NewAdd(newFakeProtocol(), collectionTarget()).Add(42)
	assert.Error(t, bad.Err())
}

func TestInsertDelegatesUnconditionally(t *testing.T) {
	conn := newFakeProtocol()
	_, err := NewInsert(conn, tableTarget(), "a", "b").
		Values(1, "x").
		Values(2, "y").
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, conn.inserts, 1)
	assert.Equal(t, []string{"a", "b"}, conn.inserts[0].Columns)
	assert.Len(t, conn.inserts[0].Rows, 2)
}

func TestMandatoryFilterInvariant(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		execute func(conn *fakeProtocol) error
		message string
	}{
		{
			"modify", func(conn *fakeProtocol) error {
				_, err := NewModify(conn, collectionTarget(), "").Set("a", 1).Execute(ctx)
				return err
			}, "no condition found for modify",
		},
		{
			"update", func(conn *fakeProtocol) error {
				_, err := NewUpdate(conn, tableTarget()).Set("a", 1).Execute(ctx)
				return err
			}, "no condition found for update",
		},
		{
			"remove", func(conn *fakeProtocol) error {
				_, err := NewRemove(conn, collectionTarget(), "").Execute(ctx)
				return err
			}, "no condition found for remove",
		},
		{
			"delete", func(conn *fakeProtocol) error {
				_, err := NewDelete(conn, tableTarget(), "").Execute(ctx)
				return err
			}, "no condition found for delete",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeProtocol()
			err := tt.execute(conn)
			require.Error(t, err)
			assert.True(t, core.IsValidation(err))
			assert.Contains(t, err.Error(), tt.message)
			assert.Empty(t, conn.updates)
			assert.Empty(t, conn.deletes)
		})
	}
}

func TestUpdatePathResolution(t *testing.T) {
	t.Run("document path", func(t *testing.T) {
		s := NewModify(newFakeProtocol(), collectionTarget(), "_id = 1").Set("a.b", 1)
		require.NoError(t, s.Err())
		require.Len(t, s.Operations(), 1)
		op := s.Operations()[0]
		assert.Equal(t, core.UpdateItemSet, op.Kind)
		assert.Equal(t, []string{"a", "b"}, op.Path.Parts)
	})

	t.Run("document path strips one dollar", func(t *testing.T) {
		s := NewModify(newFakeProtocol(), collectionTarget(), "_id = 1").Set("$.a.b", 1)
		require.NoError(t, s.Err())
		assert.Equal(t, []string{"a", "b"}, s.Operations()[0].Path.Parts)
	})

	t.Run("document root", func(t *testing.T) {
		s := NewModify(newFakeProtocol(), collectionTarget(), "_id = 1").Set("$", map[string]any{"a": 1})
		require.NoError(t, s.Err())
		assert.Empty(t, s.Operations()[0].Path.Parts)
	})

	t.Run("table column", func(t *testing.T) {
		s := NewUpdate(newFakeProtocol(), tableTarget()).Where("a = 1").Set("a.b", 1)
		require.NoError(t, s.Err())
		op := s.Operations()[0]
		assert.Equal(t, core.UpdateSet, op.Kind)
		assert.Equal(t, []string{"a", "b"}, op.Path.Parts)
	})

	t.Run("table column rejects dollar", func(t *testing.T) {
		s := NewUpdate(newFakeProtocol(), tableTarget()).Where("a = 1").Set("$.a", 1)
		assert.Error(t, s.Err())
	})
}

func TestModifyOperationKinds(t *testing.T) {
	s := NewModify(newFakeProtocol(), collectionTarget(), "_id = 1").
		Set("a", 1).
		Change("b", 2).
		Unset("c", "d").
		ArrayInsert("e[0]", 3).
		ArrayAppend("e", 4).
		Patch(map[string]any{"f": 5})
	require.NoError(t, s.Err())

	kinds := make([]core.UpdateKind, 0, len(s.Operations()))
	for _, op := range s.Operations() {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []core.UpdateKind{
		core.UpdateItemSet,
		core.UpdateItemReplace,
		core.UpdateItemRemove,
		core.UpdateItemRemove,
		core.UpdateArrayInsert,
		core.UpdateArrayAppend,
		core.UpdateMergePatch,
	}, kinds)

	patch := s.Operations()[len(s.Operations())-1]
	assert.Empty(t, patch.Path.Parts)
}

func TestPatchArgumentValidation(t *testing.T) {
	base := func() *ModifyStatement {
		return NewModify(newFakeProtocol(), collectionTarget(), "_id = 1")
	}

	assert.NoError(t, base().Patch(map[string]any{"a": 1}).Err())
	assert.NoError(t, base().Patch(doc.Doc{"a": 1}).Err())
	assert.NoError(t, base().Patch(`{"a": 1}`).Err())

	s := base().Patch(nil)
	require.NoError(t, s.Err())
	assert.Equal(t, "", s.Operations()[0].Value)

	assert.Error(t, base().Patch(42).Err())
	assert.Error(t, base().Patch([]string{"a"}).Err())
}

func TestSqlStatement(t *testing.T) {
	conn := newFakeProtocol()
	_, err := NewSql(conn, "SHOW TABLES").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SHOW TABLES"}, conn.sqlTexts)
}
