package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *DB {
	t.Helper()
	logger := zap.NewNop()
	db, err := Open(":memory:", 0, false, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnsureSchemaMap(t *testing.T) {
	db := newTestStore(t)
	require.NoError(t, db.EnsureSchema(KindMap, "", false))

	_, err := db.conn.Exec("INSERT INTO pt_generic (id, name, Geometry) VALUES (1, 'Foo', NULL)")
	require.NoError(t, err)
}

func TestStageNodeAndLookupBatch(t *testing.T) {
	db := newTestStore(t)
	require.NoError(t, db.EnsureSchema(KindMap, "", false))

	require.NoError(t, db.StageNode(1, 10.0, 20.0))
	require.NoError(t, db.StageNode(2, 11.0, 21.0))

	rows, err := db.LookupNodesBatch([]int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestInsertPointLayerLazyCreate(t *testing.T) {
	db := newTestStore(t)
	require.NoError(t, db.EnsureSchema(KindMap, "", false))

	name := "Central Park"
	subType := "park"
	require.NoError(t, db.InsertPoint("leisure", 42, &subType, &name, nil))

	var got string
	row := db.conn.QueryRow("SELECT name FROM pt_leisure WHERE id = 42")
	require.NoError(t, row.Scan(&got))
	require.Equal(t, name, got)
}

func TestEnsureSchemaNetworkBidirectional(t *testing.T) {
	db := newTestStore(t)
	require.NoError(t, db.EnsureSchema(KindNetwork, "roads", false))

	row := ArcRow{OSMID: 1, Class: "primary", NodeFrom: 1, NodeTo: 2, Name: "Main", Length: 100, Cost: 4}
	require.NoError(t, db.InsertArcBidir("roads", row, 1, 0))

	var count int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM roads").Scan(&count))
	require.Equal(t, 1, count)
}

func TestExportToDiskWritesBackTables(t *testing.T) {
	db := newTestStore(t)
	require.NoError(t, db.EnsureSchema(KindMap, "", false))

	name := "Foo"
	require.NoError(t, db.InsertGeneric(ShapePoint, 1, &name, nil))

	diskPath := filepath.Join(t.TempDir(), "out.sqlite")
	require.NoError(t, db.ExportToDisk(diskPath))

	disk, err := Open(diskPath, 0, false, zap.NewNop())
	require.NoError(t, err)
	defer disk.Close()

	var got string
	row := disk.conn.QueryRow("SELECT name FROM pt_generic WHERE id = 1")
	require.NoError(t, row.Scan(&got))
	require.Equal(t, name, got)
}

func TestCoincidentGroups(t *testing.T) {
	db := newTestStore(t)
	require.NoError(t, db.EnsureSchema(KindNetwork, "roads", false))

	require.NoError(t, db.StageNode(1, 10.0, 20.0))
	require.NoError(t, db.StageNode(2, 10.0, 20.0))
	require.NoError(t, db.StageNode(3, 11.0, 21.0))

	groups, err := db.CoincidentGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.ElementsMatch(t, []int64{1, 2}, groups[0].IDs)
}
