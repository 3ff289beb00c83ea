package mapbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/location-microservice/osmgeo/internal/geom"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/storage"
)

func newTestBuilder(t *testing.T) (*Builder, *storage.DB) {
	t.Helper()
	db, err := storage.Open(":memory:", 0, false, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(storage.KindMap, "", false))
	t.Cleanup(func() { db.Close() })
	return New(db, zap.NewNop()), db
}

func countRows(t *testing.T, db *storage.DB, table string) int {
	t.Helper()
	row := db.Conn().QueryRow("SELECT COUNT(*) FROM " + table)
	var n int
	require.NoError(t, row.Scan(&n))
	return n
}

func tableExists(t *testing.T, db *storage.DB, table string) bool {
	t.Helper()
	row := db.Conn().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	var n int
	require.NoError(t, row.Scan(&n))
	return n > 0
}

func TestProcessNodeWithLayerTag(t *testing.T) {
	b, db := newTestBuilder(t)
	n := &osmtypes.Node{ID: 1, Lat: 10, Lon: 20, Tags: []osmtypes.Tag{
		{K: "amenity", V: "cafe"}, {K: "name", V: "Joe's"},
	}}
	require.NoError(t, b.ProcessNode(n))
	assert.Equal(t, 1, countRows(t, db, "pt_amenity"))
	assert.Equal(t, 1, countRows(t, db, "osm_tmp_nodes"))
}

func TestProcessNodeWithOnlyAddress(t *testing.T) {
	b, db := newTestBuilder(t)
	n := &osmtypes.Node{ID: 2, Lat: 10, Lon: 20, Tags: []osmtypes.Tag{
		{K: "addr:city", V: "Springfield"},
	}}
	require.NoError(t, b.ProcessNode(n))
	assert.Equal(t, 1, countRows(t, db, "pt_addresses"))
}

func TestProcessNodeWithNoMatch(t *testing.T) {
	b, db := newTestBuilder(t)
	n := &osmtypes.Node{ID: 3, Lat: 10, Lon: 20}
	require.NoError(t, b.ProcessNode(n))
	assert.Equal(t, 1, countRows(t, db, "osm_tmp_nodes"))
	assert.Equal(t, 0, countRows(t, db, "pt_generic"))
}

func TestProcessWayLinear(t *testing.T) {
	b, db := newTestBuilder(t)
	require.NoError(t, b.ProcessNode(&osmtypes.Node{ID: 1, Lat: 0, Lon: 0}))
	require.NoError(t, b.ProcessNode(&osmtypes.Node{ID: 2, Lat: 0, Lon: 1}))

	w := &osmtypes.Way{ID: 10, Refs: []osmtypes.NodeRef{{Ref: 1}, {Ref: 2}},
		Tags: []osmtypes.Tag{{K: "highway", V: "residential"}, {K: "name", V: "Elm St"}}}
	require.NoError(t, b.ProcessWay(w))

	assert.Equal(t, 1, countRows(t, db, "ln_highway"))
	assert.Equal(t, 1, countRows(t, db, "osm_tmp_ways"))
}

func TestProcessWayAreal(t *testing.T) {
	b, db := newTestBuilder(t)
	require.NoError(t, b.ProcessNode(&osmtypes.Node{ID: 1, Lat: 0, Lon: 0}))
	require.NoError(t, b.ProcessNode(&osmtypes.Node{ID: 2, Lat: 0, Lon: 1}))
	require.NoError(t, b.ProcessNode(&osmtypes.Node{ID: 3, Lat: 1, Lon: 1}))

	w := &osmtypes.Way{ID: 11, Refs: []osmtypes.NodeRef{{Ref: 1}, {Ref: 2}, {Ref: 3}, {Ref: 1}},
		Tags: []osmtypes.Tag{{K: "building", V: "yes"}}}
	require.NoError(t, b.ProcessWay(w))

	assert.Equal(t, 1, countRows(t, db, "pg_building"))
}

func TestProcessWayUnresolvedIsDropped(t *testing.T) {
	b, db := newTestBuilder(t)
	w := &osmtypes.Way{ID: 12, Refs: []osmtypes.NodeRef{{Ref: 999}},
		Tags: []osmtypes.Tag{{K: "highway", V: "residential"}}}
	require.NoError(t, b.ProcessWay(w))
	assert.Equal(t, 0, countRows(t, db, "osm_tmp_ways"))
	// ln_highway is created lazily on first insert, so no row means no table.
	assert.False(t, tableExists(t, db, "ln_highway"))
}

func TestProcessRelationMultiPolygon(t *testing.T) {
	b, db := newTestBuilder(t)
	outerBlob := geom.ToBlob(geom.NewMultiLineString([]geom.LineString{{Points: []geom.Point{
		{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 0, Y: 0},
	}}}))
	require.NoError(t, db.CacheWayGeometry(100, true, outerBlob))

	r := &osmtypes.Relation{ID: 200,
		Tags: []osmtypes.Tag{{K: "type", V: "multipolygon"}, {K: "landuse", V: "forest"}},
		Members: []osmtypes.Member{{Type: osmtypes.MemberWay, Ref: 100, Role: "outer"}},
	}
	require.NoError(t, b.ProcessRelation(r))
	assert.Equal(t, 1, countRows(t, db, "pg_landuse"))
}

func TestProcessRelationIllegalMultipolygonIsDropped(t *testing.T) {
	b, db := newTestBuilder(t)
	r := &osmtypes.Relation{ID: 201,
		Tags:    []osmtypes.Tag{{K: "type", V: "multipolygon"}, {K: "landuse", V: "forest"}},
		Members: []osmtypes.Member{{Type: osmtypes.MemberWay, Ref: 999, Role: "outer"}},
	}
	require.NoError(t, b.ProcessRelation(r))
	assert.False(t, tableExists(t, db, "pg_landuse"))
}

func TestProcessRelationLinear(t *testing.T) {
	b, db := newTestBuilder(t)
	blob := geom.ToBlob(geom.NewMultiLineString([]geom.LineString{{Points: []geom.Point{
		{X: 0, Y: 0}, {X: 1, Y: 1},
	}}}))
	require.NoError(t, db.CacheWayGeometry(300, false, blob))

	r := &osmtypes.Relation{ID: 301,
		Tags:    []osmtypes.Tag{{K: "route", V: "bus"}, {K: "name", V: "Line 1"}},
		Members: []osmtypes.Member{{Type: osmtypes.MemberWay, Ref: 300, Role: ""}},
	}
	require.NoError(t, b.ProcessRelation(r))
	assert.Equal(t, 1, countRows(t, db, "ln_route"))
}
