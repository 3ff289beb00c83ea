package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/location-microservice/osmgeo/internal/geom"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/storage"
)

type fakeWayLookuper struct {
	rows map[int64]storage.WayRow
}

func (f *fakeWayLookuper) LookupWaysBatch(ids []int64) ([]storage.WayRow, error) {
	var out []storage.WayRow
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func lineStringRow(id int64, pts []geom.Point) storage.WayRow {
	g := geom.NewLineString(pts)
	return storage.WayRow{ID: id, Blob: geom.ToBlob(g)}
}

func ringRow(id int64, pts []geom.Point) storage.WayRow {
	g := geom.ToMultipolygonFromClosedRing(geom.LineString{Points: pts})
	return storage.WayRow{ID: id, Blob: geom.ToBlob(g)}
}

func TestAssembleMultiLineString(t *testing.T) {
	fl := &fakeWayLookuper{rows: map[int64]storage.WayRow{
		1: lineStringRow(1, []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}),
		2: lineStringRow(2, []geom.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}),
	}}
	members := []osmtypes.Member{
		{Type: osmtypes.MemberWay, Ref: 1},
		{Type: osmtypes.MemberWay, Ref: 2},
	}
	g, err := AssembleMultiLineString(fl, 99, members)
	require.NoError(t, err)
	require.Len(t, g.MultiLineString, 2)
}

func TestAssembleMultiLineStringUnresolvedWay(t *testing.T) {
	fl := &fakeWayLookuper{rows: map[int64]storage.WayRow{}}
	members := []osmtypes.Member{{Type: osmtypes.MemberWay, Ref: 1}}
	_, err := AssembleMultiLineString(fl, 99, members)
	require.Error(t, err)
}

func TestAssembleMultiPolygonAdmissible(t *testing.T) {
	outer := []geom.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 0}}
	inner := []geom.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 1}}
	fl := &fakeWayLookuper{rows: map[int64]storage.WayRow{
		1: ringRow(1, outer),
		2: ringRow(2, inner),
	}}
	members := []osmtypes.Member{
		{Type: osmtypes.MemberWay, Ref: 1, Role: "outer"},
		{Type: osmtypes.MemberWay, Ref: 2, Role: "inner"},
	}
	g, err := AssembleMultiPolygon(fl, 5, members)
	require.NoError(t, err)
	require.Len(t, g.MultiPolygon, 1)
	assert.Len(t, g.MultiPolygon[0].Interior, 1)
	assert.Equal(t, outer, g.MultiPolygon[0].Exterior.Points)
}

func TestAssembleMultiPolygonRejectsTwoOuters(t *testing.T) {
	outer := []geom.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 0}}
	fl := &fakeWayLookuper{rows: map[int64]storage.WayRow{
		1: ringRow(1, outer),
		2: ringRow(2, outer),
	}}
	members := []osmtypes.Member{
		{Type: osmtypes.MemberWay, Ref: 1, Role: "outer"},
		{Type: osmtypes.MemberWay, Ref: 2, Role: "outer"},
	}
	_, err := AssembleMultiPolygon(fl, 5, members)
	require.Error(t, err)
}
