package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/storage"
)

type fakeLookuper struct {
	rows    map[int64][]storage.NodeRow // not read by LookupNodesBatch, which serves rows from all
	all     []storage.NodeRow
	batches []int // size of each requested batch, in call order
}

func (f *fakeLookuper) LookupNodesBatch(ids []int64) ([]storage.NodeRow, error) {
	f.batches = append(f.batches, len(ids))
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []storage.NodeRow
	for _, row := range f.all {
		if want[row.ID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func TestResolveStampsRefs(t *testing.T) {
	fl := &fakeLookuper{all: []storage.NodeRow{
		{ID: 1, Alias: 1, Lat: 10, Lon: 20, Refcount: 2},
		{ID: 2, Alias: 1, Lat: 11, Lon: 21, Refcount: 0},
	}}
	refs := []osmtypes.NodeRef{{Ref: 1}, {Ref: 2}}
	require.NoError(t, Resolve(fl, refs))
	assert.True(t, refs[0].Resolved)
	assert.Equal(t, 10.0, refs[0].Lat)
	assert.Equal(t, int64(1), refs[0].Alias)
	assert.Equal(t, 2, refs[0].Refcount)
}

func TestResolveUnresolvedIsFatal(t *testing.T) {
	fl := &fakeLookuper{all: []storage.NodeRow{{ID: 1, Lat: 10, Lon: 20}}}
	refs := []osmtypes.NodeRef{{Ref: 1}, {Ref: 99}}
	err := Resolve(fl, refs)
	require.Error(t, err)
}

func TestResolveBatchesAt128(t *testing.T) {
	all := make([]storage.NodeRow, 0, 200)
	refs := make([]osmtypes.NodeRef, 0, 200)
	for i := int64(1); i <= 200; i++ {
		all = append(all, storage.NodeRow{ID: i, Lat: float64(i), Lon: float64(i)})
		refs = append(refs, osmtypes.NodeRef{Ref: i})
	}
	fl := &fakeLookuper{all: all}
	require.NoError(t, Resolve(fl, refs))
	assert.Equal(t, []int{128, 72}, fl.batches)
	for i, r := range refs {
		assert.True(t, r.Resolved)
		assert.Equal(t, float64(i+1), r.Lat)
	}
}
