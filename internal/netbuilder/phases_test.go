package netbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/storage"
)

type fakeDisambiguator struct {
	groups []storage.CoincidentGroup
	stamps map[int64][2]int64 // id -> [alias, refcount]
}

func (f *fakeDisambiguator) CoincidentGroups() ([]storage.CoincidentGroup, error) {
	return f.groups, nil
}

func (f *fakeDisambiguator) SetAliasAndRefcount(id, alias int64, refcount int) error {
	if f.stamps == nil {
		f.stamps = make(map[int64][2]int64)
	}
	f.stamps[id] = [2]int64{alias, int64(refcount)}
	return nil
}

func TestDisambiguateCanonicalizesLowestID(t *testing.T) {
	fd := &fakeDisambiguator{groups: []storage.CoincidentGroup{
		{IDs: []int64{5, 8, 12}, TotalRefcount: 3},
	}}
	require.NoError(t, Disambiguate(fd))
	for _, id := range []int64{5, 8, 12} {
		assert.Equal(t, [2]int64{5, 3}, fd.stamps[id])
	}
}

type fakeRefCounter struct {
	present map[int64]bool
	bumps   map[int64]int
}

func (f *fakeRefCounter) LookupNodesBatch(ids []int64) ([]storage.NodeRow, error) {
	var out []storage.NodeRow
	for _, id := range ids {
		if f.present[id] {
			out = append(out, storage.NodeRow{ID: id})
		}
	}
	return out, nil
}

func (f *fakeRefCounter) BumpRefcount(id int64, delta int) error {
	if f.bumps == nil {
		f.bumps = make(map[int64]int)
	}
	f.bumps[id] += delta
	return nil
}

func TestCountReferencesSkipsAbsentAndDedupes(t *testing.T) {
	fc := &fakeRefCounter{present: map[int64]bool{1: true, 2: true}}
	refs := []osmtypes.NodeRef{{Ref: 1}, {Ref: 1}, {Ref: 2}, {Ref: 99}}
	require.NoError(t, CountReferences(fc, refs))
	assert.Equal(t, 1, fc.bumps[1])
	assert.Equal(t, 1, fc.bumps[2])
	assert.Equal(t, 0, fc.bumps[99])
}
