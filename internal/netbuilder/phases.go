package netbuilder

import (
	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/storage"
)

// Disambiguator is the subset of storage.DB the coincident-node
// disambiguation pass needs.
type Disambiguator interface {
	CoincidentGroups() ([]storage.CoincidentGroup, error)
	SetAliasAndRefcount(id, alias int64, refcount int) error
}

// Disambiguate implements spec.md §4.7 Phase 1: for every (lat, lon)
// group sharing more than one staged node, the lowest-ordered member (id
// ascending) is designated canonical, and every member's alias/refcount
// is stamped with that id / the group's summed refcount.
func Disambiguate(db Disambiguator) error {
	groups, err := db.CoincidentGroups()
	if err != nil {
		return err
	}
	for _, g := range groups {
		canonical := g.IDs[0]
		for _, id := range g.IDs {
			if err := db.SetAliasAndRefcount(id, canonical, g.TotalRefcount); err != nil {
				return err
			}
		}
	}
	return nil
}

// RefCounter is the subset of storage.DB Phase 2 reference counting
// needs.
type RefCounter interface {
	LookupNodesBatch(ids []int64) ([]storage.NodeRow, error)
	BumpRefcount(id int64, delta int) error
}

const batchSize = 128

// CountReferences implements spec.md §4.7 Phase 2: for each distinct
// node id referenced by an admissible way that is present in the staged
// table, increment its refcount by exactly 1. Ids absent from the table
// are silently skipped, not an error — Phase 2 is advisory staging, not
// the fatal resolution the Node Resolver performs during arc extraction.
func CountReferences(db RefCounter, refs []osmtypes.NodeRef) error {
	seen := make(map[int64]bool, len(refs))
	var ids []int64
	for _, r := range refs {
		if !seen[r.Ref] {
			seen[r.Ref] = true
			ids = append(ids, r.Ref)
		}
	}

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		rows, err := db.LookupNodesBatch(ids[start:end])
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := db.BumpRefcount(row.ID, 1); err != nil {
				return err
			}
		}
	}
	return nil
}
