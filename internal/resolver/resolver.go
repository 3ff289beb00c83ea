// Package resolver is the Node Resolver (C4): batched id -> (lat, lon
// [, alias, refcount]) lookups against the staged node table.
package resolver

import (
	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/storage"
)

// BatchSize is the fixed IN (...) block size spec.md §4.4 specifies.
const BatchSize = 128

// Lookuper is the subset of storage.DB the resolver needs; isolated as
// an interface so tests can fake it without a real database.
type Lookuper interface {
	LookupNodesBatch(ids []int64) ([]storage.NodeRow, error)
}

// Resolve stamps every NodeRef in refs with its staged node's lat, lon,
// alias and refcount, batching lookups in blocks of BatchSize. It
// returns the first unresolved ref's id wrapped in a Referential
// CoreError, per spec.md §3 invariant 2 — the caller (Way finalization)
// treats that as fatal for the owning way and logs UNRESOLVED-NODE.
func Resolve(db Lookuper, refs []osmtypes.NodeRef) error {
	ids := make([]int64, len(refs))
	for i, r := range refs {
		ids[i] = r.Ref
	}

	found := make(map[int64]storage.NodeRow, len(ids))
	for start := 0; start < len(ids); start += BatchSize {
		end := start + BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		rows, err := db.LookupNodesBatch(ids[start:end])
		if err != nil {
			return err
		}
		// Tie-break: last row wins (spec.md §4.4), so later entries
		// overwrite earlier ones for the same id.
		for _, row := range rows {
			found[row.ID] = row
		}
	}

	for i := range refs {
		row, ok := found[refs[i].Ref]
		if !ok {
			return apperrors.New(apperrors.Referential, apperrors.TokenUnresolvedNode).WithOSMID(refs[i].Ref)
		}
		refs[i].Resolved = true
		refs[i].Lat = row.Lat
		refs[i].Lon = row.Lon
		refs[i].Alias = row.Alias
		refs[i].Refcount = row.Refcount
	}
	return nil
}
