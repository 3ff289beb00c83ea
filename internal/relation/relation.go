// Package relation is the Relation Composer (C6): it assembles
// multilinestrings and multipolygons from a Relation's way-member
// references, resolved in batches against the staged way-geometry
// cache.
package relation

import (
	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
	"github.com/location-microservice/osmgeo/internal/geom"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/storage"
)

// BatchSize is the fixed IN (...) block size used for osm_tmp_ways
// lookups, matching the Node Resolver's.
const BatchSize = 128

// WayLookuper is the subset of storage.DB relation assembly needs.
type WayLookuper interface {
	LookupWaysBatch(ids []int64) ([]storage.WayRow, error)
}

func wayIDsOf(members []osmtypes.Member) []int64 {
	var ids []int64
	for _, m := range members {
		if m.Type == osmtypes.MemberWay {
			ids = append(ids, m.Ref)
		}
	}
	return ids
}

func resolveWayGeometries(db WayLookuper, ids []int64) (map[int64]geom.Geometry, error) {
	resolved := make(map[int64]geom.Geometry, len(ids))
	for start := 0; start < len(ids); start += BatchSize {
		end := start + BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		rows, err := db.LookupWaysBatch(ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			g, err := geom.FromBlob(row.Blob, geom.SRID4326)
			if err != nil {
				continue
			}
			resolved[row.ID] = g
		}
	}
	return resolved, nil
}

// AssembleMultiLineString resolves each way member's cached geometry and
// appends every one of its linestring components, in member order,
// preserving point order, per spec.md §4.6.
func AssembleMultiLineString(db WayLookuper, relationID int64, members []osmtypes.Member) (geom.Geometry, error) {
	ids := wayIDsOf(members)
	resolved, err := resolveWayGeometries(db, ids)
	if err != nil {
		return geom.Geometry{}, err
	}

	var parts []geom.LineString
	for _, m := range members {
		if m.Type != osmtypes.MemberWay {
			continue
		}
		g, ok := resolved[m.Ref]
		if !ok {
			return geom.Geometry{}, apperrors.New(apperrors.Referential, apperrors.TokenUnresolvedWay).WithOSMID(m.Ref)
		}
		switch g.Type {
		case geom.TypeLineString:
			parts = append(parts, g.LineString)
		case geom.TypeMultiLineString:
			parts = append(parts, g.MultiLineString...)
		}
	}
	return geom.NewMultiLineString(parts), nil
}

// AssembleMultiPolygon enforces the ring-role invariant of spec.md §3/§4.6:
// exactly one member with role "outer" and all remaining members with
// role "inner", the outer member's geometry carrying a non-empty first
// polygon's exterior ring. Violations return an ILLEGAL MULTIPOLYGON
// CoreError for the caller to log and drop, per spec.md §7's referential
// error policy; nothing is emitted for the relation in that case.
func AssembleMultiPolygon(db WayLookuper, relationID int64, members []osmtypes.Member) (geom.Geometry, error) {
	ids := wayIDsOf(members)
	resolved, err := resolveWayGeometries(db, ids)
	if err != nil {
		return geom.Geometry{}, err
	}

	var outer *osmtypes.Member
	var inners []osmtypes.Member
	for i := range members {
		m := members[i]
		if m.Type != osmtypes.MemberWay {
			continue
		}
		switch m.Role {
		case "outer":
			if outer != nil {
				return geom.Geometry{}, illegalMultipolygon(relationID)
			}
			mm := m
			outer = &mm
		case "inner":
			inners = append(inners, m)
		default:
			return geom.Geometry{}, illegalMultipolygon(relationID)
		}
	}
	if outer == nil {
		return geom.Geometry{}, illegalMultipolygon(relationID)
	}

	outerGeom, ok := resolved[outer.Ref]
	if !ok {
		return geom.Geometry{}, apperrors.New(apperrors.Referential, apperrors.TokenUnresolvedWay).WithOSMID(outer.Ref)
	}
	outerRing, ok := firstExteriorRing(outerGeom)
	if !ok || len(outerRing.Points) == 0 {
		return geom.Geometry{}, illegalMultipolygon(relationID)
	}

	poly := geom.Polygon{Exterior: outerRing}
	for _, m := range inners {
		g, ok := resolved[m.Ref]
		if !ok {
			return geom.Geometry{}, apperrors.New(apperrors.Referential, apperrors.TokenUnresolvedWay).WithOSMID(m.Ref)
		}
		ring, ok := firstExteriorRing(g)
		if !ok {
			return geom.Geometry{}, illegalMultipolygon(relationID)
		}
		poly.Interior = append(poly.Interior, ring)
	}

	return geom.NewMultiPolygon([]geom.Polygon{poly}), nil
}

// firstExteriorRing extracts a member's ring, whichever of the decoded
// shapes it is: the first polygon's exterior ring of a (multi)polygon,
// or the points of a linestring or of a multilinestring's first
// component (the form in which the Map pipeline caches every way).
func firstExteriorRing(g geom.Geometry) (geom.Ring, bool) {
	switch g.Type {
	case geom.TypeMultiPolygon:
		if len(g.MultiPolygon) == 0 {
			return geom.Ring{}, false
		}
		return g.MultiPolygon[0].Exterior, true
	case geom.TypePolygon:
		return g.Polygon.Exterior, true
	case geom.TypeLineString:
		return geom.Ring{Points: g.LineString.Points}, true
	case geom.TypeMultiLineString:
		// A way cached in osm_tmp_ways is wrapped as a single-component
		// multilinestring to match that table's declared column type;
		// its sole component is the ring when used as a multipolygon
		// member.
		if len(g.MultiLineString) == 0 {
			return geom.Ring{}, false
		}
		return geom.Ring{Points: g.MultiLineString[0].Points}, true
	default:
		return geom.Ring{}, false
	}
}

func illegalMultipolygon(id int64) error {
	return apperrors.New(apperrors.Referential, apperrors.TokenIllegalMultipoly).WithOSMID(id)
}
