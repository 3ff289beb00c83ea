package netbuilder

import (
	"github.com/location-microservice/osmgeo/internal/geom"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
)

// arcPoint tracks a resolved coordinate alongside the canonical node id
// it belongs to, carried through arc construction so splits and ring
// bisection can stamp FromNode/ToNode with alias ids directly (spec.md
// §3 invariant 6: endpoints are always alias-target ids).
type arcPoint struct {
	pt       geom.Point
	alias    int64
	refcount int
}

// BuildGeometry implements spec.md §4.7 Phase 3 steps 1-4: dedupe
// consecutive duplicate points, drop ways with fewer than two distinct
// points, split at internal graph nodes (refcount > 1), and bisect
// self-closed rings at their midpoint index. way.Refs must already be
// resolved (lat/lon/alias/refcount stamped by the Node Resolver).
func BuildGeometry(way *osmtypes.Way, class string) []osmtypes.Arc {
	points := dedupeConsecutive(way.Refs)
	if len(points) < 2 {
		return nil
	}

	raw := splitAtGraphNodes(points)

	var final [][]arcPoint
	for _, arc := range raw {
		final = append(final, bisectIfRing(arc)...)
	}

	arcs := make([]osmtypes.Arc, 0, len(final))
	for _, segment := range final {
		arcs = append(arcs, toArc(segment, class))
	}
	return arcs
}

// dedupeConsecutive drops the second of any pair of bitwise-identical
// consecutive coordinates, per spec.md §4.7 step 1, and returns the
// surviving sequence.
func dedupeConsecutive(refs []osmtypes.NodeRef) []arcPoint {
	var out []arcPoint
	for _, r := range refs {
		p := arcPoint{pt: geom.Point{X: r.Lon, Y: r.Lat}, alias: r.Alias, refcount: r.Refcount}
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.pt.X == p.pt.X && last.pt.Y == p.pt.Y {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// splitAtGraphNodes walks points, emitting a new arc whenever an
// internal point (not the first or last of the whole sequence) has
// refcount > 1, per spec.md §4.7 step 3. The split point is appended to
// both the closing arc and the start of the next.
func splitAtGraphNodes(points []arcPoint) [][]arcPoint {
	var arcs [][]arcPoint
	cur := []arcPoint{points[0]}
	last := len(points) - 1
	for i := 1; i <= last; i++ {
		p := points[i]
		cur = append(cur, p)
		if i != last && p.refcount > 1 {
			arcs = append(arcs, cur)
			cur = []arcPoint{p}
		}
	}
	arcs = append(arcs, cur)
	return arcs
}

// bisectIfRing splits a self-closed ring arc at floor(n/2), per
// spec.md §4.7 step 4. Non-ring arcs (or single-point arcs, which
// cannot occur post-dedupe/split) pass through unchanged.
func bisectIfRing(arc []arcPoint) [][]arcPoint {
	if len(arc) < 2 {
		return [][]arcPoint{arc}
	}
	first, last := arc[0], arc[len(arc)-1]
	if first.pt.X != last.pt.X || first.pt.Y != last.pt.Y {
		return [][]arcPoint{arc}
	}

	mid := len(arc) / 2
	firstHalf := append([]arcPoint{}, arc[:mid+1]...)
	secondHalf := append([]arcPoint{}, arc[mid:]...)
	return [][]arcPoint{firstHalf, secondHalf}
}

func toArc(segment []arcPoint, class string) osmtypes.Arc {
	points := make([]osmtypes.Point, len(segment))
	geomPoints := make([]geom.Point, len(segment))
	for i, p := range segment {
		points[i] = osmtypes.Point{Lon: p.pt.X, Lat: p.pt.Y}
		geomPoints[i] = p.pt
	}
	length := geom.GreatCircleLength(geomPoints)
	return osmtypes.Arc{
		FromNode: segment[0].alias,
		ToNode:   segment[len(segment)-1].alias,
		Points:   points,
		Length:   length,
		Cost:     ComputeCost(class, length),
	}
}
