// Package netbuilder is the Network Topology Builder (C7): reference
// counting, coincident-node disambiguation, arc splitting, ring
// bisection, and cost computation for the routable arc schema.
package netbuilder

import "github.com/location-microservice/osmgeo/internal/osmtypes"

// excludedHighwayClasses are highway= values that disqualify a way from
// the Network pipeline entirely, per spec.md §4.7 Phase 2.
var excludedHighwayClasses = map[string]bool{
	"pedestrian": true, "track": true, "services": true, "bus_guideway": true,
	"path": true, "cycleway": true, "footway": true, "bridleway": true,
	"byway": true, "steps": true,
}

// IsValidWay reports whether a way with tag key/class is admissible for
// road extraction: key must be "highway" and class must not be in the
// excluded set.
func IsValidWay(key, class string) bool {
	if key != "highway" {
		return false
	}
	return !excludedHighwayClasses[class]
}

// HighwayClass returns the way's highway= tag value, if any.
func HighwayClass(tags []osmtypes.Tag) (string, bool) {
	return osmtypes.TagValue(tags, "highway")
}

// onewayValues is the documented set spec.md §4.7/§9 requires, resolving
// the source's duplicate "yes" check to a single set-membership test.
var onewayValues = map[string]bool{"yes": true, "1": true, "-1": true}

// SetOneway derives oneway/reverse from the way's oneway tag, per
// spec.md §4.7 step 7.
func SetOneway(tags []osmtypes.Tag) (oneway, reverse bool) {
	v, ok := osmtypes.TagValue(tags, "oneway")
	if !ok || !onewayValues[v] {
		return false, false
	}
	return true, v == "-1"
}

// speed table, spec.md §4.7 step 5. Note "secundary" is the literal
// misspelling from the source; matching it exactly (not "secondary") is
// required to reproduce the source's observable cost values.
const baseSpeedKmh = 30.0

func speedForClass(class string) float64 {
	switch class {
	case "motorway", "trunk":
		return 110
	case "primary":
		return 90
	case "secundary":
		return 70
	case "tertiary":
		return 50
	default:
		return baseSpeedKmh
	}
}

// ComputeCost returns the estimated traversal cost in seconds for a
// lengthMeters arc of the given highway class, per spec.md §4.7 step 5.
func ComputeCost(class string, lengthMeters float64) float64 {
	speedKmh := speedForClass(class)
	mps := speedKmh * 1000 / 3600
	return lengthMeters / mps
}

// DeriveName returns the way's display name: its "name" tag, falling
// back to the first "ref" tag, falling back to the literal "unknown",
// per spec.md §4.7 step 6.
func DeriveName(tags []osmtypes.Tag) string {
	if v, ok := osmtypes.TagValue(tags, "name"); ok {
		return v
	}
	if v, ok := osmtypes.TagValue(tags, "ref"); ok {
		return v
	}
	return "unknown"
}
