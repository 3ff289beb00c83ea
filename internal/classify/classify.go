// Package classify is the Map Classifier (C5): it maps an entity's tag
// set onto the fixed layer taxonomy and decides whether it dispatches
// as a point, line, or polygon (or the generic/address fallback),
// following the exact priority list and areal-layer rules of spec.md §4.5.
package classify

import "github.com/location-microservice/osmgeo/internal/osmtypes"

// layerOrder is the fixed, ordered taxonomy of spec.md §4.5. Of the
// keys present on an entity's tag set, the one earliest in this order
// wins, regardless of the order the tags appear in.
var layerOrder = []string{
	"highway", "junction", "traffic_calming", "traffic_sign", "service", "barrier",
	"cycleway", "tracktype", "waterway", "railway", "aeroway", "aerialway", "power",
	"man_made", "leisure", "amenity", "shop", "tourism", "historic", "landuse",
	"military", "natural", "geological", "route", "boundary", "sport", "abutters",
	"accessories", "properties", "restrictions", "place", "building", "parking",
}

// arealLayers is the set of layer keys whose closed ways are interpreted
// as polygons, per spec.md §4.5.
var arealLayers = map[string]bool{
	"amenity": true, "building": true, "historic": true, "landuse": true,
	"leisure": true, "natural": true, "parking": true, "place": true,
	"shop": true, "sport": true, "tourism": true,
}

// addressKeys are the addr:* keys pt_addresses captures, in the fixed
// column order of spec.md §4.5/§6.
var addressKeys = []string{"country", "city", "postcode", "street", "housename", "housenumber"}

// Result is one entity's classification: at most one layer match, the
// name tag if present, and the address fields of any addr:* tags present
// (captured whether or not a layer matched).
type Result struct {
	Layer    string
	HasLayer bool
	SubType  string
	Name     string
	HasName  bool

	HasAddress bool
	Address    [6]*string // country, city, postcode, street, housename, housenumber
}

// layerPriority maps a taxonomy key to its index in layerOrder, so a
// tag's priority can be compared without rescanning the slice per tag.
var layerPriority = func() map[string]int {
	m := make(map[string]int, len(layerOrder))
	for i, key := range layerOrder {
		m[key] = i
	}
	return m
}()

// Classify performs the single pass over tags spec.md §4.5 specifies:
// capture the layer key/value earliest in layerOrder's priority (not
// whichever taxonomy key happens to appear first on the entity) and
// the name tag.
func Classify(tags []osmtypes.Tag) Result {
	var res Result
	addrSeen := [6]bool{}
	bestPriority := len(layerOrder)

	for _, t := range tags {
		if p, ok := layerPriority[t.K]; ok && p < bestPriority {
			res.Layer = t.K
			res.SubType = t.V
			res.HasLayer = true
			bestPriority = p
		}
		if t.K == "name" && !res.HasName {
			res.Name = t.V
			res.HasName = true
		}
		for i, addrKey := range addressKeys {
			if t.K == "addr:"+addrKey && !addrSeen[i] {
				v := t.V
				res.Address[i] = &v
				addrSeen[i] = true
				res.HasAddress = true
			}
		}
	}
	return res
}

// IsArealLayerKey reports whether layer is one of the polygon-eligible
// layer keys. Per spec.md §9's documented Open Question, the source's
// is_areal_layer falls out of an early-return guard with no value for
// the no-layer-matched case; that path is treated as returning false,
// which the zero-value "" lookup below already does.
func IsArealLayerKey(layer string) bool {
	return arealLayers[layer]
}

// WayIsAreal decides whether a Way dispatches as a polygon: it carries
// area=yes, or its matched layer is areal-eligible and its geometry is
// closed.
func WayIsAreal(tags []osmtypes.Tag, layer string, closed bool) bool {
	if v, ok := osmtypes.TagValue(tags, "area"); ok && v == "yes" {
		return true
	}
	return IsArealLayerKey(layer) && closed
}

// RelationIsAreal reports whether a Relation's tags mark it as a
// multipolygon, per spec.md §4.5.
func RelationIsAreal(tags []osmtypes.Tag) bool {
	v, ok := osmtypes.TagValue(tags, "type")
	return ok && v == "multipolygon"
}
