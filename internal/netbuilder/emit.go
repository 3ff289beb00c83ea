package netbuilder

import (
	"github.com/location-microservice/osmgeo/internal/geom"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/storage"
)

// ArcInserter is the subset of storage.DB arc emission needs.
type ArcInserter interface {
	InsertArcBidir(table string, row storage.ArcRow, onewayFromTo, onewayToFrom int) error
	InsertArcUnidir(table string, row storage.ArcRow) error
}

func arcRow(way *osmtypes.Way, class, name string, arc osmtypes.Arc, reversed bool) storage.ArcRow {
	points := arc.Points
	from, to := arc.FromNode, arc.ToNode
	if reversed {
		points = reversePoints(arc.Points)
		from, to = arc.ToNode, arc.FromNode
	}
	geomPoints := make([]geom.Point, len(points))
	for i, p := range points {
		geomPoints[i] = geom.Point{X: p.Lon, Y: p.Lat}
	}
	blob := geom.ToBlob(geom.NewLineString(geomPoints))
	return storage.ArcRow{
		OSMID:    way.ID,
		Class:    class,
		NodeFrom: from,
		NodeTo:   to,
		Name:     name,
		Length:   arc.Length,
		Cost:     arc.Cost,
		Geometry: blob,
	}
}

func reversePoints(points []osmtypes.Point) []osmtypes.Point {
	out := make([]osmtypes.Point, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

// EmitBidirectional emits one row per arc with oneway_fromto/
// oneway_tofrom flags set per {oneway, reverse}, per spec.md §4.7's
// bidirectional arc-emission mode.
func EmitBidirectional(db ArcInserter, table string, way *osmtypes.Way, class, name string, arcs []osmtypes.Arc, oneway, reverse bool) error {
	fromTo, toFrom := 1, 1
	if oneway {
		if reverse {
			fromTo, toFrom = 0, 1
		} else {
			fromTo, toFrom = 1, 0
		}
	}
	for _, arc := range arcs {
		row := arcRow(way, class, name, arc, false)
		if err := db.InsertArcBidir(table, row, fromTo, toFrom); err != nil {
			return err
		}
	}
	return nil
}

// EmitUnidirectional emits rows per spec.md §4.7's unidirectional mode:
// both directions for a bidirectional way, or a single row oriented per
// the oneway/reverse flags.
func EmitUnidirectional(db ArcInserter, table string, way *osmtypes.Way, class, name string, arcs []osmtypes.Arc, oneway, reverse bool) error {
	for _, arc := range arcs {
		switch {
		case !oneway:
			if err := db.InsertArcUnidir(table, arcRow(way, class, name, arc, false)); err != nil {
				return err
			}
			if err := db.InsertArcUnidir(table, arcRow(way, class, name, arc, true)); err != nil {
				return err
			}
		case reverse:
			if err := db.InsertArcUnidir(table, arcRow(way, class, name, arc, true)); err != nil {
				return err
			}
		default:
			if err := db.InsertArcUnidir(table, arcRow(way, class, name, arc, false)); err != nil {
				return err
			}
		}
	}
	return nil
}
