package geom

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wkbType values per the OGC WKB standard (no Z/M variants needed here).
const (
	wkbPoint              uint32 = 1
	wkbLineString         uint32 = 2
	wkbPolygon            uint32 = 3
	wkbMultiLineString    uint32 = 5
	wkbMultiPolygon       uint32 = 6
	wkbGeometryCollection uint32 = 7
)

// ToBlob serializes g to standard little-endian OGC WKB, the envelope
// SpatiaLite's own geometry blob format wraps. Per spec.md §4.2/§6, the
// wider blob format (header/footer, SRID prefix) is an external,
// verbatim-used codec out of scope; ToBlob emits the WKB payload that
// codec would wrap.
func ToBlob(g Geometry) []byte {
	var buf bytes.Buffer
	writeGeometry(&buf, g)
	return buf.Bytes()
}

func writeGeometry(buf *bytes.Buffer, g Geometry) {
	buf.WriteByte(1) // little-endian byte order marker
	switch g.Type {
	case TypePoint:
		binary.Write(buf, binary.LittleEndian, wkbPoint)
		writePoint(buf, g.Point)
	case TypeLineString:
		binary.Write(buf, binary.LittleEndian, wkbLineString)
		writeLineString(buf, g.LineString)
	case TypeMultiLineString:
		binary.Write(buf, binary.LittleEndian, wkbMultiLineString)
		binary.Write(buf, binary.LittleEndian, uint32(len(g.MultiLineString)))
		for _, ls := range g.MultiLineString {
			buf.WriteByte(1)
			binary.Write(buf, binary.LittleEndian, wkbLineString)
			writeLineString(buf, ls)
		}
	case TypePolygon:
		binary.Write(buf, binary.LittleEndian, wkbPolygon)
		writePolygon(buf, g.Polygon)
	case TypeMultiPolygon:
		binary.Write(buf, binary.LittleEndian, wkbMultiPolygon)
		binary.Write(buf, binary.LittleEndian, uint32(len(g.MultiPolygon)))
		for _, p := range g.MultiPolygon {
			buf.WriteByte(1)
			binary.Write(buf, binary.LittleEndian, wkbPolygon)
			writePolygon(buf, p)
		}
	case TypeGeometryCollection:
		binary.Write(buf, binary.LittleEndian, wkbGeometryCollection)
		binary.Write(buf, binary.LittleEndian, uint32(len(g.GeometryCollection)))
		for _, sub := range g.GeometryCollection {
			writeGeometry(buf, sub)
		}
	}
}

func writePoint(buf *bytes.Buffer, p Point) {
	binary.Write(buf, binary.LittleEndian, p.X)
	binary.Write(buf, binary.LittleEndian, p.Y)
}

func writeLineString(buf *bytes.Buffer, ls LineString) {
	binary.Write(buf, binary.LittleEndian, uint32(len(ls.Points)))
	for _, p := range ls.Points {
		writePoint(buf, p)
	}
}

func writeRing(buf *bytes.Buffer, r Ring) {
	binary.Write(buf, binary.LittleEndian, uint32(len(r.Points)))
	for _, p := range r.Points {
		writePoint(buf, p)
	}
}

func writePolygon(buf *bytes.Buffer, p Polygon) {
	binary.Write(buf, binary.LittleEndian, uint32(1+len(p.Interior)))
	writeRing(buf, p.Exterior)
	for _, r := range p.Interior {
		writeRing(buf, r)
	}
}

// FromBlob parses standard little-endian OGC WKB back into a Geometry,
// stamping srid on the result since WKB itself carries no SRID.
func FromBlob(data []byte, srid int) (Geometry, error) {
	r := bytes.NewReader(data)
	g, err := readGeometry(r, srid)
	if err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func readGeometry(r *bytes.Reader, srid int) (Geometry, error) {
	order, err := r.ReadByte()
	if err != nil {
		return Geometry{}, fmt.Errorf("wkb: %w", err)
	}
	if order != 1 {
		return Geometry{}, fmt.Errorf("wkb: unsupported byte order %d", order)
	}
	var typ uint32
	if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
		return Geometry{}, fmt.Errorf("wkb: %w", err)
	}
	switch typ {
	case wkbPoint:
		p, err := readPoint(r)
		if err != nil {
			return Geometry{}, err
		}
		return Geometry{SRID: srid, Type: TypePoint, Point: p}, nil
	case wkbLineString:
		ls, err := readLineString(r)
		if err != nil {
			return Geometry{}, err
		}
		return Geometry{SRID: srid, Type: TypeLineString, LineString: ls}, nil
	case wkbMultiLineString:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Geometry{}, fmt.Errorf("wkb: %w", err)
		}
		parts := make([]LineString, 0, n)
		for i := uint32(0); i < n; i++ {
			if _, err := r.ReadByte(); err != nil {
				return Geometry{}, fmt.Errorf("wkb: %w", err)
			}
			var subType uint32
			if err := binary.Read(r, binary.LittleEndian, &subType); err != nil {
				return Geometry{}, fmt.Errorf("wkb: %w", err)
			}
			ls, err := readLineString(r)
			if err != nil {
				return Geometry{}, err
			}
			parts = append(parts, ls)
		}
		return Geometry{SRID: srid, Type: TypeMultiLineString, MultiLineString: parts}, nil
	case wkbPolygon:
		p, err := readPolygon(r)
		if err != nil {
			return Geometry{}, err
		}
		return Geometry{SRID: srid, Type: TypePolygon, Polygon: p}, nil
	case wkbMultiPolygon:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Geometry{}, fmt.Errorf("wkb: %w", err)
		}
		parts := make([]Polygon, 0, n)
		for i := uint32(0); i < n; i++ {
			if _, err := r.ReadByte(); err != nil {
				return Geometry{}, fmt.Errorf("wkb: %w", err)
			}
			var subType uint32
			if err := binary.Read(r, binary.LittleEndian, &subType); err != nil {
				return Geometry{}, fmt.Errorf("wkb: %w", err)
			}
			p, err := readPolygon(r)
			if err != nil {
				return Geometry{}, err
			}
			parts = append(parts, p)
		}
		return Geometry{SRID: srid, Type: TypeMultiPolygon, MultiPolygon: parts}, nil
	default:
		return Geometry{}, fmt.Errorf("wkb: unsupported geometry type %d", typ)
	}
}

func readPoint(r *bytes.Reader) (Point, error) {
	var x, y float64
	if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
		return Point{}, fmt.Errorf("wkb: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
		return Point{}, fmt.Errorf("wkb: %w", err)
	}
	return Point{X: x, Y: y}, nil
}

func readLineString(r *bytes.Reader) (LineString, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return LineString{}, fmt.Errorf("wkb: %w", err)
	}
	points := make([]Point, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := readPoint(r)
		if err != nil {
			return LineString{}, err
		}
		points = append(points, p)
	}
	return LineString{Points: points}, nil
}

func readRing(r *bytes.Reader) (Ring, error) {
	ls, err := readLineString(r)
	if err != nil {
		return Ring{}, err
	}
	return Ring{Points: ls.Points}, nil
}

func readPolygon(r *bytes.Reader) (Polygon, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return Polygon{}, fmt.Errorf("wkb: %w", err)
	}
	if n == 0 {
		return Polygon{}, fmt.Errorf("wkb: polygon with no rings")
	}
	ext, err := readRing(r)
	if err != nil {
		return Polygon{}, err
	}
	interior := make([]Ring, 0, n-1)
	for i := uint32(1); i < n; i++ {
		ring, err := readRing(r)
		if err != nil {
			return Polygon{}, err
		}
		interior = append(interior, ring)
	}
	return Polygon{Exterior: ext, Interior: interior}, nil
}
