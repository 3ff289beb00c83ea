// Package osmxml is the OSM Decoder (C3). Decoder streams the Map
// pipeline's XML via stdlib encoding/xml; Scanner implements the
// Network pipeline's lightweight lexical scanner over a rolling
// tag-matching buffer. Both expose entities as a lazy, finite,
// non-restartable sequence per spec.md §9.
package osmxml

import (
	"encoding/xml"
	"io"
	"strconv"

	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
)

// EntityKind discriminates which field of Entity is populated.
type EntityKind int

const (
	EntityNode EntityKind = iota
	EntityWay
	EntityRelation
)

// Entity is one finalized top-level OSM element.
type Entity struct {
	Kind     EntityKind
	Node     *osmtypes.Node
	Way      *osmtypes.Way
	Relation *osmtypes.Relation
}

// openState is the single-slot tagged variant spec.md §9 calls for: only
// one entity can be open at a time, and its tag doubles as parser state.
type openState int

const (
	stateNone openState = iota
	stateNode
	stateWay
	stateRelation
)

// Decoder streams Node/Way/Relation entities from an OSM XML document
// using encoding/xml's Token() loop, chunked implicitly by the
// underlying bufio-wrapped reader. Progress, when non-nil, is invoked
// with the current source line number every >= 1,000 lines.
type Decoder struct {
	xd       *xml.Decoder
	lines    *lineCountingReader
	Progress func(line int64)

	state    openState
	curNode  *osmtypes.Node
	curWay   *osmtypes.Way
	curRel   *osmtypes.Relation
	lastLine int64
}

// NewDecoder wraps r for streaming decode.
func NewDecoder(r io.Reader) *Decoder {
	lcr := &lineCountingReader{r: r}
	return &Decoder{xd: xml.NewDecoder(lcr), lines: lcr}
}

// Next returns the next finalized entity, or io.EOF when the document
// is exhausted. Malformed XML and malformed entity attributes surface
// as a Parse-kind CoreError per spec.md §7.
func (d *Decoder) Next() (*Entity, error) {
	for {
		tok, err := d.xd.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Parse, err, "malformed XML")
		}

		d.maybeReportProgress()

		switch t := tok.(type) {
		case xml.StartElement:
			ent, err := d.handleStart(t)
			if err != nil {
				return nil, err
			}
			if ent != nil {
				return ent, nil
			}
		case xml.EndElement:
			if ent := d.handleEnd(t); ent != nil {
				return ent, nil
			}
		}
	}
}

func (d *Decoder) maybeReportProgress() {
	if d.Progress == nil {
		return
	}
	line := d.lines.Lines()
	if line-d.lastLine >= 1000 {
		d.lastLine = line
		d.Progress(line)
	}
}

func (d *Decoder) handleStart(t xml.StartElement) (*Entity, error) {
	switch t.Name.Local {
	case "node":
		id, lat, lon, err := parseNodeAttrs(t)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Parse, err, "malformed <node> attributes")
		}
		d.state = stateNode
		d.curNode = &osmtypes.Node{ID: id, Lat: lat, Lon: lon}
	case "way":
		id, err := attrInt64(t, "id")
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Parse, err, "malformed <way> attributes")
		}
		d.state = stateWay
		d.curWay = &osmtypes.Way{ID: id}
	case "relation":
		id, err := attrInt64(t, "id")
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Parse, err, "malformed <relation> attributes")
		}
		d.state = stateRelation
		d.curRel = &osmtypes.Relation{ID: id}
	case "tag":
		k := attrString(t, "k")
		v := attrString(t, "v")
		tag := osmtypes.Tag{K: k, V: v}
		switch d.state {
		case stateNode:
			d.curNode.Tags = append(d.curNode.Tags, tag)
		case stateWay:
			d.curWay.Tags = append(d.curWay.Tags, tag)
		case stateRelation:
			d.curRel.Tags = append(d.curRel.Tags, tag)
		}
	case "nd":
		if d.state == stateWay {
			ref, err := attrInt64(t, "ref")
			if err != nil {
				return nil, apperrors.Wrap(apperrors.Parse, err, "malformed <nd> attributes")
			}
			d.curWay.Refs = append(d.curWay.Refs, osmtypes.NodeRef{Ref: ref})
		}
	case "member":
		if d.state == stateRelation {
			ref, err := attrInt64(t, "ref")
			if err != nil {
				return nil, apperrors.Wrap(apperrors.Parse, err, "malformed <member> attributes")
			}
			mtype := memberType(attrString(t, "type"))
			role := attrString(t, "role")
			d.curRel.Members = append(d.curRel.Members, osmtypes.Member{Type: mtype, Ref: ref, Role: role})
		}
	}
	return nil, nil
}

func (d *Decoder) handleEnd(t xml.EndElement) *Entity {
	switch t.Name.Local {
	case "node":
		if d.state != stateNode {
			return nil
		}
		n := d.curNode
		d.curNode = nil
		d.state = stateNone
		return &Entity{Kind: EntityNode, Node: n}
	case "way":
		if d.state != stateWay {
			return nil
		}
		w := d.curWay
		d.curWay = nil
		d.state = stateNone
		return &Entity{Kind: EntityWay, Way: w}
	case "relation":
		if d.state != stateRelation {
			return nil
		}
		r := d.curRel
		d.curRel = nil
		d.state = stateNone
		return &Entity{Kind: EntityRelation, Relation: r}
	}
	return nil
}

func memberType(s string) osmtypes.MemberType {
	switch s {
	case "node":
		return osmtypes.MemberNode
	case "way":
		return osmtypes.MemberWay
	default:
		return osmtypes.MemberOther
	}
}

func parseNodeAttrs(t xml.StartElement) (id int64, lat, lon float64, err error) {
	id, err = attrInt64(t, "id")
	if err != nil {
		return 0, 0, 0, err
	}
	lat, err = attrFloat(t, "lat")
	if err != nil {
		return 0, 0, 0, err
	}
	lon, err = attrFloat(t, "lon")
	if err != nil {
		return 0, 0, 0, err
	}
	return id, lat, lon, nil
}

func attrString(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func attrInt64(t xml.StartElement, name string) (int64, error) {
	return strconv.ParseInt(attrString(t, name), 10, 64)
}

func attrFloat(t xml.StartElement, name string) (float64, error) {
	return strconv.ParseFloat(attrString(t, name), 64)
}

// lineCountingReader wraps an io.Reader, counting newlines seen so far
// for progress reporting without needing the decoder to expose offsets.
type lineCountingReader struct {
	r     io.Reader
	lines int64
}

func (l *lineCountingReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == '\n' {
			l.lines++
		}
	}
	return n, err
}

func (l *lineCountingReader) Lines() int64 { return l.lines }
