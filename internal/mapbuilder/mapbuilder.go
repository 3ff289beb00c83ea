// Package mapbuilder orchestrates the Map pipeline: it wires the Node
// Resolver (C4), Geometry Kernel (C2), Map Classifier (C5), and
// Relation Composer (C6) against the Storage Gateway (C1) to stream OSM
// entities into the thematic layer tables, following spec.md §2's Map
// pipeline flow.
package mapbuilder

import (
	"go.uber.org/zap"

	"github.com/location-microservice/osmgeo/internal/classify"
	"github.com/location-microservice/osmgeo/internal/geom"
	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/relation"
	"github.com/location-microservice/osmgeo/internal/resolver"
	"github.com/location-microservice/osmgeo/internal/storage"
)

// Builder processes finalized entities against an open storage handle.
type Builder struct {
	db     *storage.DB
	logger *zap.Logger
}

// New constructs a Builder over db.
func New(db *storage.DB, logger *zap.Logger) *Builder {
	return &Builder{db: db, logger: logger}
}

// ProcessNode stages n into osm_tmp_nodes and dispatches it per the
// classifier's point rule (spec.md §4.5): a matched layer, else a named
// point, else an address, else nothing.
func (b *Builder) ProcessNode(n *osmtypes.Node) error {
	if err := b.db.StageNode(n.ID, n.Lat, n.Lon); err != nil {
		return err
	}

	res := classify.Classify(n.Tags)
	blob := geom.ToBlob(geom.NewPoint(n.Lon, n.Lat))

	switch {
	case res.HasLayer:
		var subType, name *string
		subType = &res.SubType
		if res.HasName {
			name = &res.Name
		}
		return b.db.InsertPoint(res.Layer, n.ID, subType, name, blob)
	case res.HasName:
		return b.db.InsertGeneric(storage.ShapePoint, n.ID, &res.Name, blob)
	case res.HasAddress:
		return b.db.InsertAddress(n.ID,
			res.Address[0], res.Address[1], res.Address[2],
			res.Address[3], res.Address[4], res.Address[5], blob)
	}
	return nil
}

// ProcessWay resolves w's node-refs, caches its geometry for relation
// assembly, and dispatches it per the classifier's linear/areal rule.
// An unresolved node-ref is a referential error: it is logged and the
// way is dropped, per spec.md §7.
func (b *Builder) ProcessWay(w *osmtypes.Way) error {
	if err := resolver.Resolve(b.db, w.Refs); err != nil {
		b.logger.Warn(apperrors.TokenUnresolvedNode, zap.Int64("way_id", w.ID), zap.Error(err))
		return nil
	}

	points := make([]geom.Point, len(w.Refs))
	for i, r := range w.Refs {
		points[i] = geom.Point{X: r.Lon, Y: r.Lat}
	}
	closed := geom.IsClosed(points)

	res := classify.Classify(w.Tags)
	areal := classify.WayIsAreal(w.Tags, res.Layer, closed)

	cacheBlob := geom.ToBlob(geom.NewMultiLineString([]geom.LineString{{Points: points}}))
	if err := b.db.CacheWayGeometry(w.ID, areal, cacheBlob); err != nil {
		return err
	}

	var subType, name *string
	if res.HasLayer {
		subType = &res.SubType
	}
	if res.HasName {
		name = &res.Name
	}

	if areal {
		blob := geom.ToBlob(geom.ToMultipolygonFromClosedRing(geom.LineString{Points: points}))
		if res.HasLayer {
			return b.db.InsertPolygon(res.Layer, w.ID, subType, name, blob)
		}
		if res.HasName {
			return b.db.InsertGeneric(storage.ShapePolygon, w.ID, name, blob)
		}
		return nil
	}

	blob := geom.ToBlob(geom.NewLineString(points))
	if res.HasLayer {
		return b.db.InsertLine(res.Layer, w.ID, subType, name, blob)
	}
	if res.HasName {
		return b.db.InsertGeneric(storage.ShapeLine, w.ID, name, blob)
	}
	return nil
}

// ProcessRelation assembles a relation's member geometries and
// dispatches it: multipolygon relations (type=multipolygon) as areal
// output, everything else as a multilinestring under the classifier's
// linear rule. Unresolved members and illegal multipolygon compositions
// are referential errors: logged and dropped, per spec.md §7.
func (b *Builder) ProcessRelation(r *osmtypes.Relation) error {
	res := classify.Classify(r.Tags)
	var subType, name *string
	if res.HasLayer {
		subType = &res.SubType
	}
	if res.HasName {
		name = &res.Name
	}

	if classify.RelationIsAreal(r.Tags) {
		g, err := relation.AssembleMultiPolygon(b.db, r.ID, r.Members)
		if err != nil {
			b.logger.Warn(apperrors.TokenIllegalMultipoly, zap.Int64("relation_id", r.ID), zap.Error(err))
			return nil
		}
		blob := geom.ToBlob(g)
		if res.HasLayer {
			return b.db.InsertPolygon(res.Layer, r.ID, subType, name, blob)
		}
		if res.HasName {
			return b.db.InsertGeneric(storage.ShapePolygon, r.ID, name, blob)
		}
		return nil
	}

	g, err := relation.AssembleMultiLineString(b.db, r.ID, r.Members)
	if err != nil {
		b.logger.Warn(apperrors.TokenUnresolvedWay, zap.Int64("relation_id", r.ID), zap.Error(err))
		return nil
	}
	blob := geom.ToBlob(g)
	if res.HasLayer {
		return b.db.InsertLine(res.Layer, r.ID, subType, name, blob)
	}
	if res.HasName {
		return b.db.InsertGeneric(storage.ShapeLine, r.ID, name, blob)
	}
	return nil
}
