package storage

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
)

// Shape discriminates which of a LayerSink's three prepared inserts a
// geometry belongs to.
type Shape int

const (
	ShapePoint Shape = iota
	ShapeLine
	ShapePolygon
)

func (s Shape) tablePrefix() string {
	switch s {
	case ShapePoint:
		return "pt_"
	case ShapeLine:
		return "ln_"
	case ShapePolygon:
		return "pg_"
	default:
		return ""
	}
}

// LayerSink replaces the source's process-wide mutable layer table
// (spec.md §9): a per-layer set of up to three lazily-created tables and
// their prepared inserts, owned by the Storage Gateway instead of living
// as global state.
type LayerSink struct {
	layer string

	pointExists   bool
	lineExists    bool
	polygonExists bool

	pointStmt   *sql.Stmt
	lineStmt    *sql.Stmt
	polygonStmt *sql.Stmt
}

type layerKey string

// sinkFor returns the LayerSink for layer, creating it on first
// reference.
func (db *DB) sinkFor(layer string) *LayerSink {
	key := layerKey(layer)
	sink, ok := db.layers[key]
	if !ok {
		sink = &LayerSink{layer: layer}
		db.layers[key] = sink
	}
	return sink
}

// InsertPoint lazily creates pt_<layer> (or uses the already-open
// statement) and inserts one row. A failed step finalizes and nils the
// statement so later rows for this (layer, shape) are silently dropped,
// per spec.md §4.1's failure policy; prior rows remain valid.
func (db *DB) InsertPoint(layer string, id int64, subType, name *string, blob []byte) error {
	sink := db.sinkFor(layer)
	if sink.pointStmt == nil && !sink.pointExists {
		if err := db.createLayerTable(layer, ShapePoint); err != nil {
			return err
		}
		stmt, err := db.prepareLayerInsert(layer, ShapePoint)
		if err != nil {
			return err
		}
		sink.pointStmt = stmt
		sink.pointExists = true
	}
	if sink.pointStmt == nil {
		return nil
	}
	if _, err := sink.pointStmt.Exec(id, subType, name, blob); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", "pt_"+layer), zap.Error(err))
		sink.pointStmt.Close()
		sink.pointStmt = nil
		return nil
	}
	return nil
}

// InsertLine mirrors InsertPoint for ln_<layer>.
func (db *DB) InsertLine(layer string, id int64, subType, name *string, blob []byte) error {
	sink := db.sinkFor(layer)
	if sink.lineStmt == nil && !sink.lineExists {
		if err := db.createLayerTable(layer, ShapeLine); err != nil {
			return err
		}
		stmt, err := db.prepareLayerInsert(layer, ShapeLine)
		if err != nil {
			return err
		}
		sink.lineStmt = stmt
		sink.lineExists = true
	}
	if sink.lineStmt == nil {
		return nil
	}
	if _, err := sink.lineStmt.Exec(id, subType, name, blob); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", "ln_"+layer), zap.Error(err))
		sink.lineStmt.Close()
		sink.lineStmt = nil
		return nil
	}
	return nil
}

// InsertPolygon mirrors InsertPoint for pg_<layer>.
func (db *DB) InsertPolygon(layer string, id int64, subType, name *string, blob []byte) error {
	sink := db.sinkFor(layer)
	if sink.polygonStmt == nil && !sink.polygonExists {
		if err := db.createLayerTable(layer, ShapePolygon); err != nil {
			return err
		}
		stmt, err := db.prepareLayerInsert(layer, ShapePolygon)
		if err != nil {
			return err
		}
		sink.polygonStmt = stmt
		sink.polygonExists = true
	}
	if sink.polygonStmt == nil {
		return nil
	}
	if _, err := sink.polygonStmt.Exec(id, subType, name, blob); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", "pg_"+layer), zap.Error(err))
		sink.polygonStmt.Close()
		sink.polygonStmt = nil
		return nil
	}
	return nil
}

// InsertGeneric writes to pt_generic/ln_generic/pg_generic (no sub_type
// column), used when no layer key matched.
func (db *DB) InsertGeneric(shape Shape, id int64, name *string, blob []byte) error {
	table := shape.tablePrefix() + "generic"
	stmt, err := db.conn.Prepare(fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (id, name, Geometry) VALUES (?, ?, ?)", table))
	if err != nil {
		return apperrors.Wrap(apperrors.Persistence, err, apperrors.TokenPrepareError)
	}
	defer stmt.Close()
	if _, err := stmt.Exec(id, name, blob); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", table), zap.Error(err))
	}
	return nil
}

// InsertAddress writes pt_addresses with the six OSM addr:* fields, NULL
// where absent.
func (db *DB) InsertAddress(id int64, country, city, postcode, street, housename, housenumber *string, blob []byte) error {
	stmt, err := db.conn.Prepare(
		`INSERT OR IGNORE INTO pt_addresses
			(id, country, city, postcode, street, housename, housenumber, Geometry)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.Wrap(apperrors.Persistence, err, apperrors.TokenPrepareError)
	}
	defer stmt.Close()
	if _, err := stmt.Exec(id, country, city, postcode, street, housename, housenumber, blob); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", "pt_addresses"), zap.Error(err))
	}
	return nil
}

func (db *DB) createLayerTable(layer string, shape Shape) error {
	table := shape.tablePrefix() + layer
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			sub_type TEXT,
			name TEXT,
			Geometry BLOB
		)`, table)
	if _, err := db.conn.Exec(stmt); err != nil {
		return apperrors.Wrap(apperrors.Persistence, err, fmt.Sprintf("CREATE TABLE '%s' error:", table))
	}
	return nil
}

func (db *DB) prepareLayerInsert(layer string, shape Shape) (*sql.Stmt, error) {
	table := shape.tablePrefix() + layer
	stmt, err := db.conn.Prepare(fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (id, sub_type, name, Geometry) VALUES (?, ?, ?, ?)", table))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Persistence, err, apperrors.TokenPrepareError)
	}
	return stmt, nil
}

func (s *LayerSink) closeAll() {
	if s.pointStmt != nil {
		s.pointStmt.Close()
		s.pointStmt = nil
	}
	if s.lineStmt != nil {
		s.lineStmt.Close()
		s.lineStmt = nil
	}
	if s.polygonStmt != nil {
		s.polygonStmt.Close()
		s.polygonStmt = nil
	}
}
