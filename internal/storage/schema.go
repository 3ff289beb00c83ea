package storage

import (
	"fmt"

	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
)

// EnsureSchema creates the auxiliary staging tables and the fixed
// generic output tables (or the arcs table) for kind. Per-layer tables
// are created lazily by LayerSink on first use, not here.
func (db *DB) EnsureSchema(kind Kind, networkTable string, unidirectional bool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS osm_tmp_nodes (
			id INTEGER PRIMARY KEY,
			alias INTEGER,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			refcount INTEGER NOT NULL DEFAULT 0
		)`,
	}

	switch kind {
	case KindMap:
		stmts = append(stmts,
			`CREATE TABLE IF NOT EXISTS osm_tmp_ways (
				id INTEGER PRIMARY KEY,
				area INTEGER NOT NULL DEFAULT 0,
				Geometry BLOB
			)`,
			`CREATE TABLE IF NOT EXISTS pt_generic (
				id INTEGER PRIMARY KEY, name TEXT, Geometry BLOB
			)`,
			`CREATE TABLE IF NOT EXISTS pt_addresses (
				id INTEGER PRIMARY KEY,
				country TEXT, city TEXT, postcode TEXT,
				street TEXT, housename TEXT, housenumber TEXT,
				Geometry BLOB
			)`,
			`CREATE TABLE IF NOT EXISTS ln_generic (
				id INTEGER PRIMARY KEY, name TEXT, Geometry BLOB
			)`,
			`CREATE TABLE IF NOT EXISTS pg_generic (
				id INTEGER PRIMARY KEY, name TEXT, Geometry BLOB
			)`,
		)
	case KindNetwork:
		if networkTable == "" {
			networkTable = "roads"
		}
		if unidirectional {
			stmts = append(stmts, fmt.Sprintf(
				`CREATE TABLE IF NOT EXISTS "%s" (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					osm_id INTEGER NOT NULL,
					class TEXT,
					node_from INTEGER NOT NULL,
					node_to INTEGER NOT NULL,
					name TEXT,
					length REAL NOT NULL,
					cost REAL NOT NULL,
					geometry BLOB
				)`, networkTable))
		} else {
			stmts = append(stmts, fmt.Sprintf(
				`CREATE TABLE IF NOT EXISTS "%s" (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					osm_id INTEGER NOT NULL,
					class TEXT,
					node_from INTEGER NOT NULL,
					node_to INTEGER NOT NULL,
					name TEXT,
					oneway_fromto INTEGER NOT NULL,
					oneway_tofrom INTEGER NOT NULL,
					length REAL NOT NULL,
					cost REAL NOT NULL,
					geometry BLOB
				)`, networkTable))
		}
		stmts = append(stmts, fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS from_to ON "%s" (node_from, node_to, length, cost)`,
			networkTable))
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return apperrors.Wrap(apperrors.Persistence, err, "CREATE TABLE error:")
		}
	}
	return nil
}
