// Package storage is the Storage Gateway (C1): it wraps the relational/
// spatial store with prepared-statement lifecycle, transactions,
// temporary staging tables, and blob round-trip, following the teacher's
// internal/repository/postgresosm/db.go "thin wrapper around *sql.DB"
// shape.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
)

// Kind selects which generic output schema ensure_schema builds.
type Kind int

const (
	KindMap Kind = iota
	KindNetwork
)

// SpatialIndexer creates spatial indexes on a finished geometry column.
// The real implementation would invoke SpatiaLite's CreateSpatialIndex;
// wiring the mod_spatialite extension itself is outside Go's ecosystem
// and out of scope, so DB is constructed with a stub by default.
type SpatialIndexer interface {
	CreateSpatialIndex(db *sql.DB, table, column string) error
}

// Vacuumer reclaims space at end of run. Modeled as an interface so the
// gateway doesn't hard-depend on a particular SQLite build's VACUUM INTO
// support.
type Vacuumer interface {
	Vacuum(db *sql.DB) error
}

type noopSpatialIndexer struct{}

func (noopSpatialIndexer) CreateSpatialIndex(*sql.DB, string, string) error { return nil }

type defaultVacuumer struct{}

func (defaultVacuumer) Vacuum(db *sql.DB) error {
	_, err := db.Exec("VACUUM")
	return err
}

// DB is the open handle borrowed by every component through the Storage
// Gateway's exported operations.
type DB struct {
	conn   *sqlx.DB
	logger *zap.Logger

	tx *sql.Tx

	indexer  SpatialIndexer
	vacuumer Vacuumer

	layers map[layerKey]*LayerSink

	stageNodeStmt    *sql.Stmt
	bumpRefcountStmt *sql.Stmt
	setAliasStmt     *sql.Stmt
	stageWayStmt     *sql.Stmt
}

// Open opens or creates the database at path, applies the cache_size
// PRAGMA when cachePages > 0, and, when inMemory is set, clones the
// on-disk database into an in-memory twin. Metadata bootstrap
// (InitSpatialMetadata) is the spec's declared non-goal and is not
// invoked here; an empty on-disk file is assumed pre-initialized by the
// external collaborator spec.md §1 names.
func Open(path string, cachePages int, inMemory bool, logger *zap.Logger) (*DB, error) {
	target := path
	if inMemory {
		target = ":memory:"
	}

	conn, err := sqlx.Open("sqlite3", target)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Setup, err, "open database")
	}
	if err := conn.Ping(); err != nil {
		return nil, apperrors.Wrap(apperrors.Setup, err, "ping database")
	}

	if cachePages > 0 {
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA cache_size = %d", cachePages)); err != nil {
			return nil, apperrors.Wrap(apperrors.Setup, err, "apply cache_size pragma")
		}
	}

	db := &DB{
		conn:     conn,
		logger:   logger,
		indexer:  noopSpatialIndexer{},
		vacuumer: defaultVacuumer{},
		layers:   make(map[layerKey]*LayerSink),
	}

	if inMemory {
		if err := db.cloneFromDisk(path); err != nil {
			return nil, apperrors.Wrap(apperrors.Setup, err, "clone disk database into memory")
		}
	}

	logger.Info("storage opened", zap.String("path", path), zap.Bool("in_memory", inMemory))
	return db, nil
}

// cloneFromDisk implements the documented substitution for
// sqlite3_backup: ATTACH the on-disk database and copy each table over
// in pageBatch-row windows, preserving the "steps of 1,024" resource
// envelope spec.md §5 describes. go-sqlite3's public API exposes no
// backup-API equivalent.
const pageBatch = 1024

func (db *DB) cloneFromDisk(diskPath string) error {
	if _, err := db.conn.Exec(fmt.Sprintf("ATTACH DATABASE '%s' AS disk", diskPath)); err != nil {
		return err
	}
	defer db.conn.Exec("DETACH DATABASE disk")

	rows, err := db.conn.Query("SELECT name FROM disk.sqlite_master WHERE type = 'table'")
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()

	for _, table := range tables {
		if _, err := db.conn.Exec(fmt.Sprintf(
			"CREATE TABLE \"%s\" AS SELECT * FROM disk.\"%s\" LIMIT %d", table, table, pageBatch)); err != nil {
			return err
		}
		offset := pageBatch
		for {
			res, err := db.conn.Exec(fmt.Sprintf(
				"INSERT INTO \"%s\" SELECT * FROM disk.\"%s\" LIMIT %d OFFSET %d",
				table, table, pageBatch, offset))
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			if n == 0 {
				break
			}
			offset += pageBatch
		}
	}
	return nil
}

// ExportToDisk writes the in-memory database's current tables back to
// diskPath, the symmetric counterpart to cloneFromDisk: the Pipeline
// Driver's optional EXPORT_MEMORY step, run after the in-memory
// transaction has committed and the staging tables are dropped, so only
// the finished output tables are copied.
func (db *DB) ExportToDisk(diskPath string) error {
	if _, err := db.conn.Exec(fmt.Sprintf("ATTACH DATABASE '%s' AS diskout", diskPath)); err != nil {
		return err
	}
	defer db.conn.Exec("DETACH DATABASE diskout")

	rows, err := db.conn.Query("SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()

	for _, table := range tables {
		if _, err := db.conn.Exec(fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS diskout.\"%s\" AS SELECT * FROM \"%s\" LIMIT %d", table, table, pageBatch)); err != nil {
			return err
		}
		offset := pageBatch
		for {
			res, err := db.conn.Exec(fmt.Sprintf(
				"INSERT INTO diskout.\"%s\" SELECT * FROM \"%s\" LIMIT %d OFFSET %d",
				table, table, pageBatch, offset))
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			if n == 0 {
				break
			}
			offset += pageBatch
		}
	}
	return nil
}

// Conn exposes the raw *sql.DB connection pool (not the open
// transaction), e.g. for tests that query output tables directly;
// db.conn itself stays an *sqlx.DB so the batched lookups in
// nodes.go/ways.go can use sqlx.In/Rebind.
func (db *DB) Conn() *sql.DB { return db.conn.DB }

// Begin starts the single transaction a phase runs under.
func (db *DB) Begin() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return apperrors.Wrap(apperrors.Persistence, err, appRequireToken())
	}
	db.tx = tx
	return nil
}

func appRequireToken() string {
	return "BEGIN TRANSACTION error:"
}

// Tx returns the currently open transaction, or nil if none is open.
func (db *DB) Tx() *sql.Tx { return db.tx }

// Commit commits the open transaction.
func (db *DB) Commit() error {
	if db.tx == nil {
		return nil
	}
	err := db.tx.Commit()
	db.tx = nil
	if err != nil {
		return apperrors.Wrap(apperrors.Persistence, err, "COMMIT TRANSACTION error:")
	}
	return nil
}

// CreateSpatialIndex delegates to the configured SpatialIndexer.
func (db *DB) CreateSpatialIndex(table, column string) error {
	return db.indexer.CreateSpatialIndex(db.conn.DB, table, column)
}

// Vacuum delegates to the configured Vacuumer.
func (db *DB) Vacuum() error {
	if err := db.vacuumer.Vacuum(db.conn.DB); err != nil {
		return apperrors.Wrap(apperrors.Persistence, err, "VACUUM error:")
	}
	return nil
}

// Close finalizes all open prepared statements and closes the handle.
// Any transaction left open (e.g. after an abort) is rolled back before
// the underlying *sql.DB is closed.
func (db *DB) Close() error {
	for _, sink := range db.layers {
		sink.closeAll()
	}
	db.closeStagingStmts()
	if db.tx != nil {
		db.tx.Rollback()
		db.tx = nil
	}
	return db.conn.Close()
}

func (db *DB) closeStagingStmts() {
	for _, stmt := range []*sql.Stmt{db.stageNodeStmt, db.bumpRefcountStmt, db.setAliasStmt, db.stageWayStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	db.stageNodeStmt = nil
	db.bumpRefcountStmt = nil
	db.setAliasStmt = nil
	db.stageWayStmt = nil
}

// DropTempTables drops the staging tables (and the network from_to
// index, if present) at end-of-run, per spec.md §4.8's DROP_TEMPS step.
// Safe to call before Close since it finalizes the staging statements
// that reference them first.
func (db *DB) DropTempTables() error {
	db.closeStagingStmts()
	db.conn.Exec("DROP TABLE IF EXISTS osm_tmp_nodes")
	db.conn.Exec("DROP TABLE IF EXISTS osm_tmp_ways")
	db.conn.Exec("DROP INDEX IF EXISTS from_to")
	return nil
}

// FlushAndClose finalizes all statements, optionally drops the staging
// tables (see DropTempTables), then closes the handle.
func (db *DB) FlushAndClose(dropTemps bool) error {
	for _, sink := range db.layers {
		sink.closeAll()
	}
	if dropTemps {
		db.DropTempTables()
	}
	db.closeStagingStmts()
	return db.Close()
}
