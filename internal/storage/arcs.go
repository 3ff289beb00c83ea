package storage

import (
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
)

// ArcRow is one row of the routable arc table, without the oneway flags:
// InsertArcBidir takes those as separate arguments, and InsertArcUnidir
// writes no oneway columns.
type ArcRow struct {
	OSMID    int64
	Class    string
	NodeFrom int64
	NodeTo   int64
	Name     string
	Length   float64
	Cost     float64
	Geometry []byte
}

// InsertArcBidir inserts one row carrying oneway_fromto/oneway_tofrom
// flags, grounded on insert_arc_bidir in spatialite_osm_net.c.
func (db *DB) InsertArcBidir(table string, row ArcRow, onewayFromTo, onewayToFrom int) error {
	stmt, err := db.conn.Prepare(fmt.Sprintf(
		`INSERT OR IGNORE INTO "%s"
			(osm_id, class, node_from, node_to, name, oneway_fromto, oneway_tofrom, length, cost, geometry)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return apperrors.Wrap(apperrors.Setup, err, apperrors.TokenPrepareError)
	}
	defer stmt.Close()
	_, err = stmt.Exec(row.OSMID, row.Class, row.NodeFrom, row.NodeTo, row.Name,
		onewayFromTo, onewayToFrom, row.Length, row.Cost, row.Geometry)
	if err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", table), zap.Error(err))
	}
	return nil
}

// DropFromToIndex drops the uniqueness index used during load, per
// spec.md §6 ("dropped at end-of-run").
func (db *DB) DropFromToIndex() error {
	_, err := db.conn.Exec("DROP INDEX IF EXISTS from_to")
	return err
}

// InsertArcUnidir inserts one directional row with no oneway columns,
// grounded on insert_arc_unidir.
func (db *DB) InsertArcUnidir(table string, row ArcRow) error {
	stmt, err := db.conn.Prepare(fmt.Sprintf(
		`INSERT OR IGNORE INTO "%s"
			(osm_id, class, node_from, node_to, name, length, cost, geometry)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return apperrors.Wrap(apperrors.Setup, err, apperrors.TokenPrepareError)
	}
	defer stmt.Close()
	_, err = stmt.Exec(row.OSMID, row.Class, row.NodeFrom, row.NodeTo, row.Name,
		row.Length, row.Cost, row.Geometry)
	if err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", table), zap.Error(err))
	}
	return nil
}
