package storage

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
)

// CacheWayGeometry stores a completed way's linestring blob into
// osm_tmp_ways so the Relation Composer (C6) can resolve it later
// without re-parsing the way.
func (db *DB) CacheWayGeometry(id int64, area bool, blob []byte) error {
	if db.stageWayStmt == nil {
		stmt, err := db.conn.Prepare(
			"INSERT OR IGNORE INTO osm_tmp_ways (id, area, Geometry) VALUES (?, ?, ?)")
		if err != nil {
			return apperrors.Wrap(apperrors.Setup, err, apperrors.TokenPrepareError)
		}
		db.stageWayStmt = stmt
	}
	areaInt := 0
	if area {
		areaInt = 1
	}
	if _, err := db.stageWayStmt.Exec(id, areaInt, blob); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", "osm_tmp_ways"), zap.Error(err))
	}
	return nil
}

// WayRow is a resolved osm_tmp_ways record.
type WayRow struct {
	ID    int64
	Area  bool
	Blob  []byte
}

// LookupWaysBatch resolves way ids (at most 128) via a single IN (...)
// query, mirroring LookupNodesBatch's sqlx.In/Rebind expansion for the
// Relation Composer.
func (db *DB) LookupWaysBatch(ids []int64) ([]WayRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT id, area, Geometry FROM osm_tmp_ways WHERE id IN (?)", ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Persistence, err, apperrors.TokenSQLStepError)
	}
	rows, err := db.conn.Query(db.conn.Rebind(query), args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Persistence, err, apperrors.TokenSQLStepError)
	}
	defer rows.Close()

	var out []WayRow
	for rows.Next() {
		var r WayRow
		var areaInt int
		if err := rows.Scan(&r.ID, &areaInt, &r.Blob); err != nil {
			return nil, apperrors.Wrap(apperrors.Persistence, err, "sqlite3_step() error:")
		}
		r.Area = areaInt != 0
		out = append(out, r)
	}
	return out, nil
}
