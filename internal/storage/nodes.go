package storage

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
)

// StageNode inserts one row into osm_tmp_nodes during Phase 0 / Map-mode
// decoding. alias defaults to id and refcount to 0, matching spec.md
// §4.7 Phase 0.
func (db *DB) StageNode(id int64, lat, lon float64) error {
	if db.stageNodeStmt == nil {
		stmt, err := db.conn.Prepare(
			"INSERT OR IGNORE INTO osm_tmp_nodes (id, alias, lat, lon, refcount) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return apperrors.Wrap(apperrors.Setup, err, apperrors.TokenPrepareError)
		}
		db.stageNodeStmt = stmt
	}
	if _, err := db.stageNodeStmt.Exec(id, id, lat, lon, 0); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", "osm_tmp_nodes"), zap.Error(err))
	}
	return nil
}

// BumpRefcount increments osm_tmp_nodes.refcount by delta for id,
// used by the Network Topology Builder's Phase 2 reference counting.
func (db *DB) BumpRefcount(id int64, delta int) error {
	if db.bumpRefcountStmt == nil {
		stmt, err := db.conn.Prepare("UPDATE osm_tmp_nodes SET refcount = refcount + ? WHERE id = ?")
		if err != nil {
			return apperrors.Wrap(apperrors.Setup, err, apperrors.TokenPrepareError)
		}
		db.bumpRefcountStmt = stmt
	}
	if _, err := db.bumpRefcountStmt.Exec(delta, id); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", "osm_tmp_nodes"), zap.Error(err))
	}
	return nil
}

// SetAliasAndRefcount stamps a node's alias and refcount, used by the
// coincident-node disambiguation pass (spec.md §4.7 Phase 1).
func (db *DB) SetAliasAndRefcount(id, alias int64, refcount int) error {
	if db.setAliasStmt == nil {
		stmt, err := db.conn.Prepare("UPDATE osm_tmp_nodes SET alias = ?, refcount = ? WHERE id = ?")
		if err != nil {
			return apperrors.Wrap(apperrors.Setup, err, apperrors.TokenPrepareError)
		}
		db.setAliasStmt = stmt
	}
	if _, err := db.setAliasStmt.Exec(alias, refcount, id); err != nil {
		db.logger.Error("sqlite3_step() error:", zap.String("table", "osm_tmp_nodes"), zap.Error(err))
	}
	return nil
}

// CoincidentGroups returns, for every (lat, lon) pair shared by more
// than one staged node, the member ids ordered by id ascending (the
// "lowest-ordered member" spec.md §4.7 Phase 1 designates canonical) and
// the group's summed refcount.
type CoincidentGroup struct {
	IDs           []int64
	TotalRefcount int
}

func (db *DB) CoincidentGroups() ([]CoincidentGroup, error) {
	rows, err := db.conn.Query(
		`SELECT lat, lon FROM osm_tmp_nodes GROUP BY lat, lon HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Persistence, err, "sqlite3_step() error:")
	}
	defer rows.Close()

	var coords [][2]float64
	for rows.Next() {
		var lat, lon float64
		if err := rows.Scan(&lat, &lon); err != nil {
			return nil, apperrors.Wrap(apperrors.Persistence, err, "sqlite3_step() error:")
		}
		coords = append(coords, [2]float64{lat, lon})
	}

	var groups []CoincidentGroup
	for _, c := range coords {
		memberRows, err := db.conn.Query(
			"SELECT id, refcount FROM osm_tmp_nodes WHERE lat = ? AND lon = ? ORDER BY id ASC", c[0], c[1])
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Persistence, err, "sqlite3_step() error:")
		}
		var ids []int64
		total := 0
		for memberRows.Next() {
			var id int64
			var refcount int
			if err := memberRows.Scan(&id, &refcount); err != nil {
				memberRows.Close()
				return nil, apperrors.Wrap(apperrors.Persistence, err, "sqlite3_step() error:")
			}
			ids = append(ids, id)
			total += refcount
		}
		memberRows.Close()
		if len(ids) > 1 {
			groups = append(groups, CoincidentGroup{IDs: ids, TotalRefcount: total})
		}
	}
	return groups, nil
}

// NodeRow is a resolved staged-node record.
type NodeRow struct {
	ID       int64
	Alias    int64
	Lat      float64
	Lon      float64
	Refcount int
}

// LookupNodesBatch resolves ids (at most 128, per spec.md §4.4) via a
// single IN (...) query. sqlx.In expands the slice bind arg into the
// right count of placeholders and Rebind adapts them to the driver's
// positional style, replacing hand-rolled placeholder counting.
func (db *DB) LookupNodesBatch(ids []int64) ([]NodeRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT id, alias, lat, lon, refcount FROM osm_tmp_nodes WHERE id IN (?)", ids)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Persistence, err, apperrors.TokenSQLStepError)
	}
	rows, err := db.conn.Query(db.conn.Rebind(query), args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Persistence, err, apperrors.TokenSQLStepError)
	}
	defer rows.Close()

	var out []NodeRow
	for rows.Next() {
		var r NodeRow
		if err := rows.Scan(&r.ID, &r.Alias, &r.Lat, &r.Lon, &r.Refcount); err != nil {
			return nil, apperrors.Wrap(apperrors.Persistence, err, "sqlite3_step() error:")
		}
		out = append(out, r)
	}
	return out, nil
}
