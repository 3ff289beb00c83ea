// Package pipeline is the Pipeline Driver (C8): it owns the state
// machine that sequences schema setup, entity streaming, transaction
// boundaries, and end-of-run maintenance for both ingestion modes,
// returning every CoreError surfaced by a downstream component to the
// caller, which maps it onto a process exit code with errors.ExitCode.
package pipeline

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/location-microservice/osmgeo/internal/config"
	"github.com/location-microservice/osmgeo/internal/mapbuilder"
	"github.com/location-microservice/osmgeo/internal/netbuilder"
	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
	"github.com/location-microservice/osmgeo/internal/osmtypes"
	"github.com/location-microservice/osmgeo/internal/osmxml"
	"github.com/location-microservice/osmgeo/internal/resolver"
	"github.com/location-microservice/osmgeo/internal/storage"
)

// RunMap drives the Map pipeline: INIT -> OPEN_DB -> ENSURE_SCHEMA ->
// BEGIN_TX -> STREAM_ENTITIES -> COMMIT_TX -> DROP_TEMPS ->
// [CREATE_SPATIAL_INDEX]? -> [EXPORT_MEMORY]? -> VACUUM -> DONE.
func RunMap(cfg *config.Config, logger *zap.Logger) error {
	if cfg.OSM.Path == "" {
		return apperrors.New(apperrors.Config, "missing --osm-path")
	}

	db, err := storage.Open(cfg.Database.Path, cfg.Database.CachePages, cfg.Database.InMemory, logger)
	if err != nil {
		return err
	}

	if err := db.EnsureSchema(storage.KindMap, "", false); err != nil {
		db.Close()
		return err
	}
	if err := db.Begin(); err != nil {
		db.Close()
		return err
	}

	if err := streamMapEntities(cfg.OSM.Path, mapbuilder.New(db, logger), logger); err != nil {
		db.Close()
		return err
	}

	if err := db.Commit(); err != nil {
		db.Close()
		return err
	}
	if err := db.DropTempTables(); err != nil {
		db.Close()
		return err
	}
	if !cfg.Map.NoSpatialIndex {
		for _, table := range []string{"pt_generic", "ln_generic", "pg_generic", "pt_addresses"} {
			if err := db.CreateSpatialIndex(table, "Geometry"); err != nil {
				db.Close()
				return err
			}
		}
	}
	if cfg.Database.InMemory && cfg.Database.Path != "" {
		if err := db.ExportToDisk(cfg.Database.Path); err != nil {
			db.Close()
			return apperrors.Wrap(apperrors.Persistence, err, "export in-memory database to disk")
		}
	}
	if err := db.Vacuum(); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

func streamMapEntities(path string, builder *mapbuilder.Builder, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Wrap(apperrors.Setup, err, "open OSM XML")
	}
	defer f.Close()

	dec := osmxml.NewDecoder(f)
	dec.Progress = func(line int64) {
		logger.Info("progress", zap.Int64("line", line))
	}

	for {
		ent, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := dispatchMapEntity(builder, ent, logger); err != nil {
			return err
		}
	}
}

func dispatchMapEntity(builder *mapbuilder.Builder, ent *osmxml.Entity, logger *zap.Logger) error {
	switch ent.Kind {
	case osmxml.EntityNode:
		return builder.ProcessNode(ent.Node)
	case osmxml.EntityWay:
		return builder.ProcessWay(ent.Way)
	case osmxml.EntityRelation:
		return builder.ProcessRelation(ent.Relation)
	}
	return nil
}

// RunNetwork drives the Network pipeline: INIT -> OPEN_DB ->
// ENSURE_SCHEMA -> BEGIN_TX -> PASS0_NODES -> PASS1_REFCOUNT ->
// DISAMBIGUATE -> PASS2_ARCS -> COMMIT_TX -> DROP_TEMPS ->
// [EXPORT_MEMORY]? -> VACUUM -> DONE. Per spec.md §9, the XML source is
// re-opened and re-scanned for each pass since the entity stream is a
// non-restartable sequence.
func RunNetwork(cfg *config.Config, logger *zap.Logger) error {
	if cfg.OSM.Path == "" {
		return apperrors.New(apperrors.Config, "missing --osm-path")
	}

	db, err := storage.Open(cfg.Database.Path, cfg.Database.CachePages, cfg.Database.InMemory, logger)
	if err != nil {
		return err
	}

	if err := db.EnsureSchema(storage.KindNetwork, cfg.Network.Table, cfg.Network.Unidirectional); err != nil {
		db.Close()
		return err
	}
	if err := db.Begin(); err != nil {
		db.Close()
		return err
	}

	if err := pass0Nodes(cfg.OSM.Path, db, logger); err != nil {
		db.Close()
		return err
	}
	if err := pass1Refcount(cfg.OSM.Path, db, logger); err != nil {
		db.Close()
		return err
	}
	if err := netbuilder.Disambiguate(db); err != nil {
		db.Close()
		return err
	}
	if err := pass2Arcs(cfg.OSM.Path, cfg.Network.Table, cfg.Network.Unidirectional, db, logger); err != nil {
		db.Close()
		return err
	}

	if err := db.Commit(); err != nil {
		db.Close()
		return err
	}
	if err := db.DropFromToIndex(); err != nil {
		db.Close()
		return err
	}
	if err := db.DropTempTables(); err != nil {
		db.Close()
		return err
	}
	if cfg.Database.InMemory && cfg.Database.Path != "" {
		if err := db.ExportToDisk(cfg.Database.Path); err != nil {
			db.Close()
			return apperrors.Wrap(apperrors.Persistence, err, "export in-memory database to disk")
		}
	}
	if err := db.Vacuum(); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

func scanEntities(path string, logger *zap.Logger, onEntity func(*osmxml.Entity) error) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Wrap(apperrors.Setup, err, "open OSM XML")
	}
	defer f.Close()

	sc, err := osmxml.NewScanner(f)
	if err != nil {
		return err
	}
	sc.Progress = func(line int64) {
		logger.Info("progress", zap.Int64("line", line))
	}

	for {
		ent, err := sc.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := onEntity(ent); err != nil {
			return err
		}
	}
}

func pass0Nodes(path string, db *storage.DB, logger *zap.Logger) error {
	return scanEntities(path, logger, func(ent *osmxml.Entity) error {
		if ent.Kind != osmxml.EntityNode {
			return nil
		}
		return db.StageNode(ent.Node.ID, ent.Node.Lat, ent.Node.Lon)
	})
}

func pass1Refcount(path string, db *storage.DB, logger *zap.Logger) error {
	return scanEntities(path, logger, func(ent *osmxml.Entity) error {
		if ent.Kind != osmxml.EntityWay {
			return nil
		}
		class, ok := netbuilder.HighwayClass(ent.Way.Tags)
		if !ok || !netbuilder.IsValidWay("highway", class) {
			return nil
		}
		return netbuilder.CountReferences(db, ent.Way.Refs)
	})
}

func pass2Arcs(path, table string, unidirectional bool, db *storage.DB, logger *zap.Logger) error {
	return scanEntities(path, logger, func(ent *osmxml.Entity) error {
		if ent.Kind != osmxml.EntityWay {
			return nil
		}
		return processArcWay(db, table, unidirectional, ent.Way, logger)
	})
}

func processArcWay(db *storage.DB, table string, unidirectional bool, way *osmtypes.Way, logger *zap.Logger) error {
	class, ok := netbuilder.HighwayClass(way.Tags)
	if !ok || !netbuilder.IsValidWay("highway", class) {
		return nil
	}

	if err := resolver.Resolve(db, way.Refs); err != nil {
		logger.Warn(apperrors.TokenUnresolvedNode, zap.Int64("way_id", way.ID), zap.Error(err))
		return nil
	}

	name := netbuilder.DeriveName(way.Tags)
	oneway, reverse := netbuilder.SetOneway(way.Tags)
	arcs := netbuilder.BuildGeometry(way, class)
	if len(arcs) == 0 {
		return nil
	}

	if unidirectional {
		return netbuilder.EmitUnidirectional(db, table, way, class, name, arcs, oneway, reverse)
	}
	return netbuilder.EmitBidirectional(db, table, way, class, name, arcs, oneway, reverse)
}
