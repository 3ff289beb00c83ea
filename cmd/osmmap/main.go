// Command osmmap ingests an OSM XML extract into the thematic point/
// line/polygon layer tables of a SpatiaLite-shaped SQLite database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/location-microservice/osmgeo/internal/config"
	"github.com/location-microservice/osmgeo/internal/pkg/logger"
	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
	"github.com/location-microservice/osmgeo/internal/pipeline"
)

func main() {
	// 1. Load configuration (.env + environment overrides)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	root := newRootCmd(cfg)
	if err := root.Execute(); err != nil {
		os.Exit(2)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "osmmap",
		Short: "Build thematic layer tables from an OSM XML extract",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cfg)
		},
	}

	// pflag shorthands are single ASCII characters; the original tool's
	// "-cs" two-letter short form has no pflag equivalent, so cache-size
	// is long-flag only here.
	flags := cmd.Flags()
	flags.StringVarP(&cfg.OSM.Path, "osm-path", "o", cfg.OSM.Path, "path to the OSM XML extract")
	flags.StringVarP(&cfg.Database.Path, "db-path", "d", cfg.Database.Path, "path to the output SQLite database")
	flags.IntVar(&cfg.Database.CachePages, "cache-size", cfg.Database.CachePages, "SQLite cache_size pragma, in pages")
	flags.BoolVarP(&cfg.Database.InMemory, "in-memory", "m", cfg.Database.InMemory, "clone the database into memory for the run")
	flags.BoolVarP(&cfg.Map.NoSpatialIndex, "no-spatial-index", "n", cfg.Map.NoSpatialIndex, "skip spatial index creation")

	return cmd
}

// 2. Initialize logger, open/build the pipeline, report the process
// exit code the Pipeline Driver's error Kind maps to.
func runMap(cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.OSM.Path == "" {
		return apperrors.New(apperrors.Config, "missing --osm-path")
	}

	log.Info("starting map build", zap.String("osm_path", cfg.OSM.Path), zap.String("db_path", cfg.Database.Path))

	if err := pipeline.RunMap(cfg, log); err != nil {
		log.Error("map build failed", zap.Error(err))
		os.Exit(apperrors.ExitCode(err))
	}

	log.Info("map build complete")
	return nil
}
