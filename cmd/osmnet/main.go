// Command osmnet ingests an OSM XML extract into a routable arc table,
// deriving graph topology (reference counting, coincident-node
// disambiguation, arc splitting) from the road network.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/location-microservice/osmgeo/internal/config"
	apperrors "github.com/location-microservice/osmgeo/internal/pkg/errors"
	"github.com/location-microservice/osmgeo/internal/pkg/logger"
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
		Use:   "osmnet",
		Short: "Build a routable arc table from an OSM XML extract",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetwork(cfg)
		},
	}

	// pflag shorthands are single ASCII characters; the original tool's
	// "-2" short form for --unidirectional has no pflag equivalent, so
	// it is long-flag only here.
	flags := cmd.Flags()
	flags.StringVarP(&cfg.OSM.Path, "osm-path", "o", cfg.OSM.Path, "path to the OSM XML extract")
	flags.StringVarP(&cfg.Database.Path, "db-path", "d", cfg.Database.Path, "path to the output SQLite database")
	flags.StringVarP(&cfg.Network.Table, "table", "T", cfg.Network.Table, "name of the output arcs table")
	flags.IntVar(&cfg.Database.CachePages, "cache-size", cfg.Database.CachePages, "SQLite cache_size pragma, in pages")
	flags.BoolVarP(&cfg.Database.InMemory, "in-memory", "m", cfg.Database.InMemory, "clone the database into memory for the run")
	flags.BoolVar(&cfg.Network.Unidirectional, "unidirectional", cfg.Network.Unidirectional, "emit unidirectional arcs instead of bidirectional")

	return cmd
}

// 2. Initialize logger, run the Network pipeline, report the process
// exit code the Pipeline Driver's error Kind maps to.
func runNetwork(cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.OSM.Path == "" {
		return apperrors.New(apperrors.Config, "missing --osm-path")
	}

	log.Info("starting network build",
		zap.String("osm_path", cfg.OSM.Path),
		zap.String("db_path", cfg.Database.Path),
		zap.String("table", cfg.Network.Table),
		zap.Bool("unidirectional", cfg.Network.Unidirectional))

	if err := pipeline.RunNetwork(cfg, log); err != nil {
		log.Error("network build failed", zap.Error(err))
		os.Exit(apperrors.ExitCode(err))
	}

	log.Info("network build complete")
	return nil
}
