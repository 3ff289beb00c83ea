package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full configuration tree for the ingestion binaries.
// osmmap reads OSM, Database, Map and Log; osmnet reads OSM, Database,
// Network and Log. Values are overridable by CLI flags at the cobra
// binding layer, which take precedence over whatever Load returns.
type Config struct {
	OSM      OSMConfig
	Database DatabaseConfig
	Network  NetworkConfig
	Map      MapConfig
	Log      LogConfig
}

// OSMConfig locates the source XML dump.
type OSMConfig struct {
	Path string
}

// DatabaseConfig controls how the Storage Gateway opens the output database.
type DatabaseConfig struct {
	Path       string
	CachePages int
	InMemory   bool
}

// NetworkConfig configures the Network Builder's output arc table.
type NetworkConfig struct {
	Table          string
	Unidirectional bool
}

// MapConfig configures the Map Builder's thematic layer tables.
type MapConfig struct {
	NoSpatialIndex bool
}

type LogConfig struct {
	Level string
}

// Load reads configuration from .env plus environment overrides. A
// missing .env is not an error: CLI flags are the primary input surface
// for a batch tool invoked directly, unlike the teacher's long-running
// server.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		OSM: OSMConfig{
			Path: viper.GetString("OSM_PATH"),
		},
		Database: DatabaseConfig{
			Path:       viper.GetString("DB_PATH"),
			CachePages: viper.GetInt("DB_CACHE_PAGES"),
			InMemory:   viper.GetBool("DB_IN_MEMORY"),
		},
		Network: NetworkConfig{
			Table:          viper.GetString("NET_TABLE"),
			Unidirectional: viper.GetBool("NET_UNIDIRECTIONAL"),
		},
		Map: MapConfig{
			NoSpatialIndex: viper.GetBool("MAP_NO_SPATIAL_INDEX"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	if cfg.Database.CachePages == 0 {
		cfg.Database.CachePages = 4096
	}
	if cfg.Network.Table == "" {
		cfg.Network.Table = "roads"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}
