package pipeline

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/location-microservice/osmgeo/internal/config"
)

const sampleOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="10.0" lon="20.0">
    <tag k="name" v="Foo"/>
  </node>
  <node id="2" lat="10.001" lon="20.001"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="primary"/>
    <tag k="oneway" v="yes"/>
    <tag k="name" v="Main"/>
  </way>
</osm>
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.osm")
	require.NoError(t, os.WriteFile(path, []byte(sampleOSM), 0o644))
	return path
}

func TestRunMapS1SingleNode(t *testing.T) {
	osmPath := writeSample(t)
	dbPath := filepath.Join(t.TempDir(), "map.sqlite")

	cfg := &config.Config{
		OSM:      config.OSMConfig{Path: osmPath},
		Database: config.DatabaseConfig{Path: dbPath},
		Map:      config.MapConfig{NoSpatialIndex: true},
	}
	require.NoError(t, RunMap(cfg, zap.NewNop()))

	conn, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer conn.Close()

	var name string
	require.NoError(t, conn.QueryRow("SELECT name FROM pt_generic WHERE id = 1").Scan(&name))
	assert.Equal(t, "Foo", name)

	var wayName string
	require.NoError(t, conn.QueryRow("SELECT name FROM ln_highway WHERE id = 10").Scan(&wayName))
	assert.Equal(t, "Main", wayName)

	var tmpCount int
	err = conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='osm_tmp_nodes'").Scan(&tmpCount)
	require.NoError(t, err)
	assert.Equal(t, 0, tmpCount)
}

func TestRunNetworkS4StraightOnewayPrimary(t *testing.T) {
	osmPath := writeSample(t)
	dbPath := filepath.Join(t.TempDir(), "net.sqlite")

	cfg := &config.Config{
		OSM:      config.OSMConfig{Path: osmPath},
		Database: config.DatabaseConfig{Path: dbPath},
		Network:  config.NetworkConfig{Table: "roads"},
	}
	require.NoError(t, RunNetwork(cfg, zap.NewNop()))

	conn, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer conn.Close()

	var onewayFromto, onewayTofrom int
	var class, name string
	var length, cost float64
	err = conn.QueryRow(
		`SELECT class, name, oneway_fromto, oneway_tofrom, length, cost FROM roads WHERE osm_id = 10`).
		Scan(&class, &name, &onewayFromto, &onewayTofrom, &length, &cost)
	require.NoError(t, err)

	assert.Equal(t, "primary", class)
	assert.Equal(t, "Main", name)
	assert.Equal(t, 1, onewayFromto)
	assert.Equal(t, 0, onewayTofrom)
	assert.Greater(t, length, 0.0)
	assert.InDelta(t, length/25.0, cost, 1e-6) // 90 km/h -> 25 m/s
}

func TestRunMapMissingOSMPathIsConfigError(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "x.sqlite")}}
	err := RunMap(cfg, zap.NewNop())
	require.Error(t, err)
}
