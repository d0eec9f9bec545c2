package archiver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, defaultListenAddress, cfg.ListenAddress)
	require.Equal(t, defaultNodeWebsocket, cfg.NodeWebsocket)
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, defaultExportBatch, cfg.Export.BatchSize)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archiver.yaml")
	payload := `
listen: ":9000"
nodeWebsocket: "wss://node.example.com/ws/events"
database:
  driver: postgres
  dsn: "host=localhost user=stay dbname=archive"
export:
  directory: "/var/lib/stay/export"
  interval: 30m
  batchSize: 500
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, "wss://node.example.com/ws/events", cfg.NodeWebsocket)
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.Equal(t, 30*time.Minute, cfg.Export.Interval)
	require.Equal(t, 500, cfg.Export.BatchSize)
}

func TestLoadConfigRejectsBadScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archiver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`nodeWebsocket: "http://node.example.com"`), 0o600))
	_, err := LoadConfig(path)
	require.Error(t, err)
}
