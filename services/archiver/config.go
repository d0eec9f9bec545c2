package archiver

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects the archive backend. sqlite is the development
// default; postgres is expected in production.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ExportConfig controls the periodic parquet export. An empty directory
// disables exports.
type ExportConfig struct {
	Directory string        `yaml:"directory"`
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batchSize"`
}

// TelemetryConfig feeds the OTLP exporters.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Config captures the stay-archiverd runtime configuration.
type Config struct {
	ListenAddress string         `yaml:"listen"`
	NodeWebsocket string         `yaml:"nodeWebsocket"`
	LogLevel      string         `yaml:"logLevel"`
	Database      DatabaseConfig `yaml:"database"`
	Export        ExportConfig   `yaml:"export"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

const (
	defaultListenAddress = ":8770"
	defaultNodeWebsocket = "ws://127.0.0.1:8645/ws/events"
	defaultExportBatch   = 10_000
)

// LoadConfig reads the YAML file at path; an empty path yields defaults
// suitable for a local development node.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ListenAddress: defaultListenAddress,
		NodeWebsocket: defaultNodeWebsocket,
		LogLevel:      "info",
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "stay-archive.db",
		},
		Export: ExportConfig{
			Interval:  time.Hour,
			BatchSize: defaultExportBatch,
		},
	}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the daemon could not run with.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("listen address is required")
	}
	ws := strings.TrimSpace(cfg.NodeWebsocket)
	if ws == "" {
		return fmt.Errorf("nodeWebsocket is required")
	}
	if !strings.HasPrefix(ws, "ws://") && !strings.HasPrefix(ws, "wss://") {
		return fmt.Errorf("nodeWebsocket must use ws or wss scheme")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Database.Driver)) {
	case "", DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if cfg.Export.Directory != "" && cfg.Export.Interval <= 0 {
		return fmt.Errorf("export interval must be positive when exports are enabled")
	}
	if cfg.Export.BatchSize < 0 {
		return fmt.Errorf("export batch size cannot be negative")
	}
	return nil
}
