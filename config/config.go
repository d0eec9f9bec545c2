package config

import (
	"os"
	"path/filepath"
	"strings"

	"staychain/crypto"

	"github.com/BurntSushi/toml"
)

const defaultRPCTokenEnv = "STAY_RPC_TOKEN"

type Config struct {
	RPCAddress       string `toml:"RPCAddress"`
	MetricsAddress   string `toml:"MetricsAddress"`
	DataDir          string `toml:"DataDir"`
	GenesisFile      string `toml:"GenesisFile"`
	NodeKeystorePath string `toml:"NodeKeystorePath"`
	NetworkName      string `toml:"NetworkName"`
	LogLevel         string `toml:"LogLevel"`
	LogFile          string `toml:"LogFile"`

	RPC       RPC       `toml:"RPC"`
	Pauses    Pauses    `toml:"Pauses"`
	Quota     Quota     `toml:"Quota"`
	Telemetry Telemetry `toml:"Telemetry"`
}

// Load reads the configuration at path, creating a default file and node
// keystore on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "stay-local"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.RPC.TokenEnv) == "" {
		cfg.RPC.TokenEnv = defaultRPCTokenEnv
	}
	if cfg.RPC.RatePerSecond <= 0 {
		cfg.RPC.RatePerSecond = 50
	}
	if cfg.RPC.RateBurst <= 0 {
		cfg.RPC.RateBurst = 100
	}
	if cfg.RPC.MaxRequestBody <= 0 {
		cfg.RPC.MaxRequestBody = 1 << 20
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.NodeKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.NodeKeystorePath != keystorePath {
		cfg.NodeKeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault writes a default configuration file and a fresh node
// keystore next to it.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:     ":8645",
		MetricsAddress: ":9090",
		DataDir:        "./stay-data",
		GenesisFile:    "",
		NetworkName:    "stay-local",
		LogLevel:       "info",
	}
	cfg.NodeKeystorePath = keystorePath
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "node.keystore")
}
