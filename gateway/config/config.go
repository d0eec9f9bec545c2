package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig points the gateway at the staychain node RPC endpoint. The
// bearer token for mutating upstream calls is resolved from the environment
// variable named by TokenEnv so the secret never lives in the config file.
type NodeConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	TokenEnv string        `yaml:"tokenEnv"`
}

// AuthConfig controls the JWT bearer authentication applied to mutating
// routes. The HMAC secret is read from the environment variable named by
// SecretEnv; Secret is a plaintext fallback for local development only.
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Secret     string        `yaml:"secret"`
	SecretEnv  string        `yaml:"secretEnv"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	ScopeClaim string        `yaml:"scopeClaim"`
	ClockSkew  time.Duration `yaml:"clockSkew"`
}

// RateLimitConfig names a route group and its per-visitor budget.
type RateLimitConfig struct {
	Key           string  `yaml:"key"`
	RatePerSecond float64 `yaml:"ratePerSecond"`
	Burst         int     `yaml:"burst"`
}

// CORSConfig mirrors the gateway middleware knobs.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowedMethods   []string `yaml:"allowedMethods"`
	AllowedHeaders   []string `yaml:"allowedHeaders"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

// IdempotencyConfig enables the replay cache for mutating routes. An empty
// path disables the cache.
type IdempotencyConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// ObservabilityConfig toggles the per-route metrics, tracing, and request
// logging middleware.
type ObservabilityConfig struct {
	ServiceName   string `yaml:"serviceName"`
	MetricsPrefix string `yaml:"metricsPrefix"`
	Metrics       bool   `yaml:"metrics"`
	Tracing       bool   `yaml:"tracing"`
	LogRequests   bool   `yaml:"logRequests"`
}

// TelemetryConfig feeds the OTLP exporters when tracing is enabled.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// TLSConfig holds the optional serving certificate for the gateway listener.
type TLSConfig struct {
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

// Config is the stay-gateway daemon configuration, decoded from YAML.
type Config struct {
	ListenAddress string              `yaml:"listen"`
	Environment   string              `yaml:"environment"`
	ReadTimeout   time.Duration       `yaml:"readTimeout"`
	WriteTimeout  time.Duration       `yaml:"writeTimeout"`
	IdleTimeout   time.Duration       `yaml:"idleTimeout"`
	AllowInsecure bool                `yaml:"allowInsecureNode"`
	Node          NodeConfig          `yaml:"node"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimits    []RateLimitConfig   `yaml:"rateLimits"`
	CORS          CORSConfig          `yaml:"cors"`
	Idempotency   IdempotencyConfig   `yaml:"idempotency"`
	Observability ObservabilityConfig `yaml:"observability"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	TLS           TLSConfig           `yaml:"tls"`
}

const (
	defaultListenAddress = ":8750"
	defaultNodeEndpoint  = "http://127.0.0.1:8645"
	defaultNodeTokenEnv  = "STAY_RPC_TOKEN"
	defaultSecretEnv     = "STAY_GATEWAY_JWT_SECRET"
)

// Load reads the YAML file at path. An empty path yields the built-in
// defaults, which target a local development node.
func Load(path string) (Config, error) {
	cfg := defaults()
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
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddress: defaultListenAddress,
		Environment:   "dev",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   120 * time.Second,
		Node: NodeConfig{
			Endpoint: defaultNodeEndpoint,
			Timeout:  10 * time.Second,
			TokenEnv: defaultNodeTokenEnv,
		},
		Auth: AuthConfig{
			Enabled:    true,
			SecretEnv:  defaultSecretEnv,
			ScopeClaim: "scope",
			ClockSkew:  2 * time.Minute,
		},
		Idempotency: IdempotencyConfig{
			TTL: 24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			ServiceName:   "stay-gateway",
			MetricsPrefix: "stay_gateway",
			Metrics:       true,
			Tracing:       true,
			LogRequests:   true,
		},
	}
}

func (cfg *Config) applyDefaults() {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if strings.TrimSpace(cfg.Node.Endpoint) == "" {
		cfg.Node.Endpoint = defaultNodeEndpoint
	}
	if cfg.Node.Timeout <= 0 {
		cfg.Node.Timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.Node.TokenEnv) == "" {
		cfg.Node.TokenEnv = defaultNodeTokenEnv
	}
	if strings.TrimSpace(cfg.Auth.ScopeClaim) == "" {
		cfg.Auth.ScopeClaim = "scope"
	}
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = 2 * time.Minute
	}
	if strings.TrimSpace(cfg.Auth.SecretEnv) == "" && strings.TrimSpace(cfg.Auth.Secret) == "" {
		cfg.Auth.SecretEnv = defaultSecretEnv
	}
	if cfg.Idempotency.TTL <= 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "stay-gateway"
	}
	if strings.TrimSpace(cfg.Observability.MetricsPrefix) == "" {
		cfg.Observability.MetricsPrefix = "stay_gateway"
	}
}

// Validate rejects configurations that would start a broken gateway.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, err := cfg.NodeURL(); err != nil {
		return err
	}
	for i, limit := range cfg.RateLimits {
		if strings.TrimSpace(limit.Key) == "" {
			return fmt.Errorf("rateLimits[%d]: key is required", i)
		}
		if limit.RatePerSecond <= 0 {
			return fmt.Errorf("rateLimits[%d]: ratePerSecond must be positive", i)
		}
	}
	if cfg.Auth.Enabled {
		if strings.TrimSpace(cfg.Auth.Secret) == "" && strings.TrimSpace(cfg.Auth.SecretEnv) == "" {
			return fmt.Errorf("auth: secret or secretEnv is required when auth is enabled")
		}
	}
	if (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		return fmt.Errorf("tls: certFile and keyFile must be set together")
	}
	return nil
}

// NodeURL parses the node endpoint and enforces HTTPS outside the dev
// environment unless allowInsecureNode is set.
func (cfg *Config) NodeURL() (*url.URL, error) {
	endpoint := strings.TrimSpace(cfg.Node.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("node endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse node endpoint: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "https":
	case "http":
		if !isDevEnv(cfg.Environment) && !cfg.AllowInsecure {
			return nil, fmt.Errorf("plaintext node endpoint not permitted for environment %q", cfg.Environment)
		}
	case "":
		return nil, fmt.Errorf("node endpoint scheme is required")
	default:
		return nil, fmt.Errorf("unsupported node endpoint scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("node endpoint host is required")
	}
	return parsed, nil
}

// NodeToken resolves the bearer token the gateway presents to the node.
func (cfg *Config) NodeToken() string {
	if env := strings.TrimSpace(cfg.Node.TokenEnv); env != "" {
		if token := strings.TrimSpace(os.Getenv(env)); token != "" {
			return token
		}
	}
	return ""
}

// AuthSecret resolves the JWT HMAC secret, preferring the environment.
func (cfg *Config) AuthSecret() string {
	if env := strings.TrimSpace(cfg.Auth.SecretEnv); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret
		}
	}
	return strings.TrimSpace(cfg.Auth.Secret)
}

func isDevEnv(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "dev")
}
