package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.ListenAddress != ":8750" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.Node.Endpoint != "http://127.0.0.1:8645" {
		t.Fatalf("unexpected node endpoint %q", cfg.Node.Endpoint)
	}
	if cfg.Node.TokenEnv != "STAY_RPC_TOKEN" {
		t.Fatalf("unexpected node token env %q", cfg.Node.TokenEnv)
	}
	if !cfg.Auth.Enabled {
		t.Fatal("auth should default to enabled")
	}
	if cfg.Auth.ClockSkew != 2*time.Minute {
		t.Fatalf("unexpected clock skew %s", cfg.Auth.ClockSkew)
	}
	if cfg.Idempotency.TTL != 24*time.Hour {
		t.Fatalf("unexpected idempotency ttl %s", cfg.Idempotency.TTL)
	}
	if cfg.Observability.MetricsPrefix != "stay_gateway" {
		t.Fatalf("unexpected metrics prefix %q", cfg.Observability.MetricsPrefix)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	body := `
listen: ":9750"
environment: prod
node:
  endpoint: https://node.stay.example
  timeout: 5s
auth:
  enabled: true
  secretEnv: TEST_GATEWAY_SECRET
  issuer: staychain
  audience: stay-gateway
rateLimits:
  - key: booking
    ratePerSecond: 10
    burst: 20
idempotency:
  path: /tmp/idem.db
  ttl: 1h
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != ":9750" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.Node.Timeout != 5*time.Second {
		t.Fatalf("unexpected node timeout %s", cfg.Node.Timeout)
	}
	if len(cfg.RateLimits) != 1 || cfg.RateLimits[0].Key != "booking" {
		t.Fatalf("unexpected rate limits %+v", cfg.RateLimits)
	}
	if cfg.Idempotency.TTL != time.Hour {
		t.Fatalf("unexpected idempotency ttl %s", cfg.Idempotency.TTL)
	}
	url, err := cfg.NodeURL()
	if err != nil {
		t.Fatalf("node url: %v", err)
	}
	if url.Scheme != "https" {
		t.Fatalf("unexpected scheme %q", url.Scheme)
	}
}

func TestValidateRejectsPlaintextNodeOutsideDev(t *testing.T) {
	cfg := defaults()
	cfg.Environment = "prod"
	cfg.Node.Endpoint = "http://node.internal:8645"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected plaintext node endpoint to be rejected in prod")
	}
	cfg.AllowInsecure = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("allowInsecureNode should permit plaintext: %v", err)
	}
}

func TestValidateRejectsBadRateLimit(t *testing.T) {
	cfg := defaults()
	cfg.RateLimits = []RateLimitConfig{{Key: "booking", RatePerSecond: 0}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero rate to be rejected")
	}
	cfg.RateLimits = []RateLimitConfig{{Key: "", RatePerSecond: 1}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected empty key to be rejected")
	}
}

func TestSecretsResolveFromEnvironment(t *testing.T) {
	cfg := defaults()
	cfg.Auth.SecretEnv = "TEST_GATEWAY_JWT_SECRET"
	cfg.Node.TokenEnv = "TEST_GATEWAY_NODE_TOKEN"
	t.Setenv("TEST_GATEWAY_JWT_SECRET", "  jwt-secret  ")
	t.Setenv("TEST_GATEWAY_NODE_TOKEN", "node-token")
	if got := cfg.AuthSecret(); got != "jwt-secret" {
		t.Fatalf("unexpected auth secret %q", got)
	}
	if got := cfg.NodeToken(); got != "node-token" {
		t.Fatalf("unexpected node token %q", got)
	}
	cfg.Auth.SecretEnv = ""
	cfg.Auth.Secret = "inline"
	if got := cfg.AuthSecret(); got != "inline" {
		t.Fatalf("inline secret fallback broken, got %q", got)
	}
}
