package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	nativecommon "staychain/native/common"
)

// BookingQuota converts the configured quota into the runtime form consumed
// by the booking engine.
func (c *Config) BookingQuota() nativecommon.Quota {
	return nativecommon.Quota{
		MaxRequestsPerEpoch: c.Quota.MaxRequestsPerEpoch,
		MaxRoomsPerEpoch:    c.Quota.MaxRoomsPerEpoch,
		EpochSeconds:        c.Quota.EpochSeconds,
	}
}

// PauseMap flattens the pause flags into the module-name view consumed by
// the node.
func (c *Config) PauseMap() map[string]bool {
	return map[string]bool{
		"booking":  c.Pauses.Booking,
		"supplier": c.Pauses.Supplier,
		"token":    c.Pauses.Token,
	}
}

// RPCToken reads the bearer token from the configured environment variable.
// Empty means mutating RPC methods are disabled.
func (c *Config) RPCToken() string {
	env := strings.TrimSpace(c.RPC.TokenEnv)
	if env == "" {
		env = defaultRPCTokenEnv
	}
	return strings.TrimSpace(os.Getenv(env))
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", c.LogLevel)
}
