package config

import (
	"fmt"
	"strings"
)

func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if cfg.RPC.RatePerSecond <= 0 {
		return fmt.Errorf("config: RPC.RatePerSecond must be positive")
	}
	if cfg.RPC.RateBurst <= 0 {
		return fmt.Errorf("config: RPC.RateBurst must be positive")
	}
	if cfg.RPC.MaxRequestBody <= 0 {
		return fmt.Errorf("config: RPC.MaxRequestBody must be positive")
	}
	quota := cfg.Quota
	if (quota.MaxRequestsPerEpoch > 0 || quota.MaxRoomsPerEpoch > 0) && quota.EpochSeconds == 0 {
		return fmt.Errorf("config: Quota.EpochSeconds required when quota limits are set")
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return err
	}
	return nil
}
