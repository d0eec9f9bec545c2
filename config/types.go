package config

// Pauses disables individual native modules at runtime. A paused module
// rejects every mutating operation.
type Pauses struct {
	Booking  bool
	Supplier bool
	Token    bool
}

// Quota bounds per-address booking pressure inside fixed epochs. Zero values
// disable the corresponding limit.
type Quota struct {
	MaxRequestsPerEpoch uint32
	MaxRoomsPerEpoch    uint64
	EpochSeconds        uint32
}

// Telemetry configures the OpenTelemetry exporters.
type Telemetry struct {
	Endpoint      string
	Insecure      bool
	EnableTraces  bool
	EnableMetrics bool
}

// RPC tunes the JSON-RPC listener.
type RPC struct {
	// TokenEnv names the environment variable holding the bearer token that
	// gates mutating methods.
	TokenEnv       string
	RatePerSecond  float64
	RateBurst      int
	MaxRequestBody int64
}
