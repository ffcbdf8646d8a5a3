// Package config provides 12-factor configuration management for stratisd.
//
// Configuration is loaded from environment variables with sensible defaults,
// or from a YAML file layered on the defaults. Either way the result is
// checked with validator struct tags before use.
//
// Configuration Sections:
//   - Bus: which message bus to join, the well-known name and object base path
//   - Status: read-only HTTP status endpoint (host, port, enabled)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting for the status endpoint
//   - Seed: glob of demo seed files replayed at startup
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Status endpoint on %s\n", cfg.Status.Addr())
//
// Environment Variables:
//   - BUS_TYPE (system|session|none), BUS_NAME, BUS_BASE_PATH
//   - STATUS_HOST, STATUS_PORT, STATUS_ENABLED
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SEED_PATTERN
package config
