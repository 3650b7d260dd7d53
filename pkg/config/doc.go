// Package config provides configuration management for the Rune Forge server.
//
// This package handles environment variable loading with type-safe parsing,
// applies secure production defaults, and performs extensive validation of
// all configuration values.
//
// # Loading Configuration
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
// Server settings:
//   - SERVER_PORT: HTTP port (default: 8080)
//   - WEB_DIR: Static file directory (default: "./web")
//   - LOG_LEVEL: Logging verbosity (default: "info")
//
// Timeouts:
//   - SESSION_TIMEOUT: Session inactivity timeout (default: 30m)
//   - REQUEST_TIMEOUT: HTTP request timeout (default: 30s)
//
// Security:
//   - ENABLE_DEV_MODE: Enable development mode (default: true)
//   - ALLOWED_ORIGINS: CORS/WebSocket allowed origins (comma-separated)
//   - MAX_REQUEST_SIZE: Maximum request body size (default: 1MB)
//
// Rate limiting:
//   - RATE_LIMIT_REQUESTS_PER_SECOND: requests per second per IP (default: 5)
//   - RATE_LIMIT_BURST: burst allowance (default: 10)
//
// Retry policy:
//   - RETRY_MAX_ATTEMPTS: Maximum retries (default: 3)
//   - RETRY_INITIAL_DELAY: First retry delay (default: 100ms)
//   - RETRY_MAX_DELAY: Maximum retry delay (default: 30s)
//   - RETRY_BACKOFF_MULTIPLIER: Backoff factor (default: 2.0)
//
// Persistence:
//   - DATA_DIR: Data storage directory (default: "./data")
//   - AUTO_SAVE_INTERVAL: Auto-save frequency (default: 30s)
//
// Authentication:
//   - AUTH_ISSUER: expected JWT issuer (default: "runeforge")
//   - AUTH_AUDIENCE: expected JWT audience (default: "runeforge-clients")
//   - AUTH_PUBLIC_KEY: base64 Ed25519 public key used to verify tokens
//
// Session and world generation:
//   - SESSION_RECONNECT_GRACE: pause before the turn timer resumes on a disconnected current actor (default: 30s)
//   - SESSION_RECONNECT_WINDOW: time before any disconnected principal is demoted to AI control (default: 5m)
//   - SESSION_IDLE_TTL: how long an empty session survives (default: 15m)
//   - SESSION_SWEEP_INTERVAL: how often the broker scans for idle sessions (default: 1m)
//   - TURN_TIME_LIMIT_DEFAULT: per-turn timer (default: 90s)
//   - SNAPSHOT_INTERVAL: full state snapshot frequency (default: 30s)
//   - DEFAULT_MAP_SEED: seed used when a session omits one (default: 1)
//   - MAX_PLAYERS_DEFAULT: default player cap per session (default: 6)
//   - MONSTER_COUNT_DEFAULT: default encounter monster count (default: 4)
//   - ACTION_QUEUE_DEPTH: pending actions buffered per session (default: 32)
//   - ACTION_RATE_PER_SECOND: sustained per-connection action rate (default: 5)
//   - ACTION_RATE_BURST: burst allowance on top (default: 10)
//
// # Validation
//
// All configuration values are validated on load:
//   - Port must be in valid range (1-65535)
//   - Timeouts must meet minimum requirements
//   - Rate limit values must be positive
//   - Retry configuration must be sensible
//   - Auth issuer/audience must be set, and outside dev mode a well-formed
//     Ed25519 public key must be configured
//
// # CORS and WebSocket Origin Support
//
// Use OriginAllowed to check WebSocket origins:
//
//	if cfg.OriginAllowed(origin) {
//	    // Allow connection
//	}
//
// In development mode (EnableDevMode=true), all origins are allowed.
//
// # Retry Configuration
//
// GetRetryConfig returns a retry.RetryConfig that can be used directly
// with the retry package:
//
//	retryConfig := cfg.GetRetryConfig()
//	retrier := retry.NewRetrier(retryConfig)
package config
