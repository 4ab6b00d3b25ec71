// Package config defines the configuration structure for the engine host.
//
// Configuration is organized into logical sections (Server, Scheduler,
// Authentication) and gets its defaults from `default` struct tags applied
// by creasty/defaults. Flags are bound in cmd/engine and synced with
// ENGINE_* environment variables through viper.
//
// # Configuration Structure
//
//	Configuration
//	├── Server         - HTTP server settings
//	├── Scheduler      - Worker pool and task history
//	├── Auth           - Authentication settings
//	├── DataFolder     - DuckDB location
//	├── LogFormat      - Logging format
//	└── LogLevel       - Logging verbosity
//
// # Server Configuration
//
//	┌──────────────────┬─────────┬────────────────────────────────────────┐
//	│ Field            │ Default │ Description                            │
//	├──────────────────┼─────────┼────────────────────────────────────────┤
//	│ ServerMode       │ "dev"   │ Server mode: "prod" or "dev"           │
//	│ HTTPPort         │ 8000    │ HTTP server listen port                │
//	│ Disabled         │ false   │ Run the engine without the HTTP API    │
//	└──────────────────┴─────────┴────────────────────────────────────────┘
//
// # Scheduler Configuration
//
//	┌──────────────────┬──────────┬───────────────────────────────────────┐
//	│ Field            │ Default  │ Description                           │
//	├──────────────────┼──────────┼───────────────────────────────────────┤
//	│ Name             │ "engine" │ Scheduler name used in logs/metrics   │
//	│ Workers          │ 0        │ Pool size, 0 uses hardware threads    │
//	│ DrainPolicy      │ "run"    │ Backlog on stop: "run" or "discard"   │
//	│ HistoryBuffer    │ 1024     │ Pending history records before drops  │
//	│ MetricsNamespace │ "engine" │ Prometheus metric namespace           │
//	└──────────────────┴──────────┴───────────────────────────────────────┘
//
// # Authentication Configuration
//
//	┌─────────────┬─────────┬────────────────────────────────────────┐
//	│ Field       │ Default │ Description                            │
//	├─────────────┼─────────┼────────────────────────────────────────┤
//	│ Enabled     │ false   │ Require HS256 bearer tokens on the API │
//	│ Secret      │ ""      │ HMAC key used to verify tokens         │
//	└─────────────┴─────────┴────────────────────────────────────────┘
//
// # Debug Logging
//
// DebugMap returns a map suitable for structured logging. The
// authentication secret is replaced by a placeholder:
//
//	zap.S().Infow("configuration loaded", "config", cfg.DebugMap())
package config
