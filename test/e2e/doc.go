/*
Package main provides end-to-end tests for the engine binary.

# Package Structure

	test/e2e/
	├── main.go          Entry point: flags, config, engine process setup, Ginkgo runner
	├── tests.go         Ginkgo specs (auth, workloads, pause/resume, restart, summary)
	├── doc.go           This file
	├── infra/
	│   ├── infra.go     EngineProcess: starts `engine run`, waits for /health, stops with SIGTERM
	│   └── token.go     HS256 token generation
	└── service/
	    └── service.go   EngineSvc: HTTP client for the engine API with bearer auth

# EngineProcess

EngineProcess runs the binary as a child process with a data folder so the
task history survives restarts. Authentication is enabled through the
ENGINE_AUTH_ENABLED and ENGINE_AUTH_SECRET environment variables. Stop
returns the process stdout, which holds the colored shutdown summary.

	┌──────────┐   HTTP + Bearer   ┌──────────────────────┐
	│  specs   │──────────────────▶│  engine run          │
	└──────────┘                   │  (scheduler, DuckDB) │
	      │          SIGTERM       └──────────────────────┘
	      └──────────────────────────────────▲

# Running

	go build -o bin/engine ./cmd/engine
	go run ./test/e2e -engine-bin bin/engine -port 18000 -workers 4
*/
package main
