// Package server provides the HTTP server for the engine host.
//
// The server uses the Gin web framework. In "prod" mode Gin runs in release
// mode, in "dev" mode in debug mode. The listener is bound in NewServer so a
// port conflict is reported before the scheduler starts taking work.
//
// # Architecture Overview
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                         HTTP Server                           │
//	├───────────────────────────────────────────────────────────────┤
//	│                       Middleware Stack                        │
//	│  ┌─────────────────────────────────────────────────────────┐  │
//	│  │  ginzap.Ginzap (request logging, "http" logger)         │  │
//	│  │  ginzap.RecoveryWithZap (panic recovery with stack)     │  │
//	│  └─────────────────────────────────────────────────────────┘  │
//	├───────────────────────────────────────────────────────────────┤
//	│  /health          liveness                                    │
//	│  /metrics         Prometheus exposition (promhttp)            │
//	├───────────────────────────────────────────────────────────────┤
//	│                       Router (/api/v1)                        │
//	│  ┌─────────────────────────────────────────────────────────┐  │
//	│  │  Authenticator (HS256 bearer token, when enabled)       │  │
//	│  │  Handlers (registered via callback)                     │  │
//	│  └─────────────────────────────────────────────────────────┘  │
//	└───────────────────────────────────────────────────────────────┘
//
// # Authentication
//
// When Auth.Enabled is set, every /api/v1 route requires an
// "Authorization: Bearer <token>" header. Tokens are parsed with
// golang-jwt, must be signed with HS256 using Auth.Secret and must carry an
// expiration. The token subject is stored in the Gin context under
// "subject". /health and /metrics stay open.
//
// # Server Lifecycle
//
//	srv, err := server.NewServer(cfg, registry, func(router *gin.RouterGroup) {
//	    v1.RegisterHandlers(router, handler)
//	})
//
//	// Blocks until ctx is cancelled, then shuts down gracefully
//	err = srv.Start(ctx)
//
// Stop may also be called directly; it waits for in-flight requests.
package server
