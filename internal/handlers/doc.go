// Package handlers implements the HTTP API layer for the engine host.
//
// Handlers delegate to the services layer and only deal with request
// validation, response formatting and HTTP status codes.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     HTTP Request (Gin)                          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Handler (this package)                     │
//	│  - Parameter parsing                                            │
//	│  - Error mapping to HTTP status codes                           │
//	│  - Model-to-API conversion                                      │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Services Layer                             │
//	│  Engine │ History │ Workload                                    │
//	└─────────────────────────────────────────────────────────────────┘
//
// The Handler implements v1.ServerInterface and is mounted with:
//
//	v1.RegisterHandlers(router, handler)
//
// # API Endpoints
//
//	┌────────┬────────────────────┬──────────────────────────────────────┐
//	│ Method │ Endpoint           │ Description                          │
//	├────────┼────────────────────┼──────────────────────────────────────┤
//	│ GET    │ /scheduler         │ Scheduler status and counters        │
//	│ POST   │ /scheduler/pause   │ Hold queued tasks                    │
//	│ POST   │ /scheduler/resume  │ Release queued tasks                 │
//	│ POST   │ /workloads         │ Schedule synthetic frame jobs        │
//	│ GET    │ /tasks             │ List finished tasks with pagination  │
//	│ DELETE │ /tasks?before=     │ Prune history older than a time      │
//	│ GET    │ /tasks/{id}        │ Get one finished task                │
//	└────────┴────────────────────┴──────────────────────────────────────┘
//
// # Workload Handler
//
// POST /workloads
//
//	{ "tasks": 100, "durationMs": 20, "failureRate": 0.1 }
//
// Response: 202 Accepted with the scheduled task ids.
//
// Errors:
//   - 400 Bad Request: malformed body or out of range values
//   - 503 Service Unavailable: the scheduler is stopping or stopped
//
// # Task Handler
//
// GET /tasks query parameters:
//
//	┌────────────┬──────────┬─────────────────────────────────────────┐
//	│ Parameter  │ Type     │ Description                             │
//	├────────────┼──────────┼─────────────────────────────────────────┤
//	│ failed     │ bool     │ Only failed (true) or successful tasks  │
//	│ worker     │ []string │ Filter by worker name (OR logic)        │
//	│ name       │ []string │ Filter by task name (OR logic)          │
//	│ page       │ int      │ Page number (default: 1)                │
//	│ pageSize   │ int      │ Items per page (default: 20, max: 100)  │
//	└────────────┴──────────┴─────────────────────────────────────────┘
//
// Tasks are returned most recent first. GET /tasks/{id} returns 404 when
// the task is not in the history.
package handlers
