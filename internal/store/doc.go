// Package store implements the data access layer for the engine host.
//
// The store keeps a history of finished scheduler tasks in DuckDB, either in
// memory or in a file under the configured data folder.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Store (facade)                          │
//	├─────────────────────────────────────────────────────────────────┤
//	│                       TaskHistoryStore                          │
//	│                             ▼                                   │
//	│                       task_history                              │
//	├─────────────────────────────────────────────────────────────────┤
//	│                  QueryInterceptor (debug log)                   │
//	├─────────────────────────────────────────────────────────────────┤
//	│                         *sql.DB (duckdb)                        │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Tables
//
// Tables created by migrations (internal/store/migrations/sql/):
//
//	┌────────────────────┬─────────────────────────────────────────────┐
//	│  Table             │  Purpose                                    │
//	├────────────────────┼─────────────────────────────────────────────┤
//	│  task_history      │  One row per finished task execution        │
//	│  schema_migrations │  Migration version tracking                 │
//	└────────────────────┴─────────────────────────────────────────────┘
//
// task_history columns:
//
//	┌───────────────┬───────────┬──────────────────────────────────────┐
//	│  Column       │  Type     │  Description                         │
//	├───────────────┼───────────┼──────────────────────────────────────┤
//	│  id           │  VARCHAR  │  Task UUID (primary key)             │
//	│  name         │  VARCHAR  │  Optional task name                  │
//	│  worker       │  VARCHAR  │  Worker that ran the task            │
//	│  seq          │  BIGINT   │  Dequeue order within one scheduler  │
//	│  started_at   │  TIMESTAMP│  Start time (UTC)                    │
//	│  finished_at  │  TIMESTAMP│  Finish time (UTC)                   │
//	│  error_message│  VARCHAR  │  Task error, empty on success        │
//	│  panicked     │  BOOLEAN  │  Whether the task panicked           │
//	└───────────────┴───────────┴──────────────────────────────────────┘
//
// # QueryInterceptor
//
// All database operations go through a QueryInterceptor that logs each
// statement, its arguments and its duration at debug level.
//
// # Design Patterns
//
// Functional Options:
//   - TaskHistoryStore uses ListOption functions for composable query building
//   - Each option modifies a squirrel.SelectBuilder
//   - The same options drive List and Count so pages and totals agree
package store
