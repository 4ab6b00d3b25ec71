// Package services implements the business logic layer for the engine host.
//
// Services sit between the HTTP handlers and the scheduler or the store.
//
// # Service Dependency Graph
//
//	Handlers (HTTP endpoints)
//	    │
//	    ▼
//	Services Layer
//	    ├── Engine ───► Scheduler, History
//	    ├── History ──► Store           (scheduler observer)
//	    └── Workload ─► Scheduler, MainQueue
//
// # History
//
// History is registered on the scheduler with scheduler.WithObserver. Worker
// goroutines hand finished task records to a buffered channel; one writer
// goroutine inserts them in the task_history table. When the buffer is full
// the record is dropped, a warning is logged and the dropped counter grows.
//
//	worker ──TaskFinished──► [ buffered chan ] ──► writer ──► TaskHistoryStore
//	                                │
//	                             (full) ──► dropped++
//
// Close stops accepting records and waits for the writer to flush the buffer.
// Call it after the scheduler has stopped so no record is lost.
//
// # Workload
//
// Workload schedules batches of synthetic frame jobs with AddNamedWork. Each
// job is wrapped with scheduler.WithRetry. One collector goroutine per batch
// waits on the futures in submission order and posts the accounting of every
// result to the MainQueue, so the summary is updated by the queue owner:
//
//	Start ──► AddNamedWork × N ──► futures ──► collector ──► MainQueue.Post
//	                                                          │
//	                                   owner: ExecuteAll ◄────┘
//
// Start fails with an InvalidArgumentError for out of range parameters and
// with a SchedulerStoppedError once the scheduler is stopping.
//
// # Engine
//
// Engine exposes the scheduler status and the pause and resume controls.
package services
