// Package scheduler implements the engine's task scheduler: a fixed pool of
// worker goroutines sharing one FIFO task queue.
//
// Producers append tasks under a single mutex and wake one idle worker
// through a condition variable bound to that mutex. Workers pop from the
// front of the queue while holding the lock and run the task after releasing
// it, so a task never blocks other producers or consumers.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                           Scheduler                                 │
//	│                                                                     │
//	│   Schedule(task) / Submit(name, fn) / AddWork(work)                 │
//	│                               │                                     │
//	│                               ▼ lock, push, unlock, Signal()        │
//	│  ┌─────────────────────────────────────────────────────────┐        │
//	│  │                  Task Queue (FIFO, mu)                  │        │
//	│  │  [task1] [task2] [task3] ...                            │        │
//	│  └─────────────────────────────────────────────────────────┘        │
//	│                               │                                     │
//	│                               ▼ lock, wait on cond, pop, unlock     │
//	│  ┌──────────────┐      ┌──────────────┐      ┌──────────────┐       │
//	│  │   Worker 1   │      │   Worker 2   │      │   Worker N   │       │
//	│  └──────────────┘      └──────────────┘      └──────────────┘       │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Lifecycle
//
//	┌─────────┐  Start()  ┌─────────┐  RequestStop()  ┌───────────────┐  workers joined  ┌─────────┐
//	│ Created │──────────►│ Running │────────────────►│ StopRequested │─────────────────►│ Stopped │
//	└─────────┘           └─────────┘                 └───────────────┘                  └─────────┘
//	     │                                                   ▲
//	     └───────────────── RequestStop() ───────────────────┘
//
// The lifecycle is one-shot. Start on anything but a Created scheduler returns
// an AlreadyStartedError. Stop is RequestStop followed by Wait and may be
// called any number of times.
//
// Worker count defaults to runtime.NumCPU. If the runtime reports fewer than
// one CPU the pool falls back to a single worker and logs a warning.
//
// # Worker Loop
//
//	for {
//	    lock
//	    while running && (queue empty || paused) { cond.Wait() }
//	    if queue empty { unlock; exit }      // only after stop was requested
//	    task := pop; unlock
//	    run task inside a recover boundary
//	}
//
// # Shutdown
//
// RequestStop sets the state to StopRequested and broadcasts so that every
// idle worker re-checks its exit condition. Running tasks are never
// interrupted. What happens to the backlog depends on the DrainPolicy:
//
//   - DrainPolicyRun (default): workers keep popping until the queue is empty,
//     then exit. Every task accepted before the stop request runs.
//   - DrainPolicyDiscard: the queue is cleared at stop request. Discarded
//     tasks are counted in Stats and futures resolve with a
//     TaskDiscardedError.
//
// A scheduler stopped before Start has no workers, so its backlog is always
// discarded.
//
// Schedule after the stop request is rejected with a SchedulerStoppedError.
// Tasks may call Schedule and RequestStop freely; a task calling Stop would
// wait for its own worker and deadlock.
//
// # Task Failures
//
// Every task runs inside a recover boundary. A returned error or a recovered
// panic (wrapped in a TaskPanicError) is recorded in the TaskRecord, logged,
// passed to the ErrorHandler and to every Observer. The worker then continues
// with the next task. Observer and ErrorHandler calls have their own recover
// boundary; a panic there is logged and dropped.
//
// Queue depth reports are serialized and carry the length read at report
// time, so the last value an Observer sees matches the final queue length.
//
// # Futures
//
// AddWork layers result-returning work over the queue:
//
//	future := s.AddWork(func(ctx context.Context) (any, error) {
//	    return render(ctx)
//	})
//
//	select {
//	case result := <-future.C():
//	    // result.Data, result.Err
//	case <-ctx.Done():
//	    future.Stop()
//	}
//
// Work contexts stay live while the backlog drains and are cancelled after
// the last worker exits.
//
// # Main Queue
//
// MainQueue holds closures that must run on one owning goroutine. Workers
// Post results to it and the host loop calls ExecuteAll once per iteration.
package scheduler
