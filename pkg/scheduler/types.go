package scheduler

import (
	"context"
	"time"
)

// Task is a unit of deferred work with no arguments and no result.
type Task func()

// TaskFunc is a task that reports failure through its return value.
type TaskFunc func() error

type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

type Future[T any] struct {
	id     string
	input  chan T
	cancel context.CancelFunc
}

func NewFuture[T any](input chan T, cancel context.CancelFunc) *Future[T] {
	f := &Future[T]{
		input:  input,
		cancel: cancel,
	}

	return f
}

// ID returns the id of the scheduled task, empty for futures built outside
// the scheduler.
func (f *Future[T]) ID() string {
	return f.id
}

func (f *Future[T]) C() chan T {
	return f.input
}

func (f *Future[T]) Stop() {
	f.cancel()
}

type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopRequested
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopRequested:
		return "stop-requested"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DrainPolicy decides what happens to queued tasks when stop is requested.
type DrainPolicy int

const (
	// DrainPolicyRun runs every queued task before the workers exit.
	DrainPolicyRun DrainPolicy = iota
	// DrainPolicyDiscard drops the backlog when stop is requested.
	DrainPolicyDiscard
)

func (p DrainPolicy) String() string {
	if p == DrainPolicyDiscard {
		return "discard"
	}
	return "run"
}

// TaskRecord describes one finished task execution.
type TaskRecord struct {
	ID         string
	Name       string
	Worker     string
	Seq        uint64 // dequeue order, starting at 1
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
	Panicked   bool
}

func (r TaskRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type Stats struct {
	State       State
	Workers     int
	LiveWorkers int
	Queued      int
	Active      int
	Paused      bool
	Drain       DrainPolicy
	Submitted   uint64
	Executed    uint64
	Failed      uint64
	Panicked    uint64
	Rejected    uint64
	Discarded   uint64
}

// Observer receives scheduler events. Methods are called from worker and
// producer goroutines, never while the scheduler lock is held.
type Observer interface {
	TaskFinished(rec TaskRecord)
	TaskRejected(reason string)
	QueueDepth(depth int)
}

type ErrorHandler func(rec TaskRecord)

type Option func(*Scheduler)

func WithName(name string) Option {
	return func(s *Scheduler) {
		if name != "" {
			s.name = name
		}
	}
}

func WithDrainPolicy(p DrainPolicy) Option {
	return func(s *Scheduler) {
		s.drain = p
	}
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Scheduler) {
		s.onError = h
	}
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}
