package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/kubev2v/engine-scheduler/internal/models"
	srvErrors "github.com/kubev2v/engine-scheduler/pkg/errors"
	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

const (
	maxWorkloadTasks    = 10000
	maxWorkloadDuration = 60000
	frameTaskName       = "frame"
)

// WorkloadSummary counts frame jobs whose completion reached the main queue.
type WorkloadSummary struct {
	Submitted int
	Completed int
	Failed    int
}

type WorkloadOption func(*Workload)

// WithWorkloadRetry replaces the backoff options used for each frame job.
func WithWorkloadRetry(opts ...backoff.RetryOption) WorkloadOption {
	return func(w *Workload) {
		w.retry = opts
	}
}

// WithFailureSource replaces the random source used to decide frame failures.
func WithFailureSource(fn func() float64) WorkloadOption {
	return func(w *Workload) {
		if fn != nil {
			w.roll = fn
		}
	}
}

// Workload schedules batches of synthetic frame jobs. Each job sleeps for the
// requested duration, fails with the requested probability and is retried
// with backoff. Completions are posted to the main queue and accounted for
// when its owner drains it.
type Workload struct {
	scheduler *scheduler.Scheduler
	main      *scheduler.MainQueue
	retry     []backoff.RetryOption
	roll      func() float64
	// mu guards summary and closed. wg.Add happens under mu so Close never
	// races a batch that is still being admitted.
	mu        sync.Mutex
	summary   WorkloadSummary
	closed    bool
	wg        sync.WaitGroup
	log       *zap.SugaredLogger
}

func NewWorkloadService(s *scheduler.Scheduler, main *scheduler.MainQueue, opts ...WorkloadOption) *Workload {
	w := &Workload{
		scheduler: s,
		main:      main,
		roll:      rand.Float64,
		log:       zap.S().Named("workload"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start schedules spec.Tasks frame jobs and returns their task ids.
func (w *Workload) Start(spec models.WorkloadSpec) ([]string, error) {
	if err := validateWorkload(spec); err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.closed || w.scheduler.State() >= scheduler.StateStopRequested {
		w.mu.Unlock()
		return nil, srvErrors.NewSchedulerStoppedError()
	}
	w.summary.Submitted += spec.Tasks
	w.wg.Add(1)
	w.mu.Unlock()

	duration := time.Duration(spec.Duration) * time.Millisecond
	futures := make([]*scheduler.Future[scheduler.Result[any]], 0, spec.Tasks)
	ids := make([]string, 0, spec.Tasks)
	for i := range spec.Tasks {
		f := w.scheduler.AddNamedWork(frameTaskName, w.frame(i, duration, spec.FailureRate))
		futures = append(futures, f)
		ids = append(ids, f.ID())
	}

	w.log.Infow("workload scheduled", "tasks", spec.Tasks, "duration", duration, "failureRate", spec.FailureRate)

	go w.collect(futures)

	return ids, nil
}

// Summary returns the accounted completions so far.
func (w *Workload) Summary() WorkloadSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summary
}

func (w *Workload) frame(idx int, duration time.Duration, failureRate float64) scheduler.Work[any] {
	work := func(ctx context.Context) (any, error) {
		if duration > 0 {
			t := time.NewTimer(duration)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, backoff.Permanent(ctx.Err())
			case <-t.C:
			}
		}
		if failureRate > 0 && w.roll() < failureRate {
			return nil, fmt.Errorf("frame %d failed", idx)
		}
		return idx, nil
	}
	return scheduler.WithRetry(work, w.retry...)
}

// Wait blocks until every scheduled frame has posted its completion to the
// main queue. Stop the scheduler first or the batch may never finish.
func (w *Workload) Wait() {
	w.wg.Wait()
}

// Close refuses new batches and waits for the admitted ones like Wait. Start
// returns a SchedulerStoppedError afterwards.
func (w *Workload) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Workload) collect(futures []*scheduler.Future[scheduler.Result[any]]) {
	defer w.wg.Done()
	for _, f := range futures {
		res := <-f.C()
		id := f.ID()
		w.main.Post(func() {
			w.account(id, res)
		})
	}
}

func (w *Workload) account(id string, res scheduler.Result[any]) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if res.Err != nil {
		w.summary.Failed++
		w.log.Debugw("frame failed", "id", id, "error", res.Err)
		return
	}
	w.summary.Completed++
}

func validateWorkload(spec models.WorkloadSpec) error {
	if spec.Tasks <= 0 || spec.Tasks > maxWorkloadTasks {
		return srvErrors.NewInvalidArgumentError("tasks", fmt.Sprintf("must be between 1 and %d", maxWorkloadTasks))
	}
	if spec.Duration < 0 || spec.Duration > maxWorkloadDuration {
		return srvErrors.NewInvalidArgumentError("durationMs", fmt.Sprintf("must be between 0 and %d", maxWorkloadDuration))
	}
	if spec.FailureRate < 0 || spec.FailureRate > 1 {
		return srvErrors.NewInvalidArgumentError("failureRate", "must be between 0 and 1")
	}
	return nil
}
