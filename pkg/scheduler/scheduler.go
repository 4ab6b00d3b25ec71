package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	srvErrors "github.com/kubev2v/engine-scheduler/pkg/errors"
)

const defaultName = "scheduler"

var ErrNilTask = errors.New("nil task")

// numCPU reports the hardware concurrency. Replaced in tests.
var numCPU = runtime.NumCPU

type queue[T any] []T

func (wq *queue[T]) Len() int { return len(*wq) }

func (wq *queue[T]) Pop() T {
	old := *wq
	x := old[0]
	var zero T
	old[0] = zero
	*wq = old[1:]
	return x
}

func (wq *queue[T]) Push(t T) {
	*wq = append(*wq, t)
}

// Clear empties the queue and returns the items it held.
func (wq *queue[T]) Clear() []T {
	items := *wq
	*wq = nil
	return items
}

type job struct {
	id   string
	name string
	run  TaskFunc
	// done is called on the worker after run returns.
	done func(rec TaskRecord)
	// discard is called instead of run when the job is dropped at shutdown.
	discard func(err error)
}

type counters struct {
	submitted uint64
	executed  uint64
	failed    uint64
	panicked  uint64
	rejected  uint64
	discarded uint64
}

type Scheduler struct {
	name      string
	drain     DrainPolicy
	onError   ErrorHandler
	observers []Observer
	log       *zap.SugaredLogger

	// mu guards everything below it, cond is bound to mu.
	mu       sync.Mutex
	cond     *sync.Cond
	queue    queue[job]
	state    State
	paused   bool
	workers  int
	live     int
	active   int
	seq      uint64
	counters counters

	// depthMu serializes queue depth reports so observers see them in order.
	depthMu sync.Mutex

	wg         sync.WaitGroup
	done       chan struct{}
	mainCtx    context.Context
	mainCancel context.CancelFunc
}

// NewScheduler returns a scheduler with nbWorkers workers. A value <= 0
// sizes the pool to the hardware concurrency when Start is called.
func NewScheduler(nbWorkers int, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		name:       defaultName,
		workers:    nbWorkers,
		done:       make(chan struct{}),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	s.log = zap.S().Named(s.name)
	return s
}

// Start launches the workers and returns once all of them are running.
// It fails if the scheduler was already started or stopped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.state != StateCreated {
		s.mu.Unlock()
		return srvErrors.NewAlreadyStartedError()
	}

	s.workers = s.workerCount(s.workers)
	s.state = StateRunning
	s.live = s.workers
	s.wg.Add(s.workers)
	for i := range s.workers {
		go s.worker(fmt.Sprintf("%s-worker-%d", s.name, i+1))
	}
	workers, queued := s.workers, s.queue.Len()
	s.mu.Unlock()

	go func() {
		s.wg.Wait()
		s.finish()
	}()

	s.log.Infow("scheduler started", "workers", workers, "queued", queued, "drain", s.drain.String())
	return nil
}

// Schedule appends task to the queue. It returns a SchedulerStoppedError once
// stop has been requested. Tasks scheduled before Start run after it.
func (s *Scheduler) Schedule(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	_, err := s.Submit("", func() error {
		task()
		return nil
	})
	return err
}

// Submit schedules a task that may fail and returns its id. Errors and panics
// are recorded and reported but never stop the worker.
func (s *Scheduler) Submit(name string, fn TaskFunc) (string, error) {
	if fn == nil {
		return "", ErrNilTask
	}
	j := job{id: uuid.NewString(), name: name, run: fn}
	if err := s.enqueue(j); err != nil {
		return "", err
	}
	return j.id, nil
}

func (s *Scheduler) enqueue(j job) error {
	s.mu.Lock()
	if s.state >= StateStopRequested {
		s.counters.rejected++
		s.mu.Unlock()
		for _, o := range s.observers {
			s.callback(s.log, "observer", func() { o.TaskRejected("stopped") })
		}
		return srvErrors.NewSchedulerStoppedError()
	}
	s.queue.Push(j)
	s.counters.submitted++
	s.mu.Unlock()

	s.cond.Signal()
	s.notifyDepth()
	return nil
}

// RequestStop flips the scheduler to StopRequested and wakes every worker
// without waiting for them. It is safe to call from inside a task.
func (s *Scheduler) RequestStop() {
	s.mu.Lock()
	if s.state >= StateStopRequested {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = StateStopRequested

	var dropped []job
	// Without workers nothing would ever drain the queue.
	if s.drain == DrainPolicyDiscard || prev == StateCreated {
		dropped = s.queue.Clear()
		s.counters.discarded += uint64(len(dropped))
	}
	s.mu.Unlock()
	s.cond.Broadcast()

	s.log.Infow("stop requested", "discarded", len(dropped))
	for _, j := range dropped {
		if j.discard != nil {
			s.callback(s.log, "discard", func() { j.discard(srvErrors.NewTaskDiscardedError(j.id)) })
		}
	}
	if len(dropped) > 0 {
		s.notifyDepth()
	}

	if prev == StateCreated {
		s.finish()
	}
}

// Wait blocks until every worker has exited. It only returns after stop has
// been requested.
func (s *Scheduler) Wait() {
	<-s.done
}

// Done is closed once the scheduler reaches StateStopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Stop requests shutdown and waits for all workers to exit. Calling it from
// a task deadlocks; use RequestStop there.
func (s *Scheduler) Stop() {
	s.RequestStop()
	s.Wait()
}

// Run starts the scheduler, blocks until ctx is done or the scheduler is
// stopped elsewhere, then stops it.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	s.Stop()
	return nil
}

// Pause keeps idle workers from dequeuing. Running tasks are not affected
// and a stop request overrides the pause.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		s.paused = true
		s.log.Info("scheduler paused")
	}
}

func (s *Scheduler) Resume() {
	s.mu.Lock()
	wasPaused := s.paused
	s.paused = false
	s.mu.Unlock()

	if wasPaused {
		s.cond.Broadcast()
		s.log.Info("scheduler resumed")
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Name() string {
	return s.name
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		State:       s.state,
		Workers:     s.workers,
		LiveWorkers: s.live,
		Queued:      s.queue.Len(),
		Active:      s.active,
		Paused:      s.paused,
		Drain:       s.drain,
		Submitted:   s.counters.submitted,
		Executed:    s.counters.executed,
		Failed:      s.counters.failed,
		Panicked:    s.counters.panicked,
		Rejected:    s.counters.rejected,
		Discarded:   s.counters.discarded,
	}
}

func (s *Scheduler) worker(name string) {
	log := s.log.With("worker", name)
	defer func() {
		s.mu.Lock()
		s.live--
		s.mu.Unlock()
		s.wg.Done()
		log.Debug("worker exited")
	}()

	log.Debug("worker started")
	for {
		j, seq, ok := s.next()
		if !ok {
			return
		}
		s.notifyDepth()
		s.execute(log, name, j, seq)
	}
}

// next blocks until a job is available. It returns false once stop has been
// requested and the queue is empty.
func (s *Scheduler) next() (job, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.state == StateRunning && (s.paused || s.queue.Len() == 0) {
		s.cond.Wait()
	}
	if s.queue.Len() == 0 {
		return job{}, 0, false
	}

	s.active++
	s.seq++
	j := s.queue.Pop()
	return j, s.seq, true
}

func (s *Scheduler) execute(log *zap.SugaredLogger, worker string, j job, seq uint64) {
	rec := TaskRecord{
		ID:        j.id,
		Name:      j.name,
		Worker:    worker,
		Seq:       seq,
		StartedAt: time.Now(),
	}
	rec.Panicked, rec.Err = invoke(j.run)
	rec.FinishedAt = time.Now()

	s.mu.Lock()
	s.active--
	s.counters.executed++
	switch {
	case rec.Panicked:
		s.counters.panicked++
	case rec.Err != nil:
		s.counters.failed++
	}
	s.mu.Unlock()

	if j.done != nil {
		s.callback(log, "done", func() { j.done(rec) })
	}
	if rec.Err != nil {
		log.Errorw("task failed", "task_id", rec.ID, "task_name", rec.Name, "panicked", rec.Panicked, "error", rec.Err)
		if s.onError != nil {
			s.callback(log, "error handler", func() { s.onError(rec) })
		}
	}
	for _, o := range s.observers {
		s.callback(log, "observer", func() { o.TaskFinished(rec) })
	}
}

// callback runs fn behind the same recover boundary as tasks so a faulty
// observer or handler cannot take a worker down.
func (s *Scheduler) callback(log *zap.SugaredLogger, what string, fn func()) {
	if _, err := invoke(func() error {
		fn()
		return nil
	}); err != nil {
		log.Errorw("callback panicked", "callback", what, "error", err)
	}
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	s.state = StateStopped
	executed := s.counters.executed
	s.mu.Unlock()

	s.mainCancel()
	close(s.done)
	s.log.Infow("scheduler stopped", "executed", executed)
}

// notifyDepth reports the current queue length. The length is read while
// holding depthMu, so the last report always reflects the latest change.
func (s *Scheduler) notifyDepth() {
	if len(s.observers) == 0 {
		return
	}
	s.depthMu.Lock()
	defer s.depthMu.Unlock()

	s.mu.Lock()
	depth := s.queue.Len()
	s.mu.Unlock()

	for _, o := range s.observers {
		s.callback(s.log, "observer", func() { o.QueueDepth(depth) })
	}
}

func (s *Scheduler) workerCount(n int) int {
	if n > 0 {
		return n
	}
	if c := numCPU(); c > 0 {
		return c
	}
	s.log.Warn("cannot determine hardware concurrency, falling back to one worker")
	return 1
}

func invoke(fn TaskFunc) (panicked bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			err = srvErrors.NewTaskPanicError(rec)
		}
	}()
	return false, fn()
}
