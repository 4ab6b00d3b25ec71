package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kubev2v/engine-scheduler/internal/models"
	"github.com/kubev2v/engine-scheduler/internal/store"
	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

const insertTimeout = 5 * time.Second

// History records finished tasks in the store. It is registered as a
// scheduler observer, so TaskFinished runs on worker goroutines and must not
// block: records go through a buffered channel drained by a single writer.
type History struct {
	store   *store.Store
	records chan models.TaskExecution
	dropped atomic.Uint64
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	log     *zap.SugaredLogger
}

func NewHistoryService(st *store.Store, buffer int) *History {
	if buffer <= 0 {
		buffer = 1
	}
	h := &History{
		store:   st,
		records: make(chan models.TaskExecution, buffer),
		done:    make(chan struct{}),
		log:     zap.S().Named("history"),
	}
	go h.run()
	return h
}

func (h *History) TaskFinished(rec scheduler.TaskRecord) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		h.dropped.Add(1)
		return
	}

	select {
	case h.records <- models.NewTaskExecution(rec):
	default:
		h.dropped.Add(1)
		h.log.Warnw("history buffer full, dropping task record", "id", rec.ID, "worker", rec.Worker)
	}
}

func (h *History) TaskRejected(string) {}

func (h *History) QueueDepth(int) {}

// Dropped returns the number of records that were not stored.
func (h *History) Dropped() uint64 {
	return h.dropped.Load()
}

// Close stops accepting records and blocks until the pending ones are written.
func (h *History) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		<-h.done
		return
	}
	h.closed = true
	close(h.records)
	h.mu.Unlock()

	<-h.done
}

func (h *History) run() {
	defer close(h.done)
	for rec := range h.records {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		if err := h.store.TaskHistory().Insert(ctx, rec); err != nil {
			h.dropped.Add(1)
			h.log.Errorw("failed to store task record", "id", rec.ID, "error", err)
		}
		cancel()
	}
}

type TaskListParams struct {
	Failed  *bool
	Workers []string
	Names   []string
	Limit   uint64
	Offset  uint64
}

type TaskListResult struct {
	Tasks []models.TaskExecution
	Total int
}

func (h *History) List(ctx context.Context, params TaskListParams) (*TaskListResult, error) {
	filters := h.buildFilters(params)

	opts := append([]store.ListOption{}, filters...)
	if params.Limit > 0 {
		opts = append(opts, store.WithLimit(params.Limit))
	}
	if params.Offset > 0 {
		opts = append(opts, store.WithOffset(params.Offset))
	}

	tasks, err := h.store.TaskHistory().List(ctx, opts...)
	if err != nil {
		return nil, err
	}

	total, err := h.store.TaskHistory().Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	return &TaskListResult{Tasks: tasks, Total: total}, nil
}

func (h *History) Get(ctx context.Context, id string) (*models.TaskExecution, error) {
	return h.store.TaskHistory().Get(ctx, id)
}

// Prune deletes records of tasks started before t.
func (h *History) Prune(ctx context.Context, t time.Time) (int64, error) {
	n, err := h.store.TaskHistory().DeleteBefore(ctx, t)
	if err != nil {
		return 0, err
	}
	h.log.Infow("task history pruned", "before", t, "deleted", n)
	return n, nil
}

func (h *History) buildFilters(params TaskListParams) []store.ListOption {
	var opts []store.ListOption
	if params.Failed != nil {
		opts = append(opts, store.ByFailed(*params.Failed))
	}
	if len(params.Workers) > 0 {
		opts = append(opts, store.ByWorkers(params.Workers...))
	}
	if len(params.Names) > 0 {
		opts = append(opts, store.ByNames(params.Names...))
	}
	return opts
}
