package models

import (
	"time"

	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

// TaskExecution is the persisted form of a finished task.
type TaskExecution struct {
	ID         string
	Name       string
	Worker     string
	Seq        uint64
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
	Panicked   bool
}

func NewTaskExecution(rec scheduler.TaskRecord) TaskExecution {
	t := TaskExecution{
		ID:         rec.ID,
		Name:       rec.Name,
		Worker:     rec.Worker,
		Seq:        rec.Seq,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Panicked:   rec.Panicked,
	}
	if rec.Err != nil {
		t.Error = rec.Err.Error()
	}
	return t
}

func (t TaskExecution) Duration() time.Duration {
	return t.FinishedAt.Sub(t.StartedAt)
}

func (t TaskExecution) Failed() bool {
	return t.Error != "" || t.Panicked
}
