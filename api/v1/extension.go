package v1

import (
	"github.com/kubev2v/engine-scheduler/internal/models"
	"github.com/kubev2v/engine-scheduler/internal/services"
)

func (s *SchedulerStatus) FromModel(m models.EngineStatus) {
	s.Name = m.Name
	s.State = m.Stats.State.String()
	s.Paused = m.Stats.Paused
	s.DrainPolicy = m.Stats.Drain.String()
	s.Workers = m.Stats.Workers
	s.LiveWorkers = m.Stats.LiveWorkers
	s.Queued = m.Stats.Queued
	s.Active = m.Stats.Active
	s.Submitted = m.Stats.Submitted
	s.Executed = m.Stats.Executed
	s.Failed = m.Stats.Failed
	s.Panicked = m.Stats.Panicked
	s.Rejected = m.Stats.Rejected
	s.Discarded = m.Stats.Discarded
	s.HistoryDropped = m.HistoryDropped
}

// NewTaskFromModel converts a models.TaskExecution to an API Task.
func NewTaskFromModel(t models.TaskExecution) Task {
	apiTask := Task{
		Id:         t.ID,
		Name:       t.Name,
		Worker:     t.Worker,
		Seq:        t.Seq,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
		DurationMs: t.Duration().Milliseconds(),
		Panicked:   t.Panicked,
	}

	if t.Error != "" {
		apiTask.Error = &t.Error
	}

	return apiTask
}

func (r WorkloadRequest) ToModel() models.WorkloadSpec {
	return models.WorkloadSpec{
		Tasks:       r.Tasks,
		Duration:    r.DurationMs,
		FailureRate: r.FailureRate,
	}
}

// ToServiceParams converts query parameters to history list parameters for
// the given page bounds.
func (p GetTasksParams) ToServiceParams(page, pageSize int) services.TaskListParams {
	return services.TaskListParams{
		Failed:  p.Failed,
		Workers: p.Worker,
		Names:   p.Name,
		Limit:   uint64(pageSize),
		Offset:  uint64(page-1) * uint64(pageSize),
	}
}
