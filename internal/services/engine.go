package services

import (
	"github.com/kubev2v/engine-scheduler/internal/models"
	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

type Engine struct {
	scheduler *scheduler.Scheduler
	history   *History
}

func NewEngineService(s *scheduler.Scheduler, h *History) *Engine {
	return &Engine{scheduler: s, history: h}
}

func (e *Engine) Status() models.EngineStatus {
	status := models.EngineStatus{
		Name:  e.scheduler.Name(),
		Stats: e.scheduler.Stats(),
	}
	if e.history != nil {
		status.HistoryDropped = e.history.Dropped()
	}
	return status
}

// Pause holds queued tasks until Resume. Running tasks are not affected.
func (e *Engine) Pause() models.EngineStatus {
	e.scheduler.Pause()
	return e.Status()
}

func (e *Engine) Resume() models.EngineStatus {
	e.scheduler.Resume()
	return e.Status()
}
