package models

import "github.com/kubev2v/engine-scheduler/pkg/scheduler"

type EngineStatus struct {
	Name  string
	Stats scheduler.Stats
	// HistoryDropped counts task records the history recorder could not keep.
	HistoryDropped uint64
}

// WorkloadSpec describes a batch of synthetic frame jobs.
type WorkloadSpec struct {
	Tasks       int
	Duration    int // milliseconds per job
	FailureRate float64
}
