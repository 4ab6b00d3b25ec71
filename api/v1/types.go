package v1

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type SchedulerStatus struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Paused         bool   `json:"paused"`
	DrainPolicy    string `json:"drainPolicy"`
	Workers        int    `json:"workers"`
	LiveWorkers    int    `json:"liveWorkers"`
	Queued         int    `json:"queued"`
	Active         int    `json:"active"`
	Submitted      uint64 `json:"submitted"`
	Executed       uint64 `json:"executed"`
	Failed         uint64 `json:"failed"`
	Panicked       uint64 `json:"panicked"`
	Rejected       uint64 `json:"rejected"`
	Discarded      uint64 `json:"discarded"`
	HistoryDropped uint64 `json:"historyDropped"`
}

type WorkloadRequest struct {
	Tasks       int     `json:"tasks"`
	DurationMs  int     `json:"durationMs"`
	FailureRate float64 `json:"failureRate"`
}

type WorkloadResponse struct {
	TaskIds []string `json:"taskIds"`
}

type Task struct {
	Id         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Worker     string    `json:"worker"`
	Seq        uint64    `json:"seq"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"durationMs"`
	Error      *string   `json:"error,omitempty"`
	Panicked   bool      `json:"panicked"`
}

type TaskListResponse struct {
	Page      int    `json:"page"`
	PageCount int    `json:"pageCount"`
	Total     int    `json:"total"`
	Tasks     []Task `json:"tasks"`
}

type PruneResponse struct {
	Deleted int64 `json:"deleted"`
}

// GetTasksParams are the query parameters of GET /tasks.
type GetTasksParams struct {
	Failed   *bool    `form:"failed"`
	Worker   []string `form:"worker"`
	Name     []string `form:"name"`
	Page     *int     `form:"page"`
	PageSize *int     `form:"pageSize"`
}

// DeleteTasksParams are the query parameters of DELETE /tasks.
type DeleteTasksParams struct {
	Before time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
}
