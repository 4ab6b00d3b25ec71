package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/engine-scheduler/api/v1"
	srvErrors "github.com/kubev2v/engine-scheduler/pkg/errors"
)

// GetScheduler returns the scheduler status
// (GET /scheduler)
func (h *Handler) GetScheduler(c *gin.Context) {
	var status v1.SchedulerStatus
	status.FromModel(h.engineSrv.Status())
	c.JSON(http.StatusOK, status)
}

// PauseScheduler holds queued tasks until resumed
// (POST /scheduler/pause)
func (h *Handler) PauseScheduler(c *gin.Context) {
	var status v1.SchedulerStatus
	status.FromModel(h.engineSrv.Pause())
	c.JSON(http.StatusOK, status)
}

// ResumeScheduler releases queued tasks
// (POST /scheduler/resume)
func (h *Handler) ResumeScheduler(c *gin.Context) {
	var status v1.SchedulerStatus
	status.FromModel(h.engineSrv.Resume())
	c.JSON(http.StatusOK, status)
}

// CreateWorkload schedules a batch of frame jobs
// (POST /workloads)
func (h *Handler) CreateWorkload(c *gin.Context) {
	var req v1.WorkloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	ids, err := h.workloadSrv.Start(req.ToModel())
	if err != nil {
		switch {
		case srvErrors.IsInvalidArgumentError(err):
			c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
		case srvErrors.IsSchedulerStoppedError(err):
			c.JSON(http.StatusServiceUnavailable, v1.ErrorResponse{Error: err.Error()})
		default:
			zap.S().Named("scheduler_handler").Errorw("failed to start workload", "error", err)
			c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to start workload"})
		}
		return
	}

	c.JSON(http.StatusAccepted, v1.WorkloadResponse{TaskIds: ids})
}
