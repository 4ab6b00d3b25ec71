package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/engine-scheduler/api/v1"
	srvErrors "github.com/kubev2v/engine-scheduler/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	errPageOutOfRange = errors.New("page and pageSize must be positive")
	errPageTooLarge   = errors.New("page is too large")
)

// GetTasks returns finished task executions with filtering and pagination
// (GET /tasks)
func (h *Handler) GetTasks(c *gin.Context, params v1.GetTasksParams) {
	page := 1
	if params.Page != nil {
		if *params.Page <= 0 {
			c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: errPageOutOfRange.Error()})
			return
		}
		page = *params.Page
	}
	pageSize := defaultPageSize
	if params.PageSize != nil {
		if *params.PageSize <= 0 {
			c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: errPageOutOfRange.Error()})
			return
		}
		pageSize = min(*params.PageSize, maxPageSize)
	}
	if page-1 > math.MaxInt/pageSize {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: errPageTooLarge.Error()})
		return
	}

	result, err := h.historySrv.List(c.Request.Context(), params.ToServiceParams(page, pageSize))
	if err != nil {
		zap.S().Named("task_handler").Errorw("failed to list tasks", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list tasks"})
		return
	}

	pageCount := (result.Total + pageSize - 1) / pageSize
	if pageCount == 0 {
		pageCount = 1
	}

	apiTasks := make([]v1.Task, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		apiTasks = append(apiTasks, v1.NewTaskFromModel(t))
	}

	c.JSON(http.StatusOK, v1.TaskListResponse{
		Page:      page,
		PageCount: pageCount,
		Total:     result.Total,
		Tasks:     apiTasks,
	})
}

// GetTask returns one finished task execution
// (GET /tasks/{id})
func (h *Handler) GetTask(c *gin.Context, id string) {
	t, err := h.historySrv.Get(c.Request.Context(), id)
	if err != nil {
		if srvErrors.IsResourceNotFoundError(err) {
			c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: err.Error()})
			return
		}
		zap.S().Named("task_handler").Errorw("failed to get task", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to get task"})
		return
	}

	c.JSON(http.StatusOK, v1.NewTaskFromModel(*t))
}

// DeleteTasks prunes executions started before the given time
// (DELETE /tasks)
func (h *Handler) DeleteTasks(c *gin.Context, params v1.DeleteTasksParams) {
	n, err := h.historySrv.Prune(c.Request.Context(), params.Before)
	if err != nil {
		zap.S().Named("task_handler").Errorw("failed to prune tasks", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to prune tasks"})
		return
	}

	c.JSON(http.StatusOK, v1.PruneResponse{Deleted: n})
}
