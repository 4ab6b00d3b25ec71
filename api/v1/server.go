package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /scheduler)
	GetScheduler(c *gin.Context)
	// (POST /scheduler/pause)
	PauseScheduler(c *gin.Context)
	// (POST /scheduler/resume)
	ResumeScheduler(c *gin.Context)
	// (POST /workloads)
	CreateWorkload(c *gin.Context)
	// (GET /tasks)
	GetTasks(c *gin.Context, params GetTasksParams)
	// (DELETE /tasks)
	DeleteTasks(c *gin.Context, params DeleteTasksParams)
	// (GET /tasks/{id})
	GetTask(c *gin.Context, id string)
}

// ServerInterfaceWrapper binds request parameters before calling the handler.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetScheduler(c *gin.Context) {
	w.Handler.GetScheduler(c)
}

func (w *ServerInterfaceWrapper) PauseScheduler(c *gin.Context) {
	w.Handler.PauseScheduler(c)
}

func (w *ServerInterfaceWrapper) ResumeScheduler(c *gin.Context) {
	w.Handler.ResumeScheduler(c)
}

func (w *ServerInterfaceWrapper) CreateWorkload(c *gin.Context) {
	w.Handler.CreateWorkload(c)
}

func (w *ServerInterfaceWrapper) GetTasks(c *gin.Context) {
	var params GetTasksParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters: " + err.Error()})
		return
	}
	w.Handler.GetTasks(c, params)
}

func (w *ServerInterfaceWrapper) DeleteTasks(c *gin.Context) {
	var params DeleteTasksParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters: " + err.Error()})
		return
	}
	w.Handler.DeleteTasks(c, params)
}

func (w *ServerInterfaceWrapper) GetTask(c *gin.Context) {
	w.Handler.GetTask(c, c.Param("id"))
}

// RegisterHandlers adds each server route to the router.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.GET("/scheduler", wrapper.GetScheduler)
	router.POST("/scheduler/pause", wrapper.PauseScheduler)
	router.POST("/scheduler/resume", wrapper.ResumeScheduler)
	router.POST("/workloads", wrapper.CreateWorkload)
	router.GET("/tasks", wrapper.GetTasks)
	router.DELETE("/tasks", wrapper.DeleteTasks)
	router.GET("/tasks/:id", wrapper.GetTask)
}
