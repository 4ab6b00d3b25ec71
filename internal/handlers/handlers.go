package handlers

import (
	"github.com/kubev2v/engine-scheduler/internal/services"
)

type Handler struct {
	engineSrv   *services.Engine
	historySrv  *services.History
	workloadSrv *services.Workload
}

func New(engineSrv *services.Engine, historySrv *services.History, workloadSrv *services.Workload) *Handler {
	return &Handler{
		engineSrv:   engineSrv,
		historySrv:  historySrv,
		workloadSrv: workloadSrv,
	}
}
