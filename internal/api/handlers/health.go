package handlers

import (
	"net/http"

	"github.com/cloo-solutions/paddock/internal/api"
	"github.com/cloo-solutions/paddock/internal/jobs"
)

type ReadinessReporter interface {
	Status() ([]jobs.CheckStatus, bool)
}

type HealthHandler struct {
	probe ReadinessReporter
}

func NewHealthHandler(probe ReadinessReporter) *HealthHandler {
	return &HealthHandler{probe: probe}
}

type ReadyResponse struct {
	Status string             `json:"status"`
	Checks []jobs.CheckStatus `json:"checks"`
}

// Live reports that the process is serving.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports the latest dependency probe results; 503 until every
// dependency has been seen healthy.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.probe == nil {
		api.Success(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: []jobs.CheckStatus{}})
		return
	}

	checks, ready := h.probe.Status()
	if !ready {
		api.Success(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready", Checks: checks})
		return
	}
	api.Success(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: checks})
}
