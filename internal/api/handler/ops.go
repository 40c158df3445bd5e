// Package handler provides HTTP handlers for the AQIMonitor API.
package handler

import (
	"net/http"
	"time"

	"github.com/aqimonitor/aqimonitor/internal/api/models"
	"github.com/aqimonitor/aqimonitor/internal/api/response"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	readyCheck func() error
}

// NewOpsHandler creates a new OpsHandler. readyCheck may be nil, in which
// case readiness always reports OK.
func NewOpsHandler(version, buildTime string, readyCheck func() error) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		readyCheck: readyCheck,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. The dataset
// file is the only dependency; without it every query would 404.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	if h.readyCheck != nil {
		if err := h.readyCheck(); err != nil {
			health.Status = models.HealthStatusDegraded
			health.Details = map[string]interface{}{"reason": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}
	response.JSON(w, r, http.StatusOK, health)
}
