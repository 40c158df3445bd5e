package handler

import (
	"errors"
	"net/http"

	"github.com/aqimonitor/aqimonitor/internal/api/models"
	"github.com/aqimonitor/aqimonitor/internal/api/response"
	"github.com/aqimonitor/aqimonitor/internal/current"
)

// CurrentHandler handles the live observation endpoint.
type CurrentHandler struct {
	service *current.Service
}

// NewCurrentHandler creates a new CurrentHandler.
func NewCurrentHandler(service *current.Service) *CurrentHandler {
	return &CurrentHandler{service: service}
}

// Snapshot handles GET /v1/current?city=.
func (h *CurrentHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")

	snapshot, err := h.service.Snapshot(r.Context(), city)
	if err != nil {
		switch {
		case errors.Is(err, current.ErrEmptyCity):
			response.BadRequest(w, r, "invalid query parameters", []models.FieldError{
				{Field: "city", Message: "is required", Code: "REQUIRED"},
			})
		case errors.Is(err, current.ErrCityNotFound):
			response.NotFound(w, r, "city could not be resolved to coordinates")
		case errors.Is(err, current.ErrNoData):
			response.NotFound(w, r, "no current observations for the requested city")
		default:
			response.ServiceUnavailable(w, r, "upstream observation service unavailable")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, snapshot)
}
