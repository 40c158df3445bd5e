package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aqimonitor/aqimonitor/internal/api/models"
	"github.com/aqimonitor/aqimonitor/internal/api/response"
	"github.com/aqimonitor/aqimonitor/internal/history"
)

// HistoryHandler handles historical dataset query endpoints.
type HistoryHandler struct {
	service *history.Service
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(service *history.Service) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// PointQuery handles GET /v1/history/point?city=&date=&hour=.
func (h *HistoryHandler) PointQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	hour, fieldErr := parseHourParam(q.Get("hour"), "hour")
	if fieldErr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*fieldErr})
		return
	}

	result, err := h.service.QueryAt(q.Get("city"), q.Get("date"), hour)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// RangeQuery handles
// GET /v1/history/range?city=&start_date=&start_hour=&end_date=&end_hour=.
func (h *HistoryHandler) RangeQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	startHour, fieldErr := parseHourParam(q.Get("start_hour"), "start_hour")
	if fieldErr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*fieldErr})
		return
	}
	endHour, fieldErr := parseHourParam(q.Get("end_hour"), "end_hour")
	if fieldErr != nil {
		response.BadRequest(w, r, "invalid query parameters", []models.FieldError{*fieldErr})
		return
	}

	series, err := h.service.QueryRange(q.Get("city"), q.Get("start_date"), startHour, q.Get("end_date"), endHour)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, series)
}

// writeQueryError maps service errors onto problem responses. Rejected
// input and absent data are distinct outcomes; anything else is a scan
// failure.
func (h *HistoryHandler) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *history.InvalidQueryError
	switch {
	case errors.As(err, &invalid):
		response.BadRequest(w, r, invalid.Reason, nil)
	case errors.Is(err, history.ErrNoData):
		response.NotFound(w, r, "no observations recorded for the requested city and time")
	default:
		response.InternalError(w, r, "failed to read the observation dataset")
	}
}

// parseHourParam parses an hour query parameter. Range validation happens
// in the service; this only rejects non-numeric input.
func parseHourParam(raw, field string) (int, *models.FieldError) {
	if raw == "" {
		return 0, &models.FieldError{Field: field, Message: "is required", Code: "REQUIRED"}
	}
	hour, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.FieldError{Field: field, Message: "must be an integer", Code: "NOT_A_NUMBER"}
	}
	return hour, nil
}
