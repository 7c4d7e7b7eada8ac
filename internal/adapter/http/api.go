package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/glof-risk-service/internal/domain"
)

const (
	defaultWindow = 3
	minWindow     = 1
	maxWindow     = 30

	defaultReadingsLimit = 7
	defaultAlertsLimit   = 10
	maxListLimit         = 100

	maxAlertBodyBytes = 64 << 10
)

// assessmentView is a RiskAssessment with the display attributes of its combined level.
type assessmentView struct {
	domain.RiskAssessment
	Presentation domain.Presentation `json:"presentation"`
}

type riskResponse struct {
	Window      int              `json:"window"`
	Assessments []assessmentView `json:"assessments"`
	Current     *assessmentView  `json:"current"`
}

type readingsResponse struct {
	Readings []domain.Reading `json:"readings"`
	Current  *domain.Reading  `json:"current"`
}

type alertsResponse struct {
	Alerts []domain.Alert `json:"alerts"`
}

type createAlertRequest struct {
	Message   string `json:"message"`
	CreatedBy string `json:"createdBy"`
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	window, err := queryInt(r, "window", s.defaultWindow, minWindow, maxWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := s.readings.FetchRecent(r.Context(), window)
	if err != nil {
		s.logger.Error("fetch readings for risk window failed", "error", err, "window", window)
		writeError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	assessments := domain.AssessWindow(readings)
	resp := riskResponse{Window: window, Assessments: make([]assessmentView, len(assessments))}
	for i, a := range assessments {
		resp.Assessments[i] = assessmentView{RiskAssessment: a, Presentation: domain.Present(a.CombinedRisk)}
	}
	if n := len(resp.Assessments); n > 0 {
		resp.Current = &resp.Assessments[n-1]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultReadingsLimit, 1, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := s.readings.FetchRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("fetch readings failed", "error", err, "limit", limit)
		writeError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	resp := readingsResponse{Readings: readings}
	if n := len(readings); n > 0 {
		resp.Current = &readings[n-1]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultAlertsLimit, 1, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := s.alerts.ListAlerts(r.Context(), limit)
	if err != nil {
		s.logger.Error("list alerts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}
	writeJSON(w, http.StatusOK, alertsResponse{Alerts: alerts})
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAlertBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	alert, err := domain.NewAlert(req.Message, req.CreatedBy)
	if errors.Is(err, domain.ErrInvalidAlert) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create alert")
		return
	}

	if err := s.alerts.SaveAlert(r.Context(), alert); err != nil {
		s.logger.Error("save alert failed", "error", err, "alert_id", alert.ID)
		writeError(w, http.StatusInternalServerError, "failed to save alert")
		return
	}

	s.logger.Info("alert issued", "alert_id", alert.ID, "created_by", alert.CreatedBy)
	writeJSON(w, http.StatusCreated, alert)
}

// queryInt parses an optional integer query parameter within [lo, hi].
func queryInt(r *http.Request, name string, fallback, lo, hi int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}
