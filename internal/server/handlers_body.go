package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/claude/fitarch/internal/progress"
)

const maxAchievementLimit = 50

type measurementRequest struct {
	Weight     float64 `json:"weight"`
	BodyFat    float64 `json:"bodyFat"`
	MuscleMass float64 `json:"muscleMass"`
	Notes      string  `json:"notes"`
}

type achievementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// handleListMeasurements returns the period's measurements, the split
// histories and the latest stats. Personal records come from the same
// period's workouts.
func (s *Server) handleListMeasurements(w http.ResponseWriter, r *http.Request) {
	period := progress.NormalizePeriod(r.URL.Query().Get("period"))
	start, end := progress.Range(period, s.now())
	userID := userIDFromContext(r)

	ms, err := s.store.ListMeasurements(r.Context(), userID, start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	results, err := s.store.ListResults(r.Context(), userID, start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, progress.Body(period, start, end, ms, progress.PersonalRecords(results)))
}

func (s *Server) handleAddMeasurement(w http.ResponseWriter, r *http.Request) {
	var req measurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	m := progress.Measurement{
		Weight:     req.Weight,
		BodyFat:    req.BodyFat,
		MuscleMass: req.MuscleMass,
		Notes:      req.Notes,
	}
	if err := m.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := s.store.SaveMeasurement(r.Context(), userIDFromContext(r), m)
	if err != nil {
		s.log.Error("saving measurement", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	limit := progress.AchievementLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAchievementLimit {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("limit must be an integer in 1..%d", maxAchievementLimit)})
			return
		}
		limit = n
	}

	out, err := s.store.ListAchievements(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddAchievement(w http.ResponseWriter, r *http.Request) {
	var req achievementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	a := progress.Achievement{Title: req.Title, Description: req.Description, Icon: req.Icon}
	if err := a.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := s.store.SaveAchievement(r.Context(), userIDFromContext(r), a)
	if err != nil {
		s.log.Error("saving achievement", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
