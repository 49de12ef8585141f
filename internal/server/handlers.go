package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/fitarch/internal/progress"
	"github.com/claude/fitarch/internal/workout"
	"github.com/go-chi/chi/v5"
)

// HTTP input bounds for a logged set.
const (
	maxReps   = 100
	maxWeight = 1000
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Plan(r.Context())
	if err != nil {
		s.log.Error("loading plan", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleQueryWorkouts(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r, s.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	results, err := s.store.ListResults(r.Context(), userIDFromContext(r), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.GetResult(r.Context(), userIDFromContext(r), chi.URLParam(r, "id"))
	if errors.Is(err, workout.ErrResultNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteResult(r.Context(), userIDFromContext(r), chi.URLParam(r, "id"))
	if errors.Is(err, workout.ErrResultNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	period := progress.NormalizePeriod(r.URL.Query().Get("period"))
	start, end := progress.Range(period, s.now())

	results, err := s.store.ListResults(r.Context(), userIDFromContext(r), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, progress.Summarize(period, start, end, results))
}

func (s *Server) handleOneRepMax(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	weight, err := strconv.ParseFloat(q.Get("weight"), 64)
	if err != nil || weight < 0 || weight > maxWeight {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("weight must be a number in 0..%d", maxWeight)})
		return
	}
	reps, err := strconv.Atoi(q.Get("reps"))
	if err != nil || reps < 0 || reps > maxReps {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("reps must be an integer in 0..%d", maxReps)})
		return
	}
	writeJSON(w, http.StatusOK, progress.OneRepMax{
		Estimate: progress.EstimateOneRepMax(weight, reps),
		Weight:   weight,
		Reps:     reps,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request, now time.Time) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = now
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = parseFlexTime(startStr, false)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	if endStr == "" {
		end = now
	} else if end, err = parseFlexTime(endStr, true); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("end must be after start")
	}
	return start, end, nil
}

// parseFlexTime accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseFlexTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24 * time.Hour)
	}
	return t, nil
}
