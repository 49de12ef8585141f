package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/claude/fitarch/internal/workout"
	"github.com/gorilla/websocket"
)

type completeSetRequest struct {
	Reps   *int     `json:"reps"`
	Weight *float64 `json:"weight"`
}

type finishResponse struct {
	Saved  bool            `json:"saved"`
	Result *workout.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	// API key and identity middleware already ran.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// withRunner hands the user's runner to fn and then drops it from the
// registry if it was left idle.
func (s *Server) withRunner(r *http.Request, fn func(*workout.Runner)) {
	userID := userIDFromContext(r)
	defer s.sessions.Release(userID)
	fn(s.sessions.Get(userID))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withRunner(r, func(run *workout.Runner) {
		writeJSON(w, http.StatusOK, run.Snapshot())
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Plan(r.Context())
	if err != nil {
		s.log.Error("loading plan", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	userID := userIDFromContext(r)
	snap, err := s.sessions.Start(userID, plan)
	if err != nil {
		s.sessions.Release(userID)
	}
	if errors.Is(err, workout.ErrInvalidPlan) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	var req completeSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Reps == nil || *req.Reps < 0 || *req.Reps > maxReps {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("reps must be in 0..%d", maxReps)})
		return
	}
	if req.Weight == nil || math.IsNaN(*req.Weight) || *req.Weight < 0 || *req.Weight > maxWeight {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("weight must be in 0..%d", maxWeight)})
		return
	}

	var snap workout.Snapshot
	var ok bool
	s.withRunner(r, func(run *workout.Runner) {
		snap, ok = run.CompleteSet(*req.Reps, *req.Weight)
	})
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   fmt.Sprintf("set not accepted in phase %s", snap.Phase),
			"session": snap,
		})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	s.withRunner(r, func(run *workout.Runner) {
		writeJSON(w, http.StatusOK, run.SkipRest())
	})
}

func (s *Server) handleToggleCamera(w http.ResponseWriter, r *http.Request) {
	s.withRunner(r, func(run *workout.Runner) {
		writeJSON(w, http.StatusOK, run.ToggleCamera())
	})
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	var res *workout.Result
	var err error
	s.withRunner(r, func(run *workout.Runner) {
		res, err = run.Finish(r.Context(), s.store, userIDFromContext(r))
	})
	switch {
	case errors.Is(err, workout.ErrNoSession):
		writeJSON(w, http.StatusConflict, finishResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, finishResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, finishResponse{Saved: res != nil, Result: res})
	}
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.withRunner(r, (*workout.Runner).End)
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionStream pushes a snapshot after every change until the client
// goes away.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	userID := userIDFromContext(r)
	snaps, cancel := s.sessions.Subscribe(userID)
	defer s.sessions.Release(userID)
	defer cancel()

	// Reads only detect the close; client messages are ignored.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.writeSnapshots(conn, snaps)
	conn.Close()
	<-readDone
}

func (s *Server) writeSnapshots(conn *websocket.Conn, snaps <-chan workout.Snapshot) {
	for snap := range snaps {
		if err := conn.WriteJSON(snap); err != nil {
			s.log.Debug("websocket write failed", "error", err)
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
