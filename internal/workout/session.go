package workout

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/claude/fitarch/internal/pose"
)

// ErrInvalidPlan is returned by Start when the plan is missing or unusable.
var ErrInvalidPlan = errors.New("invalid plan")

// Session is the workout state machine. It is not safe for concurrent use;
// Runner serializes access for callers that need it.
type Session struct {
	now   func() time.Time
	state State
}

// Option configures a Session or Runner.
type Option func(*options)

type options struct {
	now       func() time.Time
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	observer  Observer
	poses     pose.Source
}

// WithClock sets the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		now:       time.Now,
		interval:  time.Second,
		newTicker: NewTimeTicker,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSession returns an idle session.
func NewSession(opts ...Option) *Session {
	o := buildOptions(opts)
	return &Session{now: o.now}
}

// Start begins a session on plan, discarding any previous state.
// An empty plan or one with a non-positive set target is rejected and the
// current state is left untouched.
func (s *Session) Start(plan *Plan) error {
	if plan == nil || len(plan.Exercises) == 0 {
		return ErrInvalidPlan
	}
	for _, ex := range plan.Exercises {
		if ex.TargetSets <= 0 {
			return fmt.Errorf("%w: exercise %q has %d target sets", ErrInvalidPlan, ex.ID, ex.TargetSets)
		}
		if ex.RestSeconds < 0 {
			return fmt.Errorf("%w: exercise %q has negative rest", ErrInvalidPlan, ex.ID)
		}
	}

	startedAt := s.now()
	s.state = State{
		Plan:          plan.clone(),
		CompletedSets: []CompletedSet{},
		IsActive:      true,
		StartedAt:     &startedAt,
	}
	return nil
}

// CompleteSet logs a set for the current exercise and advances the pointers.
// It returns false and changes nothing when the session is idle, resting,
// already complete, or the input is negative.
func (s *Session) CompleteSet(reps int, weight float64) bool {
	if !s.state.IsActive || s.state.IsResting || s.IsComplete() {
		return false
	}
	if reps < 0 || weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return false
	}

	ex := s.state.Plan.Exercises[s.state.CurrentExerciseIndex]
	s.state.CompletedSets = append(s.state.CompletedSets, CompletedSet{
		ExerciseID:   ex.ID,
		ExerciseName: ex.Name,
		SetNumber:    s.state.CurrentSetIndex + 1,
		Reps:         reps,
		Weight:       weight,
		CompletedAt:  s.now(),
	})

	if s.state.CurrentSetIndex+1 < ex.TargetSets {
		s.state.CurrentSetIndex++
		s.rest(ex.RestSeconds)
		return true
	}

	s.state.CurrentSetIndex = 0
	if s.state.CurrentExerciseIndex+1 < len(s.state.Plan.Exercises) {
		s.state.CurrentExerciseIndex++
		s.rest(ex.RestSeconds)
		return true
	}

	s.state.IsResting = false
	s.state.RestRemainingSeconds = 0
	return true
}

// rest enters the resting phase. A zero duration stays in lifting.
func (s *Session) rest(seconds int) {
	s.state.IsResting = seconds > 0
	s.state.RestRemainingSeconds = seconds
}

// SkipRest ends the rest period immediately.
func (s *Session) SkipRest() {
	s.state.IsResting = false
	s.state.RestRemainingSeconds = 0
}

// Tick advances the clock-driven fields. Elapsed time comes from the wall
// clock; rest counts down one second per call.
func (s *Session) Tick() {
	if !s.state.IsActive {
		return
	}
	if s.state.StartedAt != nil {
		if elapsed := int(s.now().Sub(*s.state.StartedAt) / time.Second); elapsed > s.state.ElapsedSeconds {
			s.state.ElapsedSeconds = elapsed
		}
	}
	if s.state.IsResting {
		s.state.RestRemainingSeconds--
		if s.state.RestRemainingSeconds <= 0 {
			s.state.RestRemainingSeconds = 0
			s.state.IsResting = false
		}
	}
}

// End resets the session to idle. It does not persist anything.
func (s *Session) End() {
	s.state = State{}
}

// IsActive reports whether a session is running.
func (s *Session) IsActive() bool {
	return s.state.IsActive
}

// CurrentExercise returns the exercise at the current index.
func (s *Session) CurrentExercise() (Exercise, bool) {
	if s.state.Plan == nil || s.state.CurrentExerciseIndex >= len(s.state.Plan.Exercises) {
		return Exercise{}, false
	}
	return s.state.Plan.Exercises[s.state.CurrentExerciseIndex], true
}

// SetsFor returns the completed sets of one exercise in completion order.
func (s *Session) SetsFor(exerciseID string) []CompletedSet {
	var sets []CompletedSet
	for _, cs := range s.state.CompletedSets {
		if cs.ExerciseID == exerciseID {
			sets = append(sets, cs)
		}
	}
	return sets
}

// IsComplete reports whether every target set of the plan has been logged.
func (s *Session) IsComplete() bool {
	if s.state.Plan == nil {
		return false
	}
	return len(s.state.CompletedSets) == s.state.Plan.TotalSets()
}

// TotalVolume returns the sum of reps * weight over all completed sets.
func (s *Session) TotalVolume() float64 {
	var total float64
	for _, cs := range s.state.CompletedSets {
		total += cs.Volume()
	}
	return total
}

// Phase returns the state machine node.
func (s *Session) Phase() Phase {
	switch {
	case !s.state.IsActive:
		return PhaseIdle
	case s.IsComplete():
		return PhaseComplete
	case s.state.IsResting:
		return PhaseResting
	default:
		return PhaseLifting
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	st := s.state
	st.Plan = s.state.Plan.clone()
	if s.state.CompletedSets != nil {
		st.CompletedSets = append([]CompletedSet(nil), s.state.CompletedSets...)
	}
	if s.state.StartedAt != nil {
		t := *s.state.StartedAt
		st.StartedAt = &t
	}
	return st
}

// Summary builds the record handed to a ResultSink. Elapsed time is taken
// from the clock so a late tick does not shorten the stored duration.
func (s *Session) Summary() Summary {
	now := s.now()
	sum := Summary{
		CompletedSets:  append([]CompletedSet{}, s.state.CompletedSets...),
		ElapsedSeconds: s.state.ElapsedSeconds,
		TotalVolume:    s.TotalVolume(),
		CompletedOn:    now.Format("2006-01-02"),
	}
	if s.state.Plan != nil {
		sum.PlanName = s.state.Plan.Name
	}
	if s.state.StartedAt != nil {
		if elapsed := int(now.Sub(*s.state.StartedAt) / time.Second); elapsed > sum.ElapsedSeconds {
			sum.ElapsedSeconds = elapsed
		}
	}
	return sum
}
