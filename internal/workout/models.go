package workout

import (
	"errors"
	"time"
)

// ErrResultNotFound is returned by stores when a saved result does not exist
// or belongs to another user.
var ErrResultNotFound = errors.New("workout result not found")

// Exercise is one entry of a plan. It does not change while a session runs.
type Exercise struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	TargetSets   int     `json:"targetSets" yaml:"sets"`
	TargetReps   string  `json:"targetReps" yaml:"target_reps"`
	TargetWeight float64 `json:"targetWeight" yaml:"weight"`
	RestSeconds  int     `json:"restSeconds" yaml:"rest_seconds"`
	Icon         string  `json:"icon,omitempty" yaml:"icon"`
}

// Plan is an ordered list of exercises.
type Plan struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Exercises []Exercise `json:"exercises" yaml:"exercises"`
}

// TotalSets returns the sum of target sets over all exercises.
func (p *Plan) TotalSets() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, ex := range p.Exercises {
		n += ex.TargetSets
	}
	return n
}

func (p *Plan) clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Exercises = append([]Exercise(nil), p.Exercises...)
	return &c
}

// CompletedSet is one logged set.
type CompletedSet struct {
	ExerciseID   string    `json:"exerciseId"`
	ExerciseName string    `json:"exerciseName"`
	SetNumber    int       `json:"setNumber"`
	Reps         int       `json:"reps"`
	Weight       float64   `json:"weight"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Volume returns reps * weight.
func (c CompletedSet) Volume() float64 {
	return float64(c.Reps) * c.Weight
}

// State is the full progression state of a session.
type State struct {
	Plan                 *Plan          `json:"plan"`
	CurrentExerciseIndex int            `json:"currentExerciseIndex"`
	CurrentSetIndex      int            `json:"currentSetIndex"`
	CompletedSets        []CompletedSet `json:"completedSets"`
	IsActive             bool           `json:"isActive"`
	IsResting            bool           `json:"isResting"`
	RestRemainingSeconds int            `json:"restRemainingSeconds"`
	StartedAt            *time.Time     `json:"startedAt"`
	ElapsedSeconds       int            `json:"elapsedSeconds"`
}

// Phase names the state machine node a session is in.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLifting  Phase = "lifting"
	PhaseResting  Phase = "resting"
	PhaseComplete Phase = "complete"
)

// Summary is what a finished session hands to a ResultSink.
type Summary struct {
	PlanName       string         `json:"workoutName"`
	CompletedSets  []CompletedSet `json:"completedSets"`
	ElapsedSeconds int            `json:"duration"`
	TotalVolume    float64        `json:"totalVolume"`
	CompletedOn    string         `json:"date"`
}

// Result is a persisted summary.
type Result struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Summary
}
