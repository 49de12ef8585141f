// Package plans supplies the workout plan a session runs.
package plans

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/claude/fitarch/internal/workout"
	"gopkg.in/yaml.v3"
)

// Limits applied to plan files.
const (
	MaxSets   = 20
	MaxWeight = 1000
)

// Source returns the plan for the next session.
type Source interface {
	Plan(ctx context.Context) (*workout.Plan, error)
}

// Static always returns the same plan.
type Static struct {
	plan *workout.Plan
}

// NewStatic wraps plan. The plan is validated once here.
func NewStatic(plan *workout.Plan) (*Static, error) {
	if err := Validate(plan); err != nil {
		return nil, err
	}
	return &Static{plan: plan}, nil
}

// Plan returns a copy of the wrapped plan.
func (s *Static) Plan(context.Context) (*workout.Plan, error) {
	p := *s.plan
	p.Exercises = append([]workout.Exercise(nil), s.plan.Exercises...)
	return &p, nil
}

// Default is the built-in upper body plan used when no plan file is configured.
func Default() *workout.Plan {
	return &workout.Plan{
		ID:   "1",
		Name: "Upper Body Strength",
		Exercises: []workout.Exercise{
			{ID: "1", Name: "Bench Press", TargetSets: 4, TargetReps: "8-10", TargetWeight: 60, RestSeconds: 90, Icon: "🏋️"},
			{ID: "2", Name: "Incline Dumbbell Press", TargetSets: 3, TargetReps: "10-12", TargetWeight: 20, RestSeconds: 60, Icon: "💪"},
			{ID: "3", Name: "Cable Flyes", TargetSets: 3, TargetReps: "12-15", TargetWeight: 15, RestSeconds: 60, Icon: "🔗"},
			{ID: "4", Name: "Shoulder Press", TargetSets: 4, TargetReps: "8-10", TargetWeight: 40, RestSeconds: 90, Icon: "🙌"},
			{ID: "5", Name: "Lateral Raises", TargetSets: 3, TargetReps: "12-15", TargetWeight: 8, RestSeconds: 60, Icon: "🦅"},
			{ID: "6", Name: "Tricep Pushdowns", TargetSets: 3, TargetReps: "12-15", TargetWeight: 25, RestSeconds: 60, Icon: "💪"},
		},
	}
}

// Validate checks a plan can be run.
func Validate(plan *workout.Plan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan is nil", workout.ErrInvalidPlan)
	}
	if len(plan.Exercises) == 0 {
		return fmt.Errorf("%w: plan %q has no exercises", workout.ErrInvalidPlan, plan.Name)
	}
	seen := make(map[string]bool, len(plan.Exercises))
	for i, ex := range plan.Exercises {
		if ex.ID == "" {
			return fmt.Errorf("%w: exercise %d has no id", workout.ErrInvalidPlan, i+1)
		}
		if seen[ex.ID] {
			return fmt.Errorf("%w: duplicate exercise id %q", workout.ErrInvalidPlan, ex.ID)
		}
		seen[ex.ID] = true
		if ex.Name == "" {
			return fmt.Errorf("%w: exercise %q has no name", workout.ErrInvalidPlan, ex.ID)
		}
		if ex.TargetSets < 1 || ex.TargetSets > MaxSets {
			return fmt.Errorf("%w: exercise %q sets must be between 1 and %d, got %d",
				workout.ErrInvalidPlan, ex.ID, MaxSets, ex.TargetSets)
		}
		if ex.RestSeconds < 0 {
			return fmt.Errorf("%w: exercise %q has negative rest", workout.ErrInvalidPlan, ex.ID)
		}
		if ex.TargetWeight < 0 || ex.TargetWeight > MaxWeight {
			return fmt.Errorf("%w: exercise %q weight must be between 0 and %d",
				workout.ErrInvalidPlan, ex.ID, MaxWeight)
		}
	}
	return nil
}

// ParseYAML decodes and validates a plan.
func ParseYAML(r io.Reader) (*workout.Plan, error) {
	var plan workout.Plan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if err := Validate(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LoadYAML reads a plan file.
func LoadYAML(path string) (*workout.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plan file: %w", err)
	}
	defer f.Close()
	return ParseYAML(f)
}

// WriteYAML encodes a plan in the format ParseYAML reads.
func WriteYAML(w io.Writer, plan *workout.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	return enc.Close()
}
