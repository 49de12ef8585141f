package alpha

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/claude/fitarch/internal/plans"
	"github.com/claude/fitarch/internal/workout"
)

// ToPlan turns a logged session into a plan that repeats it: one exercise
// per block, as many sets as were worked, at the heaviest working load.
func ToPlan(s Session, restSeconds int) (*workout.Plan, error) {
	plan := &workout.Plan{
		ID:   "alpha-" + s.Date.Format("20060102-1504"),
		Name: s.Name,
	}
	for _, ex := range s.Exercises {
		working := ex.WorkingSets()
		if len(working) == 0 {
			continue
		}
		var top float64
		for _, set := range working {
			top = max(top, set.WeightKg)
		}
		plan.Exercises = append(plan.Exercises, workout.Exercise{
			ID:           strconv.Itoa(ex.Number),
			Name:         ex.Name,
			TargetSets:   min(len(working), plans.MaxSets),
			TargetReps:   strconv.Itoa(ex.TargetReps),
			TargetWeight: top,
			RestSeconds:  restSeconds,
		})
	}
	if err := plans.Validate(plan); err != nil {
		return nil, fmt.Errorf("session %q: %w", s.Name, err)
	}
	return plan, nil
}

// Latest returns the most recent session of an export.
func Latest(sessions []Session) (Session, bool) {
	if len(sessions) == 0 {
		return Session{}, false
	}
	latest := sessions[0]
	for _, s := range sessions[1:] {
		if s.Date.After(latest.Date) {
			latest = s
		}
	}
	return latest, true
}

// FileSource serves a plan built from the latest session in an export file.
// The file is read on every call so a fresh export is picked up.
type FileSource struct {
	path        string
	restSeconds int
}

// NewFileSource returns a Source reading path.
func NewFileSource(path string, restSeconds int) *FileSource {
	return &FileSource{path: path, restSeconds: restSeconds}
}

var _ plans.Source = (*FileSource)(nil)

// Plan parses the export and converts its latest session.
func (f *FileSource) Plan(ctx context.Context) (*workout.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer file.Close()

	sessions, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing export: %w", err)
	}
	latest, ok := Latest(sessions)
	if !ok {
		return nil, fmt.Errorf("%w: export %s has no sessions", workout.ErrInvalidPlan, f.path)
	}
	return ToPlan(latest, f.restSeconds)
}
