package workout

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func singleExercisePlan(sets, rest int) *Plan {
	return &Plan{
		ID:   "p1",
		Name: "Bench Day",
		Exercises: []Exercise{
			{ID: "bench", Name: "Bench Press", TargetSets: sets, TargetReps: "8-10", TargetWeight: 60, RestSeconds: rest},
		},
	}
}

func threeExercisePlan() *Plan {
	return &Plan{
		ID:   "p3",
		Name: "Upper",
		Exercises: []Exercise{
			{ID: "a", Name: "Bench Press", TargetSets: 3, RestSeconds: 90},
			{ID: "b", Name: "Cable Flyes", TargetSets: 2, RestSeconds: 60},
			{ID: "c", Name: "Lateral Raises", TargetSets: 2, RestSeconds: 45},
		},
	}
}

func newTestSession(t *testing.T, plan *Plan) (*Session, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	s := NewSession(WithClock(clock.Now))
	require.NoError(t, s.Start(plan))
	return s, clock
}

// TestStartResetsState verifies Start puts the session in lifting with
// zeroed pointers and the start time recorded.
func TestStartResetsState(t *testing.T) {
	s, clock := newTestSession(t, threeExercisePlan())

	st := s.State()
	assert.True(t, st.IsActive)
	assert.False(t, st.IsResting)
	assert.Equal(t, 0, st.CurrentExerciseIndex)
	assert.Equal(t, 0, st.CurrentSetIndex)
	assert.Empty(t, st.CompletedSets)
	assert.Equal(t, 0, st.RestRemainingSeconds)
	assert.Equal(t, 0, st.ElapsedSeconds)
	require.NotNil(t, st.StartedAt)
	assert.Equal(t, clock.Now(), *st.StartedAt)
	assert.Equal(t, PhaseLifting, s.Phase())
}

// TestStartRejectsInvalidPlan verifies a missing or empty plan is rejected
// and a running session is left alone.
func TestStartRejectsInvalidPlan(t *testing.T) {
	s, _ := newTestSession(t, singleExercisePlan(3, 60))
	require.True(t, s.CompleteSet(10, 60))
	before := s.State()

	tests := []struct {
		name string
		plan *Plan
	}{
		{"nil", nil},
		{"no exercises", &Plan{ID: "x", Name: "Empty"}},
		{"zero sets", &Plan{Exercises: []Exercise{{ID: "a", TargetSets: 0}}}},
		{"negative rest", &Plan{Exercises: []Exercise{{ID: "a", TargetSets: 1, RestSeconds: -5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Start(tt.plan)
			assert.True(t, errors.Is(err, ErrInvalidPlan), "err = %v", err)
			assert.Equal(t, before, s.State())
		})
	}
}

// TestStartFromIdleRejectsInvalidPlan verifies an idle session stays idle.
func TestStartFromIdleRejectsInvalidPlan(t *testing.T) {
	s := NewSession()
	require.ErrorIs(t, s.Start(&Plan{}), ErrInvalidPlan)
	assert.False(t, s.IsActive())
	assert.Equal(t, PhaseIdle, s.Phase())
	_, ok := s.CurrentExercise()
	assert.False(t, ok)
}

// TestRestartOverwrites verifies Start while active does not merge with the
// previous session.
func TestRestartOverwrites(t *testing.T) {
	s, clock := newTestSession(t, threeExercisePlan())
	require.True(t, s.CompleteSet(8, 80))
	clock.Advance(time.Minute)

	require.NoError(t, s.Start(singleExercisePlan(2, 30)))
	st := s.State()
	assert.Empty(t, st.CompletedSets)
	assert.False(t, st.IsResting)
	assert.Equal(t, "Bench Day", st.Plan.Name)
	assert.Equal(t, clock.Now(), *st.StartedAt)
}

// TestStartCopiesPlan verifies later edits to the caller's plan do not leak
// into a running session.
func TestStartCopiesPlan(t *testing.T) {
	plan := singleExercisePlan(2, 60)
	s, _ := newTestSession(t, plan)
	plan.Exercises[0].TargetSets = 10
	plan.Name = "changed"

	assert.Equal(t, 2, s.State().Plan.TotalSets())
	assert.Equal(t, "Bench Day", s.State().Plan.Name)
}

// TestScenarioTwoSetsOneExercise walks a single exercise with two sets to
// completion.
func TestScenarioTwoSetsOneExercise(t *testing.T) {
	s, _ := newTestSession(t, singleExercisePlan(2, 60))

	require.True(t, s.CompleteSet(10, 60))
	st := s.State()
	assert.Equal(t, 1, st.CurrentSetIndex)
	assert.True(t, st.IsResting)
	assert.Equal(t, 60, st.RestRemainingSeconds)

	s.SkipRest()
	require.True(t, s.CompleteSet(8, 60))
	st = s.State()
	assert.True(t, s.IsComplete())
	assert.False(t, st.IsResting)
	assert.Len(t, st.CompletedSets, 2)
	assert.Equal(t, 1080.0, s.TotalVolume())
	assert.Equal(t, PhaseComplete, s.Phase())
}

// TestScenarioRestCountdown verifies three ticks take a three second rest
// through 2, 1, 0 and end it.
func TestScenarioRestCountdown(t *testing.T) {
	s, _ := newTestSession(t, singleExercisePlan(2, 3))
	require.True(t, s.CompleteSet(5, 50))
	require.Equal(t, 3, s.State().RestRemainingSeconds)

	for _, want := range []int{2, 1, 0} {
		s.Tick()
		assert.Equal(t, want, s.State().RestRemainingSeconds)
	}
	assert.False(t, s.State().IsResting)
}

// TestScenarioCompleteSetWhileResting verifies logging during rest changes
// nothing.
func TestScenarioCompleteSetWhileResting(t *testing.T) {
	s, _ := newTestSession(t, singleExercisePlan(3, 60))
	require.True(t, s.CompleteSet(10, 60))
	before := s.State()

	assert.False(t, s.CompleteSet(12, 70))
	assert.Equal(t, before, s.State())
}

// TestScenarioTwoExercisesOneSetEach covers both zero and non-zero rest.
func TestScenarioTwoExercisesOneSetEach(t *testing.T) {
	for _, rest := range []int{0, 45} {
		plan := &Plan{ID: "d", Name: "Quick", Exercises: []Exercise{
			{ID: "x", Name: "Squat", TargetSets: 1, RestSeconds: rest},
			{ID: "y", Name: "Deadlift", TargetSets: 1, RestSeconds: rest},
		}}
		s, _ := newTestSession(t, plan)

		require.True(t, s.CompleteSet(5, 100))
		st := s.State()
		assert.Equal(t, 1, st.CurrentExerciseIndex)
		assert.Equal(t, rest > 0, st.IsResting, "rest=%d", rest)

		s.SkipRest()
		require.True(t, s.CompleteSet(5, 140))
		assert.True(t, s.IsComplete(), "rest=%d", rest)
	}
}

// TestCompleteSetIgnoredWhenIdleOrComplete verifies the remaining illegal
// transitions are no-ops.
func TestCompleteSetIgnoredWhenIdleOrComplete(t *testing.T) {
	idle := NewSession()
	assert.False(t, idle.CompleteSet(10, 10))
	assert.Empty(t, idle.State().CompletedSets)

	s, _ := newTestSession(t, singleExercisePlan(1, 0))
	require.True(t, s.CompleteSet(10, 10))
	require.True(t, s.IsComplete())
	assert.False(t, s.CompleteSet(10, 10))
	assert.Len(t, s.State().CompletedSets, 1)
}

// TestCompleteSetRejectsNegativeInput verifies negative reps or weight are
// ignored while zero is accepted.
func TestCompleteSetRejectsNegativeInput(t *testing.T) {
	s, _ := newTestSession(t, singleExercisePlan(3, 0))
	assert.False(t, s.CompleteSet(-1, 10))
	assert.False(t, s.CompleteSet(5, -2.5))
	assert.Empty(t, s.State().CompletedSets)

	assert.True(t, s.CompleteSet(0, 0))
	assert.Len(t, s.State().CompletedSets, 1)
}

// TestCompletedSetFields verifies the logged set carries the exercise,
// numbering and clock time.
func TestCompletedSetFields(t *testing.T) {
	s, clock := newTestSession(t, singleExercisePlan(2, 0))
	clock.Advance(42 * time.Second)
	require.True(t, s.CompleteSet(9, 62.5))

	got := s.State().CompletedSets[0]
	assert.Equal(t, CompletedSet{
		ExerciseID:   "bench",
		ExerciseName: "Bench Press",
		SetNumber:    1,
		Reps:         9,
		Weight:       62.5,
		CompletedAt:  clock.Now(),
	}, got)
}

// TestSetNumbering verifies each exercise's sets are numbered 1..k.
func TestSetNumbering(t *testing.T) {
	s, _ := newTestSession(t, threeExercisePlan())
	for !s.IsComplete() {
		require.True(t, s.CompleteSet(8, 20))
		s.SkipRest()
	}

	for _, ex := range s.State().Plan.Exercises {
		sets := s.SetsFor(ex.ID)
		require.Len(t, sets, ex.TargetSets)
		for i, cs := range sets {
			assert.Equal(t, i+1, cs.SetNumber, "exercise %s", ex.ID)
		}
	}
	assert.Empty(t, s.SetsFor("unknown"))
}

// TestProgressionToNextExercise verifies finishing an exercise moves to the
// next one and rests with the finished exercise's rest time.
func TestProgressionToNextExercise(t *testing.T) {
	plan := threeExercisePlan()
	s, _ := newTestSession(t, plan)

	for i, ex := range plan.Exercises[:len(plan.Exercises)-1] {
		for set := 0; set < ex.TargetSets; set++ {
			s.SkipRest()
			require.True(t, s.CompleteSet(10, 10))
		}
		st := s.State()
		assert.Equal(t, i+1, st.CurrentExerciseIndex)
		assert.Equal(t, 0, st.CurrentSetIndex)
		assert.True(t, st.IsResting)
		assert.Equal(t, ex.RestSeconds, st.RestRemainingSeconds)

		cur, ok := s.CurrentExercise()
		require.True(t, ok)
		assert.Equal(t, plan.Exercises[i+1].ID, cur.ID)
	}
}

// TestCompletionKeepsLastExercise verifies the final set leaves the pointer
// on the last exercise and clears rest.
func TestCompletionKeepsLastExercise(t *testing.T) {
	plan := threeExercisePlan()
	s, _ := newTestSession(t, plan)
	for !s.IsComplete() {
		s.SkipRest()
		require.True(t, s.CompleteSet(6, 30))
	}

	st := s.State()
	assert.Equal(t, len(plan.Exercises)-1, st.CurrentExerciseIndex)
	assert.Equal(t, 0, st.CurrentSetIndex)
	assert.False(t, st.IsResting)
	assert.Equal(t, 0, st.RestRemainingSeconds)
	assert.Len(t, st.CompletedSets, plan.TotalSets())
}

// TestRestCountdownMonotonic verifies ticks strictly decrease the rest until
// it hits zero and resting then stays off.
func TestRestCountdownMonotonic(t *testing.T) {
	s, _ := newTestSession(t, singleExercisePlan(3, 10))
	require.True(t, s.CompleteSet(10, 10))

	prev := s.State().RestRemainingSeconds
	for s.State().IsResting {
		s.Tick()
		cur := s.State().RestRemainingSeconds
		assert.Less(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 0, prev)

	for i := 0; i < 5; i++ {
		s.Tick()
		assert.False(t, s.State().IsResting)
		assert.Equal(t, 0, s.State().RestRemainingSeconds)
	}

	require.True(t, s.CompleteSet(10, 10))
	assert.True(t, s.State().IsResting)
}

// TestSkipRest verifies skip is a no-op when lifting and always clears rest.
func TestSkipRest(t *testing.T) {
	s, _ := newTestSession(t, singleExercisePlan(3, 90))
	before := s.State()
	s.SkipRest()
	assert.Equal(t, before, s.State())

	require.True(t, s.CompleteSet(10, 10))
	s.Tick()
	s.SkipRest()
	st := s.State()
	assert.False(t, st.IsResting)
	assert.Equal(t, 0, st.RestRemainingSeconds)
	assert.Equal(t, 1, st.CurrentSetIndex)

	s.SkipRest()
	assert.Equal(t, st, s.State())
}

// TestTickElapsedFromClock verifies elapsed time follows the wall clock even
// when ticks are missed.
func TestTickElapsedFromClock(t *testing.T) {
	s, clock := newTestSession(t, singleExercisePlan(3, 90))

	clock.Advance(1500 * time.Millisecond)
	s.Tick()
	assert.Equal(t, 1, s.State().ElapsedSeconds)

	clock.Advance(10 * time.Minute)
	s.Tick()
	assert.Equal(t, 601, s.State().ElapsedSeconds)
}

// TestTickElapsedNeverDecreases verifies a clock stepping backwards does not
// shrink elapsed time.
func TestTickElapsedNeverDecreases(t *testing.T) {
	s, clock := newTestSession(t, singleExercisePlan(3, 90))
	clock.Advance(30 * time.Second)
	s.Tick()
	clock.Advance(-20 * time.Second)
	s.Tick()
	assert.Equal(t, 30, s.State().ElapsedSeconds)
}

// TestTickIdle verifies ticking an idle session does nothing.
func TestTickIdle(t *testing.T) {
	s := NewSession()
	s.Tick()
	assert.Equal(t, State{}, s.State())
}

// TestEndClearsEverything verifies End returns to the idle defaults.
func TestEndClearsEverything(t *testing.T) {
	s, _ := newTestSession(t, threeExercisePlan())
	require.True(t, s.CompleteSet(10, 10))
	s.End()

	assert.Equal(t, State{}, s.State())
	assert.False(t, s.IsComplete())
	assert.Zero(t, s.TotalVolume())
	assert.Equal(t, PhaseIdle, s.Phase())
}

// TestTotalVolumeMatchesSets checks volume against the set log for random
// inputs across a whole plan.
func TestTotalVolumeMatchesSets(t *testing.T) {
	faker := gofakeit.New(2026)
	for run := 0; run < 50; run++ {
		plan := &Plan{ID: "r", Name: "Random"}
		n := faker.IntRange(1, 6)
		for i := 0; i < n; i++ {
			plan.Exercises = append(plan.Exercises, Exercise{
				ID:          faker.UUID(),
				Name:        faker.Word(),
				TargetSets:  faker.IntRange(1, 5),
				RestSeconds: faker.IntRange(0, 120),
			})
		}
		s, _ := newTestSession(t, plan)

		for !s.IsComplete() {
			if faker.Bool() {
				s.Tick()
			}
			s.SkipRest()
			require.True(t, s.CompleteSet(faker.IntRange(0, 30), float64(faker.IntRange(0, 400))/2))
		}

		var want float64
		for _, cs := range s.State().CompletedSets {
			want += float64(cs.Reps) * cs.Weight
		}
		assert.InDelta(t, want, s.TotalVolume(), 1e-9)
		assert.Len(t, s.State().CompletedSets, plan.TotalSets())
	}
}

// TestSummary verifies the summary fields taken from state and clock.
func TestSummary(t *testing.T) {
	s, clock := newTestSession(t, singleExercisePlan(2, 0))
	require.True(t, s.CompleteSet(10, 50))
	require.True(t, s.CompleteSet(8, 55))
	clock.Advance(95 * time.Second)

	sum := s.Summary()
	assert.Equal(t, "Bench Day", sum.PlanName)
	assert.Len(t, sum.CompletedSets, 2)
	assert.Equal(t, 95, sum.ElapsedSeconds)
	assert.Equal(t, 940.0, sum.TotalVolume)
	assert.Equal(t, "2026-03-14", sum.CompletedOn)
}

// TestStateIsCopy verifies callers cannot mutate the session through State.
func TestStateIsCopy(t *testing.T) {
	s, _ := newTestSession(t, singleExercisePlan(3, 0))
	require.True(t, s.CompleteSet(10, 10))

	st := s.State()
	st.CompletedSets[0].Reps = 99
	st.Plan.Exercises[0].Name = "mutated"

	assert.Equal(t, 10, s.State().CompletedSets[0].Reps)
	assert.Equal(t, "Bench Press", s.State().Plan.Exercises[0].Name)
}
