package docstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/claude/fitarch/internal/progress"
	"github.com/claude/fitarch/internal/workout"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDocConversion verifies a result survives the document mapping.
func TestDocConversion(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	res := &workout.Result{
		ID:        "abc",
		UserID:    "alice",
		CreatedAt: at,
		Summary: workout.Summary{
			PlanName: "Legs",
			CompletedSets: []workout.CompletedSet{
				{ExerciseID: "squat", ExerciseName: "Squat", SetNumber: 1, Reps: 5, Weight: 100, CompletedAt: at},
			},
			ElapsedSeconds: 1200,
			TotalVolume:    500,
			CompletedOn:    "2026-02-01",
		},
	}

	d := toDoc(res)
	assert.Equal(t, "Legs", d.WorkoutName)
	assert.Equal(t, 1200, d.Duration)
	assert.Equal(t, "2026-02-01", d.Date)
	require.Len(t, d.CompletedSets, 1)
	assert.Equal(t, "Squat", d.CompletedSets[0].ExerciseName)
	assert.Equal(t, 100.0, d.CompletedSets[0].Weight)
}

// TestStoreAgainstEmulator exercises the store against a Firestore emulator.
func TestStoreAgainstEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, "fitarch-test", "")
	require.NoError(t, err)
	defer s.Close()

	user := uuid.NewString()
	now := time.Now().UTC()
	res, err := s.SaveResult(ctx, user, workout.Summary{
		PlanName: "Push",
		CompletedSets: []workout.CompletedSet{
			{ExerciseID: "bench", ExerciseName: "Bench", SetNumber: 1, Reps: 8, Weight: 60, CompletedAt: now},
		},
		TotalVolume: 480,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)

	got, err := s.ListResults(ctx, user, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res.ID, got[0].ID)
	assert.Equal(t, 480.0, got[0].TotalVolume)

	require.NoError(t, s.DeleteResult(ctx, user, res.ID))
	_, err = s.GetResult(ctx, user, res.ID)
	assert.ErrorIs(t, err, workout.ErrResultNotFound)
}

// TestMeasurementDocConversion verifies measurements survive the document
// mapping.
func TestMeasurementDocConversion(t *testing.T) {
	at := time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC)
	m := progress.Measurement{Weight: 80.4, MuscleMass: 37.2, Notes: "morning", CreatedAt: at}

	d := measurementToDoc(m)
	assert.Equal(t, 80.4, d.Weight)
	assert.Zero(t, d.BodyFat)

	got := measurementFromDoc("m1", "alice", d)
	m.ID, m.UserID = "m1", "alice"
	assert.Equal(t, m, got)
}

// TestProgressAgainstEmulator exercises measurements and achievements against
// a Firestore emulator.
func TestProgressAgainstEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, "fitarch-test", "")
	require.NoError(t, err)
	defer s.Close()

	user := uuid.NewString()
	base := time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC)
	for i, w := range []float64{82, 81.5} {
		s.now = func() time.Time { return base.AddDate(0, 0, i) }
		_, err := s.SaveMeasurement(ctx, user, progress.Measurement{Weight: w})
		require.NoError(t, err)
		_, err = s.SaveAchievement(ctx, user, progress.Achievement{Title: fmt.Sprintf("A%d", i)})
		require.NoError(t, err)
	}

	ms, err := s.ListMeasurements(ctx, user, base, base.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 81.5, ms[1].Weight)

	as, err := s.ListAchievements(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "A1", as[0].Title)
}
