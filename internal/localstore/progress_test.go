package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/claude/fitarch/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMeasurements verifies the [start, end) window, ordering and owner
// scoping of body measurements.
func TestMeasurements(t *testing.T) {
	day := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)
	s := openTestStore(t, day)
	ctx := context.Background()
	f := gofakeit.New(11)

	var weights []float64
	for i := 0; i < 4; i++ {
		s.now = func() time.Time { return day.AddDate(0, 0, i) }
		w := f.Float64Range(60, 90)
		weights = append(weights, w)
		_, err := s.SaveMeasurement(ctx, "alice", progress.Measurement{Weight: w, BodyFat: f.Float64Range(10, 25)})
		require.NoError(t, err)
	}
	_, err := s.SaveMeasurement(ctx, "bob", progress.Measurement{MuscleMass: 35})
	require.NoError(t, err)

	got, err := s.ListMeasurements(ctx, "alice", day, day.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, "alice", m.UserID)
		assert.Equal(t, weights[i], m.Weight)
		assert.True(t, day.AddDate(0, 0, i).Equal(m.CreatedAt))
	}
}

// TestAchievements verifies achievements come back newest first, capped at
// the limit.
func TestAchievements(t *testing.T) {
	start := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)
	s := openTestStore(t, start)
	ctx := context.Background()

	titles := []string{"First Workout", "Week Streak", "100 kg Squat"}
	for i, title := range titles {
		s.now = func() time.Time { return start.Add(time.Duration(i) * time.Hour) }
		saved, err := s.SaveAchievement(ctx, "alice", progress.Achievement{Title: title, Icon: "trophy"})
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
	}

	got, err := s.ListAchievements(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "100 kg Squat", got[0].Title)
	assert.Equal(t, "Week Streak", got[1].Title)
	assert.Equal(t, "trophy", got[0].Icon)

	got, err = s.ListAchievements(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = s.ListAchievements(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
