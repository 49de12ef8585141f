package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/fitarch/internal/progress"
	"github.com/google/uuid"
)

var _ progress.Store = (*Store)(nil)

// SaveMeasurement stores a body measurement taken now.
func (s *Store) SaveMeasurement(ctx context.Context, userID string, m progress.Measurement) (*progress.Measurement, error) {
	m.ID = uuid.NewString()
	m.UserID = userID
	m.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO body_measurements (id, user_id, weight, body_fat, muscle_mass, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, userID, m.Weight, m.BodyFat, m.MuscleMass, m.Notes, m.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("inserting body measurement: %w", err)
	}
	return &m, nil
}

// ListMeasurements returns a user's measurements taken in [start, end),
// oldest first.
func (s *Store) ListMeasurements(ctx context.Context, userID string, start, end time.Time) ([]progress.Measurement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, weight, body_fat, muscle_mass, notes, created_at
		 FROM body_measurements
		 WHERE user_id = ? AND created_at >= ? AND created_at < ?
		 ORDER BY created_at`,
		userID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying body measurements: %w", err)
	}
	defer rows.Close()

	ms := []progress.Measurement{}
	for rows.Next() {
		var m progress.Measurement
		var created int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.Weight, &m.BodyFat, &m.MuscleMass, &m.Notes, &created); err != nil {
			return nil, fmt.Errorf("scanning body measurement: %w", err)
		}
		m.CreatedAt = time.UnixMilli(created).UTC()
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

// SaveAchievement records an achievement unlocked now.
func (s *Store) SaveAchievement(ctx context.Context, userID string, a progress.Achievement) (*progress.Achievement, error) {
	a.ID = uuid.NewString()
	a.UserID = userID
	a.UnlockedAt = s.now().UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements (id, user_id, title, description, icon, unlocked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, userID, a.Title, a.Description, a.Icon, a.UnlockedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("inserting achievement: %w", err)
	}
	return &a, nil
}

// ListAchievements returns a user's latest achievements, newest first.
func (s *Store) ListAchievements(ctx context.Context, userID string, limit int) ([]progress.Achievement, error) {
	if limit < 1 {
		limit = progress.AchievementLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, icon, unlocked_at
		 FROM achievements
		 WHERE user_id = ?
		 ORDER BY unlocked_at DESC, rowid DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying achievements: %w", err)
	}
	defer rows.Close()

	out := []progress.Achievement{}
	for rows.Next() {
		var a progress.Achievement
		var unlocked int64
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.Icon, &unlocked); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		a.UnlockedAt = time.UnixMilli(unlocked).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
