package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/fitarch/internal/progress"
	"github.com/google/uuid"
)

var _ progress.Store = (*DB)(nil)

// SaveMeasurement stores a body measurement taken now.
func (db *DB) SaveMeasurement(ctx context.Context, userID string, m progress.Measurement) (*progress.Measurement, error) {
	m.ID = uuid.NewString()
	m.UserID = userID
	m.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO body_measurements (id, user_id, weight, body_fat, muscle_mass, notes, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, userID, m.Weight, m.BodyFat, m.MuscleMass, m.Notes, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting body measurement: %w", err)
	}
	return &m, nil
}

// ListMeasurements returns a user's measurements taken in [start, end),
// oldest first.
func (db *DB) ListMeasurements(ctx context.Context, userID string, start, end time.Time) ([]progress.Measurement, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, weight, body_fat, muscle_mass, notes, created_at
		 FROM body_measurements
		 WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying body measurements: %w", err)
	}
	defer rows.Close()

	ms := []progress.Measurement{}
	for rows.Next() {
		var m progress.Measurement
		if err := rows.Scan(&m.ID, &m.UserID, &m.Weight, &m.BodyFat, &m.MuscleMass, &m.Notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning body measurement: %w", err)
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

// SaveAchievement records an achievement unlocked now.
func (db *DB) SaveAchievement(ctx context.Context, userID string, a progress.Achievement) (*progress.Achievement, error) {
	a.ID = uuid.NewString()
	a.UserID = userID
	a.UnlockedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO achievements (id, user_id, title, description, icon, unlocked_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, userID, a.Title, a.Description, a.Icon, a.UnlockedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting achievement: %w", err)
	}
	return &a, nil
}

// ListAchievements returns a user's latest achievements, newest first.
func (db *DB) ListAchievements(ctx context.Context, userID string, limit int) ([]progress.Achievement, error) {
	if limit < 1 {
		limit = progress.AchievementLimit
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, title, description, icon, unlocked_at
		 FROM achievements
		 WHERE user_id = $1
		 ORDER BY unlocked_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying achievements: %w", err)
	}
	defer rows.Close()

	out := []progress.Achievement{}
	for rows.Next() {
		var a progress.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.Icon, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
