package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/fitarch/internal/workout"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ workout.ResultSink = (*DB)(nil)

// SaveResult stores a finished session and its sets in one transaction.
func (db *DB) SaveResult(ctx context.Context, userID string, s workout.Summary) (*workout.Result, error) {
	res := &workout.Result{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Summary:   s,
	}
	completedOn, err := time.Parse("2006-01-02", s.CompletedOn)
	if err != nil {
		completedOn = res.CreatedAt
		res.CompletedOn = completedOn.Format("2006-01-02")
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_results (id, user_id, plan_name, duration_sec, total_volume, completed_on, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		res.ID, userID, s.PlanName, s.ElapsedSeconds, s.TotalVolume, completedOn, res.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting workout result: %w", err)
	}

	if len(s.CompletedSets) > 0 {
		query := `INSERT INTO completed_sets (result_id, position, exercise_id, exercise_name, set_number, reps, weight, completed_at) VALUES `
		args := make([]any, 0, len(s.CompletedSets)*8)
		valueStrings := make([]string, 0, len(s.CompletedSets))

		for i, cs := range s.CompletedSets {
			base := i * 8
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
			))
			args = append(args, res.ID, i, cs.ExerciseID, cs.ExerciseName, cs.SetNumber, cs.Reps, cs.Weight, cs.CompletedAt)
		}

		if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
			return nil, fmt.Errorf("inserting completed sets: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing workout result: %w", err)
	}
	return res, nil
}

// ListResults returns a user's results created in [start, end), oldest first.
func (db *DB) ListResults(ctx context.Context, userID string, start, end time.Time) ([]workout.Result, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, plan_name, duration_sec, total_volume, completed_on, created_at
		 FROM workout_results
		 WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workout results: %w", err)
	}
	results, err := scanResults(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]string, len(results))
	byID := make(map[string]int, len(results))
	for i, r := range results {
		ids[i] = r.ID
		byID[r.ID] = i
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT result_id, exercise_id, exercise_name, set_number, reps, weight, completed_at
		 FROM completed_sets
		 WHERE result_id = ANY($1::uuid[])
		 ORDER BY result_id, position`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("querying completed sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var resultID string
		var cs workout.CompletedSet
		if err := setRows.Scan(&resultID, &cs.ExerciseID, &cs.ExerciseName, &cs.SetNumber,
			&cs.Reps, &cs.Weight, &cs.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning completed set: %w", err)
		}
		if i, ok := byID[resultID]; ok {
			results[i].CompletedSets = append(results[i].CompletedSets, cs)
		}
	}
	return results, setRows.Err()
}

// GetResult returns one of a user's results with its sets.
func (db *DB) GetResult(ctx context.Context, userID, id string) (*workout.Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, workout.ErrResultNotFound
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, plan_name, duration_sec, total_volume, completed_on, created_at
		 FROM workout_results WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout result: %w", err)
	}
	results, err := scanResults(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, workout.ErrResultNotFound
	}
	res := &results[0]

	setRows, err := db.Pool.Query(ctx,
		`SELECT exercise_id, exercise_name, set_number, reps, weight, completed_at
		 FROM completed_sets WHERE result_id = $1 ORDER BY position`,
		id)
	if err != nil {
		return nil, fmt.Errorf("querying completed sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var cs workout.CompletedSet
		if err := setRows.Scan(&cs.ExerciseID, &cs.ExerciseName, &cs.SetNumber,
			&cs.Reps, &cs.Weight, &cs.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning completed set: %w", err)
		}
		res.CompletedSets = append(res.CompletedSets, cs)
	}
	return res, setRows.Err()
}

// DeleteResult removes one of a user's results. Sets go with it.
func (db *DB) DeleteResult(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return workout.ErrResultNotFound
	}
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_results WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting workout result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return workout.ErrResultNotFound
	}
	return nil
}

func scanResults(rows pgx.Rows) ([]workout.Result, error) {
	results := []workout.Result{}
	for rows.Next() {
		var r workout.Result
		var completedOn time.Time
		if err := rows.Scan(&r.ID, &r.UserID, &r.PlanName, &r.ElapsedSeconds,
			&r.TotalVolume, &completedOn, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning workout result: %w", err)
		}
		r.CompletedOn = completedOn.Format("2006-01-02")
		r.CompletedSets = []workout.CompletedSet{}
		results = append(results, r)
	}
	return results, rows.Err()
}
