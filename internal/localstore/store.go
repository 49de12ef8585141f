// Package localstore keeps workout results, body measurements and
// achievements in a local SQLite file so the server and the MCP tools work
// without a database server.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/fitarch/internal/workout"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the store directory.
const FileName = "fitarch.db"

var _ workout.ResultSink = (*Store)(nil)

// Store is a SQLite-backed result store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the store at dir/fitarch.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, FileName)+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS workout_results (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			plan_name    TEXT NOT NULL,
			duration_sec INTEGER NOT NULL,
			total_volume REAL NOT NULL,
			completed_on TEXT NOT NULL,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workout_results_user_created
			ON workout_results (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS completed_sets (
			result_id     TEXT NOT NULL REFERENCES workout_results(id) ON DELETE CASCADE,
			position      INTEGER NOT NULL,
			exercise_id   TEXT NOT NULL,
			exercise_name TEXT NOT NULL,
			set_number    INTEGER NOT NULL,
			reps          INTEGER NOT NULL,
			weight        REAL NOT NULL,
			completed_at  TEXT NOT NULL,
			PRIMARY KEY (result_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS body_measurements (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			weight      REAL NOT NULL DEFAULT 0,
			body_fat    REAL NOT NULL DEFAULT 0,
			muscle_mass REAL NOT NULL DEFAULT 0,
			notes       TEXT NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_body_measurements_user_created
			ON body_measurements (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS achievements (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon        TEXT NOT NULL DEFAULT '',
			unlocked_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_achievements_user_unlocked
			ON achievements (user_id, unlocked_at)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating store tables: %w", err)
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveResult stores a finished session and its sets.
func (s *Store) SaveResult(ctx context.Context, userID string, sum workout.Summary) (*workout.Result, error) {
	res := &workout.Result{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		Summary:   sum,
	}
	if res.CompletedOn == "" {
		res.CompletedOn = res.CreatedAt.Format(time.DateOnly)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workout_results (id, user_id, plan_name, duration_sec, total_volume, completed_on, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, userID, res.PlanName, res.ElapsedSeconds, res.TotalVolume, res.CompletedOn, res.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("inserting workout result: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO completed_sets (result_id, position, exercise_id, exercise_name, set_number, reps, weight, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing set insert: %w", err)
	}
	defer stmt.Close()

	for i, cs := range sum.CompletedSets {
		if _, err := stmt.ExecContext(ctx, res.ID, i, cs.ExerciseID, cs.ExerciseName, cs.SetNumber,
			cs.Reps, cs.Weight, cs.CompletedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return nil, fmt.Errorf("inserting completed set: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing workout result: %w", err)
	}
	return res, nil
}

// ListResults returns a user's results created in [start, end), oldest first.
func (s *Store) ListResults(ctx context.Context, userID string, start, end time.Time) ([]workout.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, plan_name, duration_sec, total_volume, completed_on, created_at
		 FROM workout_results
		 WHERE user_id = ? AND created_at >= ? AND created_at < ?
		 ORDER BY created_at`,
		userID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying workout results: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}

	for i := range results {
		sets, err := s.sets(ctx, results[i].ID)
		if err != nil {
			return nil, err
		}
		results[i].CompletedSets = sets
	}
	return results, nil
}

// GetResult returns one of a user's results with its sets.
func (s *Store) GetResult(ctx context.Context, userID, id string) (*workout.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, plan_name, duration_sec, total_volume, completed_on, created_at
		 FROM workout_results WHERE id = ? AND user_id = ?`,
		id, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout result: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, workout.ErrResultNotFound
	}

	res := &results[0]
	if res.CompletedSets, err = s.sets(ctx, id); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteResult removes one of a user's results and its sets.
func (s *Store) DeleteResult(ctx context.Context, userID, id string) error {
	out, err := s.db.ExecContext(ctx,
		`DELETE FROM workout_results WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting workout result: %w", err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting workout result: %w", err)
	}
	if n == 0 {
		return workout.ErrResultNotFound
	}
	return nil
}

func (s *Store) sets(ctx context.Context, resultID string) ([]workout.CompletedSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_id, exercise_name, set_number, reps, weight, completed_at
		 FROM completed_sets WHERE result_id = ? ORDER BY position`,
		resultID)
	if err != nil {
		return nil, fmt.Errorf("querying completed sets: %w", err)
	}
	defer rows.Close()

	sets := []workout.CompletedSet{}
	for rows.Next() {
		var cs workout.CompletedSet
		var at string
		if err := rows.Scan(&cs.ExerciseID, &cs.ExerciseName, &cs.SetNumber, &cs.Reps, &cs.Weight, &at); err != nil {
			return nil, fmt.Errorf("scanning completed set: %w", err)
		}
		if cs.CompletedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing set time %q: %w", at, err)
		}
		sets = append(sets, cs)
	}
	return sets, rows.Err()
}

func scanResults(rows *sql.Rows) ([]workout.Result, error) {
	defer rows.Close()

	results := []workout.Result{}
	for rows.Next() {
		var r workout.Result
		var createdMillis int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.PlanName, &r.ElapsedSeconds,
			&r.TotalVolume, &r.CompletedOn, &createdMillis); err != nil {
			return nil, fmt.Errorf("scanning workout result: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdMillis).UTC()
		results = append(results, r)
	}
	return results, rows.Err()
}
