// Package docstore keeps workout results in Cloud Firestore under
// users/{uid}/workouts/{id}, next to the measurements and achievements
// collections.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/claude/fitarch/internal/workout"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection        = "users"
	workoutsCollection     = "workouts"
	measurementsCollection = "measurements"
	achievementsCollection = "achievements"
)

var _ workout.ResultSink = (*Store)(nil)

type setDoc struct {
	ExerciseID   string    `firestore:"exerciseId"`
	ExerciseName string    `firestore:"exerciseName"`
	SetNumber    int       `firestore:"setNumber"`
	Reps         int       `firestore:"reps"`
	Weight       float64   `firestore:"weight"`
	CompletedAt  time.Time `firestore:"completedAt"`
}

type workoutDoc struct {
	WorkoutName   string    `firestore:"workoutName"`
	CompletedSets []setDoc  `firestore:"completedSets"`
	Duration      int       `firestore:"duration"`
	TotalVolume   float64   `firestore:"totalVolume"`
	CreatedAt     time.Time `firestore:"createdAt"`
	Date          string    `firestore:"date"`
}

// Store writes results to Firestore.
type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// Open connects to the project. credentialsFile may be empty to use
// application default credentials or FIRESTORE_EMULATOR_HOST.
func Open(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return New(client), nil
}

// New wraps an existing client.
func New(client *firestore.Client) *Store {
	return &Store{client: client, now: time.Now}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) workouts(userID string) *firestore.CollectionRef {
	return s.userCollection(userID, workoutsCollection)
}

func (s *Store) userCollection(userID, name string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(userID).Collection(name)
}

// SaveResult adds a workout document for the user.
func (s *Store) SaveResult(ctx context.Context, userID string, sum workout.Summary) (*workout.Result, error) {
	if userID == "" {
		return nil, errors.New("saving workout: empty user id")
	}
	res := &workout.Result{
		UserID:    userID,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
		Summary:   sum,
	}
	if res.CompletedOn == "" {
		res.CompletedOn = res.CreatedAt.Format(time.DateOnly)
	}

	ref, _, err := s.workouts(userID).Add(ctx, toDoc(res))
	if err != nil {
		return nil, fmt.Errorf("adding workout document: %w", err)
	}
	res.ID = ref.ID
	return res, nil
}

// ListResults returns the user's workouts created in [start, end), oldest first.
func (s *Store) ListResults(ctx context.Context, userID string, start, end time.Time) ([]workout.Result, error) {
	iter := s.workouts(userID).
		Where("createdAt", ">=", start).
		Where("createdAt", "<", end).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	results := []workout.Result{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing workouts: %w", err)
		}
		r, err := fromSnapshot(userID, snap)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, nil
}

// GetResult loads one workout document.
func (s *Store) GetResult(ctx context.Context, userID, id string) (*workout.Result, error) {
	snap, err := s.workouts(userID).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, workout.ErrResultNotFound
		}
		return nil, fmt.Errorf("getting workout %s: %w", id, err)
	}
	return fromSnapshot(userID, snap)
}

// DeleteResult removes one workout document.
func (s *Store) DeleteResult(ctx context.Context, userID, id string) error {
	_, err := s.workouts(userID).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return workout.ErrResultNotFound
		}
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	return nil
}

func toDoc(res *workout.Result) workoutDoc {
	d := workoutDoc{
		WorkoutName:   res.PlanName,
		CompletedSets: make([]setDoc, len(res.CompletedSets)),
		Duration:      res.ElapsedSeconds,
		TotalVolume:   res.TotalVolume,
		CreatedAt:     res.CreatedAt,
		Date:          res.CompletedOn,
	}
	for i, cs := range res.CompletedSets {
		d.CompletedSets[i] = setDoc(cs)
	}
	return d
}

func fromSnapshot(userID string, snap *firestore.DocumentSnapshot) (*workout.Result, error) {
	var d workoutDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding workout %s: %w", snap.Ref.ID, err)
	}
	res := &workout.Result{
		ID:        snap.Ref.ID,
		UserID:    userID,
		CreatedAt: d.CreatedAt,
		Summary: workout.Summary{
			PlanName:       d.WorkoutName,
			CompletedSets:  make([]workout.CompletedSet, len(d.CompletedSets)),
			ElapsedSeconds: d.Duration,
			TotalVolume:    d.TotalVolume,
			CompletedOn:    d.Date,
		},
	}
	for i, sd := range d.CompletedSets {
		res.CompletedSets[i] = workout.CompletedSet(sd)
	}
	return res, nil
}
