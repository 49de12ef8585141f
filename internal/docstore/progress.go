package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/claude/fitarch/internal/progress"
	"google.golang.org/api/iterator"
)

var _ progress.Store = (*Store)(nil)

type measurementDoc struct {
	Weight     float64   `firestore:"weight,omitempty"`
	BodyFat    float64   `firestore:"bodyFat,omitempty"`
	MuscleMass float64   `firestore:"muscleMass,omitempty"`
	Notes      string    `firestore:"notes,omitempty"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

type achievementDoc struct {
	Title       string    `firestore:"title"`
	Description string    `firestore:"description,omitempty"`
	Icon        string    `firestore:"icon,omitempty"`
	UnlockedAt  time.Time `firestore:"unlockedAt"`
}

// SaveMeasurement adds a measurement document taken now.
func (s *Store) SaveMeasurement(ctx context.Context, userID string, m progress.Measurement) (*progress.Measurement, error) {
	if userID == "" {
		return nil, errors.New("saving measurement: empty user id")
	}
	m.UserID = userID
	m.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	ref, _, err := s.userCollection(userID, measurementsCollection).Add(ctx, measurementToDoc(m))
	if err != nil {
		return nil, fmt.Errorf("adding measurement document: %w", err)
	}
	m.ID = ref.ID
	return &m, nil
}

// ListMeasurements returns the user's measurements taken in [start, end),
// oldest first.
func (s *Store) ListMeasurements(ctx context.Context, userID string, start, end time.Time) ([]progress.Measurement, error) {
	iter := s.userCollection(userID, measurementsCollection).
		Where("createdAt", ">=", start).
		Where("createdAt", "<", end).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	ms := []progress.Measurement{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing measurements: %w", err)
		}
		var d measurementDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decoding measurement %s: %w", snap.Ref.ID, err)
		}
		ms = append(ms, measurementFromDoc(snap.Ref.ID, userID, d))
	}
	return ms, nil
}

// SaveAchievement adds an achievement document unlocked now.
func (s *Store) SaveAchievement(ctx context.Context, userID string, a progress.Achievement) (*progress.Achievement, error) {
	if userID == "" {
		return nil, errors.New("saving achievement: empty user id")
	}
	a.UserID = userID
	a.UnlockedAt = s.now().UTC().Truncate(time.Microsecond)

	ref, _, err := s.userCollection(userID, achievementsCollection).Add(ctx, achievementDoc{
		Title:       a.Title,
		Description: a.Description,
		Icon:        a.Icon,
		UnlockedAt:  a.UnlockedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("adding achievement document: %w", err)
	}
	a.ID = ref.ID
	return &a, nil
}

// ListAchievements returns the user's latest achievements, newest first.
func (s *Store) ListAchievements(ctx context.Context, userID string, limit int) ([]progress.Achievement, error) {
	if limit < 1 {
		limit = progress.AchievementLimit
	}
	iter := s.userCollection(userID, achievementsCollection).
		OrderBy("unlockedAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	out := []progress.Achievement{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing achievements: %w", err)
		}
		var d achievementDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decoding achievement %s: %w", snap.Ref.ID, err)
		}
		out = append(out, progress.Achievement{
			ID:          snap.Ref.ID,
			UserID:      userID,
			Title:       d.Title,
			Description: d.Description,
			Icon:        d.Icon,
			UnlockedAt:  d.UnlockedAt,
		})
	}
	return out, nil
}

func measurementToDoc(m progress.Measurement) measurementDoc {
	return measurementDoc{
		Weight:     m.Weight,
		BodyFat:    m.BodyFat,
		MuscleMass: m.MuscleMass,
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt,
	}
}

func measurementFromDoc(id, userID string, d measurementDoc) progress.Measurement {
	return progress.Measurement{
		ID:         id,
		UserID:     userID,
		Weight:     d.Weight,
		BodyFat:    d.BodyFat,
		MuscleMass: d.MuscleMass,
		Notes:      d.Notes,
		CreatedAt:  d.CreatedAt,
	}
}
