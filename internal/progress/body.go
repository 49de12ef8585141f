package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// AchievementLimit is how many achievements a listing returns by default.
const AchievementLimit = 10

// Input bounds for body measurements.
const (
	maxBodyWeight = 500
	maxBodyFat    = 100
	maxTitleLen   = 200
)

var (
	// ErrInvalidMeasurement is returned for a measurement with no values or
	// values out of range.
	ErrInvalidMeasurement = errors.New("invalid measurement")
	// ErrInvalidAchievement is returned for an achievement without a title.
	ErrInvalidAchievement = errors.New("invalid achievement")
)

// Store keeps body measurements and achievements per user.
type Store interface {
	SaveMeasurement(ctx context.Context, userID string, m Measurement) (*Measurement, error)
	// ListMeasurements returns measurements taken in [start, end), oldest first.
	ListMeasurements(ctx context.Context, userID string, start, end time.Time) ([]Measurement, error)
	SaveAchievement(ctx context.Context, userID string, a Achievement) (*Achievement, error)
	// ListAchievements returns up to limit achievements, newest first. A
	// limit below one means AchievementLimit.
	ListAchievements(ctx context.Context, userID string, limit int) ([]Achievement, error)
}

// Measurement is one body measurement entry. A zero value was not measured.
type Measurement struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Weight     float64   `json:"weight,omitempty"`
	BodyFat    float64   `json:"bodyFat,omitempty"`
	MuscleMass float64   `json:"muscleMass,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Validate checks that at least one value is set and all are in range.
func (m Measurement) Validate() error {
	if m.Weight == 0 && m.BodyFat == 0 && m.MuscleMass == 0 {
		return fmt.Errorf("%w: weight, bodyFat or muscleMass is required", ErrInvalidMeasurement)
	}
	check := func(name string, v, max float64) error {
		if math.IsNaN(v) || v < 0 || v > max {
			return fmt.Errorf("%w: %s must be in 0..%g", ErrInvalidMeasurement, name, max)
		}
		return nil
	}
	return errors.Join(
		check("weight", m.Weight, maxBodyWeight),
		check("bodyFat", m.BodyFat, maxBodyFat),
		check("muscleMass", m.MuscleMass, maxBodyWeight),
	)
}

// Achievement is an unlocked milestone.
type Achievement struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// Validate checks the achievement has a usable title.
func (a Achievement) Validate() error {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidAchievement)
	}
	if len(title) > maxTitleLen {
		return fmt.Errorf("%w: title longer than %d bytes", ErrInvalidAchievement, maxTitleLen)
	}
	return nil
}

// Point is one value in a measurement history.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Histories splits measurements into one series per value, oldest first.
// Entries without a value are left out of that series.
type Histories struct {
	Weight  []Point `json:"weight"`
	BodyFat []Point `json:"bodyFat"`
	Muscle  []Point `json:"muscle"`
}

// SplitHistories builds the per-value series.
func SplitHistories(ms []Measurement) Histories {
	sorted := slices.Clone(ms)
	slices.SortStableFunc(sorted, func(a, b Measurement) int { return a.CreatedAt.Compare(b.CreatedAt) })

	h := Histories{Weight: []Point{}, BodyFat: []Point{}, Muscle: []Point{}}
	for _, m := range sorted {
		if m.Weight > 0 {
			h.Weight = append(h.Weight, Point{Date: m.CreatedAt, Value: m.Weight})
		}
		if m.BodyFat > 0 {
			h.BodyFat = append(h.BodyFat, Point{Date: m.CreatedAt, Value: m.BodyFat})
		}
		if m.MuscleMass > 0 {
			h.Muscle = append(h.Muscle, Point{Date: m.CreatedAt, Value: m.MuscleMass})
		}
	}
	return h
}

// Stat is the latest value of a series and its change since the first.
type Stat struct {
	Current float64 `json:"current"`
	Change  float64 `json:"change"`
}

// LatestAndChange returns the last value and how far it moved from the
// first. An empty history is all zeros.
func LatestAndChange(history []Point) Stat {
	if len(history) == 0 {
		return Stat{}
	}
	current := history[len(history)-1].Value
	return Stat{Current: current, Change: current - history[0].Value}
}

// LatestStats is the headline view of a period.
type LatestStats struct {
	Weight          Stat     `json:"weight"`
	BodyFat         Stat     `json:"bodyFat"`
	Muscle          Stat     `json:"muscle"`
	PersonalRecords []Record `json:"personalRecords"`
}

// Latest combines the series stats with personal records.
func Latest(h Histories, records []Record) LatestStats {
	if records == nil {
		records = []Record{}
	}
	return LatestStats{
		Weight:          LatestAndChange(h.Weight),
		BodyFat:         LatestAndChange(h.BodyFat),
		Muscle:          LatestAndChange(h.Muscle),
		PersonalRecords: records,
	}
}

// BodyReport is the measurement view of a period.
type BodyReport struct {
	Period       string        `json:"period"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Measurements []Measurement `json:"measurements"`
	Histories
	Latest LatestStats `json:"latest"`
}

// Body builds a BodyReport. records are the personal records of the same
// period.
func Body(period string, start, end time.Time, ms []Measurement, records []Record) BodyReport {
	if ms == nil {
		ms = []Measurement{}
	}
	h := SplitHistories(ms)
	return BodyReport{
		Period:       NormalizePeriod(period),
		Start:        start,
		End:          end,
		Measurements: ms,
		Histories:    h,
		Latest:       Latest(h, records),
	}
}
