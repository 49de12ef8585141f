// Package progress computes statistics over saved workouts.
package progress

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/claude/fitarch/internal/workout"
)

// Periods accepted by Range.
const (
	PeriodWeek        = "1w"
	PeriodMonth       = "1m"
	PeriodThreeMonths = "3m"
	PeriodSixMonths   = "6m"
)

// NormalizePeriod returns period when it is known and PeriodMonth otherwise.
func NormalizePeriod(period string) string {
	switch period {
	case PeriodWeek, PeriodMonth, PeriodThreeMonths, PeriodSixMonths:
		return period
	default:
		return PeriodMonth
	}
}

// Range returns the window [start, now] for a period. Unknown periods mean
// one month.
func Range(period string, now time.Time) (start, end time.Time) {
	switch NormalizePeriod(period) {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), now
	case PeriodThreeMonths:
		return now.AddDate(0, -3, 0), now
	case PeriodSixMonths:
		return now.AddDate(0, -6, 0), now
	default:
		return now.AddDate(0, -1, 0), now
	}
}

// Record is the heaviest set logged for an exercise.
type Record struct {
	Exercise string    `json:"exercise"`
	Weight   float64   `json:"weight"`
	Reps     int       `json:"reps"`
	Date     time.Time `json:"date"`
}

// PersonalRecords returns the heaviest set per exercise name, sorted by name.
// Ties keep the earliest set.
func PersonalRecords(results []workout.Result) []Record {
	best := make(map[string]Record)
	for _, r := range results {
		for _, cs := range r.CompletedSets {
			cur, ok := best[cs.ExerciseName]
			if ok && cs.Weight <= cur.Weight {
				continue
			}
			best[cs.ExerciseName] = Record{
				Exercise: cs.ExerciseName,
				Weight:   cs.Weight,
				Reps:     cs.Reps,
				Date:     setTime(r, cs),
			}
		}
	}

	records := make([]Record, 0, len(best))
	for _, rec := range best {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Exercise < records[j].Exercise })
	return records
}

// WeekVolume is the total volume lifted in one ISO week.
type WeekVolume struct {
	Week   string  `json:"week"`
	Year   int     `json:"year"`
	Volume float64 `json:"volume"`
}

// WeeklyVolume sums workout volume per ISO week in chronological order.
func WeeklyVolume(results []workout.Result) []WeekVolume {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b workout.Result) int { return a.CreatedAt.Compare(b.CreatedAt) })

	var weeks []WeekVolume
	index := make(map[[2]int]int)
	for _, r := range sorted {
		year, week := r.CreatedAt.ISOWeek()
		key := [2]int{year, week}
		i, ok := index[key]
		if !ok {
			i = len(weeks)
			index[key] = i
			weeks = append(weeks, WeekVolume{Week: fmt.Sprintf("W%d", week), Year: year})
		}
		weeks[i].Volume += r.TotalVolume
	}
	return weeks
}

// EstimateOneRepMax applies the Epley formula, rounded to the nearest unit.
// A single rep is its own max. Zero reps leave the weight unchanged.
func EstimateOneRepMax(weight float64, reps int) float64 {
	switch {
	case reps < 0 || weight <= 0:
		return 0
	case reps == 1:
		return weight
	default:
		return math.Round(weight * (1 + float64(reps)/30))
	}
}

// OneRepMax is the best estimated max for an exercise.
type OneRepMax struct {
	Exercise string  `json:"exercise"`
	Estimate float64 `json:"estimate"`
	Weight   float64 `json:"weight"`
	Reps     int     `json:"reps"`
}

// BestOneRepMaxes returns the highest estimate per exercise, sorted by name.
func BestOneRepMaxes(results []workout.Result) []OneRepMax {
	best := make(map[string]OneRepMax)
	for _, r := range results {
		for _, cs := range r.CompletedSets {
			est := EstimateOneRepMax(cs.Weight, cs.Reps)
			if cur, ok := best[cs.ExerciseName]; ok && est <= cur.Estimate {
				continue
			}
			best[cs.ExerciseName] = OneRepMax{Exercise: cs.ExerciseName, Estimate: est, Weight: cs.Weight, Reps: cs.Reps}
		}
	}

	out := make([]OneRepMax, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Exercise < out[j].Exercise })
	return out
}

// Overview summarizes a period of training.
type Overview struct {
	Period          string       `json:"period"`
	Start           time.Time    `json:"start"`
	End             time.Time    `json:"end"`
	Workouts        int          `json:"workouts"`
	TotalSets       int          `json:"totalSets"`
	TotalVolume     float64      `json:"totalVolume"`
	TotalDuration   int          `json:"totalDurationSeconds"`
	AverageVolume   float64      `json:"averageVolume"`
	PersonalRecords []Record     `json:"personalRecords"`
	WeeklyVolume    []WeekVolume `json:"weeklyVolume"`
}

// Summarize builds an Overview of results, which should already be limited
// to [start, end]. Unknown periods are reported as PeriodMonth.
func Summarize(period string, start, end time.Time, results []workout.Result) Overview {
	o := Overview{
		Period:          NormalizePeriod(period),
		Start:           start,
		End:             end,
		Workouts:        len(results),
		PersonalRecords: PersonalRecords(results),
		WeeklyVolume:    WeeklyVolume(results),
	}
	for _, r := range results {
		o.TotalSets += len(r.CompletedSets)
		o.TotalVolume += r.TotalVolume
		o.TotalDuration += r.ElapsedSeconds
	}
	if o.Workouts > 0 {
		o.AverageVolume = o.TotalVolume / float64(o.Workouts)
	}
	return o
}

func setTime(r workout.Result, cs workout.CompletedSet) time.Time {
	if !cs.CompletedAt.IsZero() {
		return cs.CompletedAt
	}
	return r.CreatedAt
}
