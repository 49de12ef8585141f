package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/fitarch/internal/progress"
	"github.com/claude/fitarch/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days. A bare
// end date includes that whole day.
func defaultTimeRange(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr, true)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = now
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr, false)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func periodOption(def string) mcp.ToolOption {
	return mcp.WithString("period",
		mcp.Description(fmt.Sprintf("Look-back period. Defaults to %s.", def)),
		mcp.Enum(progress.PeriodWeek, progress.PeriodMonth, progress.PeriodThreeMonths, progress.PeriodSixMonths),
	)
}

// --- Tool definitions ---

var toolGetWorkoutHistory = mcp.NewTool("get_workout_history",
	mcp.WithDescription("List finished workouts with every logged set (exercise, set number, reps, weight). Optionally keep only sets of one exercise."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter sets by exercise name (partial match, e.g. 'bench')")),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("Heaviest logged set per exercise with its reps and date, plus the best estimated one-rep max per exercise."),
	periodOption(progress.PeriodSixMonths),
)

var toolGetWeeklyVolume = mcp.NewTool("get_weekly_volume",
	mcp.WithDescription("Total training volume (reps x weight) per ISO week."),
	periodOption(progress.PeriodThreeMonths),
)

var toolGetProgressSummary = mcp.NewTool("get_progress_summary",
	mcp.WithDescription("Workout count, total sets, volume and duration, average volume per workout, personal records and weekly volume for a period."),
	periodOption(progress.PeriodMonth),
)

var toolEstimateOneRepMax = mcp.NewTool("estimate_one_rep_max",
	mcp.WithDescription("Estimate a one-rep max from a set using the Epley formula."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight lifted in kg")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions performed")),
)

// --- Tool handlers ---

func (h *handlers) getWorkoutHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), h.now())
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	results, err := h.ds.ListResults(ctx, UserIDFromContext(ctx), start, end)
	if err != nil {
		h.log.Error("mcp get_workout_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if exercise := strings.ToLower(req.GetString("exercise", "")); exercise != "" {
		results = filterExercise(results, exercise)
	}
	return jsonResult(results)
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, start, end, err := h.period(ctx, req, progress.PeriodSixMonths)
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"start":         start,
		"end":           end,
		"records":       progress.PersonalRecords(results),
		"one_rep_maxes": progress.BestOneRepMaxes(results),
	})
}

func (h *handlers) getWeeklyVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, _, _, err := h.period(ctx, req, progress.PeriodThreeMonths)
	if err != nil {
		h.log.Error("mcp get_weekly_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(progress.WeeklyVolume(results))
}

func (h *handlers) getProgressSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period := progress.NormalizePeriod(req.GetString("period", progress.PeriodMonth))
	results, start, end, err := h.period(ctx, req, progress.PeriodMonth)
	if err != nil {
		h.log.Error("mcp get_progress_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(progress.Summarize(period, start, end, results))
}

func (h *handlers) estimateOneRepMax(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight")
	if err != nil || weight < 0 {
		return mcp.NewToolResultError("weight must be a non-negative number"), nil
	}
	reps, err := req.RequireFloat("reps")
	if err != nil || reps < 0 || reps != float64(int(reps)) {
		return mcp.NewToolResultError("reps must be a non-negative integer"), nil
	}
	return jsonResult(progress.OneRepMax{
		Estimate: progress.EstimateOneRepMax(weight, int(reps)),
		Weight:   weight,
		Reps:     int(reps),
	})
}

func (h *handlers) period(ctx context.Context, req mcp.CallToolRequest, def string) ([]workout.Result, time.Time, time.Time, error) {
	start, end := progress.Range(req.GetString("period", def), h.now())
	results, err := h.ds.ListResults(ctx, UserIDFromContext(ctx), start, end)
	return results, start, end, err
}

func filterExercise(results []workout.Result, exercise string) []workout.Result {
	out := make([]workout.Result, 0, len(results))
	for _, r := range results {
		var sets []workout.CompletedSet
		for _, cs := range r.CompletedSets {
			if strings.Contains(strings.ToLower(cs.ExerciseName), exercise) {
				sets = append(sets, cs)
			}
		}
		if len(sets) == 0 {
			continue
		}
		r.CompletedSets = sets
		out = append(out, r)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
