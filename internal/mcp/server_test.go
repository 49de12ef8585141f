package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/fitarch/internal/progress"
	"github.com/claude/fitarch/internal/workout"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	results []workout.Result
	err     error

	gotUser          string
	gotStart, gotEnd time.Time
}

func (f *fakeSource) ListResults(_ context.Context, userID string, start, end time.Time) ([]workout.Result, error) {
	f.gotUser, f.gotStart, f.gotEnd = userID, start, end
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.DiscardHandler), now: func() time.Time { return testNow }}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func sampleResults() []workout.Result {
	day := testNow.AddDate(0, 0, -3)
	return []workout.Result{{
		ID:        "1",
		UserID:    "alice",
		CreatedAt: day,
		Summary: workout.Summary{
			PlanName: "Push",
			CompletedSets: []workout.CompletedSet{
				{ExerciseName: "Bench Press", SetNumber: 1, Reps: 5, Weight: 100, CompletedAt: day},
				{ExerciseName: "Dips", SetNumber: 1, Reps: 10, Weight: 20, CompletedAt: day},
			},
			ElapsedSeconds: 1800,
			TotalVolume:    700,
		},
	}}
}

// TestUserIDFromContextDefault verifies the fallback user when none is set.
func TestUserIDFromContextDefault(t *testing.T) {
	if id := UserIDFromContext(context.Background()); id != DefaultUserID {
		t.Errorf("UserIDFromContext(empty) = %q, want %q", id, DefaultUserID)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), "alice")
	if id := UserIDFromContext(ctx); id != "alice" {
		t.Errorf("UserIDFromContext = %q, want %q", id, "alice")
	}
}

// TestDefaultTimeRange verifies time range defaults (last 7 days) and parsing.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "", testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow, end)
	assert.Equal(t, testNow.AddDate(0, 0, -7), start)

	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), end)

	_, end, err = defaultTimeRange("", "2024-06-15T10:30:00Z", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC), end)

	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "", testNow)
	require.NoError(t, err)
	assert.Equal(t, 10, start.Hour())

	_, _, err = defaultTimeRange("not-a-date", "", testNow)
	assert.Error(t, err)
}

func TestGetWorkoutHistory(t *testing.T) {
	ds := &fakeSource{results: sampleResults()}
	h := newHandlers(ds)
	ctx := WithUserID(context.Background(), "alice")

	res, err := h.getWorkoutHistory(ctx, callReq(map[string]any{"exercise": "bench"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "alice", ds.gotUser)
	assert.Equal(t, testNow.AddDate(0, 0, -7), ds.gotStart)

	var got []workout.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	require.Len(t, got, 1)
	require.Len(t, got[0].CompletedSets, 1)
	assert.Equal(t, "Bench Press", got[0].CompletedSets[0].ExerciseName)

	_, err = h.getWorkoutHistory(ctx, callReq(map[string]any{"start": "2026-03-01", "end": "2026-03-09"}))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ds.gotStart)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), ds.gotEnd)
	lateOnNinth := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	assert.True(t, lateOnNinth.Before(ds.gotEnd), "end date must cover the whole day")

	res, err = h.getWorkoutHistory(ctx, callReq(map[string]any{"start": "last week"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetPersonalRecords(t *testing.T) {
	ds := &fakeSource{results: sampleResults()}
	h := newHandlers(ds)

	res, err := h.getPersonalRecords(context.Background(), callReq(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	start, _ := progress.Range(progress.PeriodSixMonths, testNow)
	assert.Equal(t, start, ds.gotStart)

	var got struct {
		Records     []progress.Record    `json:"records"`
		OneRepMaxes []progress.OneRepMax `json:"one_rep_maxes"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	require.Len(t, got.Records, 2)
	assert.Equal(t, "Bench Press", got.Records[0].Exercise)
	assert.Equal(t, 100.0, got.Records[0].Weight)
	require.Len(t, got.OneRepMaxes, 2)
	assert.Equal(t, 117.0, got.OneRepMaxes[0].Estimate)
}

func TestGetWeeklyVolume(t *testing.T) {
	h := newHandlers(&fakeSource{results: sampleResults()})

	res, err := h.getWeeklyVolume(context.Background(), callReq(map[string]any{"period": "1m"}))
	require.NoError(t, err)

	var got []progress.WeekVolume
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 700.0, got[0].Volume)
}

func TestGetProgressSummary(t *testing.T) {
	h := newHandlers(&fakeSource{results: sampleResults()})

	res, err := h.getProgressSummary(context.Background(), callReq(map[string]any{"period": "1w"}))
	require.NoError(t, err)

	var got progress.Overview
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, "1w", got.Period)
	assert.Equal(t, 1, got.Workouts)
	assert.Equal(t, 2, got.TotalSets)
	assert.Equal(t, 1800, got.TotalDuration)

	res, err = h.getProgressSummary(context.Background(), callReq(map[string]any{"period": "forever"}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, progress.PeriodMonth, got.Period)
}

func TestToolQueryFailure(t *testing.T) {
	h := newHandlers(&fakeSource{err: errors.New("db down")})

	res, err := h.getProgressSummary(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestEstimateOneRepMax(t *testing.T) {
	h := newHandlers(&fakeSource{})

	res, err := h.estimateOneRepMax(context.Background(), callReq(map[string]any{"weight": 100.0, "reps": 5.0}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var got progress.OneRepMax
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, 117.0, got.Estimate)

	for _, args := range []map[string]any{
		{"reps": 5.0},
		{"weight": 100.0},
		{"weight": -1.0, "reps": 5.0},
		{"weight": 100.0, "reps": 2.5},
	} {
		res, err := h.estimateOneRepMax(context.Background(), callReq(args))
		require.NoError(t, err)
		assert.True(t, res.IsError, args)
	}
}

func TestRecentWorkoutsResource(t *testing.T) {
	ds := &fakeSource{results: sampleResults()}
	h := newHandlers(ds)

	var req mcp.ReadResourceRequest
	req.Params.URI = "fitarch://recent_workouts"
	contents, err := h.recentWorkouts(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, testNow.AddDate(0, 0, -14), ds.gotStart)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Contains(t, text.Text, "Bench Press")
}

// TestHTTPClientListResults verifies the client sends the range, key and
// user, and decodes the response.
func TestHTTPClientListResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/workouts", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, "alice", r.Header.Get("X-User-ID"))
		assert.Equal(t, "2026-01-01T00:00:00Z", r.URL.Query().Get("start"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleResults())
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL+"/", "secret")
	got, err := c.ListResults(context.Background(), "alice",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 700.0, got[0].TotalVolume)
}

// TestHTTPClientError verifies non-200 responses become errors.
func TestHTTPClientError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "wrong").ListResults(context.Background(), "alice", testNow.AddDate(0, 0, -1), testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
