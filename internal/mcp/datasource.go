package mcp

import (
	"context"
	"time"

	"github.com/claude/fitarch/internal/docstore"
	"github.com/claude/fitarch/internal/localstore"
	"github.com/claude/fitarch/internal/storage"
	"github.com/claude/fitarch/internal/workout"
)

// DataSource abstracts the result history for MCP tools. The PostgreSQL,
// SQLite and Firestore stores and HTTPClient (remote via REST API) satisfy it.
type DataSource interface {
	ListResults(ctx context.Context, userID string, start, end time.Time) ([]workout.Result, error)
}

var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*localstore.Store)(nil)
	_ DataSource = (*docstore.Store)(nil)
	_ DataSource = (*HTTPClient)(nil)
)
