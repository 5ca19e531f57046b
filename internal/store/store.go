package store

import (
	"context"

	"github.com/sells-group/regex-validate/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	NDJSONPath string `json:"ndjson_path,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store persists the solutions database and validation run history.
type Store interface {
	// Solutions
	UpsertRegexData(ctx context.Context, rows []model.RegexData) (int64, error)
	GetRegexData(ctx context.Context, id int64) (*model.RegexData, error)

	// Runs
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100
