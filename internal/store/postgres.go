package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/regex-validate/internal/db"
	"github.com/sells-group/regex-validate/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS regex_data (
	id              BIGINT PRIMARY KEY,
	regex           TEXT,
	positive_inputs TEXT[] NOT NULL DEFAULT '{}',
	negative_inputs TEXT[] NOT NULL DEFAULT '{}',
	file_path       TEXT,
	rfixer_solution TEXT,
	gpt_response    TEXT
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	ndjson_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	directory   TEXT NOT NULL,
	dialect     TEXT NOT NULL,
	stats       JSONB NOT NULL,
	not_found   INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_ndjson_path ON runs(ndjson_path);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

var regexDataUpsert = db.UpsertConfig{
	Table:        "regex_data",
	Columns:      []string{"id", "regex", "positive_inputs", "negative_inputs", "file_path", "rfixer_solution", "gpt_response"},
	ConflictKeys: []string{"id"},
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertRegexData(ctx context.Context, rows []model.RegexData) (int64, error) {
	values := make([][]any, len(rows))
	for i, d := range rows {
		values[i] = []any{d.ID, d.Regex, inputs(d.PositiveInputs), inputs(d.NegativeInputs), d.FilePath, d.RFixerSolution, d.GPTResponse}
	}
	n, err := db.BulkUpsert(ctx, s.pool, regexDataUpsert, values)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert regex_data")
	}
	return n, nil
}

func (s *PostgresStore) GetRegexData(ctx context.Context, id int64) (*model.RegexData, error) {
	var d model.RegexData
	var regex, filePath *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, regex, positive_inputs, negative_inputs, file_path, rfixer_solution, gpt_response
		 FROM regex_data WHERE id = $1`, id,
	).Scan(&d.ID, &regex, &d.PositiveInputs, &d.NegativeInputs, &filePath, &d.RFixerSolution, &d.GPTResponse)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("regex_data not found: %d", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get regex_data")
	}
	if regex != nil {
		d.Regex = *regex
	}
	if filePath != nil {
		d.FilePath = *filePath
	}
	return &d, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal stats")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, ndjson_path, output_path, directory, dialect, stats, not_found, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.NDJSONPath, run.OutputPath, run.Directory, run.Dialect,
		statsJSON, run.NotFound, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return &run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, ndjson_path, output_path, directory, dialect, stats, not_found, created_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, ndjson_path, output_path, directory, dialect, stats, not_found, created_at FROM runs WHERE 1=1`
	var args []any
	argN := 1

	if filter.NDJSONPath != "" {
		query += fmt.Sprintf(` AND ndjson_path = $%d`, argN)
		args = append(args, filter.NDJSONPath)
		argN++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argN)
	args = append(args, limit)
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var r model.Run
	var statsJSON []byte
	if err := row.Scan(&r.ID, &r.NDJSONPath, &r.OutputPath, &r.Directory, &r.Dialect,
		&statsJSON, &r.NotFound, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stats")
	}
	return &r, nil
}

func inputs(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
