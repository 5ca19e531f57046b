package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/regex-validate/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS regex_data (
	id              INTEGER PRIMARY KEY,
	regex           TEXT,
	positive_inputs TEXT,
	negative_inputs TEXT,
	file_path       TEXT,
	rfixer_solution TEXT,
	gpt_response    TEXT
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	ndjson_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	directory   TEXT NOT NULL,
	dialect     TEXT NOT NULL,
	stats       TEXT NOT NULL,
	not_found   INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_ndjson_path ON runs(ndjson_path);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

const sqliteUpsertRegexData = `
INSERT INTO regex_data (id, regex, positive_inputs, negative_inputs, file_path, rfixer_solution, gpt_response)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	regex = excluded.regex,
	positive_inputs = excluded.positive_inputs,
	negative_inputs = excluded.negative_inputs,
	file_path = excluded.file_path,
	rfixer_solution = excluded.rfixer_solution,
	gpt_response = excluded.gpt_response`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertRegexData(ctx context.Context, rows []model.RegexData) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin regex_data tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertRegexData)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare regex_data upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range rows {
		args, err := regexDataArgs(row)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert regex_data %d", row.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit regex_data")
	}
	return n, nil
}

func (s *SQLiteStore) GetRegexData(ctx context.Context, id int64) (*model.RegexData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, regex, positive_inputs, negative_inputs, file_path, rfixer_solution, gpt_response
		 FROM regex_data WHERE id = ?`,
		id,
	)

	var (
		d                  model.RegexData
		regex, filePath    sql.NullString
		positive, negative sql.NullString
	)
	err := row.Scan(&d.ID, &regex, &positive, &negative, &filePath, nullableString(&d.RFixerSolution), nullableString(&d.GPTResponse))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("regex_data not found: %d", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan regex_data")
	}
	d.Regex = regex.String
	d.FilePath = filePath.String
	if err := decodeInputs(positive.String, &d.PositiveInputs); err != nil {
		return nil, err
	}
	if err := decodeInputs(negative.String, &d.NegativeInputs); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal stats")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ndjson_path, output_path, directory, dialect, stats, not_found, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.NDJSONPath, run.OutputPath, run.Directory, run.Dialect,
		string(statsJSON), run.NotFound, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ndjson_path, output_path, directory, dialect, stats, not_found, created_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, ndjson_path, output_path, directory, dialect, stats, not_found, created_at
		FROM runs WHERE 1=1`
	var args []any

	if filter.NDJSONPath != "" {
		query += ` AND ndjson_path = ?`
		args = append(args, filter.NDJSONPath)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var statsJSON string

	err := row.Scan(&r.ID, &r.NDJSONPath, &r.OutputPath, &r.Directory, &r.Dialect,
		&statsJSON, &r.NotFound, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}
	if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal stats")
	}
	return &r, nil
}

// regexDataArgs orders a row for the regex_data insert, encoding the input
// lists as JSON arrays.
func regexDataArgs(d model.RegexData) ([]any, error) {
	positive, err := encodeInputs(d.PositiveInputs)
	if err != nil {
		return nil, err
	}
	negative, err := encodeInputs(d.NegativeInputs)
	if err != nil {
		return nil, err
	}
	return []any{d.ID, d.Regex, positive, negative, d.FilePath, d.RFixerSolution, d.GPTResponse}, nil
}

func encodeInputs(in []string) (string, error) {
	if in == nil {
		in = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal inputs")
	}
	return string(b), nil
}

func decodeInputs(s string, dst *[]string) error {
	if s == "" {
		*dst = []string{}
		return nil
	}
	return eris.Wrap(json.Unmarshal([]byte(s), dst), "store: unmarshal inputs")
}

// nullString scans a nullable TEXT column into a *string.
type nullString struct {
	dst **string
}

func nullableString(dst **string) *nullString {
	return &nullString{dst: dst}
}

func (n *nullString) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n.dst = nil
	case string:
		*n.dst = &v
	case []byte:
		s := string(v)
		*n.dst = &s
	default:
		return eris.Errorf("store: cannot scan %T into string", src)
	}
	return nil
}
