package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt_output_validated.ndjson", cfg.Validation.OutputPath)
	assert.Equal(t, ".txt", cfg.Validation.Extension)
	assert.Equal(t, 8, cfg.Validation.Concurrency)
	assert.False(t, cfg.Validation.InPlace)
	assert.Equal(t, "ecmascript", cfg.Regex.Dialect)
	assert.Zero(t, cfg.Regex.MatchTimeoutMs)
	assert.Equal(t, "gpt_output.ndjson", cfg.Extract.InputPath)
	assert.Equal(t, "gpt_output_clean.ndjson", cfg.Extract.OutputPath)
	assert.Equal(t, "db.ndjson", cfg.Export.OutputPath)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "composition_regexes.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
validate:
  ndjson_path: responses.ndjson
  directory_path: examples
  concurrency: 2
regex:
  dialect: re2
store:
  driver: postgres
  database_url: postgres://localhost/regex
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "responses.ndjson", cfg.Validation.NDJSONPath)
	assert.Equal(t, "examples", cfg.Validation.DirectoryPath)
	assert.Equal(t, 2, cfg.Validation.Concurrency)
	assert.Equal(t, "re2", cfg.Regex.Dialect)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, ".txt", cfg.Validation.Extension)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("REGEXVAL_STORE_DRIVER", "sqlite")
	t.Setenv("REGEXVAL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("REGEXVAL_VALIDATE_NDJSON_PATH", "from-env.ndjson")
	t.Setenv("REGEXVAL_VALIDATE_CONCURRENCY", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env.ndjson", cfg.Validation.NDJSONPath)
	assert.Equal(t, 3, cfg.Validation.Concurrency)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("validate: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Validation.OutputPath = "gpt_output_validated.ndjson"
	cfg.Validation.Extension = ".txt"
	cfg.Validation.Concurrency = 8
	cfg.Regex.Dialect = "ecmascript"
	cfg.Regex.MatchTimeoutMs = 1000
	cfg.Extract.InputPath = "gpt_output.ndjson"
	cfg.Extract.OutputPath = "gpt_output_clean.ndjson"
	cfg.Export.ValidatedPath = "gpt_output_validated.ndjson"
	cfg.Export.OutputPath = "db.ndjson"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "composition_regexes.db"
	return cfg
}

func TestValidateValidate_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Validation.NDJSONPath = "in.ndjson"
	cfg.Validation.DirectoryPath = "examples"

	assert.NoError(t, cfg.Validate("validate"))
}

func TestValidateValidate_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Validation.OutputPath = ""

	err := cfg.Validate("validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate.ndjson_path is required")
	assert.Contains(t, err.Error(), "validate.directory_path is required")
	assert.Contains(t, err.Error(), "validate.output_path is required")
}

func TestValidateValidate_InPlaceNeedsNoOutput(t *testing.T) {
	cfg := validDefaults()
	cfg.Validation.NDJSONPath = "in.ndjson"
	cfg.Validation.DirectoryPath = "examples"
	cfg.Validation.OutputPath = ""
	cfg.Validation.InPlace = true

	assert.NoError(t, cfg.Validate("validate"))
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Validation.NDJSONPath = "in.ndjson"
	cfg.Validation.DirectoryPath = "examples"

	cfg.Validation.Concurrency = 0
	err := cfg.Validate("validate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validate.concurrency must be between 1 and 256")

	cfg.Validation.Concurrency = 257
	assert.Error(t, cfg.Validate("validate"))

	cfg.Validation.Concurrency = 256
	assert.NoError(t, cfg.Validate("validate"))
}

func TestValidateRecordRunChecksStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Validation.NDJSONPath = "in.ndjson"
	cfg.Validation.DirectoryPath = "examples"
	cfg.Validation.RecordRun = true
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("validate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be")
}

func TestValidateExport(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("export")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "export.solutions_path is required")

	cfg.Export.SolutionsPath = "rfixer_solutions.ndjson"
	assert.NoError(t, cfg.Validate("export"))
}

func TestValidateRuns_NoDB(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("runs")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	err = cfg.Validate("solutions")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateStatsAndExtract(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("stats"))
	assert.NoError(t, cfg.Validate("extract"))

	cfg.Extract.OutputPath = ""
	assert.Error(t, cfg.Validate("extract"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
