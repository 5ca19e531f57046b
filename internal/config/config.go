package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Validation ValidateConfig `yaml:"validate" mapstructure:"validate"`
	Regex      RegexConfig    `yaml:"regex" mapstructure:"regex"`
	Extract    ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Export     ExportConfig   `yaml:"export" mapstructure:"export"`
	Store      StoreConfig    `yaml:"store" mapstructure:"store"`
	Metrics    MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Log        LogConfig      `yaml:"log" mapstructure:"log"`
}

// ValidateConfig configures the validate command.
type ValidateConfig struct {
	NDJSONPath    string `yaml:"ndjson_path" mapstructure:"ndjson_path"`
	DirectoryPath string `yaml:"directory_path" mapstructure:"directory_path"`
	OutputPath    string `yaml:"output_path" mapstructure:"output_path"`
	InPlace       bool   `yaml:"in_place" mapstructure:"in_place"`
	Extension     string `yaml:"extension" mapstructure:"extension"`
	Concurrency   int    `yaml:"concurrency" mapstructure:"concurrency"`
	RecordRun     bool   `yaml:"record_run" mapstructure:"record_run"`
}

// RegexConfig selects the regex dialect used to judge candidates.
type RegexConfig struct {
	Dialect        string `yaml:"dialect" mapstructure:"dialect"`
	MatchTimeoutMs int    `yaml:"match_timeout_ms" mapstructure:"match_timeout_ms"`
}

// ExtractConfig configures the extract command.
type ExtractConfig struct {
	InputPath  string `yaml:"input_path" mapstructure:"input_path"`
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
}

// ExportConfig configures the export command.
type ExportConfig struct {
	ValidatedPath string `yaml:"validated_path" mapstructure:"validated_path"`
	SolutionsPath string `yaml:"solutions_path" mapstructure:"solutions_path"`
	OutputPath    string `yaml:"output_path" mapstructure:"output_path"`
	XLSXPath      string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// StoreConfig configures the solutions and run history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MetricsConfig configures the Prometheus textfile written after a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REGEXVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Empty defaults register the key so env overrides apply.
	v.SetDefault("validate.ndjson_path", "")
	v.SetDefault("validate.directory_path", "")
	v.SetDefault("validate.output_path", "gpt_output_validated.ndjson")
	v.SetDefault("validate.in_place", false)
	v.SetDefault("validate.extension", ".txt")
	v.SetDefault("validate.concurrency", 8)
	v.SetDefault("validate.record_run", false)
	v.SetDefault("regex.dialect", "ecmascript")
	v.SetDefault("regex.match_timeout_ms", 0)
	v.SetDefault("extract.input_path", "gpt_output.ndjson")
	v.SetDefault("extract.output_path", "gpt_output_clean.ndjson")
	v.SetDefault("export.validated_path", "gpt_output_validated.ndjson")
	v.SetDefault("export.solutions_path", "")
	v.SetDefault("export.output_path", "db.ndjson")
	v.SetDefault("export.xlsx_path", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "composition_regexes.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by the given command mode are
// present and in range. All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	switch mode {
	case "validate":
		require(c.Validation.NDJSONPath != "", "validate.ndjson_path is required")
		require(c.Validation.DirectoryPath != "", "validate.directory_path is required")
		require(c.Validation.InPlace || c.Validation.OutputPath != "", "validate.output_path is required unless in_place is set")
		require(c.Validation.Concurrency >= 1 && c.Validation.Concurrency <= 256, "validate.concurrency must be between 1 and 256")
		require(c.Regex.MatchTimeoutMs >= 0, "regex.match_timeout_ms must be >= 0")
		if c.Validation.RecordRun {
			errs = append(errs, c.storeErrors()...)
		}
	case "extract":
		require(c.Extract.InputPath != "", "extract.input_path is required")
		require(c.Extract.OutputPath != "", "extract.output_path is required")
	case "export":
		require(c.Export.ValidatedPath != "", "export.validated_path is required")
		require(c.Export.SolutionsPath != "", "export.solutions_path is required")
		require(c.Export.OutputPath != "", "export.output_path is required")
		errs = append(errs, c.storeErrors()...)
	case "runs", "solutions":
		errs = append(errs, c.storeErrors()...)
	case "stats":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, `store.driver must be "sqlite" or "postgres"`)
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
