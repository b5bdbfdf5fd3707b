package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	Sink        SinkConfig        `yaml:"sink" envconfig:"SINK"`
	Deployment  DeploymentConfig  `yaml:"deployment" envconfig:"DEPLOYMENT"`
	BusinessDay BusinessDayConfig `yaml:"business_day" envconfig:"BUSINESS_DAY"`
	Extraction  ExtractionConfig  `yaml:"extraction" envconfig:"EXTRACTION"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration.
// Relative paths are resolved against the working directory.
type PathsConfig struct {
	DocumentPath string `yaml:"document_path" envconfig:"DOCUMENT_PATH"`
	ExportDir    string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// SinkConfig describes the relational database receiving the snapshot
type SinkConfig struct {
	Driver            string        `yaml:"driver" envconfig:"DRIVER"`
	DSN               string        `yaml:"dsn" envconfig:"DSN"`
	Host              string        `yaml:"host" envconfig:"HOST"`
	Port              int           `yaml:"port" envconfig:"PORT"`
	Database          string        `yaml:"database" envconfig:"DATABASE"`
	User              string        `yaml:"user" envconfig:"USER"`
	Password          string        `yaml:"password" envconfig:"PASSWORD"`
	EncryptedPassword string        `yaml:"encrypted_password" envconfig:"ENCRYPTED_PASSWORD"`
	PassphraseEnv     string        `yaml:"passphrase_env" envconfig:"PASSPHRASE_ENV"`
	SSLMode           string        `yaml:"ssl_mode" envconfig:"SSL_MODE"`
	Table             string        `yaml:"table" envconfig:"TABLE"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT"`
}

// DeploymentConfig holds the fixed values stamped on every row
type DeploymentConfig struct {
	SystemLocation string `yaml:"system_location" envconfig:"SYSTEM_LOCATION"`
	Application    string `yaml:"application" envconfig:"APPLICATION"`
	CurveType      string `yaml:"curve_type" envconfig:"CURVE_TYPE"`
	CurveID        string `yaml:"curve_id" envconfig:"CURVE_ID"`
}

// BusinessDayConfig selects how the previous business day is resolved
type BusinessDayConfig struct {
	Source      string   `yaml:"source" envconfig:"SOURCE"`
	Query       string   `yaml:"query" envconfig:"QUERY"`
	Holidays    []string `yaml:"holidays" envconfig:"HOLIDAYS"`
	MaxLookback int      `yaml:"max_lookback" envconfig:"MAX_LOOKBACK"`
}

// ExtractionConfig controls document parsing behaviour
type ExtractionConfig struct {
	OnRecordError string `yaml:"on_record_error" envconfig:"ON_RECORD_ERROR"`
	DateLayout    string `yaml:"date_layout" envconfig:"DATE_LAYOUT"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	Environment     string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing   bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter   string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	SampleRatio     float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
	EnableMetrics   bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	MetricsTextfile string  `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// Load builds the configuration from defaults, an optional YAML file and
// MKTYIELD_* environment variables, in increasing order of precedence.
// A .env file in the working directory is read first and never overrides
// variables already present in the environment.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configFile, err)
	}

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file keep their current value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	switch c.Sink.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported sink driver: %q", c.Sink.Driver)
	}

	if c.Sink.DSN == "" {
		if c.Sink.Driver == DriverSQLite {
			return fmt.Errorf("sink dsn is required for the %s driver", DriverSQLite)
		}
		if c.Sink.Host == "" || c.Sink.Database == "" || c.Sink.User == "" {
			return fmt.Errorf("sink requires either a dsn or host, database and user")
		}
	}

	if c.Sink.Port < 0 || c.Sink.Port > 65535 {
		return fmt.Errorf("invalid sink port: %d", c.Sink.Port)
	}

	if c.Sink.Table == "" {
		return fmt.Errorf("sink table must be specified")
	}

	if c.Deployment.SystemLocation == "" || c.Deployment.Application == "" ||
		c.Deployment.CurveType == "" || c.Deployment.CurveID == "" {
		return fmt.Errorf("deployment constants must all be set")
	}

	switch c.BusinessDay.Source {
	case BusinessDaySourceSQL:
		if strings.TrimSpace(c.BusinessDay.Query) == "" {
			return fmt.Errorf("business day query is required for the %s source", BusinessDaySourceSQL)
		}
	case BusinessDaySourceCalendar:
		if c.BusinessDay.MaxLookback <= 0 {
			return fmt.Errorf("business day max lookback must be positive")
		}
	default:
		return fmt.Errorf("unsupported business day source: %q", c.BusinessDay.Source)
	}

	switch c.Extraction.OnRecordError {
	case RecordErrorAbort, RecordErrorSkip:
	default:
		return fmt.Errorf("unsupported record error policy: %q", c.Extraction.OnRecordError)
	}

	if c.Extraction.DateLayout == "" {
		c.Extraction.DateLayout = DefaultDateLayout
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be between 0 and 1")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			DocumentPath: DefaultDocumentPath,
			LogsDir:      DefaultLogsDir,
		},
		Sink: SinkConfig{
			Driver:         DriverPostgres,
			Port:           5432,
			PassphraseEnv:  DefaultPassphraseEnv,
			SSLMode:        "disable",
			Table:          DefaultTable,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Deployment: DeploymentConfig{
			SystemLocation: DefaultSystemLocation,
			Application:    DefaultApplication,
			CurveType:      DefaultCurveType,
			CurveID:        DefaultCurveID,
		},
		BusinessDay: BusinessDayConfig{
			Source:      BusinessDaySourceSQL,
			Query:       DefaultPrevBusinessDayQuery,
			MaxLookback: DefaultMaxLookback,
		},
		Extraction: ExtractionConfig{
			OnRecordError: RecordErrorAbort,
			DateLayout:    DefaultDateLayout,
		},
		Telemetry: TelemetryConfig{
			Environment:   "development",
			EnableTracing: false,
			TraceExporter: "stdout",
			SampleRatio:   1.0,
			EnableMetrics: true,
		},
	}
}
