package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"mktyield/internal/businessday"
	"mktyield/internal/config"
	"mktyield/internal/dataprocessing"
	apperrors "mktyield/internal/errors"
	"mktyield/internal/exporter"
	"mktyield/internal/infrastructure"
	"mktyield/internal/operations"
	"mktyield/internal/sink"
	"mktyield/internal/validation"
	"mktyield/pkg/contracts/domain"
)

const (
	VERSION = "1.0.0"
	AppName = "mktyield yield-curve loader"
)

// Options are the command-line overrides applied on top of the loaded configuration
type Options struct {
	ConfigFile   string
	DocumentPath string
	Secrets      sink.SecretSource
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	DB            *sql.DB
	Dialect       sink.Dialect
	Orchestrator  *operations.Orchestrator
}

// NewApplication loads configuration and wires every run collaborator
func NewApplication(ctx context.Context, opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load configuration", err)
	}
	if opts.DocumentPath != "" {
		cfg.Paths.DocumentPath = opts.DocumentPath
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, apperrors.NewConfigError("failed to ensure directories", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("driver", cfg.Sink.Driver),
		slog.String("table", cfg.Sink.Table),
		slog.String("document", cfg.Paths.DocumentPath))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := a.initializeSink(ctx, opts.Secrets); err != nil {
		_ = a.Stop(ctx)
		return nil, err
	}

	if err := a.initializeOrchestrator(); err != nil {
		_ = a.Stop(ctx)
		return nil, err
	}

	return a, nil
}

func (a *Application) initializeSink(ctx context.Context, secrets sink.SecretSource) error {
	if secrets == nil {
		secrets = sink.EnvSecrets
	}

	db, dialect, err := sink.Open(ctx, a.Config.Sink, secrets)
	if err != nil {
		return err
	}
	a.DB = db
	a.Dialect = dialect

	a.Logger.Info("Sink connected", slog.String("driver", string(dialect)))
	return nil
}

func (a *Application) initializeOrchestrator() error {
	cfg := a.Config

	lookup, err := businessday.New(cfg.BusinessDay, a.DB, cfg.Deployment.SystemLocation, cfg.Extraction.DateLayout)
	if err != nil {
		return err
	}

	validator := validation.NewRecordValidator()
	extractor := dataprocessing.NewExtractor(dataprocessing.ExtractOptions{
		DateLayout:    cfg.Extraction.DateLayout,
		OnRecordError: dataprocessing.RecordErrorPolicy(cfg.Extraction.OnRecordError),
	}, validator, a.Logger)

	fileValidator := validation.NewFileValidator(a.Logger)
	source := &checkedSource{
		FileSource: dataprocessing.FileSource{Path: cfg.Paths.DocumentPath},
		validator:  fileValidator,
	}

	tracer, err := operations.NewRunTracer(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to initialize run tracer: %w", err)
	}

	opts := []operations.Option{
		operations.WithValidator(validator),
		operations.WithTracer(tracer),
	}
	if cfg.ExportEnabled() {
		if err := fileValidator.ValidateOutputDirectory(cfg.Paths.ExportDir); err != nil {
			return apperrors.NewConfigError("export directory unusable", err)
		}
		opts = append(opts, operations.WithExporter(exporter.NewSnapshotExporter(cfg.Paths.ExportDir, a.Logger)))
	}

	a.Orchestrator = operations.NewOrchestrator(operations.ConfigFrom(cfg), a.DB, a.Dialect,
		lookup, source, extractor, a.Logger, opts...)
	return nil
}

// Load runs one snapshot load
func (a *Application) Load(ctx context.Context, location, businessDate string) (*operations.RunResult, error) {
	return a.Orchestrator.Run(ctx, location, businessDate)
}

// Preview extracts the document without writing to the sink
func (a *Application) Preview(ctx context.Context, location, businessDate string) ([]domain.QuoteRecord, error) {
	return a.Orchestrator.Preview(infrastructure.EnsureTraceID(ctx), location, businessDate)
}

// InitSchema creates the snapshot table if it is missing
func (a *Application) InitSchema(ctx context.Context) error {
	if err := sink.EnsureSchema(ctx, a.DB, a.Config.Sink.Table); err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "Schema ensured", slog.String("table", a.Config.Sink.Table))
	return nil
}

// Stop releases the database pool and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	var errs []error

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")

	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("log file close: %w", err))
	}
	return errors.Join(errs...)
}

// checkedSource validates the document file before parsing it
type checkedSource struct {
	dataprocessing.FileSource
	validator *validation.FileValidator
}

func (s *checkedSource) Load(ctx context.Context) (*dataprocessing.Document, error) {
	if err := s.validator.ValidateDocument(s.Path); err != nil {
		return nil, apperrors.NewDocumentError("document check failed", err).WithContext("path", s.Path)
	}
	return s.FileSource.Load(ctx)
}
