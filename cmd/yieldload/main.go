package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mktyield/internal/app"
	"mktyield/internal/operations"
)

type flags struct {
	location   string
	date       string
	configFile string
	document   string
	initSchema bool
	dryRun     bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	fs := flag.NewFlagSet("yieldload", flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &flags{}
	fs.StringVar(&f.location, "location", "", "location code stamped on every row (required)")
	fs.StringVar(&f.date, "date", "", "business date, e.g. 2024-03-15 (required)")
	fs.StringVar(&f.configFile, "config", "", "config file (defaults to config.yaml or configs/config.yaml)")
	fs.StringVar(&f.document, "document", "", "override the document path")
	fs.BoolVar(&f.initSchema, "init-schema", false, "create the snapshot table if it does not exist")
	fs.BoolVar(&f.dryRun, "dry-run", false, "extract and print records without writing to the sink")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.location = strings.TrimSpace(f.location)
	f.date = strings.TrimSpace(f.date)
	if f.location == "" || f.date == "" {
		fs.Usage()
		return nil, errors.New("-location and -date are required")
	}
	return f, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(ctx, app.Options{
		ConfigFile:   f.configFile,
		DocumentPath: f.document,
	})
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := application.Stop(shutdownCtx); err != nil {
			fmt.Fprintln(stderr, err)
		}
	}()

	if f.initSchema {
		if err := application.InitSchema(ctx); err != nil {
			application.Logger.Error("Failed to ensure schema", slog.String("error", err.Error()))
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	if f.dryRun {
		records, err := application.Preview(ctx, f.location, f.date)
		if err != nil {
			application.Logger.Error("Dry run failed", slog.String("error", err.Error()))
			fmt.Fprintln(stderr, err)
			return 1
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	result, err := application.Load(ctx, f.location, f.date)
	if err != nil {
		state, _ := operations.FailedState(err)
		fmt.Fprintf(stderr, "load rolled back (failed while %s): %v\n", state, err)
		return 1
	}

	fmt.Fprintf(stdout, "committed %d rows for %s %s (run %s)\n",
		result.RowsCommitted, result.Location, result.AsOfDate.Format(time.DateOnly), result.RunID)
	return 0
}
