// Package businessday resolves the previous business day for a location.
package businessday

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mktyield/internal/config"
	apperrors "mktyield/internal/errors"
)

// ErrNoPreviousBusinessDay is returned when the source has no answer for the date
var ErrNoPreviousBusinessDay = errors.New("no previous business day")

// Lookup maps (location, business date) to the previous business day
type Lookup interface {
	PreviousBusinessDay(ctx context.Context, location string, businessDate time.Time) (time.Time, error)
}

// RowQuerier is the subset of *sql.DB used by SQLLookup
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New builds the lookup selected by cfg
func New(cfg config.BusinessDayConfig, db RowQuerier, systemLocation, layout string) (Lookup, error) {
	switch cfg.Source {
	case config.BusinessDaySourceSQL:
		if db == nil {
			return nil, apperrors.NewConfigError("sql business day source needs a database", nil)
		}
		return &SQLLookup{DB: db, Query: cfg.Query, SystemLocation: systemLocation, Layout: layout}, nil
	case config.BusinessDaySourceCalendar:
		return NewCalendarLookup(cfg.Holidays, cfg.MaxLookback, layout)
	}
	return nil, apperrors.NewConfigError(fmt.Sprintf("unknown business day source %q", cfg.Source), nil)
}

func notFound(location string, businessDate time.Time) error {
	return apperrors.NewLookupError("previous business day not found", ErrNoPreviousBusinessDay).
		WithContext("location", location).
		WithContext("business_date", businessDate.Format(time.DateOnly))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
