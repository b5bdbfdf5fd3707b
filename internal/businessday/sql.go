package businessday

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "mktyield/internal/errors"
)

// SQLLookup asks the database for the previous business day using a scalar
// query taking (location, system location, business date)
type SQLLookup struct {
	DB             RowQuerier
	Query          string
	SystemLocation string
	Layout         string
}

// fallbackLayouts cover what drivers return for DATE and TIMESTAMP values as text
var fallbackLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// PreviousBusinessDay implements Lookup
func (l *SQLLookup) PreviousBusinessDay(ctx context.Context, location string, businessDate time.Time) (time.Time, error) {
	layout := l.Layout
	if layout == "" {
		layout = time.DateOnly
	}

	var value any
	err := l.DB.QueryRowContext(ctx, l.Query, location, l.SystemLocation, businessDate.Format(layout)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, notFound(location, businessDate)
	}
	if err != nil {
		return time.Time{}, apperrors.NewLookupError("previous business day query failed", err).
			WithContext("location", location)
	}

	var text string
	switch v := value.(type) {
	case nil:
		return time.Time{}, notFound(location, businessDate)
	case time.Time:
		return dateOnly(v), nil
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return time.Time{}, apperrors.NewLookupError(fmt.Sprintf("unexpected previous business day type %T", value), nil)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, notFound(location, businessDate)
	}

	for _, candidate := range append([]string{layout}, fallbackLayouts...) {
		if t, err := time.Parse(candidate, text); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, apperrors.NewLookupError(fmt.Sprintf("unparsable previous business day %q", text), nil)
}
