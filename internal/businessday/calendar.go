package businessday

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "mktyield/internal/errors"
)

// CalendarLookup treats weekends and a fixed holiday list as non-business days.
// The same calendar applies to every location.
type CalendarLookup struct {
	holidays    map[string]struct{}
	maxLookback int
}

// NewCalendarLookup parses holidays with layout and walks back at most maxLookback days
func NewCalendarLookup(holidays []string, maxLookback int, layout string) (*CalendarLookup, error) {
	if layout == "" {
		layout = time.DateOnly
	}
	if maxLookback <= 0 {
		return nil, apperrors.NewConfigError("business day max lookback must be positive", nil)
	}

	c := &CalendarLookup{
		holidays:    make(map[string]struct{}, len(holidays)),
		maxLookback: maxLookback,
	}
	for _, h := range holidays {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		t, err := time.Parse(layout, h)
		if err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("invalid holiday %q", h), err)
		}
		c.holidays[t.Format(time.DateOnly)] = struct{}{}
	}
	return c, nil
}

// IsBusinessDay checks weekends and the holiday set
func (c *CalendarLookup) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.holidays[t.Format(time.DateOnly)]
	return !holiday
}

// PreviousBusinessDay implements Lookup
func (c *CalendarLookup) PreviousBusinessDay(ctx context.Context, location string, businessDate time.Time) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	d := dateOnly(businessDate)
	for i := 0; i < c.maxLookback; i++ {
		d = d.AddDate(0, 0, -1)
		if c.IsBusinessDay(d) {
			return d, nil
		}
	}
	return time.Time{}, notFound(location, businessDate)
}
