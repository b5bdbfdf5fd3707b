package sink

import (
	"fmt"
	"strconv"
)

// Dialect selects driver name, placeholder style and column types
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor maps a configured driver name to its dialect
func DialectFor(driver string) (Dialect, error) {
	switch d := Dialect(driver); d {
	case Postgres, SQLite:
		return d, nil
	}
	return "", fmt.Errorf("unsupported sink driver: %q", driver)
}

// DriverName is the database/sql driver registered for the dialect
func (d Dialect) DriverName() string {
	return string(d)
}

// Placeholder renders the n-th (1-based) bind parameter
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
