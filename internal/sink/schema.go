package sink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	apperrors "mktyield/internal/errors"
)

// Column is one column of the snapshot table
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Columns are the snapshot table columns in insert order
var Columns = []Column{
	{Name: "Location", Type: "VARCHAR(16)"},
	{Name: "System_location", Type: "VARCHAR(16)"},
	{Name: "Application", Type: "VARCHAR(16)"},
	{Name: "Curvetype", Type: "VARCHAR(16)"},
	{Name: "Asofdate", Type: "DATE"},
	{Name: "Prevdate", Type: "DATE"},
	{Name: "Curveid", Type: "VARCHAR(32)"},
	{Name: "Mkttype", Type: "VARCHAR(3)"},
	{Name: "Term", Type: "VARCHAR(32)"},
	{Name: "Todate", Type: "DATE", Nullable: true},
	{Name: "Rate", Type: "NUMERIC(18,8)"},
	{Name: "Spread", Type: "NUMERIC(18,8)"},
	{Name: "Import_date", Type: "TIMESTAMP"},
	{Name: "Commodity1", Type: "VARCHAR(16)", Nullable: true},
	{Name: "Commodity2", Type: "VARCHAR(32)", Nullable: true},
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTableName rejects anything that is not a plain or schema-qualified identifier
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return apperrors.NewConfigError(fmt.Sprintf("invalid sink table name %q", table), nil)
	}
	return nil
}

// InsertStatement renders the parameterised insert for table
func InsertStatement(table string, d Dialect) string {
	names := make([]string, len(Columns))
	params := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
		params[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(params, ", "))
}

// CreateTableStatement renders a CREATE TABLE IF NOT EXISTS for table
func CreateTableStatement(table string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	for i, c := range Columns {
		fmt.Fprintf(&b, "\t%s %s", c.Name, c.Type)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// EnsureSchema creates the snapshot table if it does not exist
func EnsureSchema(ctx context.Context, db *sql.DB, table string) error {
	if err := ValidateTableName(table); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, CreateTableStatement(table)); err != nil {
		return apperrors.NewStorageError("failed to create table", err).WithContext("table", table)
	}
	return nil
}
