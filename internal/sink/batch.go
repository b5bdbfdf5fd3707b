package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	apperrors "mktyield/internal/errors"
	"mktyield/pkg/contracts/domain"
)

// LoadResult reports the outcome of a batch write
type LoadResult struct {
	Staged    int
	Committed bool
	ByKind    map[domain.CurveKind]int
}

// Batch accumulates records for the fixed insert statement. It does no I/O.
type Batch struct {
	table   string
	dialect Dialect
	records []domain.QuoteRecord
}

// NewBatch creates an empty batch for table
func NewBatch(table string, dialect Dialect) *Batch {
	return &Batch{table: table, dialect: dialect}
}

// Stage appends records to the batch
func (b *Batch) Stage(records ...domain.QuoteRecord) {
	b.records = append(b.records, records...)
}

// Len returns the number of staged records
func (b *Batch) Len() int {
	return len(b.records)
}

// Records returns the staged records in staging order
func (b *Batch) Records() []domain.QuoteRecord {
	return b.records
}

// Statement returns the insert statement the batch executes
func (b *Batch) Statement() string {
	return InsertStatement(b.table, b.dialect)
}

// Args converts a record into bind parameters in column order
func Args(r domain.QuoteRecord) []any {
	var toDate any
	if r.ToDate != nil {
		toDate = *r.ToDate
	}
	return []any{
		r.Location,
		r.SystemLocation,
		r.Application,
		r.CurveType,
		r.AsOfDate,
		r.PrevDate,
		r.CurveID,
		string(r.MarketType),
		r.Term,
		toDate,
		r.Rate,
		r.Spread,
		r.ImportTimestamp,
		r.Commodity1,
		r.Commodity2,
	}
}

// TxContext owns one connection and one transaction for a whole run.
// Close is always safe to defer.
type TxContext struct {
	conn   *sql.Conn
	tx     *sql.Tx
	batch  *Batch
	logger *slog.Logger

	committed  bool
	rolledBack bool
	closed     bool
}

// Begin acquires a dedicated connection from provider and opens a transaction
func Begin(ctx context.Context, provider ConnProvider, table string, dialect Dialect, logger *slog.Logger) (*TxContext, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := provider.Conn(ctx)
	if err != nil {
		return nil, apperrors.NewConnectivityError("failed to acquire connection", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, apperrors.NewConnectivityError("failed to begin transaction", err)
	}

	return &TxContext{
		conn:   conn,
		tx:     tx,
		batch:  NewBatch(table, dialect),
		logger: logger.With(slog.String("component", "sink"), slog.String("table", table)),
	}, nil
}

// Stage adds records to the pending batch
func (t *TxContext) Stage(records ...domain.QuoteRecord) {
	t.batch.Stage(records...)
}

// Staged returns the records staged so far
func (t *TxContext) Staged() []domain.QuoteRecord {
	return t.batch.Records()
}

// Commit executes every staged row once and commits. Any failure rolls back
// the whole transaction.
func (t *TxContext) Commit(ctx context.Context) (LoadResult, error) {
	result := LoadResult{
		Staged: t.batch.Len(),
		ByKind: domain.CountByKind(t.batch.Records()),
	}

	if t.closed || t.committed || t.rolledBack {
		return result, apperrors.NewStorageError("transaction already finished", sql.ErrTxDone)
	}

	if err := t.execAll(ctx); err != nil {
		t.rollback()
		return result, err
	}

	if err := t.tx.Commit(); err != nil {
		t.rollback()
		return result, apperrors.NewStorageError("failed to commit transaction", err)
	}

	t.committed = true
	result.Committed = true

	t.logger.InfoContext(ctx, "Batch committed", slog.Int("rows", result.Staged))
	return result, nil
}

func (t *TxContext) execAll(ctx context.Context) error {
	if t.batch.Len() == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, t.batch.Statement())
	if err != nil {
		return apperrors.NewStorageError("failed to prepare insert", err)
	}
	defer stmt.Close()

	for i, r := range t.batch.Records() {
		if _, err := stmt.ExecContext(ctx, Args(r)...); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to insert row %d", i), err).
				WithContext("kind", string(r.Kind)).
				WithContext("term", r.Term)
		}
	}
	return nil
}

func (t *TxContext) rollback() {
	if t.rolledBack {
		return
	}
	t.rolledBack = true

	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		t.logger.Error("Rollback failed", slog.String("error", err.Error()))
		return
	}
	t.logger.Warn("Transaction rolled back", slog.Int("rows", t.batch.Len()))
}

// Close rolls back an uncommitted transaction and releases the connection.
// Calling it more than once is a no-op.
func (t *TxContext) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	if !t.committed {
		t.rollback()
	}
	return t.conn.Close()
}

// Load writes records in a single transaction on a connection from provider
func Load(ctx context.Context, provider ConnProvider, table string, dialect Dialect, records []domain.QuoteRecord) (LoadResult, error) {
	tx, err := Begin(ctx, provider, table, dialect, nil)
	if err != nil {
		return LoadResult{}, err
	}
	defer tx.Close()

	tx.Stage(records...)
	return tx.Commit(ctx)
}
