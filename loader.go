package tabql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// maxBoundParams is SQLite's default limit on bound parameters per statement.
const maxBoundParams = 32766

// journalModes are the values PRAGMA journal_mode may be restored to.
var journalModes = map[string]struct{}{
	"delete": {}, "truncate": {}, "persist": {}, "memory": {}, "wal": {}, "off": {},
}

// ConnProvider hands out a dedicated connection. *sql.DB implements it.
type ConnProvider interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// LoadStats describes committed work.
type LoadStats struct {
	// Rows is the number of rows committed.
	Rows int
	// Batches is the number of transactions committed.
	Batches int
}

// Loader inserts rows into a table in fixed-size transactional batches.
type Loader struct {
	db        ConnProvider
	batchSize int
	logger    *slog.Logger
}

// NewLoader returns a Loader committing every batchSize rows. A nil logger
// discards log output.
func NewLoader(db ConnProvider, batchSize int, logger *slog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Loader{db: db, batchSize: batchSize, logger: logger}
}

// Load drains rows into table, binding each record positionally to
// columnNames. Every batch is its own transaction and stays committed when
// a later batch fails. Durability is relaxed while loading and restored
// afterwards. The returned stats cover committed batches, also on error.
func (l *Loader) Load(ctx context.Context, table string, columnNames []string, rows RowIterator) (stats LoadStats, err error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return stats, storeErr("acquire connection", table, err)
	}
	defer func() {
		err = errors.Join(err, conn.Close())
	}()

	restore, err := relaxDurability(ctx, conn)
	if err != nil {
		return stats, storeErr("tune pragmas", table, err)
	}
	defer func() {
		if rerr := restore(); rerr != nil {
			err = errors.Join(err, storeErr("restore pragmas", table, rerr))
		}
	}()

	ins := newInsertBuilder(table, columnNames)
	batch := make([][]any, 0, min(l.batchSize, 1024))
	rowNum := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.commitBatch(ctx, conn, ins, batch); err != nil {
			return err
		}
		stats.Rows += len(batch)
		stats.Batches++
		l.logger.Debug("committed batch",
			slog.String("table", table),
			slog.Int("batch", stats.Batches),
			slog.Int("rows", len(batch)),
			slog.Int("total", stats.Rows))
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		rowNum++
		rec := rows.Record()
		if len(rec) != len(columnNames) {
			return stats, fmt.Errorf("%w: row %d of %q has %d cells, want %d",
				ErrRowWidth, rowNum, table, len(rec), len(columnNames))
		}
		batch = append(batch, rec.Values())
		if len(batch) == l.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (l *Loader) commitBatch(ctx context.Context, conn *sql.Conn, ins *insertBuilder, batch [][]any) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", ins.table, err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	for start := 0; start < len(batch); start += ins.rowsPerStmt {
		end := min(start+ins.rowsPerStmt, len(batch))
		query, args := ins.build(batch[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return storeErr("insert rows", ins.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit batch", ins.table, err)
	}
	return nil
}

// insertBuilder renders multi-row INSERT statements for one table.
type insertBuilder struct {
	table       string
	prefix      string
	tuple       string
	width       int
	rowsPerStmt int
	full        string
}

func newInsertBuilder(table string, columnNames []string) *insertBuilder {
	b := &insertBuilder{table: table, width: len(columnNames)}
	if b.width == 0 {
		b.prefix = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", QuoteIdentifier(table))
		b.rowsPerStmt = 1
		return b
	}

	quoted := make([]string, len(columnNames))
	for i, c := range columnNames {
		quoted[i] = QuoteIdentifier(c)
	}
	b.prefix = fmt.Sprintf("INSERT INTO %s (%s) VALUES ", QuoteIdentifier(table), strings.Join(quoted, ", "))
	b.tuple = "(" + strings.TrimSuffix(strings.Repeat("?, ", b.width), ", ") + ")"
	b.rowsPerStmt = max(maxBoundParams/b.width, 1)
	return b
}

// build returns the statement and flattened arguments for rows.
func (b *insertBuilder) build(rows [][]any) (string, []any) {
	if b.width == 0 {
		return b.prefix, nil
	}

	args := make([]any, 0, len(rows)*b.width)
	for _, r := range rows {
		args = append(args, r...)
	}

	if len(rows) == b.rowsPerStmt && b.full != "" {
		return b.full, args
	}
	var sb strings.Builder
	sb.Grow(len(b.prefix) + len(rows)*(len(b.tuple)+2))
	sb.WriteString(b.prefix)
	for i := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.tuple)
	}
	query := sb.String()
	if len(rows) == b.rowsPerStmt {
		b.full = query
	}
	return query, args
}

// relaxDurability switches conn to in-memory journaling without fsync and
// returns a function restoring the previous settings.
func relaxDurability(ctx context.Context, conn *sql.Conn) (func() error, error) {
	var (
		synchronous int
		journalMode string
		tempStore   int
	)
	if err := conn.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&synchronous); err != nil {
		return nil, err
	}
	if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return nil, err
	}
	if err := conn.QueryRowContext(ctx, "PRAGMA temp_store").Scan(&tempStore); err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return nil, err
		}
	}

	return func() error {
		// Restore even when ctx was cancelled during the load.
		rctx := context.WithoutCancel(ctx)
		var errs []error
		if _, err := conn.ExecContext(rctx, fmt.Sprintf("PRAGMA synchronous = %d", synchronous)); err != nil {
			errs = append(errs, err)
		}
		if _, ok := journalModes[strings.ToLower(journalMode)]; ok {
			if _, err := conn.ExecContext(rctx, "PRAGMA journal_mode = "+strings.ToUpper(journalMode)); err != nil {
				errs = append(errs, err)
			}
		}
		if _, err := conn.ExecContext(rctx, fmt.Sprintf("PRAGMA temp_store = %d", tempStore)); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}, nil
}
