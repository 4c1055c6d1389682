package tabql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/tabql/domain/model"
)

// Querier runs a query. *sql.DB, *sql.Conn and *sql.Tx implement it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Result is the lazily fetched outcome of a query. Rows are rendered as text.
type Result struct {
	rows      *sql.Rows
	columns   []string
	fetchSize int

	dest    []any
	current model.Record
	err     error
	closed  bool
}

// Execute runs sqlText verbatim and returns its result. Rows are fetched
// fetchSize at a time through NextChunk, or one by one through Next.
// The caller must Close the result.
func Execute(ctx context.Context, db Querier, sqlText string, fetchSize int) (*Result, error) {
	if fetchSize <= 0 {
		fetchSize = DefaultFetchSize
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, storeErr("execute query", "", err)
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, storeErr("read result columns", "", err)
	}

	dest := make([]any, len(columns))
	for i := range dest {
		dest[i] = new(any)
	}
	return &Result{
		rows:      rows,
		columns:   columns,
		fetchSize: fetchSize,
		dest:      dest,
	}, nil
}

// Columns returns the result column names in declared order.
func (r *Result) Columns() []string {
	return r.columns
}

// FetchSize returns the number of rows NextChunk fetches at most.
func (r *Result) FetchSize() int {
	return r.fetchSize
}

// Next advances to the next row.
func (r *Result) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			r.err = storeErr("fetch rows", "", err)
		}
		r.current = nil
		return false
	}
	if err := r.rows.Scan(r.dest...); err != nil {
		r.err = storeErr("scan row", "", err)
		r.current = nil
		return false
	}

	rec := make(model.Record, len(r.dest))
	for i, d := range r.dest {
		rec[i] = renderValue(*(d.(*any)))
	}
	r.current = rec
	return true
}

// Row returns the row produced by the last call to Next.
func (r *Result) Row() model.Record {
	return r.current
}

// Err returns the error that stopped iteration, if any.
func (r *Result) Err() error {
	return r.err
}

// NextChunk returns up to FetchSize rows. It returns io.EOF once the
// result is exhausted.
func (r *Result) NextChunk() ([]model.Record, error) {
	chunk := make([]model.Record, 0, r.fetchSize)
	for len(chunk) < r.fetchSize && r.Next() {
		chunk = append(chunk, r.current)
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(chunk) == 0 {
		return nil, io.EOF
	}
	return chunk, nil
}

// Close releases the underlying rows. It is safe to call more than once.
func (r *Result) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.rows.Close(); err != nil {
		return storeErr("close result", "", err)
	}
	return nil
}

// renderValue formats a driver value as text. NULL becomes the empty string.
func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// isEOF reports whether err marks the end of a result.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
