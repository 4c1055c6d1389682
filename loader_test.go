package tabql

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nao1215/tabql/domain/model"
	"github.com/nao1215/tabql/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordIter is a RowIterator over fixed records that reports err once
// the records are exhausted.
type recordIter struct {
	recs []model.Record
	pos  int
	cur  model.Record
	err  error
}

func (it *recordIter) Next() bool {
	if it.pos >= len(it.recs) {
		it.cur = nil
		return false
	}
	it.cur = it.recs[it.pos]
	it.pos++
	return true
}

func (it *recordIter) Record() model.Record { return it.cur }
func (it *recordIter) Err() error           { return it.err }

func numberedRecords(n int) []model.Record {
	recs := make([]model.Record, n)
	for i := range n {
		recs[i] = model.Record{strconv.Itoa(i + 1), "v" + strconv.Itoa(i+1)}
	}
	return recs
}

func expectRelaxDurability(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("PRAGMA synchronous").
		WillReturnRows(sqlmock.NewRows([]string{"synchronous"}).AddRow(2))
	mock.ExpectQuery("PRAGMA journal_mode").
		WillReturnRows(sqlmock.NewRows([]string{"journal_mode"}).AddRow("delete"))
	mock.ExpectQuery("PRAGMA temp_store").
		WillReturnRows(sqlmock.NewRows([]string{"temp_store"}).AddRow(0))
	mock.ExpectExec("PRAGMA synchronous = OFF").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA journal_mode = MEMORY").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA temp_store = MEMORY").WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectRestoreDurability(mock sqlmock.Sqlmock) {
	mock.ExpectExec("PRAGMA synchronous = 2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA journal_mode = DELETE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA temp_store = 0").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestLoader_BatchesWithMock(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	const two = `INSERT INTO "t" ("n", "v") VALUES (?, ?), (?, ?)`
	const one = `INSERT INTO "t" ("n", "v") VALUES (?, ?)`

	expectRelaxDurability(mock)
	mock.ExpectBegin()
	mock.ExpectExec(two).WithArgs("1", "v1", "2", "v2").WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(two).WithArgs("3", "v3", "4", "v4").WillReturnResult(sqlmock.NewResult(4, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(one).WithArgs("5", "v5").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()
	expectRestoreDurability(mock)

	loader := NewLoader(db, 2, testutil.NewTestLogger(t))
	stats, err := loader.Load(context.Background(), "t", []string{"n", "v"}, &recordIter{recs: numberedRecords(5)})
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: 5, Batches: 3}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoader_CommitFailureWithMock(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	const two = `INSERT INTO "t" ("n", "v") VALUES (?, ?), (?, ?)`
	diskFull := errors.New("database or disk is full")

	expectRelaxDurability(mock)
	mock.ExpectBegin()
	mock.ExpectExec(two).WithArgs("1", "v1", "2", "v2").WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(two).WithArgs("3", "v3", "4", "v4").WillReturnResult(sqlmock.NewResult(4, 2))
	mock.ExpectCommit().WillReturnError(diskFull)
	expectRestoreDurability(mock)

	loader := NewLoader(db, 2, nil)
	stats, err := loader.Load(context.Background(), "t", []string{"n", "v"}, &recordIter{recs: numberedRecords(5)})
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "t", se.Table)

	assert.Equal(t, LoadStats{Rows: 2, Batches: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoader_InsertFailureRollsBackWithMock(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	syntaxErr := errors.New("no such table: t")
	expectRelaxDurability(mock)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "t" ("n", "v") VALUES (?, ?)`).WillReturnError(syntaxErr)
	mock.ExpectRollback()
	expectRestoreDurability(mock)

	stats, err := NewLoader(db, 10, nil).Load(context.Background(), "t", []string{"n", "v"}, &recordIter{recs: numberedRecords(1)})
	assert.ErrorIs(t, err, syntaxErr)
	assert.Equal(t, LoadStats{}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoader_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	columns := []string{"n", "v"}
	require.NoError(t, EnsureTable(ctx, s.DB(), "t", columns, false))

	stats, err := NewLoader(s.DB(), 2, testutil.NewTestLogger(t)).Load(ctx, "t", columns, &recordIter{recs: numberedRecords(5)})
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: 5, Batches: 3}, stats)

	rows, err := s.DB().QueryContext(ctx, `SELECT * FROM "t" ORDER BY rowid`)
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "n", "v"}, cols)

	var (
		lastID int64
		count  int
	)
	for rows.Next() {
		var (
			id   int64
			n, v string
		)
		require.NoError(t, rows.Scan(&id, &n, &v))
		assert.Greater(t, id, lastID, "identity values must increase in insertion order")
		lastID = id
		count++
		assert.Equal(t, strconv.Itoa(count), n)
		assert.Equal(t, "v"+strconv.Itoa(count), v)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 5, count)
}

func TestLoader_HaltKeepsCommittedBatches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name      string
		rows      int
		wantStats LoadStats
	}{
		{name: "halt right after the second commit", rows: 4, wantStats: LoadStats{Rows: 4, Batches: 2}},
		{name: "halt inside the third batch", rows: 5, wantStats: LoadStats{Rows: 4, Batches: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestStore(t)
			columns := []string{"n", "v"}
			require.NoError(t, EnsureTable(ctx, s.DB(), "t", columns, false))

			halt := errors.New("halted")
			it := &recordIter{recs: numberedRecords(tt.rows), err: halt}
			stats, err := NewLoader(s.DB(), 2, nil).Load(ctx, "t", columns, it)
			require.ErrorIs(t, err, halt)
			assert.Equal(t, tt.wantStats, stats)
			assert.Equal(t, 4, countRows(t, s.DB(), "t"))
		})
	}
}

func TestLoader_RowWidth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	columns := []string{"a", "b"}
	require.NoError(t, EnsureTable(ctx, s.DB(), "t", columns, false))

	recs := []model.Record{{"1", "2"}, {"3", "4"}, {"5", "6", "7"}}
	stats, err := NewLoader(s.DB(), 2, nil).Load(ctx, "t", columns, &recordIter{recs: recs})
	require.ErrorIs(t, err, ErrRowWidth)
	assert.Equal(t, LoadStats{Rows: 2, Batches: 1}, stats)
	assert.Equal(t, 2, countRows(t, s.DB(), "t"))
}

func TestLoader_RestoresPragmas(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	pragmas := func() (int, string, int) {
		var (
			sync, temp int
			journal    string
		)
		require.NoError(t, s.DB().QueryRowContext(ctx, "PRAGMA synchronous").Scan(&sync))
		require.NoError(t, s.DB().QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
		require.NoError(t, s.DB().QueryRowContext(ctx, "PRAGMA temp_store").Scan(&temp))
		return sync, journal, temp
	}

	beforeSync, beforeJournal, beforeTemp := pragmas()

	require.NoError(t, EnsureTable(ctx, s.DB(), "t", []string{"n", "v"}, false))
	_, err := NewLoader(s.DB(), 2, nil).Load(ctx, "t", []string{"n", "v"}, &recordIter{recs: numberedRecords(3)})
	require.NoError(t, err)

	afterSync, afterJournal, afterTemp := pragmas()
	assert.Equal(t, beforeSync, afterSync)
	assert.Equal(t, beforeJournal, afterJournal)
	assert.Equal(t, beforeTemp, afterTemp)
}

func TestLoader_SplitsAtParameterLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	columns := []string{"a", "b", "c"}
	require.NoError(t, EnsureTable(ctx, s.DB(), "wide", columns, false))

	const n = 12000 // 36000 parameters in one batch
	recs := make([]model.Record, n)
	for i := range recs {
		v := strconv.Itoa(i)
		recs[i] = model.Record{v, v, v}
	}

	stats, err := NewLoader(s.DB(), n, nil).Load(ctx, "wide", columns, &recordIter{recs: recs})
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: n, Batches: 1}, stats)
	assert.Equal(t, n, countRows(t, s.DB(), "wide"))
}

func TestLoader_NoColumns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, EnsureTable(ctx, s.DB(), "bare", nil, false))
	recs := []model.Record{{}, {}, {}}
	stats, err := NewLoader(s.DB(), 2, nil).Load(ctx, "bare", nil, &recordIter{recs: recs})
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: 3, Batches: 2}, stats)
	assert.Equal(t, 3, countRows(t, s.DB(), "bare"))
}

func TestInsertBuilder(t *testing.T) {
	t.Parallel()

	b := newInsertBuilder(`we"ird`, []string{"a", "b"})
	assert.Equal(t, maxBoundParams/2, b.rowsPerStmt)

	query, args := b.build([][]any{{"1", "2"}, {"3", "4"}})
	assert.Equal(t, `INSERT INTO "we""ird" ("a", "b") VALUES (?, ?), (?, ?)`, query)
	assert.Equal(t, []any{"1", "2", "3", "4"}, args)

	wide := newInsertBuilder("t", make([]string, maxBoundParams+1))
	assert.Equal(t, 1, wide.rowsPerStmt)
}

func TestLoader_ClosedDB(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewLoader(db, 2, nil).Load(context.Background(), "t", []string{"a"}, &recordIter{})
	var se *StoreError
	assert.True(t, errors.As(err, &se))
}
