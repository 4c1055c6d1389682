package tabql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nao1215/tabql/domain/model"
)

// IdentityColumn is the engine-generated key present first in every table.
const IdentityColumn = "id"

// TxBeginner starts transactions. *sql.DB and *sql.Conn implement it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// queryer runs read-only statements. *sql.DB, *sql.Conn and *sql.Tx implement it.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ValidateIdentifier reports whether name can be used as a column name.
// Any name without a NUL byte is accepted, including the empty name; it is
// always quoted before use.
func ValidateIdentifier(name string) error {
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidIdentifier, name)
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EnsureTable makes tableName exist with an identity column followed by
// at least the given columns, all TEXT.
//
// An existing table fails with ErrTableExists unless overwrite is set, in
// which case it is dropped and recreated. Columns missing from the table are
// appended in the order given; existing columns are never touched. All
// changes commit together.
func EnsureTable(ctx context.Context, db TxBeginner, tableName string, columnNames []string, overwrite bool) error {
	if err := validateSchema(tableName, columnNames); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", tableName, err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	exists, err := tableExists(ctx, tx, tableName)
	if err != nil {
		return err
	}

	quoted := QuoteIdentifier(tableName)
	if exists {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrTableExists, tableName)
		}
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoted); err != nil {
			return storeErr("drop table", tableName, err)
		}
	}

	createQuery := fmt.Sprintf("CREATE TABLE %s (%s INTEGER PRIMARY KEY AUTOINCREMENT)", quoted, QuoteIdentifier(IdentityColumn))
	if _, err := tx.ExecContext(ctx, createQuery); err != nil {
		return storeErr("create table", tableName, err)
	}

	current, err := tableColumns(ctx, tx, tableName)
	if err != nil {
		return err
	}
	// SQLite column names are case-insensitive.
	present := make(map[string]struct{}, len(current))
	for _, c := range current {
		present[strings.ToLower(c)] = struct{}{}
	}

	for _, name := range columnNames {
		key := strings.ToLower(name)
		if _, ok := present[key]; ok {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", quoted, QuoteIdentifier(name))
		if _, err := tx.ExecContext(ctx, alter); err != nil {
			return storeErr("add column "+name, tableName, err)
		}
		present[key] = struct{}{}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit schema", tableName, err)
	}
	return nil
}

// TableExists reports whether tableName exists in the store.
func TableExists(ctx context.Context, db queryer, tableName string) (bool, error) {
	return tableExists(ctx, db, tableName)
}

// TableColumns returns the data columns of tableName in physical order,
// excluding the identity column.
func TableColumns(ctx context.Context, db queryer, tableName string) ([]string, error) {
	return tableColumns(ctx, db, tableName)
}

func tableExists(ctx context.Context, q queryer, tableName string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", tableName).Scan(&n)
	if err != nil {
		return false, storeErr("check table", tableName, err)
	}
	return n > 0, nil
}

func tableColumns(ctx context.Context, q queryer, tableName string) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdentifier(tableName)))
	if err != nil {
		return nil, storeErr("inspect table", tableName, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, storeErr("inspect table", tableName, err)
		}
		if name == IdentityColumn && pk > 0 {
			continue
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("inspect table", tableName, err)
	}
	return columns, nil
}

func validateSchema(tableName string, columnNames []string) error {
	if tableName == "" {
		return fmt.Errorf("%w: table name is empty", ErrInvalidIdentifier)
	}
	if err := ValidateIdentifier(tableName); err != nil {
		return err
	}
	folded := make([]string, len(columnNames))
	for i, name := range columnNames {
		if err := ValidateIdentifier(name); err != nil {
			return err
		}
		folded[i] = strings.ToLower(name)
		if folded[i] == IdentityColumn {
			return fmt.Errorf("%w: %s is reserved for the identity column", ErrDuplicateColumnName, name)
		}
	}
	if dup, ok := model.NewHeader(folded).Duplicate(); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateColumnName, dup)
	}
	return nil
}
