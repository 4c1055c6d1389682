package tabql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/tabql/domain/model"
)

// Standard error messages and error creation functions for consistency
var (
	// ErrTableExists is returned when a target table already exists and overwrite is disabled
	ErrTableExists = errors.New("tabql: table already exists")

	// ErrEmptySource indicates that a source has no first row to derive headers from
	ErrEmptySource = errors.New("tabql: empty source")

	// ErrRowWidth indicates a row whose cell count differs from the table's column list
	ErrRowWidth = errors.New("tabql: row width does not match column count")

	// ErrDuplicateColumnName is returned when a header contains duplicate column names
	ErrDuplicateColumnName = model.ErrDuplicateColumnName

	// ErrInvalidIdentifier indicates a table or column name that cannot be quoted safely
	ErrInvalidIdentifier = errors.New("tabql: invalid identifier")

	// ErrUnsupportedEncoding indicates an unknown text encoding name
	ErrUnsupportedEncoding = errors.New("tabql: unsupported encoding")

	// ErrInvalidConfig indicates a configuration value out of range
	ErrInvalidConfig = errors.New("tabql: invalid configuration")
)

// DecodeError reports a cell that is not valid in the source's text encoding.
type DecodeError struct {
	Encoding string
	Line     int
	Column   int
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("tabql: cannot decode cell as %s (line %d, column %d)", e.Encoding, e.Line, e.Column)
}

// EncodeError reports a result cell that cannot be represented in the output encoding.
type EncodeError struct {
	Encoding string
	Row      int
	Column   int
	Err      error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("tabql: cannot encode cell as %s (row %d, column %d)", e.Encoding, e.Row, e.Column)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying encoder error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

// StoreError wraps a failure reported by the SQLite engine.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("tabql: %s %q: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("tabql: %s: %v", e.Op, e.Err)
}

// Unwrap returns the driver error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeErr wraps err in a StoreError unless it already is one or is nil.
func storeErr(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Table: table, Err: err}
}

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FilePath  string
	TableName string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, filePath string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FilePath:  filePath,
	}
}

// WithTable adds table context to the error
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	parts := []string{ec.Operation + " failed"}

	if ec.FilePath != "" {
		parts = append(parts, "source: "+ec.FilePath)
	}
	if ec.TableName != "" {
		parts = append(parts, "table: "+ec.TableName)
	}
	if ec.Details != "" {
		parts = append(parts, ec.Details)
	}

	context := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", context, baseErr)
	}
	return errors.New(context)
}
