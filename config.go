package tabql

import (
	"fmt"
	"log/slog"
	"unicode/utf8"
)

const (
	// DefaultBatchSize is the number of rows committed per transaction.
	DefaultBatchSize = 50000
	// DefaultFetchSize is the number of result rows fetched per chunk.
	DefaultFetchSize = 1000
	// DefaultDelimiter separates cells in delimited text.
	DefaultDelimiter = ','
)

// TableNaming selects how tables are named for each source.
type TableNaming int

const (
	// TableNamingSequential names tables tbl0, tbl1, ... by source position.
	TableNamingSequential TableNaming = iota
	// TableNamingFilename names tables after the source file name with its
	// extensions stripped.
	TableNamingFilename
)

// String returns the naming mode name.
func (n TableNaming) String() string {
	if n == TableNamingFilename {
		return "filename"
	}
	return "sequential"
}

// Config holds the settings of one run. It is an immutable value: the
// With* methods return a modified copy.
//
// Example:
//
//	cfg := tabql.NewConfig().
//		WithDelimiter('\t').
//		WithQuery("SELECT count(*) FROM tbl0")
type Config struct {
	// Delimiter separates cells of delimited input.
	Delimiter rune
	// Encoding is the text encoding of delimited input.
	Encoding string
	// OutputDelimiter separates result cells. Zero means Delimiter.
	OutputDelimiter rune
	// OutputEncoding is the encoding of query output. Empty means Encoding.
	OutputEncoding string
	// CRLF terminates output lines with "\r\n" instead of "\n".
	CRLF bool
	// Header reports whether the first row of every source holds column names.
	Header bool
	// Skip is the number of raw rows discarded from the start of every source.
	Skip int
	// BatchSize is the number of rows committed per transaction.
	BatchSize int
	// FetchSize is the number of result rows fetched per chunk.
	FetchSize int
	// DBPath is the persistent store path. Empty means an ephemeral store.
	DBPath string
	// TableNaming selects how each source's table is named.
	TableNaming TableNaming
	// Overwrite drops tables that already exist instead of failing.
	Overwrite bool
	// Query is run after loading when non-empty.
	Query string
	// Logger receives debug and progress messages. Nil discards them.
	Logger *slog.Logger
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		Delimiter:   DefaultDelimiter,
		Encoding:    DefaultEncoding,
		Header:      true,
		BatchSize:   DefaultBatchSize,
		FetchSize:   DefaultFetchSize,
		TableNaming: TableNamingSequential,
	}
}

// WithDelimiter sets the input delimiter.
func (c Config) WithDelimiter(d rune) Config {
	c.Delimiter = d
	return c
}

// WithEncoding sets the input text encoding.
func (c Config) WithEncoding(name string) Config {
	c.Encoding = name
	return c
}

// WithOutputEncoding sets the output text encoding.
func (c Config) WithOutputEncoding(name string) Config {
	c.OutputEncoding = name
	return c
}

// WithHeader sets whether sources start with a header row.
func (c Config) WithHeader(header bool) Config {
	c.Header = header
	return c
}

// WithSkip sets the number of leading rows to discard. Negative values clamp to zero.
func (c Config) WithSkip(n int) Config {
	c.Skip = max(n, 0)
	return c
}

// WithBatchSize sets the number of rows per transaction.
func (c Config) WithBatchSize(n int) Config {
	c.BatchSize = n
	return c
}

// WithFetchSize sets the number of rows per result chunk.
func (c Config) WithFetchSize(n int) Config {
	c.FetchSize = n
	return c
}

// WithDBPath sets the persistent store path.
func (c Config) WithDBPath(path string) Config {
	c.DBPath = path
	return c
}

// WithTableNaming sets the table naming mode.
func (c Config) WithTableNaming(n TableNaming) Config {
	c.TableNaming = n
	return c
}

// WithOverwrite sets whether existing tables are dropped.
func (c Config) WithOverwrite(overwrite bool) Config {
	c.Overwrite = overwrite
	return c
}

// WithQuery sets the query to run after loading.
func (c Config) WithQuery(q string) Config {
	c.Query = q
	return c
}

// WithLogger sets the logger.
func (c Config) WithLogger(l *slog.Logger) Config {
	c.Logger = l
	return c
}

// Validate checks the configuration before any source is opened.
func (c Config) Validate() error {
	if c.Delimiter == 0 || c.Delimiter == '"' || c.Delimiter == '\r' || c.Delimiter == '\n' ||
		c.Delimiter == utf8.RuneError {
		return fmt.Errorf("%w: delimiter %q", ErrInvalidConfig, c.Delimiter)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.FetchSize <= 0 {
		return fmt.Errorf("%w: fetch size must be positive, got %d", ErrInvalidConfig, c.FetchSize)
	}
	if c.Skip < 0 {
		return fmt.Errorf("%w: skip must not be negative, got %d", ErrInvalidConfig, c.Skip)
	}

	in, err := LookupEncoding(c.Encoding)
	if err != nil {
		return err
	}
	if !in.ASCIICompatible() {
		return fmt.Errorf("%w: encoding %q cannot be used for delimited input", ErrUnsupportedEncoding, c.Encoding)
	}
	if _, err := LookupEncoding(c.outputEncoding()); err != nil {
		return err
	}
	return nil
}

func (c Config) outputEncoding() string {
	if c.OutputEncoding != "" {
		return c.OutputEncoding
	}
	return c.Encoding
}

func (c Config) outputDelimiter() rune {
	if c.OutputDelimiter != 0 {
		return c.OutputDelimiter
	}
	return c.Delimiter
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger()
}

func (c Config) sourceOptions() SourceOptions {
	return SourceOptions{
		Encoding: c.Encoding,
		Header:   c.Header,
		Skip:     c.Skip,
	}
}

func (c Config) exportOptions() ExportOptions {
	return ExportOptions{
		Delimiter: c.outputDelimiter(),
		Encoding:  c.outputEncoding(),
		CRLF:      c.CRLF,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
