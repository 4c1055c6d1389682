// Package config provides configuration management for the tabql CLI.
//
// Settings are layered, lowest precedence first: built-in defaults, a YAML
// file, TABQL_* environment variables and explicitly set flags.
package config

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/nao1215/tabql"
)

// Default values for configuration
const (
	DefaultDelimiter = ","
	DefaultEncoding  = tabql.DefaultEncoding
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Config holds the CLI settings after all layers are merged.
type Config struct {
	Sources         []string `koanf:"source"`
	NoHeader        bool     `koanf:"no_header"`
	NamedTables     bool     `koanf:"named_tables"`
	DB              string   `koanf:"db"`
	Delimiter       string   `koanf:"delimiter"`
	Encoding        string   `koanf:"encoding"`
	OutputDelimiter string   `koanf:"output_delimiter"`
	OutputEncoding  string   `koanf:"output_encoding"`
	CRLF            bool     `koanf:"crlf"`
	ChunkSize       int      `koanf:"chunk_size"`
	FetchSize       int      `koanf:"fetch_size"`
	SQL             string   `koanf:"sql"`
	Skip            int      `koanf:"skip"`
	Overwrite       bool     `koanf:"overwrite"`
	Output          string   `koanf:"output"`
	LogLevel        string   `koanf:"log_level"`
	LogFormat       string   `koanf:"log_format"`
	Verbose         bool     `koanf:"verbose"`
}

// ParseDelimiter converts a delimiter setting to a rune. "\t" (either the
// two characters or a real tab) and "tab" mean a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "\t", "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: delimiter must be a single character, got %q", tabql.ErrInvalidConfig, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// Library converts the CLI settings into the library configuration.
func (c *Config) Library(logger *slog.Logger) (tabql.Config, error) {
	delimiter, err := ParseDelimiter(c.Delimiter)
	if err != nil {
		return tabql.Config{}, err
	}

	cfg := tabql.NewConfig().
		WithDelimiter(delimiter).
		WithEncoding(c.Encoding).
		WithOutputEncoding(c.OutputEncoding).
		WithHeader(!c.NoHeader).
		WithSkip(c.Skip).
		WithBatchSize(c.ChunkSize).
		WithFetchSize(c.FetchSize).
		WithDBPath(c.DB).
		WithOverwrite(c.Overwrite).
		WithQuery(c.SQL).
		WithLogger(logger)

	if c.OutputDelimiter != "" {
		out, err := ParseDelimiter(c.OutputDelimiter)
		if err != nil {
			return tabql.Config{}, err
		}
		cfg.OutputDelimiter = out
	}
	cfg.CRLF = c.CRLF
	if c.NamedTables {
		cfg = cfg.WithTableNaming(tabql.TableNamingFilename)
	}

	if err := cfg.Validate(); err != nil {
		return tabql.Config{}, err
	}
	return cfg, nil
}
