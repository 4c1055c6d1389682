// Package cli provides the command-line interface for tabql.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/tabql"
	"github.com/nao1215/tabql/internal/cli/config"
	"github.com/spf13/cobra"
)

// Version is the tabql version, overridden with -ldflags at release.
var Version = "0.1.0"

// settings carries the merged configuration from the root command to the
// subcommands.
type settings struct {
	cfg    *config.Config
	lib    tabql.Config
	logger *slog.Logger
}

// NewRootCmd creates and returns the root command. Running it loads the
// sources and runs the query; the columns subcommand only prints headers.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		st      settings
	)

	rootCmd := &cobra.Command{
		Use:   "tabql [flags] [source...]",
		Short: "Query delimited text files with SQL",
		Long: `tabql loads delimited text files into a SQLite database and runs a query
against them. Each source becomes one table; "-" reads standard input.

Without --db the database is temporary and removed when tabql exits.`,
		Example: `  tabql -s "SELECT count(*) FROM tbl0" data.csv
  tabql --named-tables --db ~/sales.db -o -s "SELECT * FROM q1" q1.csv.gz
  cat data.tsv | tabql -d tab -s "SELECT c0, c2 FROM tbl0" --no-header -`,
		Version: Version,
		Args:    cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, used, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, cfg.Verbose)
			if used != "" {
				logger.Debug("using config file", slog.String("path", used))
			}

			lib, err := cfg.Library(logger)
			if err != nil {
				return err
			}
			st = settings{cfg: cfg, lib: lib, logger: logger}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), cmd, &st, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./tabql.yaml)")
	flags.StringArrayP("source", "S", nil, `source file, or "-" for standard input (repeatable)`)
	flags.Bool("no-header", false, "the first row of each source is data, not column names")
	flags.Bool("named-tables", false, "name tables after their source files instead of tbl0, tbl1, ...")
	flags.String("db", "", "store the database at this path instead of a temporary file")
	flags.StringP("delimiter", "d", config.DefaultDelimiter, `cell delimiter; "tab" or "\t" for tabs`)
	flags.StringP("encoding", "e", config.DefaultEncoding, "text encoding of the sources")
	flags.String("output-delimiter", "", "cell delimiter of the query output (default: --delimiter)")
	flags.String("output-encoding", "", "text encoding of the query output (default: --encoding)")
	flags.Bool("crlf", false, `terminate output lines with "\r\n"`)
	flags.Int("chunk-size", tabql.DefaultBatchSize, "rows inserted per transaction")
	flags.Int("fetch-size", tabql.DefaultFetchSize, "result rows fetched at a time")
	flags.StringP("sql", "s", "", "query to run after loading")
	flags.Int("skip", 0, "rows to skip at the start of each source")
	flags.BoolP("overwrite", "o", false, "drop tables that already exist in the database")
	flags.StringP("output", "O", "", "write the query result to this file; .gz, .xz and .zst compress")
	flags.String("log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	flags.String("log-format", config.DefaultLogFormat, "log format (text|json)")
	flags.BoolP("verbose", "v", false, "debug logging")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newColumnsCmd(&st))
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func runLoad(ctx context.Context, cmd *cobra.Command, st *settings, args []string) (err error) {
	b, err := newBuilder(ctx, cmd, st, args)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if st.cfg.Output != "" && st.lib.Query != "" {
		out, closeOut, err := tabql.CreateWriterForFile(st.cfg.Output)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, closeOut())
		}()
		w = out
	}

	summary, err := b.Run(ctx, w)
	if err != nil {
		return err
	}
	for _, t := range summary.Tables {
		st.logger.Info("table ready",
			slog.String("source", t.Source),
			slog.String("table", t.Table),
			slog.Int("rows", t.Stats.Rows))
	}
	return nil
}

func newBuilder(ctx context.Context, cmd *cobra.Command, st *settings, args []string) (*tabql.Builder, error) {
	sources := append(append([]string{}, st.cfg.Sources...), args...)
	if len(sources) == 0 {
		return nil, errors.New(`no sources given; pass file paths or "-" for standard input`)
	}
	return tabql.NewBuilder(st.lib).
		AddPaths(sources...).
		WithStdin(cmd.InOrStdin()).
		Build(ctx)
}
