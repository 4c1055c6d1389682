package tabql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/nao1215/tabql/domain/model"
)

// Builder collects the sources of one run and executes it.
//
// The typical usage pattern is:
//
//	b, err := tabql.NewBuilder(cfg).AddPaths("users.csv", "orders.tsv.gz").Build(ctx)
//	if err != nil {
//		return err
//	}
//	summary, err := b.Run(ctx, os.Stdout)
type Builder struct {
	cfg Config
	// paths contains regular file paths and the stdin marker
	paths []string
	// readers contains caller supplied streams
	readers []readerInput
	// filesystems contains fs.FS instances
	filesystems []fs.FS
	// sources is filled by Build, in the order inputs were added
	sources []*source
	stdin   io.Reader
	built   bool
}

// readerInput is a stream registered with AddReader.
type readerInput struct {
	reader io.Reader
	name   string
}

// LoadedTable describes one loaded source.
type LoadedTable struct {
	// Source is the path the rows came from.
	Source string
	// Table is the table the rows went to.
	Table string
	// Columns are the source's column names.
	Columns model.Header
	// Stats covers committed rows.
	Stats LoadStats
}

// Summary describes a completed run.
type Summary struct {
	// Tables lists loaded sources in load order.
	Tables []LoadedTable
	// Export is set when a query ran.
	Export *ExportStats
}

// NewBuilder creates a builder for a run with the given configuration.
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		cfg:   cfg,
		stdin: os.Stdin,
	}
}

// AddPath adds a source file. "-" stands for standard input.
//
// Supported formats: delimited text, .xlsx (first sheet), .parquet
// Supported compression: .gz, .bz2, .xz, .zst
//
// Returns the builder for method chaining.
func (b *Builder) AddPath(path string) *Builder {
	b.paths = append(b.paths, path)
	b.sources = nil
	b.built = false
	return b
}

// AddPaths adds multiple source files.
//
// Returns the builder for method chaining.
func (b *Builder) AddPaths(paths ...string) *Builder {
	for _, p := range paths {
		b.AddPath(p)
	}
	return b
}

// AddReader adds a stream as a source. name is classified like a file
// path: its extensions select format and compression, and it supplies the
// table name in filename naming mode.
//
// Returns the builder for method chaining.
func (b *Builder) AddReader(r io.Reader, name string) *Builder {
	b.readers = append(b.readers, readerInput{reader: r, name: name})
	b.sources = nil
	b.built = false
	return b
}

// AddFS adds every regular file of filesystem as a source, in lexical
// order. This is useful for embedded data.
//
// Returns the builder for method chaining.
func (b *Builder) AddFS(filesystem fs.FS) *Builder {
	b.filesystems = append(b.filesystems, filesystem)
	b.sources = nil
	b.built = false
	return b
}

// WithStdin replaces the stream read for the "-" source.
func (b *Builder) WithStdin(r io.Reader) *Builder {
	b.stdin = r
	return b
}

// Build validates the configuration and every input. Paths are processed
// before readers, readers before filesystems.
//
// Returns the same builder instance for method chaining, or an error if validation fails.
func (b *Builder) Build(_ context.Context) (*Builder, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	v := newValidator()
	sources := make([]*source, 0, len(b.paths)+len(b.readers))
	for _, path := range b.paths {
		if err := v.validatePath(path); err != nil {
			return nil, err
		}
		sources = append(sources, &source{file: model.NewFile(path)})
	}
	for _, in := range b.readers {
		if err := v.validateReader(in.reader, in.name); err != nil {
			return nil, err
		}
		sources = append(sources, &source{file: model.NewFile(in.name), reader: in.reader})
	}
	for _, filesystem := range b.filesystems {
		if filesystem == nil {
			return nil, errors.New("FS cannot be nil")
		}
		fsSources, err := collectFSSources(filesystem)
		if err != nil {
			return nil, fmt.Errorf("failed to process FS input: %w", err)
		}
		sources = append(sources, fsSources...)
	}
	if err := v.validateSources(sources); err != nil {
		return nil, err
	}

	b.sources = sources
	b.built = true
	return b, nil
}

// Run loads every source into the configured store and, when a query is
// configured, writes its result to w. An ephemeral store is removed before
// Run returns, also on failure.
func (b *Builder) Run(ctx context.Context, w io.Writer) (*Summary, error) {
	if !b.built {
		return nil, errors.New("no sources validated, did you call Build()?")
	}

	logger := b.cfg.logger()
	summary := &Summary{}
	err := WithStore(ctx, b.cfg.DBPath, logger, func(s *Store) error {
		for i, src := range b.sources {
			loaded, err := b.load(ctx, s, i, src)
			if err != nil {
				return err
			}
			summary.Tables = append(summary.Tables, loaded)
		}

		if b.cfg.Query == "" {
			return nil
		}
		stats, err := b.query(ctx, s, w)
		if err != nil {
			return err
		}
		summary.Export = &stats
		return nil
	})
	return summary, err
}

// Columns writes the comma-joined column names of every source to w, one
// line per source, without touching a store.
func (b *Builder) Columns(ctx context.Context, w io.Writer) error {
	if !b.built {
		return errors.New("no sources validated, did you call Build()?")
	}

	for _, src := range b.sources {
		header, err := b.headers(ctx, src)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, header.String()); err != nil {
			return fmt.Errorf("failed to write columns: %w", err)
		}
	}
	return nil
}

func (b *Builder) load(ctx context.Context, s *Store, index int, src *source) (loaded LoadedTable, err error) {
	name := tableName(b.cfg.TableNaming, index, src.file)
	ec := NewErrorContext("load", src.displayName()).WithTable(name)
	logger := b.cfg.logger().With(slog.String("source", src.displayName()), slog.String("table", name))

	opened, err := b.open(ctx, src)
	if err != nil {
		return loaded, ec.Error(err)
	}
	defer func() {
		if cerr := opened.close(); cerr != nil {
			err = errors.Join(err, ec.WithDetails("close source").Error(cerr))
		}
	}()

	rows, err := NewRowSource(opened.raw, b.sourceOptions(opened))
	if err != nil {
		return loaded, ec.Error(err)
	}
	columns := rows.Headers()
	logger.Debug("read header", slog.String("columns", columns.String()))

	if err := EnsureTable(ctx, s.DB(), name, columns, b.cfg.Overwrite); err != nil {
		return loaded, ec.Error(err)
	}

	stats, err := NewLoader(s.DB(), b.cfg.BatchSize, logger).Load(ctx, name, columns, rows)
	loaded = LoadedTable{Source: src.displayName(), Table: name, Columns: columns, Stats: stats}
	if err != nil {
		return loaded, ec.WithDetails(fmt.Sprintf("%d rows committed", stats.Rows)).Error(err)
	}
	logger.Info("loaded source", slog.Int("rows", stats.Rows), slog.Int("batches", stats.Batches))
	return loaded, nil
}

func (b *Builder) query(ctx context.Context, s *Store, w io.Writer) (stats ExportStats, err error) {
	result, err := Execute(ctx, s.DB(), b.cfg.Query, b.cfg.FetchSize)
	if err != nil {
		return stats, err
	}
	defer func() {
		err = errors.Join(err, result.Close())
	}()

	stats, err = Export(w, result, b.cfg.exportOptions())
	if err != nil {
		return stats, err
	}
	b.cfg.logger().Debug("exported result", slog.Int("rows", stats.Rows), slog.Int("chunks", stats.Chunks))
	return stats, nil
}

func (b *Builder) headers(ctx context.Context, src *source) (header model.Header, err error) {
	ec := NewErrorContext("read columns", src.displayName())
	opened, err := b.open(ctx, src)
	if err != nil {
		return nil, ec.Error(err)
	}
	defer func() {
		if cerr := opened.close(); cerr != nil {
			err = errors.Join(err, ec.Error(cerr))
		}
	}()

	rows, err := NewRowSource(opened.raw, b.sourceOptions(opened))
	if err != nil {
		return nil, ec.Error(err)
	}
	return rows.Headers(), nil
}

func (b *Builder) open(ctx context.Context, src *source) (*openedSource, error) {
	return openSource(ctx, src, b.stdin, b.cfg.Delimiter, b.cfg.Encoding)
}

func (b *Builder) sourceOptions(opened *openedSource) SourceOptions {
	opts := b.cfg.sourceOptions()
	opts.Encoding = opened.encoding
	return opts
}

// collectFSSources lists the regular files of filesystem.
func collectFSSources(filesystem fs.FS) ([]*source, error) {
	var sources []*source
	err := fs.WalkDir(filesystem, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		sources = append(sources, &source{file: model.NewFile(path), fsys: filesystem})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}
