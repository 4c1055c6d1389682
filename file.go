package tabql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nao1215/tabql/domain/model"
)

// source is one input of a run: a path, the stdin marker, a caller
// supplied reader or a file inside an fs.FS.
type source struct {
	file   *model.File
	reader io.Reader
	fsys   fs.FS
}

// displayName returns the name used in logs and error messages.
func (s *source) displayName() string {
	if s.file.IsStdin() {
		return "<stdin>"
	}
	return s.file.Path()
}

// openedSource is a source ready for row reading.
type openedSource struct {
	raw RawReader
	// encoding is the text encoding of the raw cells. Binary formats
	// always yield UTF-8.
	encoding string
	close    func() error
}

// openSource opens src, undoes its compression and selects a RawReader
// for its format. A reader attached to src is used instead of the file.
func openSource(ctx context.Context, src *source, stdin io.Reader, delimiter rune, encoding string) (*openedSource, error) {
	var (
		input    io.Reader
		closeRaw = nop
	)
	switch {
	case src.reader != nil:
		input = src.reader
	case src.fsys != nil:
		f, err := src.fsys.Open(src.file.Path())
		if err != nil {
			return nil, fmt.Errorf("failed to open source: %w", err)
		}
		input = f
		closeRaw = f.Close
	case src.file.IsStdin():
		input = stdin
	default:
		f, err := os.Open(src.file.Path()) //nolint:gosec // User-provided path is necessary for file operations
		if err != nil {
			return nil, fmt.Errorf("failed to open source: %w", err)
		}
		input = f
		closeRaw = f.Close
	}

	decompressed, closeDecomp, err := NewCompressionHandler(src.file.Compression()).CreateReader(input)
	if err != nil {
		return nil, errors.Join(err, closeRaw())
	}
	closeAll := func() error {
		return errors.Join(closeDecomp(), closeRaw())
	}

	switch src.file.Format() {
	case model.FormatXLSX:
		x, err := NewXLSXReader(decompressed)
		if err != nil {
			return nil, errors.Join(err, closeAll())
		}
		return &openedSource{
			raw:      x,
			encoding: DefaultEncoding,
			close:    func() error { return errors.Join(x.Close(), closeAll()) },
		}, nil

	case model.FormatParquet:
		p, err := NewParquetReader(ctx, decompressed)
		if err != nil {
			return nil, errors.Join(err, closeAll())
		}
		return &openedSource{
			raw:      p,
			encoding: DefaultEncoding,
			close:    func() error { return errors.Join(p.Close(), closeAll()) },
		}, nil

	default:
		return &openedSource{
			raw:      NewDelimitedReader(decompressed, delimiter),
			encoding: encoding,
			close:    closeAll,
		}, nil
	}
}
