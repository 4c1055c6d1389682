package tabql

import (
	"errors"
	"io"

	"github.com/nao1215/tabql/domain/model"
)

// RawReader yields undecoded rows of cells. Read returns io.EOF after the
// last row. Line reports the input line (or sheet row) of the row most
// recently returned by Read.
type RawReader interface {
	Read() ([]string, error)
	Line() int
}

// RowIterator is a single-pass pull iterator over rows.
//
//	for rows.Next() {
//		rec := rows.Record()
//		...
//	}
//	if err := rows.Err(); err != nil {
//		...
//	}
type RowIterator interface {
	Next() bool
	Record() model.Record
	Err() error
}

// SourceOptions configures how raw rows become headers and records.
type SourceOptions struct {
	// Encoding is the text encoding of every raw cell.
	Encoding string
	// Header reports whether the first row holds column names.
	Header bool
	// Skip is the number of raw rows discarded before the first row.
	Skip int
}

// RowSource turns a RawReader into a header and a stream of decoded records.
type RowSource struct {
	raw     RawReader
	codec   *TextCodec
	header  model.Header
	padding bool

	pending model.Record
	current model.Record
	err     error
	done    bool
}

var _ RowIterator = (*RowSource)(nil)

// NewRowSource reads up to and including the first row of r.
//
// The first opts.Skip rows are discarded without decoding. When opts.Header
// is set the first row supplies the column names, trimmed and lower-cased,
// and every later row is right-padded with empty cells to the header width.
// Otherwise the columns are named c0..c{n-1} after the first row's width
// and the first row is the first record; such records are never padded.
//
// It returns ErrEmptySource when no first row exists and a *DecodeError
// when a first-row cell is invalid in the encoding.
func NewRowSource(r RawReader, opts SourceOptions) (*RowSource, error) {
	codec, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	for range max(opts.Skip, 0) {
		if _, err := r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEmptySource
			}
			return nil, err
		}
	}

	first, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySource
		}
		return nil, err
	}

	s := &RowSource{raw: r, codec: codec}
	decoded, err := s.decode(first)
	if err != nil {
		return nil, err
	}

	if opts.Header {
		s.header = model.NormalizeHeader(decoded)
		s.padding = true
	} else {
		s.header = model.SyntheticHeader(len(decoded))
		s.pending = decoded
	}
	return s, nil
}

// Headers returns the column names of the source.
func (s *RowSource) Headers() model.Header {
	return s.header
}

// Next advances to the next record. It returns false at the end of the
// stream or on the first error.
func (s *RowSource) Next() bool {
	if s.done {
		return false
	}
	if s.pending != nil {
		s.current, s.pending = s.pending, nil
		return true
	}

	raw, err := s.raw.Read()
	if err != nil {
		s.done = true
		s.current = nil
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		return false
	}

	rec, err := s.decode(raw)
	if err != nil {
		s.done = true
		s.current = nil
		s.err = err
		return false
	}
	if s.padding {
		rec = rec.PadTo(len(s.header))
	}
	s.current = rec
	return true
}

// Record returns the record produced by the last call to Next.
func (s *RowSource) Record() model.Record {
	return s.current
}

// Err returns the first error that stopped the iteration.
func (s *RowSource) Err() error {
	return s.err
}

func (s *RowSource) decode(raw []string) (model.Record, error) {
	rec := make(model.Record, len(raw))
	for i, cell := range raw {
		v, ok := s.codec.Decode(cell)
		if !ok {
			return nil, &DecodeError{Encoding: s.codec.Name(), Line: s.raw.Line(), Column: i + 1}
		}
		rec[i] = v
	}
	return rec, nil
}
