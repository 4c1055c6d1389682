package tabql

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/tabql/domain/model"
)

// ExportOptions configures how a Result is written as delimited text.
//
// Example:
//
//	opts := NewExportOptions().
//		WithDelimiter('\t').
//		WithCompression(CompressionGZ)
type ExportOptions struct {
	// Delimiter separates cells.
	Delimiter rune
	// Encoding is the output text encoding.
	Encoding string
	// CRLF terminates lines with "\r\n".
	CRLF bool
	// Compression compresses the whole output stream.
	Compression CompressionType
}

// NewExportOptions returns comma-separated UTF-8 output without compression.
func NewExportOptions() ExportOptions {
	return ExportOptions{
		Delimiter:   DefaultDelimiter,
		Encoding:    DefaultEncoding,
		Compression: CompressionNone,
	}
}

// WithDelimiter sets the cell delimiter.
func (o ExportOptions) WithDelimiter(d rune) ExportOptions {
	o.Delimiter = d
	return o
}

// WithEncoding sets the output text encoding.
func (o ExportOptions) WithEncoding(name string) ExportOptions {
	o.Encoding = name
	return o
}

// WithCRLF selects "\r\n" line endings.
func (o ExportOptions) WithCRLF(crlf bool) ExportOptions {
	o.CRLF = crlf
	return o
}

// WithCompression compresses the output.
//
// Options:
//   - CompressionNone: No compression (default)
//   - CompressionGZ: Gzip compression
//   - CompressionXZ: XZ compression
//   - CompressionZSTD: Zstandard compression
//
// Bzip2 output is not supported.
func (o ExportOptions) WithCompression(c CompressionType) ExportOptions {
	o.Compression = c
	return o
}

// ExportStats describes written output.
type ExportStats struct {
	// Rows is the number of data rows written, excluding the header.
	Rows int
	// Chunks is the number of fetched chunks written.
	Chunks int
}

// Export writes the result's column names and then every row to w.
//
// Each fetched chunk is rendered and encoded completely before any of it is
// written, so a cell that cannot be encoded (*EncodeError) leaves the chunk
// unwritten. Chunks written before the failing one remain in w.
func Export(w io.Writer, result *Result, opts ExportOptions) (stats ExportStats, err error) {
	codec, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return stats, err
	}

	out, closeOut, err := NewCompressionHandler(opts.Compression).CreateWriter(w)
	if err != nil {
		return stats, err
	}
	defer func() {
		err = errors.Join(err, closeOut())
	}()

	enc := &chunkEncoder{codec: codec, delimiter: opts.Delimiter, crlf: opts.CRLF}

	header, err := enc.encode([]model.Record{model.Record(result.Columns())}, 0)
	if err != nil {
		return stats, err
	}
	if _, err := out.Write(header); err != nil {
		return stats, fmt.Errorf("failed to write header: %w", err)
	}

	for {
		chunk, err := result.NextChunk()
		if isEOF(err) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		data, err := enc.encode(chunk, stats.Rows+1)
		if err != nil {
			return stats, err
		}
		if _, err := out.Write(data); err != nil {
			return stats, fmt.Errorf("failed to write rows: %w", err)
		}
		stats.Rows += len(chunk)
		stats.Chunks++
	}
}

// chunkEncoder renders rows as delimited text in the output encoding.
type chunkEncoder struct {
	codec     *TextCodec
	delimiter rune
	crlf      bool
	buf       bytes.Buffer
}

// encode renders rows, numbering them from firstRow for error reports.
func (e *chunkEncoder) encode(rows []model.Record, firstRow int) ([]byte, error) {
	for i, row := range rows {
		for j, cell := range row {
			if _, err := e.codec.Encode(cell); err != nil {
				return nil, &EncodeError{Encoding: e.codec.Name(), Row: firstRow + i, Column: j + 1, Err: err}
			}
		}
	}

	e.buf.Reset()
	cw := csv.NewWriter(&e.buf)
	cw.Comma = e.delimiter
	cw.UseCRLF = e.crlf
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("failed to format row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to format rows: %w", err)
	}

	text, err := e.codec.Encode(e.buf.String())
	if err != nil {
		return nil, &EncodeError{Encoding: e.codec.Name(), Row: firstRow, Err: err}
	}
	return []byte(text), nil
}
