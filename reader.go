package tabql

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"
)

// parquetBatchRows is the number of rows converted per arrow record batch.
const parquetBatchRows = 4096

// DelimitedReader reads delimited text. Rows may have differing widths and
// stray quotes inside unquoted cells are kept literally. Blank lines are
// returned as rows with no cells.
type DelimitedReader struct {
	r     *csv.Reader
	src   *lineCounter
	line  int
	end   int
	blank int

	next     []string
	nextLine int
	nextEnd  int
}

// NewDelimitedReader returns a RawReader over delimited text.
func NewDelimitedReader(r io.Reader, delimiter rune) *DelimitedReader {
	src := &lineCounter{r: r}
	cr := csv.NewReader(src)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &DelimitedReader{r: cr, src: src}
}

// Read returns the next row.
func (d *DelimitedReader) Read() ([]string, error) {
	if d.blank == 0 && d.next == nil {
		if err := d.fill(); err != nil {
			return nil, err
		}
	}
	if d.blank > 0 {
		d.blank--
		d.end++
		d.line = d.end
		return []string{}, nil
	}
	rec := d.next
	d.next = nil
	d.line, d.end = d.nextLine, d.nextEnd
	return rec, nil
}

// fill reads the next record and counts the blank lines csv.Reader skipped
// before it, or after the last record at the end of input.
func (d *DelimitedReader) fill() error {
	rec, err := d.r.Read()
	if errors.Is(err, io.EOF) {
		d.blank = max(d.src.lines()-d.end, 0)
		if d.blank > 0 {
			return nil
		}
		return io.EOF
	}
	if err != nil {
		return err
	}

	start, _ := d.r.FieldPos(0)
	last := len(rec) - 1
	lastLine, _ := d.r.FieldPos(last)
	d.blank = max(start-d.end-1, 0)
	d.next = rec
	d.nextLine = start
	d.nextEnd = lastLine + strings.Count(rec[last], "\n")
	return nil
}

// Line returns the line on which the last row started.
func (d *DelimitedReader) Line() int {
	return d.line
}

// lineCounter counts the lines of everything read through it.
type lineCounter struct {
	r        io.Reader
	newlines int
	last     byte
}

func (c *lineCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.newlines += bytes.Count(p[:n], []byte{'\n'})
		c.last = p[n-1]
	}
	return n, err
}

// lines returns the number of lines read so far, counting an unterminated
// last line.
func (c *lineCounter) lines() int {
	if c.last != 0 && c.last != '\n' {
		return c.newlines + 1
	}
	return c.newlines
}

// XLSXReader reads the rows of the first sheet of a workbook.
type XLSXReader struct {
	file *excelize.File
	rows *excelize.Rows
	line int
}

// NewXLSXReader opens a workbook from r.
func NewXLSXReader(r io.Reader) (*XLSXReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, ErrEmptySource
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open rows iterator for sheet %s: %w", sheets[0], err)
	}
	return &XLSXReader{file: f, rows: rows}, nil
}

// Read returns the next sheet row.
func (x *XLSXReader) Read() ([]string, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	x.line++
	cols, err := x.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read row %d: %w", x.line, err)
	}
	return cols, nil
}

// Line returns the 1-based sheet row of the last row.
func (x *XLSXReader) Line() int {
	return x.line
}

// Close releases the workbook.
func (x *XLSXReader) Close() error {
	return errors.Join(x.rows.Close(), x.file.Close())
}

// ParquetReader reads a Parquet file. The first row it returns holds the
// schema's field names; later rows hold values rendered as text, with
// nulls as empty cells.
type ParquetReader struct {
	table  arrow.Table
	tr     *array.TableReader
	names  []string
	rec    arrow.Record
	offset int64
	line   int
}

// NewParquetReader reads the whole file from r; Parquet needs random access.
func NewParquetReader(ctx context.Context, r io.Reader) (*ParquetReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptySource
	}

	pq, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pq.Close()

	fr, err := pqarrow.NewFileReader(pq, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}

	fields := table.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}

	return &ParquetReader{
		table: table,
		tr:    array.NewTableReader(table, parquetBatchRows),
		names: names,
	}, nil
}

// Read returns the next row.
func (p *ParquetReader) Read() ([]string, error) {
	if p.names != nil {
		row := p.names
		p.names = nil
		p.line++
		return row, nil
	}

	for p.rec == nil || p.offset >= p.rec.NumRows() {
		if !p.tr.Next() {
			if err := p.tr.Err(); err != nil {
				return nil, fmt.Errorf("error reading table records: %w", err)
			}
			return nil, io.EOF
		}
		p.rec = p.tr.Record()
		p.offset = 0
	}

	row := make([]string, p.rec.NumCols())
	for j, col := range p.rec.Columns() {
		if !col.IsNull(int(p.offset)) {
			row[j] = col.ValueStr(int(p.offset))
		}
	}
	p.offset++
	p.line++
	return row, nil
}

// Line returns the 1-based row number, counting the field-name row.
func (p *ParquetReader) Line() int {
	return p.line
}

// Close releases the arrow table.
func (p *ParquetReader) Close() error {
	p.tr.Release()
	p.table.Release()
	return nil
}
