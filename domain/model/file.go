package model

import (
	"path/filepath"
	"strings"
)

// StdinMarker is the source path that stands for standard input.
const StdinMarker = "-"

// File extensions
const (
	// ExtCSV is the CSV file extension
	ExtCSV = ".csv"
	// ExtTSV is the TSV file extension
	ExtTSV = ".tsv"
	// ExtXLSX is the Excel workbook extension
	ExtXLSX = ".xlsx"
	// ExtParquet is the Parquet file extension
	ExtParquet = ".parquet"
	// ExtGZ is the gzip compression extension
	ExtGZ = ".gz"
	// ExtBZ2 is the bzip2 compression extension
	ExtBZ2 = ".bz2"
	// ExtXZ is the xz compression extension
	ExtXZ = ".xz"
	// ExtZSTD is the zstd compression extension
	ExtZSTD = ".zst"
)

// FileFormat is the physical layout of a source.
type FileFormat int

const (
	// FormatDelimited is delimited text. Anything that is not recognized as
	// another format is treated as delimited text.
	FormatDelimited FileFormat = iota
	// FormatXLSX is an Excel workbook; the first sheet is read.
	FormatXLSX
	// FormatParquet is an Apache Parquet file.
	FormatParquet
)

// String returns the format name.
func (f FileFormat) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatParquet:
		return "parquet"
	default:
		return "delimited"
	}
}

// CompressionType represents the compression type
type CompressionType int

const (
	// CompressionNone represents no compression
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionBZ2 represents bzip2 compression
	CompressionBZ2
	// CompressionXZ represents xz compression
	CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
)

// String returns the string representation of CompressionType
func (c CompressionType) String() string {
	switch c {
	case CompressionGZ:
		return "gz"
	case CompressionBZ2:
		return "bz2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file extension for the compression type
func (c CompressionType) Extension() string {
	switch c {
	case CompressionGZ:
		return ExtGZ
	case CompressionBZ2:
		return ExtBZ2
	case CompressionXZ:
		return ExtXZ
	case CompressionZSTD:
		return ExtZSTD
	default:
		return ""
	}
}

// DetectCompression detects the compression type from a file path.
func DetectCompression(path string) CompressionType {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ExtGZ):
		return CompressionGZ
	case strings.HasSuffix(p, ExtBZ2):
		return CompressionBZ2
	case strings.HasSuffix(p, ExtXZ):
		return CompressionXZ
	case strings.HasSuffix(p, ExtZSTD):
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

// trimCompressionExt removes one trailing compression extension.
func trimCompressionExt(name string) string {
	if ext := DetectCompression(name).Extension(); ext != "" {
		return name[:len(name)-len(ext)]
	}
	return name
}

// File describes one source path.
type File struct {
	path        string
	format      FileFormat
	compression CompressionType
}

// NewFile classifies path by its extensions.
func NewFile(path string) *File {
	if path == StdinMarker {
		return &File{path: path}
	}
	return &File{
		path:        path,
		format:      detectFormat(path),
		compression: DetectCompression(path),
	}
}

// Path returns file path
func (f *File) Path() string {
	return f.path
}

// Format returns the physical layout of the file.
func (f *File) Format() FileFormat {
	return f.format
}

// Compression returns the compression applied to the file.
func (f *File) Compression() CompressionType {
	return f.compression
}

// IsStdin reports whether the file stands for standard input.
func (f *File) IsStdin() bool {
	return f.path == StdinMarker
}

// TableName derives a table name from the file name: directories are
// dropped, then one compression extension, then the format extension.
// "data/foo.csv" and "foo.csv.gz" both become "foo". Standard input keeps
// the literal marker "-".
func (f *File) TableName() string {
	if f.IsStdin() {
		return StdinMarker
	}
	name := trimCompressionExt(filepath.Base(f.path))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// detectFormat detects file format from extension, considering compressed files
func detectFormat(path string) FileFormat {
	base := trimCompressionExt(path)
	switch strings.ToLower(filepath.Ext(base)) {
	case ExtXLSX:
		return FormatXLSX
	case ExtParquet:
		return FormatParquet
	default:
		return FormatDelimited
	}
}
