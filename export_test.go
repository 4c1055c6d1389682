package tabql

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRowQuery = `SELECT '1' AS a, 'x' AS b UNION ALL SELECT '2', 'y'`

func exportQuery(t *testing.T, query string, fetchSize int, opts ExportOptions) (string, ExportStats, error) {
	t.Helper()
	s := newTestStore(t)

	result, err := Execute(context.Background(), s.DB(), query, fetchSize)
	require.NoError(t, err)
	defer result.Close()

	var buf bytes.Buffer
	stats, err := Export(&buf, result, opts)
	return buf.String(), stats, err
}

func TestExport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		fetchSize int
		opts      ExportOptions
		want      string
		wantStats ExportStats
	}{
		{
			name:      "comma separated",
			query:     twoRowQuery,
			fetchSize: 10,
			opts:      NewExportOptions(),
			want:      "a,b\n1,x\n2,y\n",
			wantStats: ExportStats{Rows: 2, Chunks: 1},
		},
		{
			name:      "one row per chunk",
			query:     twoRowQuery,
			fetchSize: 1,
			opts:      NewExportOptions(),
			want:      "a,b\n1,x\n2,y\n",
			wantStats: ExportStats{Rows: 2, Chunks: 2},
		},
		{
			name:      "tab separated with CRLF",
			query:     twoRowQuery,
			fetchSize: 10,
			opts:      NewExportOptions().WithDelimiter('\t').WithCRLF(true),
			want:      "a\tb\r\n1\tx\r\n2\ty\r\n",
			wantStats: ExportStats{Rows: 2, Chunks: 1},
		},
		{
			name:      "cells needing quotes",
			query:     `SELECT 'a,b' AS "x y", 'say "hi"' AS q, NULL AS n`,
			fetchSize: 10,
			opts:      NewExportOptions(),
			want:      "x y,q,n\n\"a,b\",\"say \"\"hi\"\"\",\n",
			wantStats: ExportStats{Rows: 1, Chunks: 1},
		},
		{
			name:      "header only",
			query:     `SELECT 1 AS a WHERE 0`,
			fetchSize: 10,
			opts:      NewExportOptions(),
			want:      "a\n",
		},
		{
			name:      "latin1 output",
			query:     `SELECT 'café' AS name`,
			fetchSize: 10,
			opts:      NewExportOptions().WithEncoding("latin1"),
			want:      "name\ncaf\xe9\n",
			wantStats: ExportStats{Rows: 1, Chunks: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, stats, err := exportQuery(t, tt.query, tt.fetchSize, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantStats, stats)
		})
	}
}

func TestExport_EncodeError(t *testing.T) {
	t.Parallel()

	t.Run("data cell", func(t *testing.T) {
		t.Parallel()

		query := `SELECT 'ok' AS name UNION ALL SELECT 'café'`
		got, stats, err := exportQuery(t, query, 1, NewExportOptions().WithEncoding("ascii"))

		var ee *EncodeError
		require.True(t, errors.As(err, &ee), "got %v", err)
		assert.Equal(t, "ascii", ee.Encoding)
		assert.Equal(t, 2, ee.Row)
		assert.Equal(t, 1, ee.Column)

		assert.Equal(t, "name\nok\n", got, "chunks before the failing one stay written")
		assert.Equal(t, ExportStats{Rows: 1, Chunks: 1}, stats)
	})

	t.Run("failing chunk is not written", func(t *testing.T) {
		t.Parallel()

		query := `SELECT 'ok' AS name UNION ALL SELECT '日本'`
		got, _, err := exportQuery(t, query, 10, NewExportOptions().WithEncoding("latin1"))

		var ee *EncodeError
		require.True(t, errors.As(err, &ee), "got %v", err)
		assert.Equal(t, 2, ee.Row)
		assert.Equal(t, "name\n", got)
	})

	t.Run("header cell", func(t *testing.T) {
		t.Parallel()

		got, _, err := exportQuery(t, `SELECT 1 AS "café"`, 10, NewExportOptions().WithEncoding("ascii"))

		var ee *EncodeError
		require.True(t, errors.As(err, &ee), "got %v", err)
		assert.Equal(t, 0, ee.Row)
		assert.Equal(t, 1, ee.Column)
		assert.Empty(t, got)
	})
}

func TestExport_Compressed(t *testing.T) {
	t.Parallel()

	got, stats, err := exportQuery(t, twoRowQuery, 10, NewExportOptions().WithCompression(CompressionGZ))
	require.NoError(t, err)
	assert.Equal(t, ExportStats{Rows: 2, Chunks: 1}, stats)

	zr, err := gzip.NewReader(bytes.NewReader([]byte(got)))
	require.NoError(t, err)
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x\n2,y\n", string(plain))
}

func TestExport_UnknownEncoding(t *testing.T) {
	t.Parallel()

	_, _, err := exportQuery(t, twoRowQuery, 10, NewExportOptions().WithEncoding("klingon"))
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestExport_BZ2Rejected(t *testing.T) {
	t.Parallel()

	_, _, err := exportQuery(t, twoRowQuery, 10, NewExportOptions().WithCompression(CompressionBZ2))
	assert.ErrorIs(t, err, errBZ2Write)
}
