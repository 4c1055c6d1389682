// Package tabql loads delimited text files into a SQLite database and runs
// an ad hoc query against them, writing the result back out as delimited
// text.
//
// It is meant for exploring tabular data that is too large for spreadsheet
// tools. Every source becomes one table whose columns are the source's
// header names; all data columns are TEXT and every table starts with an
// engine-generated "id" column.
//
// # Features
//
//   - Delimited text in any ASCII-compatible encoding (utf8, latin1, cp1250, shift_jis, ...)
//   - Excel (XLSX, first sheet) and Parquet input
//   - Automatic handling of compressed files (gzip, bzip2, xz, zstandard)
//   - Rows committed in fixed-size transactions with relaxed durability while loading
//   - Ephemeral stores removed after the run, or persistent stores reused across runs
//   - Query results streamed in bounded chunks
//
// # Basic Usage
//
//	cfg := tabql.NewConfig().WithQuery("SELECT name, count(*) FROM tbl0 GROUP BY name")
//	if _, err := tabql.Run(ctx, cfg, os.Stdout, "people.csv"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Table Naming
//
// By default tables are named after the source position: tbl0, tbl1, and
// so on. With TableNamingFilename the file name without directory and
// extensions is used instead:
//   - "data/users.csv" becomes table "users"
//   - "orders.tsv.gz" becomes table "orders"
//   - standard input ("-") becomes table "-"
//
// # Headers
//
// With a header row, column names are trimmed and lower-cased, and shorter
// rows are padded with empty cells. Without one, columns are named c0, c1,
// ... after the width of the first row and rows are loaded as they are.
//
// # Schema Evolution
//
// Loading into an existing table of a persistent store fails with
// ErrTableExists unless overwrite is requested, in which case the table is
// recreated. Columns are only ever appended.
//
// For complete SQL syntax documentation, see: https://www.sqlite.org/lang.html
package tabql
