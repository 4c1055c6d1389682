package tabql

import (
	"context"
	"io"
)

// Run loads paths into the store described by cfg and, when cfg.Query is
// set, writes the query result to w. "-" reads standard input.
//
// Example usage:
//
//	cfg := tabql.NewConfig().
//		WithTableNaming(tabql.TableNamingFilename).
//		WithQuery(`
//			SELECT u.name, count(o.id) AS orders
//			FROM users u LEFT JOIN orders o ON o.user_id = u.user_id
//			GROUP BY u.name
//		`)
//	summary, err := tabql.Run(ctx, cfg, os.Stdout, "users.csv", "orders.csv.gz")
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, t := range summary.Tables {
//		fmt.Fprintf(os.Stderr, "%s: %d rows\n", t.Table, t.Stats.Rows)
//	}
func Run(ctx context.Context, cfg Config, w io.Writer, paths ...string) (*Summary, error) {
	b, err := NewBuilder(cfg).AddPaths(paths...).Build(ctx)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, w)
}

// Columns writes the column names each of paths would load with, one
// comma-joined line per source. No store is created.
func Columns(ctx context.Context, cfg Config, w io.Writer, paths ...string) error {
	b, err := NewBuilder(cfg).AddPaths(paths...).Build(ctx)
	if err != nil {
		return err
	}
	return b.Columns(ctx, w)
}
