package cli

import (
	"github.com/spf13/cobra"
)

// newColumnsCmd prints the column names each source would be loaded with.
func newColumnsCmd(st *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "columns [flags] [source...]",
		Short: "Print the column names of each source",
		Long: `Print the column names each source would be loaded with, one comma-joined
line per source. Nothing is loaded and no database is created.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBuilder(cmd.Context(), cmd, st, args)
			if err != nil {
				return err
			}
			return b.Columns(cmd.Context(), cmd.OutOrStdout())
		},
	}
}
