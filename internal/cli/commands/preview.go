package commands

import (
	"github.com/leapstack-labs/leapclean/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Show the first rows of a parquet file",
		Long: `Print the first rows of a parquet file.

Without an argument the configured output file is shown.`,
		Example: `  leapclean preview
  leapclean preview orders_data.parquet --limit 5
  leapclean preview output_directory/orders_data_clean.parquet --format csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := newCommandContext(cmd, engineOptions{})
			if err != nil {
				return err
			}
			defer cleanup()

			path := cmdCtx.Cfg.Output
			if len(args) == 1 {
				path = args[0]
			}

			table, err := cmdCtx.Engine.Preview(cmd.Context(), path, limit)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if mode := r.EffectiveMode(); mode == output.ModeText || mode == output.ModeMarkdown {
				r.Header(2, path)
			}
			return r.Table(table.Columns, table.Rows)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows")

	return cmd
}
