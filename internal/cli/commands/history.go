package commands

import (
	"time"

	"github.com/leapstack-labs/leapclean/internal/cli/output"
	"github.com/leapstack-labs/leapclean/pkg/core"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Long: `List recent runs recorded in the state database, newest first.

History is kept in state_path (default .leapclean/state.db).`,
		Example: `  leapclean history
  leapclean history --limit 5 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := cmdCtx.Engine.History(limit)
			if err != nil {
				return err
			}
			return renderHistory(cmdCtx.Renderer, runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 for all)")

	return cmd
}

var historyColumns = []string{
	"id", "status", "started_at", "duration",
	"rows_read", "rows_written", "dropped_night", "dropped_tv", "dropped_null_product", "malformed_address",
	"error",
}

func renderHistory(r *output.Renderer, runs []*core.BatchRun) error {
	rows := make([][]any, len(runs))
	for i, run := range runs {
		var duration any
		if run.CompletedAt != nil {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		var errMsg any
		if run.Error != "" {
			errMsg = run.Error
		}
		rows[i] = []any{
			run.ID,
			string(run.Status),
			run.StartedAt.Format(time.RFC3339),
			duration,
			run.Counts.RowsRead,
			run.Counts.RowsWritten,
			run.Counts.DroppedNight,
			run.Counts.DroppedTV,
			run.Counts.DroppedNullProduct,
			run.Counts.MalformedAddress,
			errMsg,
		}
	}

	if mode := r.EffectiveMode(); mode == output.ModeText || mode == output.ModeMarkdown {
		r.Header(1, "Run history")
	}
	return r.Table(historyColumns, rows)
}
