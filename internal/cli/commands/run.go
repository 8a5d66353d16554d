package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapclean/internal/cli/output"
	"github.com/leapstack-labs/leapclean/internal/engine"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean the orders file",
		Long: `Read the orders parquet file, drop night orders and TV products,
derive time_of_day and purchase_state, normalize text columns and write the
cleaned parquet file. The first rows of the result are printed afterwards.

Flags override leapclean.yaml and LEAPCLEAN_* environment variables.`,
		Example: `  # Clean with the defaults (orders_data.parquet -> output_directory/)
  leapclean run

  # Explicit paths, four workers, Eastern time
  leapclean run --input raw/orders.parquet --output clean/orders.parquet \
    --workers 4 --timezone America/New_York

  # Abort on the first malformed purchase address
  leapclean run --address-policy fail

  # Machine-readable summary
  leapclean run --format json`,
		Aliases: []string{"clean"},
		Args:    cobra.NoArgs,
		RunE:    runRun,
	}

	// Values are read through the config loader, not bound here.
	cmd.Flags().String("input", "", "Input parquet file (default orders_data.parquet)")
	cmd.Flags().String("output", "", "Output parquet file (default output_directory/orders_data_clean.parquet)")
	cmd.Flags().Int("preview-limit", 0, "Rows of the result to print (0 disables, default 20)")
	cmd.Flags().Int("workers", 0, "Transform workers (default 1)")
	cmd.Flags().String("timezone", "", "IANA zone order timestamps are interpreted in (default UTC)")
	cmd.Flags().String("address-policy", "", "Malformed purchase address handling: null|fail (default null)")

	_ = cmd.RegisterFlagCompletionFunc("address-policy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"null", "fail"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// runSummary is the JSON form of a run.
type runSummary struct {
	RunID      string           `json:"run_id,omitempty"`
	Status     string           `json:"status"`
	Input      string           `json:"input"`
	Output     string           `json:"output"`
	Stats      runStats         `json:"stats"`
	DurationMS int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
	Preview    []map[string]any `json:"preview,omitempty"`
}

type runStats struct {
	Read               int64 `json:"read"`
	Written            int64 `json:"written"`
	DroppedNight       int64 `json:"dropped_night"`
	DroppedTV          int64 `json:"dropped_tv"`
	DroppedNullProduct int64 `json:"dropped_null_product"`
	MalformedAddress   int64 `json:"malformed_address"`
}

func runRun(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, runErr := cmdCtx.Engine.Run(cmd.Context())
	if res == nil {
		return runErr
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(summarize(res, runErr)); err != nil {
			return err
		}
	case output.ModeCSV:
		if runErr == nil && res.Preview != nil {
			if err := r.Table(res.Preview.Columns, res.Preview.Rows); err != nil {
				return err
			}
		}
	default:
		if err := renderRunText(r, res, runErr); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

func summarize(res *engine.Result, runErr error) runSummary {
	s := runSummary{
		RunID:      res.RunID,
		Status:     "completed",
		Input:      res.InputPath,
		Output:     res.OutputPath,
		DurationMS: res.Duration.Milliseconds(),
		Stats: runStats{
			Read:               res.Stats.Read,
			Written:            res.Stats.Kept,
			DroppedNight:       res.Stats.DroppedNight,
			DroppedTV:          res.Stats.DroppedTV,
			DroppedNullProduct: res.Stats.DroppedNullProduct,
			MalformedAddress:   res.Stats.MalformedAddress,
		},
	}
	if runErr != nil {
		s.Status = "failed"
		s.Error = runErr.Error()
		s.Stats.Written = 0
	}
	if res.Preview != nil {
		for _, row := range res.Preview.Rows {
			obj := make(map[string]any, len(row))
			for i, col := range res.Preview.Columns {
				obj[col] = output.FormatValue(row[i])
			}
			s.Preview = append(s.Preview, obj)
		}
	}
	return s
}

func renderRunText(r *output.Renderer, res *engine.Result, runErr error) error {
	r.Header(1, "Run summary")
	if res.RunID != "" {
		r.KeyValue("run_id", res.RunID)
	}
	r.KeyValue("input", res.InputPath)
	r.KeyValue("output", res.OutputPath)
	r.KeyValue("rows_read", res.Stats.Read)
	r.KeyValue("dropped_night", res.Stats.DroppedNight)
	r.KeyValue("dropped_tv", res.Stats.DroppedTV)
	r.KeyValue("dropped_null_product", res.Stats.DroppedNullProduct)
	r.KeyValue("malformed_address", res.Stats.MalformedAddress)
	r.KeyValue("duration", res.Duration.Round(time.Millisecond))

	if runErr != nil {
		r.KeyValue("status", "failed")
		return nil
	}
	r.KeyValue("rows_written", res.Stats.Kept)
	r.Println("")

	if res.Preview != nil {
		r.Header(2, fmt.Sprintf("Preview (first %d rows)", len(res.Preview.Rows)))
		if err := r.Table(res.Preview.Columns, res.Preview.Rows); err != nil {
			return err
		}
	}
	r.Success(fmt.Sprintf("Wrote %d rows to %s", res.Stats.Kept, res.OutputPath))
	return nil
}
