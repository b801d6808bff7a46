package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andaleebali/terraclass/internal/eval"
	"github.com/andaleebali/terraclass/internal/report"
	"github.com/andaleebali/terraclass/internal/state"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded training runs",
		Long: `Runs lists the training runs recorded in the history database, newest
first. With a run id it prints that run's full detail instead,
including the stored evaluation report.`,
		Example: `  terraclass runs
  terraclass runs --limit 5
  terraclass runs 2f1c9a7e-8d34-4c14-9a6b-53f20abf11b2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, args, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 = all)")
	return cmd
}

func runRuns(cmd *cobra.Command, args []string, limit int) error {
	ctx := cmd.Context()
	cfg, err := GetConfig(ctx)
	if err != nil {
		return err
	}

	store, err := state.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		report.WriteRunDetail(out, run)

		if run.ReportJSON != "" {
			var rep eval.Report
			if err := json.Unmarshal([]byte(run.ReportJSON), &rep); err != nil {
				return fmt.Errorf("failed to decode stored report: %w", err)
			}
			fmt.Fprintln(out)
			report.WriteReport(out, &rep)
		}
		return nil
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	report.WriteRunTable(out, runs)
	return nil
}
