package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/runboard/pkg/models"
)

var (
	runsJSON       bool
	runsStatus     string
	runsExperiment string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Long: `List the runs recorded under the base directory, oldest first.

Filter by --status (running, completed, failed, interrupted) or by
--experiment name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if RunStore == nil {
			return fmt.Errorf("run store not initialized")
		}

		if runsStatus != "" && !validStatus(models.RunStatus(runsStatus)) {
			return fmt.Errorf("invalid status %q (use running, completed, failed or interrupted)", runsStatus)
		}

		runs, err := RunStore.ListRuns(models.RunFilter{
			Status:     models.RunStatus(runsStatus),
			Experiment: runsExperiment,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if runsJSON {
			summaries := make([]models.RunSummary, len(runs))
			for i, r := range runs {
				summaries[i] = r.Summary()
			}
			data, err := json.MarshalIndent(summaries, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting runs as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		printRunsTable(out, runs)
		return nil
	},
}

func printRunsTable(out io.Writer, runs []models.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return
	}

	fmt.Fprintf(out, "%-38s %-20s %-12s %-20s %s\n", "ID", "EXPERIMENT", "STATUS", "STARTED", "HOST")
	for _, r := range runs {
		status := styleForStatus(string(r.Status)).Render(fmt.Sprintf("%-12s", r.Status))
		fmt.Fprintf(out, "%-38s %-20s %s %-20s %s\n",
			r.ID,
			truncate(r.Experiment.Name, 20),
			status,
			r.StartTime.UTC().Format("2006-01-02 15:04:05"),
			r.Host.Hostname,
		)
	}
	fmt.Fprintf(out, "\nTotal: %d run(s)\n", len(runs))
}

func validStatus(s models.RunStatus) bool {
	switch s {
	case models.RunRunning, models.RunCompleted, models.RunFailed, models.RunInterrupted:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func init() {
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Output runs as JSON")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "Only list runs with this status")
	runsCmd.Flags().StringVar(&runsExperiment, "experiment", "", "Only list runs of this experiment")
	rootCmd.AddCommand(runsCmd)
}
