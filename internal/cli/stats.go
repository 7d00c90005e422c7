package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	statsJSON  bool
	statsSince string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display run activity statistics",
	Long: `Display statistics derived from the audit event log.

Statistics include runs started and finished, runs by final status, metric
points written, artifacts recorded by content type and artifacts ignored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if StatsCalc == nil {
			return fmt.Errorf("stats calculator not initialized (the event log may be disabled)")
		}

		sinceTime, err := parseSinceDuration(statsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		stats, err := StatsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating stats: %w", err)
		}

		out := cmd.OutOrStdout()
		if statsJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting stats as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Stats (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", stats.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Runs started:", stats.RunsStarted)
		fmt.Fprintf(out, "  %-24s %d\n", "Runs finished:", stats.RunsFinished)
		fmt.Fprintf(out, "  %-24s %d\n", "Metric points:", stats.MetricPoints)
		fmt.Fprintf(out, "  %-24s %d\n", "Artifacts recorded:", stats.ArtifactsRecorded)
		fmt.Fprintf(out, "  %-24s %d\n", "Artifacts ignored:", stats.ArtifactsIgnored)
		if stats.RunsFinished > 0 {
			fmt.Fprintf(out, "  %-24s %s\n", "Mean run duration:",
				time.Duration(stats.MeanDurationSeconds*float64(time.Second)).Round(time.Second))
		}

		if len(stats.RunsByStatus) > 0 {
			fmt.Fprintln(out, "\n  Runs by status:")
			for _, k := range sortedKeys(stats.RunsByStatus) {
				fmt.Fprintf(out, "    %-20s %d\n", k+":", stats.RunsByStatus[k])
			}
		}

		if len(stats.ArtifactsByType) > 0 {
			fmt.Fprintln(out, "\n  Artifacts by type:")
			for _, k := range sortedKeys(stats.ArtifactsByType) {
				fmt.Fprintf(out, "    %-20s %d\n", k+":", stats.ArtifactsByType[k])
			}
		}

		if stats.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", stats.OldestEvent.Format(time.RFC3339))
		}
		if stats.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", stats.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output stats as JSON")
	statsCmd.Flags().StringVar(&statsSince, "since", "7d", "Time window for stats (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(statsCmd)
}
