package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/runboard/internal/tfevent"
	"github.com/valter-silva-au/runboard/pkg/models"
)

var showJSON bool

// readScalars is swapped out in tests.
var readScalars = tfevent.ReadScalars

// scalarSummary condenses one scalar tag of a run.
type scalarSummary struct {
	Tag       string  `json:"tag"`
	Points    int     `json:"points"`
	LastStep  int64   `json:"last_step"`
	LastValue float64 `json:"last_value"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

type showOutput struct {
	Run     *models.Run     `json:"run"`
	Scalars []scalarSummary `json:"scalars"`
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and a summary of its scalars",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if RunStore == nil {
			return fmt.Errorf("run store not initialized")
		}

		run, err := RunStore.GetRun(args[0])
		if err != nil {
			return err
		}
		scalars, err := readScalars(run.Path)
		if err != nil {
			return fmt.Errorf("reading scalars for %s: %w", run.ID, err)
		}
		summaries := summarizeScalars(scalars)

		out := cmd.OutOrStdout()
		if showJSON {
			data, err := json.MarshalIndent(showOutput{Run: run, Scalars: summaries}, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting run as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		printRun(out, run, summaries)
		return nil
	},
}

// summarizeScalars returns one summary per tag, sorted by tag.
func summarizeScalars(scalars map[string][]tfevent.ScalarPoint) []scalarSummary {
	summaries := make([]scalarSummary, 0, len(scalars))
	for tag, points := range scalars {
		if len(points) == 0 {
			continue
		}
		last := points[len(points)-1]
		s := scalarSummary{
			Tag:       tag,
			Points:    len(points),
			LastStep:  last.Step,
			LastValue: last.Value,
			Min:       points[0].Value,
			Max:       points[0].Value,
		}
		for _, p := range points[1:] {
			if p.Value < s.Min {
				s.Min = p.Value
			}
			if p.Value > s.Max {
				s.Max = p.Value
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Tag < summaries[j].Tag })
	return summaries
}

func printRun(out io.Writer, run *models.Run, summaries []scalarSummary) {
	fmt.Fprintf(out, "Run %s\n\n", run.ID)
	fmt.Fprintf(out, "  %-14s %s\n", "Experiment:", run.Experiment.Name)
	fmt.Fprintf(out, "  %-14s %s\n", "Status:", styleForStatus(string(run.Status)).Render(string(run.Status)))
	fmt.Fprintf(out, "  %-14s %s\n", "Started:", run.StartTime.UTC().Format(time.RFC3339))
	if run.StopTime != nil {
		fmt.Fprintf(out, "  %-14s %s (%s)\n", "Stopped:", run.StopTime.UTC().Format(time.RFC3339),
			run.StopTime.Sub(run.StartTime).Round(time.Second))
	}
	fmt.Fprintf(out, "  %-14s %s\n", "Host:", run.Host.Hostname)
	if run.Command != "" {
		fmt.Fprintf(out, "  %-14s %s\n", "Command:", run.Command)
	}
	fmt.Fprintf(out, "  %-14s %s\n", "Directory:", run.Path)
	fmt.Fprintf(out, "  %-14s %s\n", "Description:", run.Description)

	if len(summaries) == 0 {
		fmt.Fprintln(out, "\n  No scalars recorded.")
		return
	}

	fmt.Fprintf(out, "\n  %-24s %8s %10s %14s %14s %14s\n", "TAG", "POINTS", "LAST STEP", "LAST", "MIN", "MAX")
	for _, s := range summaries {
		fmt.Fprintf(out, "  %-24s %8d %10d %14.6g %14.6g %14.6g\n",
			truncate(s.Tag, 24), s.Points, s.LastStep, s.LastValue, s.Min, s.Max)
	}
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output the run and its scalar summary as JSON")
	rootCmd.AddCommand(showCmd)
}
