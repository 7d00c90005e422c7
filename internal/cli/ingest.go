package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valter-silva-au/runboard/internal/ingest"
	"github.com/valter-silva-au/runboard/pkg/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|-]",
	Short: "Replay a runner event stream into a run directory",
	Long: `Replay a JSON Lines stream of runner events into a new run directory.

Each line is one event: started, metrics, artifact, completed, failed or
interrupted. Relative artifact filenames resolve against the stream file's
directory, or the current directory when reading stdin ("-" or no argument).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if NewObserver == nil {
			return fmt.Errorf("observer factory not initialized")
		}

		src := "-"
		if len(args) == 1 {
			src = args[0]
		}

		var (
			r   io.Reader
			dir string
		)
		if src == "-" {
			r = cmd.InOrStdin()
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
			dir = wd
		} else {
			f, err := os.Open(src)
			if err != nil {
				return fmt.Errorf("opening event stream: %w", err)
			}
			defer f.Close()
			r = f
			dir = filepath.Dir(src)
		}

		obs, err := NewObserver()
		if err != nil {
			return err
		}
		defer func() {
			if cerr := obs.Close(); cerr != nil {
				Logger.Warn("closing observer", zap.Error(cerr))
			}
		}()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		res, err := ingest.NewReplayer(obs, dir, Logger).Replay(ctx, r)
		if err != nil {
			// A run left open by a broken stream is recorded as interrupted.
			if run := obs.Run(); run != nil && run.Status == models.RunRunning {
				if ferr := obs.Finish(models.RunInterrupted, time.Time{}); ferr != nil {
					Logger.Warn("marking run interrupted", zap.String("run_id", run.ID), zap.Error(ferr))
				}
			}
			return fmt.Errorf("replaying %s: %w", src, err)
		}

		out := cmd.OutOrStdout()
		if res.Run == nil {
			fmt.Fprintf(out, "Replayed %d events; no run was started.\n", res.Events)
			return nil
		}
		status := res.Status
		if status == "" {
			status = res.Run.Status
		}
		fmt.Fprintf(out, "Replayed %d events into run %s (%s)\n", res.Events, res.Run.ID, status)
		fmt.Fprintf(out, "  %-12s %d\n", "Metrics:", res.Metrics)
		fmt.Fprintf(out, "  %-12s %d\n", "Artifacts:", res.Artifacts)
		fmt.Fprintf(out, "  %-12s %s\n", "Directory:", res.Run.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
