package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/valter-silva-au/runboard/pkg/models"
)

// maxLineBytes bounds one stream line; embedding labels can make lines long.
const maxLineBytes = 16 << 20

// Target receives replayed events. core.Observer implements it.
type Target interface {
	StartRun(ev models.StartedEvent) (*models.Run, error)
	LogMetrics(metrics models.MetricsByName, info map[string]any) error
	AddArtifact(name, filename string, metadata models.ArtifactMetadata, contentType models.ContentType) error
	Finish(status models.RunStatus, stopTime time.Time) error
}

// Result summarises a replay.
type Result struct {
	Events    int
	Metrics   int
	Artifacts int
	Run       *models.Run
	Status    models.RunStatus
}

// Replayer feeds stream events to a Target one at a time, in order.
type Replayer struct {
	target Target
	dir    string
	logger *zap.Logger
}

// NewReplayer creates a Replayer. Relative artifact filenames are resolved
// against dir, normally the directory holding the stream file.
func NewReplayer(target Target, dir string, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{target: target, dir: dir, logger: logger}
}

// Replay reads r to the end or to the first failing event. Blank lines are
// skipped. Errors carry the 1-based line number.
func (rp *Replayer) Replay(ctx context.Context, r io.Reader) (*Result, error) {
	res := &Result{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("line %d: %w", lineNo, err)
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		ev, err := ParseEvent(line)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := rp.apply(ev, res); err != nil {
			return res, fmt.Errorf("line %d: %s event: %w", lineNo, ev.Event, err)
		}
		res.Events++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("reading event stream: %w", err)
	}
	return res, nil
}

func (rp *Replayer) apply(ev *Event, res *Result) error {
	switch ev.Event {
	case KindStarted:
		run, err := rp.target.StartRun(*ev.Run)
		if err != nil {
			return err
		}
		res.Run = run
		rp.logger.Debug("replayed run start", zap.String("run_id", run.ID))
	case KindMetrics:
		if err := rp.target.LogMetrics(ev.Metrics, ev.Info); err != nil {
			return err
		}
		res.Metrics++
	case KindArtifact:
		filename := ev.Filename
		if !filepath.IsAbs(filename) && rp.dir != "" {
			filename = filepath.Join(rp.dir, filename)
		}
		if err := rp.target.AddArtifact(ev.Name, filename, ev.Metadata, ev.ContentType); err != nil {
			return err
		}
		res.Artifacts++
	default:
		status, _ := ev.Event.Status()
		if err := rp.target.Finish(status, ev.Time); err != nil {
			return err
		}
		res.Status = status
		rp.logger.Debug("replayed run finish", zap.String("status", string(status)))
	}
	return nil
}
