package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valter-silva-au/runboard/internal/tensor"
	"github.com/valter-silva-au/runboard/pkg/models"
)

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithSessionOpener replaces the logging session factory.
func WithSessionOpener(open SessionOpener) ObserverOption {
	return func(o *Observer) { o.openSession = open }
}

// WithArrayDecoder replaces the artifact file decoder.
func WithArrayDecoder(decode ArrayDecoder) ObserverOption {
	return func(o *Observer) { o.decode = decode }
}

// WithRunStore persists run records through store.
func WithRunStore(store RunStore) ObserverOption {
	return func(o *Observer) { o.runs = store }
}

// WithEventLogger records audit events through el.
func WithEventLogger(el EventLogger) ObserverOption {
	return func(o *Observer) { o.events = el }
}

// WithNotifier announces run starts through n.
func WithNotifier(n RunNotifier) ObserverOption {
	return func(o *Observer) { o.notifier = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ObserverOption {
	return func(o *Observer) { o.logger = l }
}

// WithClock overrides the clock used when the runner omits timestamps.
func WithClock(now func() time.Time) ObserverOption {
	return func(o *Observer) { o.now = now }
}

// Observer forwards the lifecycle events of one run into a logging session
// under <baseDir>/<run id>. It is driven entirely by its caller and is not
// safe for concurrent use.
type Observer struct {
	baseDir  string
	registry *ContentTypeRegistry
	counter  *IterationCounter

	openSession SessionOpener
	decode      ArrayDecoder
	runs        RunStore
	events      EventLogger
	notifier    RunNotifier
	logger      *zap.Logger
	now         func() time.Time

	run    *models.Run
	writer SummaryWriter
	closed bool
}

// NewObserver creates an Observer writing runs under baseDir and dispatching
// artifacts through registry.
func NewObserver(baseDir string, registry *ContentTypeRegistry, opts ...ObserverOption) (*Observer, error) {
	if registry == nil {
		return nil, fmt.Errorf("creating observer: registry is nil")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory: %w", err)
	}

	o := &Observer{
		baseDir:     abs,
		registry:    registry,
		counter:     NewIterationCounter(),
		openSession: OpenEventFileSession,
		decode:      tensor.ReadFile,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// BaseDir returns the absolute base directory.
func (o *Observer) BaseDir() string { return o.baseDir }

// Run returns the observed run, or nil before StartRun.
func (o *Observer) Run() *models.Run { return o.run }

// Counter returns the observer's iteration counter.
func (o *Observer) Counter() *IterationCounter { return o.counter }

// StartRun creates the run record and opens its logging session. The run
// directory must not exist yet.
func (o *Observer) StartRun(ev models.StartedEvent) (*models.Run, error) {
	if o.run != nil {
		return nil, ErrRunActive
	}

	id := ev.RunID
	if id == "" {
		id = uuid.NewString()
	}
	// Concurrent observers sharing baseDir serialize the claim of a run
	// directory on the lock file.
	if err := os.MkdirAll(o.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}
	unlock, err := lockFile(filepath.Join(o.baseDir, LockFileName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = unlock() }()

	dir := filepath.Join(o.baseDir, id)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking run directory: %w", err)
	}

	start := ev.StartTime
	if start.IsZero() {
		start = o.now()
	}
	run := &models.Run{
		ID:         id,
		Experiment: ev.Experiment,
		Command:    ev.Command,
		Host:       ev.Host,
		StartTime:  start,
		Status:     models.RunRunning,
		Path:       dir,
		Config:     ev.Config,
		MetaInfo:   ev.MetaInfo,
	}
	run.Description = describeRun(run)

	// dir is new under the lock; a failed start removes it.
	w, err := o.openSession(dir, run.Description)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("opening logging session: %w", err)
	}

	if o.runs != nil {
		if err := o.runs.SaveRun(run); err != nil {
			_ = w.Close()
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("saving run record: %w", err)
		}
	}
	o.run, o.writer = run, w

	o.logger.Info("run started",
		zap.String("run_id", id),
		zap.String("experiment", run.Experiment.Name),
		zap.String("path", dir))
	o.audit(EventRunStarted, map[string]any{
		"run_id":     id,
		"experiment": run.Experiment.Name,
		"hostname":   run.Host.Hostname,
		"path":       dir,
	})
	if o.notifier != nil {
		if err := o.notifier.NotifyRunStarted(run); err != nil {
			o.logger.Warn("run start notification failed", zap.String("run_id", id), zap.Error(err))
		}
	}
	return run, nil
}

// describeRun renders the session comment:
// "<experiment> started at <RFC3339> on host <hostname>", followed by
// ": <comment>" when the run config carries a comment.
func describeRun(run *models.Run) string {
	desc := fmt.Sprintf("%s started at %s on host %s",
		run.Experiment.Name, run.StartTime.Format(time.RFC3339), run.Host.Hostname)
	if c, ok := run.Config["comment"]; ok && c != nil {
		desc += fmt.Sprintf(": %v", c)
	}
	return desc
}

// LogMetrics records every (value, step) pair of every metric as a scalar.
// Metrics are visited in name order and pairs in input order; info is
// accepted for parity with the runner and not used.
func (o *Observer) LogMetrics(metrics models.MetricsByName, info map[string]any) error {
	if err := o.active(); err != nil {
		return err
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	points := 0
	for _, name := range names {
		series := metrics[name]
		for i := 0; i < series.Len(); i++ {
			if err := o.writer.AddScalar(name, series.Values[i], series.Steps[i]); err != nil {
				return fmt.Errorf("logging metric %q: %w", name, err)
			}
			points++
		}
	}

	o.logger.Debug("metrics logged",
		zap.String("run_id", o.run.ID),
		zap.Int("metrics", len(names)),
		zap.Int("points", points))
	o.audit(EventMetricsLogged, map[string]any{
		"run_id":  o.run.ID,
		"metrics": len(names),
		"points":  points,
	})
	return nil
}

// AddArtifact dispatches an artifact file to the handler registered for
// contentType. An empty or unregistered content type is ignored.
func (o *Observer) AddArtifact(name, filename string, metadata models.ArtifactMetadata, contentType models.ContentType) error {
	handler, ok := o.registry.Lookup(contentType)
	if contentType == "" || !ok {
		o.logger.Debug("artifact ignored",
			zap.String("name", name),
			zap.String("content_type", string(contentType)))
		o.audit(EventArtifactIgnored, map[string]any{
			"name":         name,
			"content_type": string(contentType),
		})
		return nil
	}
	if err := o.active(); err != nil {
		return err
	}

	explicit, hasExplicit, err := metadata.Iteration()
	if err != nil {
		return fmt.Errorf("%w: artifact %q: %v", ErrContractViolation, name, err)
	}
	var explicitPtr *int64
	if hasExplicit {
		explicitPtr = &explicit
	}
	iter := o.counter.Next(contentType, explicitPtr)

	arr, err := o.decode(filename)
	if err != nil {
		return fmt.Errorf("decoding artifact %q: %w", name, err)
	}

	err = handler(o.writer, Artifact{
		Name:      name,
		Filename:  filename,
		Array:     arr,
		Metadata:  metadata,
		Iteration: iter,
		Load:      o.decode,
	})
	if err != nil {
		return fmt.Errorf("handling %s artifact %q: %w", contentType, name, err)
	}

	o.logger.Debug("artifact recorded",
		zap.String("run_id", o.run.ID),
		zap.String("name", name),
		zap.String("content_type", string(contentType)),
		zap.Int64("iteration", iter))
	o.audit(EventArtifactRecorded, map[string]any{
		"run_id":       o.run.ID,
		"name":         name,
		"content_type": string(contentType),
		"iteration":    iter,
	})
	return nil
}

// Finish records the final status of the run and closes its session. A zero
// stopTime means now.
func (o *Observer) Finish(status models.RunStatus, stopTime time.Time) error {
	if err := o.active(); err != nil {
		return err
	}
	if stopTime.IsZero() {
		stopTime = o.now()
	}
	o.run.Status = status
	o.run.StopTime = &stopTime

	var storeErr error
	if o.runs != nil {
		if err := o.runs.UpdateStatus(o.run.ID, status, stopTime); err != nil {
			storeErr = fmt.Errorf("updating run status: %w", err)
		}
	}

	o.logger.Info("run finished",
		zap.String("run_id", o.run.ID),
		zap.String("status", string(status)),
		zap.Duration("elapsed", stopTime.Sub(o.run.StartTime)))
	o.audit(EventRunFinished, map[string]any{
		"run_id":      o.run.ID,
		"status":      string(status),
		"duration_ms": stopTime.Sub(o.run.StartTime).Milliseconds(),
	})

	if err := o.Close(); err != nil {
		return err
	}
	return storeErr
}

// Close flushes and releases the logging session. It is safe to call more
// than once and before StartRun.
func (o *Observer) Close() error {
	if o.writer == nil || o.closed {
		return nil
	}
	o.closed = true
	if err := o.writer.Close(); err != nil {
		return fmt.Errorf("closing logging session: %w", err)
	}
	return nil
}

func (o *Observer) active() error {
	if o.run == nil {
		return ErrRunNotStarted
	}
	if o.closed {
		return ErrRunClosed
	}
	return nil
}

func (o *Observer) audit(eventType string, data map[string]any) {
	if o.events == nil {
		return
	}
	if err := o.events.LogEvent(eventType, data); err != nil {
		o.logger.Warn("writing audit event failed", zap.String("type", eventType), zap.Error(err))
	}
}
