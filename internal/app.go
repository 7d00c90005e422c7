// Package internal provides the App struct that wires all components of
// runboard together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/valter-silva-au/runboard/internal/cli"
	"github.com/valter-silva-au/runboard/internal/core"
	"github.com/valter-silva-au/runboard/internal/observability"
	"github.com/valter-silva-au/runboard/internal/storage"
	"github.com/valter-silva-au/runboard/pkg/models"
)

// Options overrides configuration values, normally from CLI flags.
type Options struct {
	ConfigFile string
	BaseDir    string
	LogLevel   string
}

// App holds all service dependencies for runboard.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config

	Logger *zap.Logger

	// Observer dependencies
	Registry *core.ContentTypeRegistry
	RunStore storage.RunStoreManager

	// Observability
	EventLog  observability.EventLog
	Recorder  *observability.Recorder
	StatsCalc observability.StatsCalculator
	Notifier  *observability.SlackNotifier
}

// NewApp creates and wires all components of runboard. basePath is the
// directory holding .runboard.yaml; run directories live under the
// configured base_dir.
func NewApp(basePath string, opts Options) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath, opts.ConfigFile)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, err
	}
	if opts.BaseDir != "" {
		cfg.BaseDir = opts.BaseDir
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	app.Config = cfg

	// --- Logging ---
	app.Logger, err = observability.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	// --- Storage layer ---
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}
	app.RunStore = storage.NewRunStore(cfg.BaseDir)

	// --- Content-type handlers ---
	app.Registry, err = core.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}

	// --- Observability ---
	eventLogPath := filepath.Join(cfg.BaseDir, observability.EventLogFileName)
	if cfg.EventLog {
		app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
		if err != nil {
			// Non-fatal: run without the audit log.
			app.Logger.Warn("event log disabled", zap.String("path", eventLogPath), zap.Error(err))
			app.EventLog = nil
		}
	}
	if app.EventLog != nil {
		app.Recorder = observability.NewRecorder(app.EventLog)
		app.StatsCalc = observability.NewStatsCalculator(app.EventLog)
	} else {
		// Stats still read an audit log written by an earlier session.
		app.StatsCalc = observability.NewFileStatsCalculator(eventLogPath)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.SlackWebhookURL)
	}

	// --- Wire CLI package-level variables ---
	cli.BaseDir = cfg.BaseDir
	cli.Logger = app.Logger
	cli.RunStore = app.RunStore
	cli.StatsCalc = app.StatsCalc
	cli.NewObserver = app.NewObserver

	app.Logger.Debug("runboard initialized",
		zap.String("base_path", basePath),
		zap.String("base_dir", cfg.BaseDir),
		zap.Bool("event_log", app.EventLog != nil),
		zap.Bool("notifications", app.Notifier != nil))

	return app, nil
}

// NewObserver returns an observer for one run, wired to the run store, the
// audit log and the notifier when those are enabled.
func (a *App) NewObserver() (*core.Observer, error) {
	opts := []core.ObserverOption{
		core.WithRunStore(a.RunStore),
		core.WithLogger(a.Logger),
	}
	if a.Recorder != nil {
		opts = append(opts, core.WithEventLogger(a.Recorder))
	}
	if a.Notifier != nil {
		opts = append(opts, core.WithNotifier(a.Notifier))
	}
	return core.NewObserver(a.Config.BaseDir, a.Registry, opts...)
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the directory holding runboard's configuration.
// It checks the RUNBOARD_HOME env var, then walks up from the current
// directory looking for .runboard.yaml, then falls back to the current
// directory.
func ResolveBasePath() string {
	if home := os.Getenv("RUNBOARD_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	cwd := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}
