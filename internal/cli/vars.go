package cli

import (
	"go.uber.org/zap"

	"github.com/valter-silva-au/runboard/internal/core"
	"github.com/valter-silva-au/runboard/internal/observability"
	"github.com/valter-silva-au/runboard/internal/storage"
)

// Options carries the global flag values to the Initializer.
type Options struct {
	BaseDir    string
	ConfigFile string
	LogLevel   string
}

// Initializer builds the application from the global flags and sets the
// service variables below. It returns a func releasing what it opened.
// main sets it; tests leave it nil and set the variables directly.
var Initializer func(opts Options) (cleanup func() error, err error)

var appCleanup func() error

// Service instances, set during app initialization in app.go.
var (
	BaseDir   string
	Logger    = zap.NewNop()
	RunStore  storage.RunStoreManager
	StatsCalc observability.StatsCalculator

	// NewObserver returns a fresh observer for one run.
	NewObserver func() (*core.Observer, error)
)
