package core

import (
	"time"

	"github.com/valter-silva-au/runboard/internal/tensor"
	"github.com/valter-silva-au/runboard/internal/tfevent"
	"github.com/valter-silva-au/runboard/pkg/models"
)

// SummaryWriter is the logging client a run session writes through.
// tfevent.Writer implements it.
type SummaryWriter interface {
	AddScalar(tag string, value float64, step int64) error
	AddImage(tag string, img *tensor.Array, step int64, layout tfevent.ImageLayout) error
	AddHistogram(tag string, values *tensor.Array, step int64) error
	AddAudio(tag string, samples *tensor.Array, step int64, sampleRate float64) error
	AddEmbedding(mat *tensor.Array, labels []string, labelImg *tensor.Array, step int64, tag string) error
	Flush() error
	Close() error
}

// SessionOpener opens a logging session rooted at dir, recording comment as
// the session description.
type SessionOpener func(dir, comment string) (SummaryWriter, error)

// OpenEventFileSession is the default SessionOpener. It writes TensorBoard
// event files.
func OpenEventFileSession(dir, comment string) (SummaryWriter, error) {
	return tfevent.NewWriter(dir, tfevent.WithComment(comment))
}

// ArrayDecoder loads the numeric array stored in an artifact file.
type ArrayDecoder func(path string) (*tensor.Array, error)

// RunStore persists run records.
// This interface is defined locally in core to avoid importing storage.
type RunStore interface {
	SaveRun(run *models.Run) error
	UpdateStatus(runID string, status models.RunStatus, stopTime time.Time) error
}

// RunNotifier announces new runs to an external channel.
// This interface is defined locally in core to avoid importing observability.
type RunNotifier interface {
	NotifyRunStarted(run *models.Run) error
}
