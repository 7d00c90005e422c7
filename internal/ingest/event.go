// Package ingest replays a JSON Lines stream of experiment runner events into
// an observer, standing in for a live runner process.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valter-silva-au/runboard/pkg/models"
)

// Kind names a runner lifecycle event.
type Kind string

const (
	KindStarted     Kind = "started"
	KindMetrics     Kind = "metrics"
	KindArtifact    Kind = "artifact"
	KindCompleted   Kind = "completed"
	KindFailed      Kind = "failed"
	KindInterrupted Kind = "interrupted"
)

// ErrUnknownEvent is returned for a line whose event kind is not recognised.
var ErrUnknownEvent = errors.New("unknown event")

// Event is one line of the stream. Which fields are used depends on Event:
//
//	{"event":"started","run":{...}}
//	{"event":"metrics","metrics":{"loss":{"values":[..],"steps":[..]}}}
//	{"event":"artifact","name":"..","filename":"..","content_type":"..","metadata":{..}}
//	{"event":"completed","time":"2025-06-01T10:00:00Z"}
type Event struct {
	Event Kind      `json:"event"`
	Time  time.Time `json:"time,omitempty"`

	Run *models.StartedEvent `json:"run,omitempty"`

	Metrics models.MetricsByName `json:"metrics,omitempty"`
	Info    map[string]any       `json:"info,omitempty"`

	Name        string                  `json:"name,omitempty"`
	Filename    string                  `json:"filename,omitempty"`
	ContentType models.ContentType      `json:"content_type,omitempty"`
	Metadata    models.ArtifactMetadata `json:"metadata,omitempty"`
}

// ParseEvent decodes one stream line and checks that the fields its kind
// needs are present.
func ParseEvent(line []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, fmt.Errorf("parsing event JSON: %w", err)
	}

	switch ev.Event {
	case KindStarted:
		if ev.Run == nil {
			return nil, fmt.Errorf("started event has no run")
		}
	case KindArtifact:
		if ev.Filename == "" {
			return nil, fmt.Errorf("artifact event %q has no filename", ev.Name)
		}
	case KindMetrics, KindCompleted, KindFailed, KindInterrupted:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownEvent, ev.Event)
	}
	return &ev, nil
}

// Status maps a terminal event kind to the run status it records.
func (k Kind) Status() (models.RunStatus, bool) {
	switch k {
	case KindCompleted:
		return models.RunCompleted, true
	case KindFailed:
		return models.RunFailed, true
	case KindInterrupted:
		return models.RunInterrupted, true
	default:
		return "", false
	}
}
