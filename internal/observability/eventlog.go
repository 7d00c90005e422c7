package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventLogFileName is the audit log kept in the base directory.
const EventLogFileName = ".runboard_events.jsonl"

// Event represents one audited observer action.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // DEBUG, INFO, WARN
	Type    string         `json:"type"`  // e.g. "run.started", "artifact.recorded"
	RunID   string         `json:"run_id,omitempty"`
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter specifies criteria for reading events.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  string
	RunID string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog implements EventLog using an append-only JSONL file.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog creates a new EventLog backed by a JSONL file at the given path.
func NewJSONLEventLog(path string) (EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f}, nil
}

// Write appends a JSON-encoded event followed by a newline to the log file.
func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read scans the log file and returns the events matching filter in write
// order. Malformed lines are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	return ReadEventLog(l.path, filter)
}

// Close closes the underlying log file.
func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

// ReadEventLog reads the events at path without opening it for writing. A
// missing file yields no events.
func ReadEventLog(path string, filter EventFilter) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.RunID != "" && event.RunID != filter.RunID {
		return false
	}
	return true
}

// Recorder turns observer audit calls into Events on an EventLog.
type Recorder struct {
	log EventLog
	now func() time.Time
}

// NewRecorder creates a Recorder writing to log.
func NewRecorder(log EventLog) *Recorder {
	return &Recorder{log: log, now: time.Now}
}

// LogEvent records an event of eventType. A "run_id" entry in data is lifted
// into Event.RunID.
func (r *Recorder) LogEvent(eventType string, data map[string]any) error {
	runID, _ := data["run_id"].(string)
	return r.log.Write(Event{
		Time:    r.now().UTC(),
		Level:   eventLevel(eventType, data),
		Type:    eventType,
		RunID:   runID,
		Message: eventMessage(eventType, data),
		Data:    data,
	})
}

func eventLevel(eventType string, data map[string]any) string {
	switch eventType {
	case "artifact.ignored":
		return "DEBUG"
	case "run.finished":
		if s, _ := data["status"].(string); s == "failed" || s == "interrupted" {
			return "WARN"
		}
	}
	return "INFO"
}

func eventMessage(eventType string, data map[string]any) string {
	switch eventType {
	case "run.started":
		return fmt.Sprintf("run %v started", data["run_id"])
	case "metrics.logged":
		return fmt.Sprintf("%v points across %v metrics", data["points"], data["metrics"])
	case "artifact.recorded":
		return fmt.Sprintf("%v artifact %v at iteration %v", data["content_type"], data["name"], data["iteration"])
	case "artifact.ignored":
		return fmt.Sprintf("artifact %v with content type %q ignored", data["name"], data["content_type"])
	case "run.finished":
		return fmt.Sprintf("run %v %v", data["run_id"], data["status"])
	default:
		return eventType
	}
}
