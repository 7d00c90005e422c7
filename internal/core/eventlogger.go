package core

// Audit event types written by the Observer.
const (
	EventRunStarted       = "run.started"
	EventMetricsLogged    = "metrics.logged"
	EventArtifactRecorded = "artifact.recorded"
	EventArtifactIgnored  = "artifact.ignored"
	EventRunFinished      = "run.finished"
)

// EventLogger is the subset of the observability event log that the Observer
// needs. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}
