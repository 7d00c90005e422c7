package observability

import (
	"fmt"
	"time"
)

// RunStats holds activity figures derived from the audit event log.
type RunStats struct {
	RunsStarted         int            `json:"runs_started"`
	RunsFinished        int            `json:"runs_finished"`
	RunsByStatus        map[string]int `json:"runs_by_status"`
	MetricPoints        int            `json:"metric_points"`
	ArtifactsRecorded   int            `json:"artifacts_recorded"`
	ArtifactsByType     map[string]int `json:"artifacts_by_type"`
	ArtifactsIgnored    int            `json:"artifacts_ignored"`
	MeanDurationSeconds float64        `json:"mean_duration_seconds"`
	EventCount          int            `json:"event_count"`
	OldestEvent         *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent         *time.Time     `json:"newest_event,omitempty"`
}

// StatsCalculator derives run statistics from the event log.
type StatsCalculator interface {
	Calculate(since time.Time) (*RunStats, error)
}

type statsCalculator struct {
	read func(EventFilter) ([]Event, error)
}

// NewStatsCalculator creates a StatsCalculator reading from eventLog.
func NewStatsCalculator(eventLog EventLog) StatsCalculator {
	return &statsCalculator{read: eventLog.Read}
}

// NewFileStatsCalculator creates a StatsCalculator reading the event log at
// path without holding it open.
func NewFileStatsCalculator(path string) StatsCalculator {
	return &statsCalculator{read: func(f EventFilter) ([]Event, error) { return ReadEventLog(path, f) }}
}

// Calculate reads all events since the given time and aggregates them.
func (sc *statsCalculator) Calculate(since time.Time) (*RunStats, error) {
	events, err := sc.read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for stats: %w", err)
	}

	s := &RunStats{
		RunsByStatus:    make(map[string]int),
		ArtifactsByType: make(map[string]int),
		EventCount:      len(events),
	}

	var totalDurationMS float64
	for i, event := range events {
		t := event.Time
		if i == 0 {
			s.OldestEvent = &t
		}
		s.NewestEvent = &t

		switch event.Type {
		case "run.started":
			s.RunsStarted++
		case "run.finished":
			s.RunsFinished++
			if status, ok := event.Data["status"].(string); ok {
				s.RunsByStatus[status]++
			}
			totalDurationMS += number(event.Data["duration_ms"])
		case "metrics.logged":
			s.MetricPoints += int(number(event.Data["points"]))
		case "artifact.recorded":
			s.ArtifactsRecorded++
			if ct, ok := event.Data["content_type"].(string); ok {
				s.ArtifactsByType[ct]++
			}
		case "artifact.ignored":
			s.ArtifactsIgnored++
		}
	}
	if s.RunsFinished > 0 {
		s.MeanDurationSeconds = totalDurationMS / 1000 / float64(s.RunsFinished)
	}

	return s, nil
}

// number reads a numeric event field. Values round-tripped through JSON are
// float64; values from an in-process log may still be ints.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
