package models

import "time"

// MetricSeries holds the measurements of one named metric as parallel slices.
type MetricSeries struct {
	Values     []float64   `json:"values"`
	Steps      []int64     `json:"steps"`
	Timestamps []time.Time `json:"timestamps,omitempty"`
}

// Len returns the number of complete (value, step) pairs in the series.
// Extra entries in the longer slice are ignored.
func (s MetricSeries) Len() int {
	if len(s.Values) < len(s.Steps) {
		return len(s.Values)
	}
	return len(s.Steps)
}

// MetricsByName maps a metric name to its newly logged measurements.
type MetricsByName map[string]MetricSeries
