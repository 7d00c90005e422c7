package models

import "time"

// RunStatus represents the lifecycle state of a tracked run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// ExperimentInfo describes the experiment a run belongs to.
type ExperimentInfo struct {
	Name         string   `yaml:"name" json:"name"`
	BaseDir      string   `yaml:"base_dir,omitempty" json:"base_dir,omitempty"`
	MainFile     string   `yaml:"main_file,omitempty" json:"main_file,omitempty"`
	Sources      []string `yaml:"sources,omitempty" json:"sources,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// HostInfo describes the machine a run executes on.
type HostInfo struct {
	Hostname string   `yaml:"hostname" json:"hostname"`
	OS       string   `yaml:"os,omitempty" json:"os,omitempty"`
	CPU      string   `yaml:"cpu,omitempty" json:"cpu,omitempty"`
	GPUs     []string `yaml:"gpus,omitempty" json:"gpus,omitempty"`
	Runtime  string   `yaml:"runtime,omitempty" json:"runtime,omitempty"`
}

// StartedEvent carries everything the runner reports when a run starts.
type StartedEvent struct {
	RunID      string         `json:"run_id"`
	Experiment ExperimentInfo `json:"experiment"`
	Command    string         `json:"command"`
	Host       HostInfo       `json:"host"`
	StartTime  time.Time      `json:"start_time"`
	Config     map[string]any `json:"config,omitempty"`
	MetaInfo   map[string]any `json:"meta,omitempty"`
}

// Run is the record of one tracked experiment execution. Identity fields are
// fixed at run start; only Status and StopTime change afterwards.
type Run struct {
	ID          string         `yaml:"id" json:"id"`
	Experiment  ExperimentInfo `yaml:"experiment" json:"experiment"`
	Command     string         `yaml:"command" json:"command"`
	Host        HostInfo       `yaml:"host" json:"host"`
	StartTime   time.Time      `yaml:"start_time" json:"start_time"`
	StopTime    *time.Time     `yaml:"stop_time,omitempty" json:"stop_time,omitempty"`
	Status      RunStatus      `yaml:"status" json:"status"`
	Description string         `yaml:"description" json:"description"`
	Path        string         `yaml:"path" json:"path"`
	Config      map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	MetaInfo    map[string]any `yaml:"meta,omitempty" json:"meta,omitempty"`
}

// RunSummary is the condensed listing form of a Run.
type RunSummary struct {
	ID         string    `json:"id"`
	Experiment string    `json:"experiment"`
	Hostname   string    `json:"hostname"`
	Status     RunStatus `json:"status"`
	StartTime  time.Time `json:"start_time"`
	Path       string    `json:"path"`
}

// Summary returns the listing form of the run.
func (r Run) Summary() RunSummary {
	return RunSummary{
		ID:         r.ID,
		Experiment: r.Experiment.Name,
		Hostname:   r.Host.Hostname,
		Status:     r.Status,
		StartTime:  r.StartTime,
		Path:       r.Path,
	}
}

// RunFilter narrows ListRuns results. Zero fields match everything.
type RunFilter struct {
	Status     RunStatus
	Experiment string
	Since      time.Time
}

// Matches reports whether r satisfies the filter.
func (f RunFilter) Matches(r Run) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Experiment != "" && r.Experiment.Name != f.Experiment {
		return false
	}
	if !f.Since.IsZero() && r.StartTime.Before(f.Since) {
		return false
	}
	return true
}
