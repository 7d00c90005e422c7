// Package mcp provides an MCP (Model Context Protocol) server that exposes
// recorded runs and their scalars as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/runboard/internal/observability"
	"github.com/valter-silva-au/runboard/internal/tfevent"
	"github.com/valter-silva-au/runboard/pkg/models"
)

// RunReader is the subset of the run store the server needs.
type RunReader interface {
	GetRun(id string) (*models.Run, error)
	ListRuns(filter models.RunFilter) ([]models.Run, error)
}

// Server wraps runboard's read side and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	runs        RunReader
	statsCalc   observability.StatsCalculator
	readScalars func(dir string) (map[string][]tfevent.ScalarPoint, error)
}

// NewServer creates a new MCP server over runs. statsCalc may be nil if the
// event log is disabled.
func NewServer(runs RunReader, statsCalc observability.StatsCalculator, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		runs:        runs,
		statsCalc:   statsCalc,
		readScalars: tfevent.ReadScalars,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "runboard", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listRunsInput struct {
	Status     string `json:"status,omitempty" jsonschema:"filter runs by status (running, completed, failed, interrupted)"`
	Experiment string `json:"experiment,omitempty" jsonschema:"filter runs by experiment name"`
}

type runSummaryOutput struct {
	ID         string `json:"id"`
	Experiment string `json:"experiment"`
	Hostname   string `json:"hostname"`
	Status     string `json:"status"`
	StartTime  string `json:"start_time"`
	Path       string `json:"path"`
}

type listRunsOutput struct {
	Runs  []runSummaryOutput `json:"runs"`
	Count int                `json:"count"`
}

type getRunInput struct {
	RunID string `json:"run_id" jsonschema:"required,the run identifier (the run's directory name under the base directory)"`
}

type runOutput struct {
	ID          string         `json:"id"`
	Experiment  string         `json:"experiment"`
	Command     string         `json:"command,omitempty"`
	Hostname    string         `json:"hostname"`
	Status      string         `json:"status"`
	Description string         `json:"description"`
	StartTime   string         `json:"start_time"`
	StopTime    string         `json:"stop_time,omitempty"`
	Path        string         `json:"path"`
	Config      map[string]any `json:"config,omitempty"`
}

type getScalarsInput struct {
	RunID string `json:"run_id" jsonschema:"required,the run identifier"`
	Tag   string `json:"tag,omitempty" jsonschema:"only return this scalar tag"`
	Last  int    `json:"last,omitempty" jsonschema:"only return the last N points of each tag"`
}

type scalarPointOutput struct {
	Step     int64   `json:"step"`
	Value    float64 `json:"value"`
	WallTime string  `json:"wall_time"`
}

type getScalarsOutput struct {
	RunID  string                         `json:"run_id"`
	Tags   []string                       `json:"tags"`
	Series map[string][]scalarPointOutput `json:"series"`
}

type getStatsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for stats (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type statsOutput struct {
	RunsStarted         int            `json:"runs_started"`
	RunsFinished        int            `json:"runs_finished"`
	RunsByStatus        map[string]int `json:"runs_by_status"`
	MetricPoints        int            `json:"metric_points"`
	ArtifactsRecorded   int            `json:"artifacts_recorded"`
	ArtifactsByType     map[string]int `json:"artifacts_by_type"`
	ArtifactsIgnored    int            `json:"artifacts_ignored"`
	MeanDurationSeconds float64        `json:"mean_duration_seconds"`
	EventCount          int            `json:"event_count"`
	OldestEvent         string         `json:"oldest_event,omitempty"`
	NewestEvent         string         `json:"newest_event,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_runs",
		Description: "List recorded runs, oldest first, with optional status and experiment filters.",
	}, s.handleListRuns)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_run",
		Description: "Get a run's record by ID, including its description, status, timing and config.",
	}, s.handleGetRun)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_scalars",
		Description: "Read the scalar metrics a run wrote to its TensorBoard event files, grouped by tag.",
	}, s.handleGetScalars)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_stats",
		Description: "Get aggregated run activity from the audit event log: runs by status, metric points and artifacts.",
	}, s.handleGetStats)
}

// --- Tool handlers ---

func (s *Server) handleListRuns(_ context.Context, _ *gomcp.CallToolRequest, input listRunsInput) (*gomcp.CallToolResult, listRunsOutput, error) {
	filter := models.RunFilter{
		Status:     models.RunStatus(input.Status),
		Experiment: input.Experiment,
	}
	runs, err := s.runs.ListRuns(filter)
	if err != nil {
		return errorResult(fmt.Sprintf("listing runs: %s", err)), listRunsOutput{}, nil
	}

	out := listRunsOutput{
		Runs:  make([]runSummaryOutput, len(runs)),
		Count: len(runs),
	}
	for i, r := range runs {
		sum := r.Summary()
		out.Runs[i] = runSummaryOutput{
			ID:         sum.ID,
			Experiment: sum.Experiment,
			Hostname:   sum.Hostname,
			Status:     string(sum.Status),
			StartTime:  sum.StartTime.Format(time.RFC3339),
			Path:       sum.Path,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetRun(_ context.Context, _ *gomcp.CallToolRequest, input getRunInput) (*gomcp.CallToolResult, runOutput, error) {
	if input.RunID == "" {
		return errorResult("run_id is required"), runOutput{}, nil
	}

	run, err := s.runs.GetRun(input.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting run %s: %s", input.RunID, err)), runOutput{}, nil
	}

	out := runOutput{
		ID:          run.ID,
		Experiment:  run.Experiment.Name,
		Command:     run.Command,
		Hostname:    run.Host.Hostname,
		Status:      string(run.Status),
		Description: run.Description,
		StartTime:   run.StartTime.Format(time.RFC3339),
		Path:        run.Path,
		Config:      run.Config,
	}
	if run.StopTime != nil {
		out.StopTime = run.StopTime.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetScalars(_ context.Context, _ *gomcp.CallToolRequest, input getScalarsInput) (*gomcp.CallToolResult, getScalarsOutput, error) {
	if input.RunID == "" {
		return errorResult("run_id is required"), getScalarsOutput{}, nil
	}
	if input.Last < 0 {
		return errorResult("last must not be negative"), getScalarsOutput{}, nil
	}

	run, err := s.runs.GetRun(input.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting run %s: %s", input.RunID, err)), getScalarsOutput{}, nil
	}
	scalars, err := s.readScalars(run.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("reading scalars for %s: %s", input.RunID, err)), getScalarsOutput{}, nil
	}

	out := getScalarsOutput{
		RunID:  run.ID,
		Tags:   []string{},
		Series: make(map[string][]scalarPointOutput),
	}
	for tag, points := range scalars {
		if input.Tag != "" && tag != input.Tag {
			continue
		}
		if input.Last > 0 && len(points) > input.Last {
			points = points[len(points)-input.Last:]
		}
		series := make([]scalarPointOutput, len(points))
		for i, p := range points {
			series[i] = scalarPointOutput{
				Step:     p.Step,
				Value:    p.Value,
				WallTime: p.WallTime.Format(time.RFC3339Nano),
			}
		}
		out.Tags = append(out.Tags, tag)
		out.Series[tag] = series
	}
	sort.Strings(out.Tags)

	if input.Tag != "" && len(out.Tags) == 0 {
		return errorResult(fmt.Sprintf("run %s has no scalar tag %q", input.RunID, input.Tag)), getScalarsOutput{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleGetStats(_ context.Context, _ *gomcp.CallToolRequest, input getStatsInput) (*gomcp.CallToolResult, statsOutput, error) {
	if s.statsCalc == nil {
		return errorResult("stats not available (the event log may be disabled)"), emptyStatsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}
	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyStatsOutput(), nil
	}

	st, err := s.statsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating stats: %s", err)), emptyStatsOutput(), nil
	}

	out := statsOutput{
		RunsStarted:         st.RunsStarted,
		RunsFinished:        st.RunsFinished,
		RunsByStatus:        st.RunsByStatus,
		MetricPoints:        st.MetricPoints,
		ArtifactsRecorded:   st.ArtifactsRecorded,
		ArtifactsByType:     st.ArtifactsByType,
		ArtifactsIgnored:    st.ArtifactsIgnored,
		MeanDurationSeconds: st.MeanDurationSeconds,
		EventCount:          st.EventCount,
	}
	if st.OldestEvent != nil {
		out.OldestEvent = st.OldestEvent.Format(time.RFC3339)
	}
	if st.NewestEvent != nil {
		out.NewestEvent = st.NewestEvent.Format(time.RFC3339)
	}
	return nil, out, nil
}

// --- Helpers ---

func emptyStatsOutput() statsOutput {
	return statsOutput{
		RunsByStatus:    make(map[string]int),
		ArtifactsByType: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
