package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/runboard/internal/observability"
)

func TestParseSinceDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{"empty defaults to 7d", "", false, ""},
		{"whitespace defaults to 7d", "  ", false, ""},
		{"valid 7d", "7d", false, ""},
		{"valid 30d", "30d", false, ""},
		{"valid 24h", "24h", false, ""},
		{"invalid suffix", "abc", true, "unsupported duration format"},
		{"invalid day number", "xd", true, "invalid day duration"},
		{"invalid hour number", "yh", true, "invalid hour duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSinceDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type statsMock struct {
	calcFn func(since time.Time) (*observability.RunStats, error)
}

func (m *statsMock) Calculate(since time.Time) (*observability.RunStats, error) {
	return m.calcFn(since)
}

func sampleStats() *observability.RunStats {
	return &observability.RunStats{
		RunsStarted:         3,
		RunsFinished:        2,
		RunsByStatus:        map[string]int{"completed": 1, "failed": 1},
		MetricPoints:        40,
		ArtifactsRecorded:   5,
		ArtifactsByType:     map[string]int{"numpy/image": 4, "numpy/hist": 1},
		ArtifactsIgnored:    1,
		MeanDurationSeconds: 90,
		EventCount:          51,
	}
}

func TestStatsCmd_NilCalculator(t *testing.T) {
	withServices(t)

	_, err := execute(t, "stats")
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("err = %v, want not initialized", err)
	}
}

func TestStatsCmd_Table(t *testing.T) {
	withServices(t)
	var gotSince time.Time
	StatsCalc = &statsMock{calcFn: func(since time.Time) (*observability.RunStats, error) {
		gotSince = since
		return sampleStats(), nil
	}}

	out, err := execute(t, "stats", "--since", "24h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d := time.Since(gotSince); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("since = %v, want about 24h ago", gotSince)
	}
	for _, want := range []string{"Runs started:", "Metric points:", "1m30s", "numpy/image:", "failed:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "numpy/hist:") > strings.Index(out, "numpy/image:") {
		t.Errorf("artifact types not sorted:\n%s", out)
	}
}

func TestStatsCmd_JSON(t *testing.T) {
	withServices(t)
	StatsCalc = &statsMock{calcFn: func(time.Time) (*observability.RunStats, error) {
		return sampleStats(), nil
	}}

	out, err := execute(t, "stats", "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got observability.RunStats
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parsing JSON output: %v\n%s", err, out)
	}
	if got.EventCount != 51 || got.RunsByStatus["failed"] != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestStatsCmd_InvalidSince(t *testing.T) {
	withServices(t)
	StatsCalc = &statsMock{calcFn: func(time.Time) (*observability.RunStats, error) {
		t.Error("Calculate must not be called")
		return nil, nil
	}}

	_, err := execute(t, "stats", "--since", "2w")
	if err == nil || !strings.Contains(err.Error(), "parsing --since") {
		t.Errorf("err = %v, want --since parse error", err)
	}
}
