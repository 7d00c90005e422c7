package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/runboard/pkg/models"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestRunsCmd_NilStore(t *testing.T) {
	withServices(t)

	_, err := execute(t, "runs")
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("err = %v, want not initialized", err)
	}
}

func TestRunsCmd_Table(t *testing.T) {
	withServices(t)
	seedRunStore(t,
		sampleRun("run-b", "cifar", models.RunFailed, t0.Add(time.Hour)),
		sampleRun("run-a", "mnist", models.RunCompleted, t0),
	)

	out, err := execute(t, "runs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "EXPERIMENT") {
		t.Errorf("missing header: %s", out)
	}
	a, b := strings.Index(out, "run-a"), strings.Index(out, "run-b")
	if a < 0 || b < 0 || a > b {
		t.Errorf("expected run-a listed before run-b:\n%s", out)
	}
	if !strings.Contains(out, "Total: 2 run(s)") {
		t.Errorf("missing total: %s", out)
	}
}

func TestRunsCmd_Empty(t *testing.T) {
	withServices(t)
	seedRunStore(t)

	out, err := execute(t, "runs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No runs found.") {
		t.Errorf("output = %q", out)
	}
}

func TestRunsCmd_JSONWithFilters(t *testing.T) {
	withServices(t)
	seedRunStore(t,
		sampleRun("run-a", "mnist", models.RunCompleted, t0),
		sampleRun("run-b", "mnist", models.RunFailed, t0.Add(time.Hour)),
		sampleRun("run-c", "cifar", models.RunCompleted, t0.Add(2*time.Hour)),
	)

	out, err := execute(t, "runs", "--json", "--status", "completed", "--experiment", "mnist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []models.RunSummary
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parsing JSON output: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].ID != "run-a" {
		t.Errorf("got %+v, want only run-a", got)
	}
}

func TestRunsCmd_InvalidStatus(t *testing.T) {
	withServices(t)
	seedRunStore(t)

	_, err := execute(t, "runs", "--status", "paused")
	if err == nil || !strings.Contains(err.Error(), "invalid status") {
		t.Errorf("err = %v, want invalid status", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"much-longer-name", 10, "much-lo..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
