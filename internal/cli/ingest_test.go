package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/runboard/internal/core"
	"github.com/valter-silva-au/runboard/internal/storage"
	"github.com/valter-silva-au/runboard/internal/tensor"
)

const ingestStream = `{"event":"started","run":{"run_id":"r1","experiment":{"name":"mnist"},"command":"train","host":{"hostname":"gpu01"},"start_time":"2025-06-01T09:00:00Z"}}
{"event":"metrics","metrics":{"loss":{"values":[0.9,0.5,0.25],"steps":[0,1,2]}}}
{"event":"artifact","name":"weights","filename":"weights.npy","content_type":"numpy/hist"}
{"event":"artifact","name":"notes","filename":"notes.txt","content_type":"text/plain"}
{"event":"completed","time":"2025-06-01T10:00:00Z"}
`

// wireObserver points the CLI at a real observer and run store under base.
func wireObserver(t *testing.T, base string) {
	t.Helper()

	reg, err := core.NewDefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	RunStore = storage.NewRunStore(base)
	NewObserver = func() (*core.Observer, error) {
		return core.NewObserver(base, reg, core.WithRunStore(RunStore))
	}
}

func writeStream(t *testing.T, stream string) string {
	t.Helper()

	dir := t.TempDir()
	arr, err := tensor.New([]int{4}, []float64{0.1, 0.2, 0.2, 0.9})
	if err != nil {
		t.Fatal(err)
	}
	if err := tensor.WriteFile(filepath.Join(dir, "weights.npy"), arr); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "events.jsonl")
	if err := os.WriteFile(path, []byte(stream), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestCmd_NilFactory(t *testing.T) {
	withServices(t)

	_, err := execute(t, "ingest", "whatever.jsonl")
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("err = %v, want not initialized", err)
	}
}

func TestIngestCmd_ReplaysIntoRunDirectory(t *testing.T) {
	withServices(t)
	base := t.TempDir()
	wireObserver(t, base)
	path := writeStream(t, ingestStream)

	out, err := execute(t, "ingest", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Replayed 5 events into run r1 (completed)") {
		t.Errorf("output = %s", out)
	}

	run, err := RunStore.GetRun("r1")
	if err != nil {
		t.Fatalf("run record not saved: %v", err)
	}
	if run.Status != "completed" || run.StopTime == nil {
		t.Errorf("run = %+v, want completed with stop time", run)
	}

	// The same run then reads back through show.
	out, err = execute(t, "show", "r1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "loss") {
		t.Errorf("show output missing loss scalar:\n%s", out)
	}
}

func TestIngestCmd_Stdin(t *testing.T) {
	withServices(t)
	base := t.TempDir()
	wireObserver(t, base)

	rootCmd.SetIn(strings.NewReader(`{"event":"started","run":{"run_id":"r2","host":{"hostname":"h"}}}` + "\n"))
	defer rootCmd.SetIn(nil)

	out, err := execute(t, "ingest", "-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "into run r2") {
		t.Errorf("output = %s", out)
	}
}

func TestIngestCmd_ExistingRunFails(t *testing.T) {
	withServices(t)
	base := t.TempDir()
	wireObserver(t, base)
	if err := os.MkdirAll(filepath.Join(base, "r1"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "ingest", writeStream(t, ingestStream))
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("err = %v, want failure on line 1", err)
	}
}

func TestIngestCmd_MissingFile(t *testing.T) {
	withServices(t)
	wireObserver(t, t.TempDir())

	_, err := execute(t, "ingest", filepath.Join(t.TempDir(), "missing.jsonl"))
	if err == nil || !strings.Contains(err.Error(), "opening event stream") {
		t.Errorf("err = %v, want open error", err)
	}
}

func TestIngestCmd_BrokenStreamInterruptsRun(t *testing.T) {
	withServices(t)
	base := t.TempDir()
	wireObserver(t, base)
	stream := `{"event":"started","run":{"run_id":"r3","host":{"hostname":"h"}}}
{"event":"paused"}
`

	_, err := execute(t, "ingest", writeStream(t, stream))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("err = %v, want failure on line 2", err)
	}

	run, err := RunStore.GetRun("r3")
	if err != nil {
		t.Fatalf("run record not saved: %v", err)
	}
	if run.Status != "interrupted" {
		t.Errorf("status = %s, want interrupted", run.Status)
	}
}
