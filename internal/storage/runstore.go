package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/runboard/pkg/models"
	"gopkg.in/yaml.v3"
)

// RunFileName is the run record file inside each run directory.
const RunFileName = "run.yaml"

// ErrRunNotFound is returned when no run record exists for an id.
var ErrRunNotFound = errors.New("run not found")

// RunStoreManager defines the interface for the run records kept alongside
// each run's event files under the base directory.
type RunStoreManager interface {
	SaveRun(run *models.Run) error
	GetRun(id string) (*models.Run, error)
	ListRuns(filter models.RunFilter) ([]models.Run, error)
	UpdateStatus(id string, status models.RunStatus, stopTime time.Time) error
}

type fileRunStore struct {
	baseDir string
}

// NewRunStore creates a RunStoreManager backed by <baseDir>/<run id>/run.yaml
// files.
func NewRunStore(baseDir string) RunStoreManager {
	return &fileRunStore{baseDir: baseDir}
}

func (s *fileRunStore) runPath(id string) string {
	return filepath.Join(s.baseDir, id, RunFileName)
}

// SaveRun writes the run record. The run directory must already exist; the
// logging session creates it.
func (s *fileRunStore) SaveRun(run *models.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("saving run: ID must not be empty")
	}
	if strings.ContainsAny(run.ID, `/\`) || run.ID == "." || run.ID == ".." {
		return fmt.Errorf("saving run: invalid ID %q", run.ID)
	}
	dir := filepath.Join(s.baseDir, run.ID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("saving run %s: run directory %s does not exist", run.ID, dir)
	}

	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("saving run %s: marshalling: %w", run.ID, err)
	}

	// Write to a temp file first so readers never see a partial record.
	tmp := s.runPath(run.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("saving run %s: writing: %w", run.ID, err)
	}
	if err := os.Rename(tmp, s.runPath(run.ID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving run %s: renaming: %w", run.ID, err)
	}
	return nil
}

// GetRun loads the run record for id.
func (s *fileRunStore) GetRun(id string) (*models.Run, error) {
	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("getting run %s: %w", id, ErrRunNotFound)
		}
		return nil, fmt.Errorf("getting run %s: reading: %w", id, err)
	}

	var run models.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("getting run %s: parsing: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the runs matching filter, oldest start time first.
// Directories without a run record are skipped.
func (s *fileRunStore) ListRuns(filter models.RunFilter) ([]models.Run, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	var runs []models.Run
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		run, err := s.GetRun(e.Name())
		if errors.Is(err, ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		if filter.Matches(*run) {
			runs = append(runs, *run)
		}
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].StartTime.Equal(runs[j].StartTime) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartTime.Before(runs[j].StartTime)
	})
	return runs, nil
}

// UpdateStatus records the final status and stop time of a run.
func (s *fileRunStore) UpdateStatus(id string, status models.RunStatus, stopTime time.Time) error {
	run, err := s.GetRun(id)
	if err != nil {
		return fmt.Errorf("updating run status: %w", err)
	}
	run.Status = status
	run.StopTime = &stopTime
	return s.SaveRun(run)
}
