package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/valter-silva-au/runboard/internal/tensor"
	"github.com/valter-silva-au/runboard/internal/tfevent"
	"github.com/valter-silva-au/runboard/pkg/models"
)

// writerCall records one SummaryWriter invocation.
type writerCall struct {
	Method     string
	Tag        string
	Value      float64
	Step       int64
	Layout     tfevent.ImageLayout
	SampleRate float64
	Labels     []string
	LabelImg   *tensor.Array
	Array      *tensor.Array
}

// fakeWriter is a test double for SummaryWriter.
type fakeWriter struct {
	dir     string
	comment string
	calls   []writerCall
	closed  int
	failErr error
}

func (f *fakeWriter) record(c writerCall) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeWriter) AddScalar(tag string, value float64, step int64) error {
	return f.record(writerCall{Method: "scalar", Tag: tag, Value: value, Step: step})
}

func (f *fakeWriter) AddImage(tag string, img *tensor.Array, step int64, layout tfevent.ImageLayout) error {
	return f.record(writerCall{Method: "image", Tag: tag, Step: step, Layout: layout, Array: img})
}

func (f *fakeWriter) AddHistogram(tag string, values *tensor.Array, step int64) error {
	return f.record(writerCall{Method: "histogram", Tag: tag, Step: step, Array: values})
}

func (f *fakeWriter) AddAudio(tag string, samples *tensor.Array, step int64, sampleRate float64) error {
	return f.record(writerCall{Method: "audio", Tag: tag, Step: step, SampleRate: sampleRate, Array: samples})
}

func (f *fakeWriter) AddEmbedding(mat *tensor.Array, labels []string, labelImg *tensor.Array, step int64, tag string) error {
	return f.record(writerCall{Method: "embedding", Tag: tag, Step: step, Labels: labels, LabelImg: labelImg, Array: mat})
}

func (f *fakeWriter) Flush() error { return nil }

func (f *fakeWriter) Close() error {
	f.closed++
	return nil
}

// fakeSessions opens fakeWriters and remembers them.
type fakeSessions struct {
	opened []*fakeWriter
	err    error
}

func (s *fakeSessions) open(dir, comment string) (SummaryWriter, error) {
	if s.err != nil {
		return nil, s.err
	}
	w := &fakeWriter{dir: dir, comment: comment}
	s.opened = append(s.opened, w)
	return w, nil
}

func (s *fakeSessions) last() *fakeWriter {
	if len(s.opened) == 0 {
		return nil
	}
	return s.opened[len(s.opened)-1]
}

// fakeDecoder serves arrays from memory keyed by path.
type fakeDecoder map[string]*tensor.Array

func (d fakeDecoder) decode(path string) (*tensor.Array, error) {
	arr, ok := d[path]
	if !ok {
		return nil, fmt.Errorf("no array at %s", path)
	}
	return arr, nil
}

// fakeRunStore is a test double for RunStore.
type fakeRunStore struct {
	saved   []models.Run
	updates []models.RunStatus
	saveErr error
}

func (s *fakeRunStore) SaveRun(run *models.Run) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, *run)
	return nil
}

func (s *fakeRunStore) UpdateStatus(runID string, status models.RunStatus, stopTime time.Time) error {
	s.updates = append(s.updates, status)
	return nil
}

// fakeEventLogger is a test double for EventLogger.
type fakeEventLogger struct {
	types []string
	data  []map[string]any
}

func (l *fakeEventLogger) LogEvent(eventType string, data map[string]any) error {
	l.types = append(l.types, eventType)
	l.data = append(l.data, data)
	return nil
}

// fakeNotifier is a test double for RunNotifier.
type fakeNotifier struct {
	runs []string
	err  error
}

func (n *fakeNotifier) NotifyRunStarted(run *models.Run) error {
	n.runs = append(n.runs, run.ID)
	return n.err
}

var errBoom = errors.New("boom")

func mustArray(shape []int) *tensor.Array {
	size := 1
	for _, d := range shape {
		size *= d
	}
	arr, err := tensor.New(shape, make([]float64, size))
	if err != nil {
		panic(err)
	}
	return arr
}
