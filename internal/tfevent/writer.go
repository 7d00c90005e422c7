package tfevent

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/runboard/internal/tensor"
)

// ErrClosed is returned by writes on a closed Writer.
var ErrClosed = errors.New("summary writer is closed")

// CommentTag is the text summary tag under which a session comment is stored.
const CommentTag = "comment"

// ImageLayout names the dimension order of an image array.
type ImageLayout string

const (
	LayoutCHW ImageLayout = "CHW"
	LayoutHW  ImageLayout = "HW"
)

// Option configures a Writer.
type Option func(*Writer)

// WithComment records comment as a text summary at step 0 when the file is
// opened.
func WithComment(comment string) Option {
	return func(w *Writer) { w.comment = comment }
}

// WithClock overrides the wall clock used for event timestamps and the file
// name.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// Writer appends summaries to a TensorBoard event file inside a log
// directory. A Writer is not safe for concurrent use.
type Writer struct {
	dir     string
	path    string
	file    *os.File
	buf     *bufio.Writer
	records *RecordWriter
	now     func() time.Time
	comment string
	closed  bool
}

// NewWriter creates dir if needed and opens a fresh event file in it named
// events.out.tfevents.<unix seconds>.<hostname>.
func NewWriter(dir string, opts ...Option) (*Writer, error) {
	w := &Writer{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	w.path = filepath.Join(dir, fmt.Sprintf("events.out.tfevents.%d.%s", w.now().Unix(), host))

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating event file: %w", err)
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	w.records = NewRecordWriter(w.buf)

	header := Event{WallTime: wallTime(w.now()), FileVersion: FileVersion}
	if err := w.records.WriteRecord(header.Marshal()); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing file version: %w", err)
	}
	if w.comment != "" {
		if err := w.AddText(CommentTag, w.comment, 0); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Dir returns the log directory.
func (w *Writer) Dir() string { return w.dir }

// Path returns the event file path.
func (w *Writer) Path() string { return w.path }

// AddScalar records a scalar value.
func (w *Writer) AddScalar(tag string, value float64, step int64) error {
	f := float32(value)
	return w.write(step, Value{Tag: tag, SimpleValue: &f})
}

// AddText records a text summary.
func (w *Writer) AddText(tag, text string, step int64) error {
	return w.write(step, Value{Tag: tag, Text: &text})
}

// AddImage records img as a PNG image summary. LayoutHW takes a rank-2 array,
// LayoutCHW a rank-3 array with 1 or 3 channels.
func (w *Writer) AddImage(tag string, img *tensor.Array, step int64, layout ImageLayout) error {
	encoded, err := encodeImage(img, layout)
	if err != nil {
		return fmt.Errorf("encoding image %q: %w", tag, err)
	}
	return w.write(step, Value{Tag: tag, Image: encoded})
}

// AddHistogram records the distribution of values using TensorFlow's default
// exponential buckets.
func (w *Writer) AddHistogram(tag string, values *tensor.Array, step int64) error {
	h, err := newHistogram(values.Data)
	if err != nil {
		return fmt.Errorf("building histogram %q: %w", tag, err)
	}
	return w.write(step, Value{Tag: tag, Histo: h})
}

// AddAudio records samples in [-1, 1] as a mono 16-bit WAV clip.
func (w *Writer) AddAudio(tag string, samples *tensor.Array, step int64, sampleRate float64) error {
	a, err := encodeAudio(samples.Data, sampleRate)
	if err != nil {
		return fmt.Errorf("encoding audio %q: %w", tag, err)
	}
	return w.write(step, Value{Tag: tag, Audio: a})
}

// AddEmbedding writes projector files for an N×D matrix under
// <dir>/<step:05d>/ and registers them in projector_config.pbtxt. labels and
// labelImg may be nil.
func (w *Writer) AddEmbedding(mat *tensor.Array, labels []string, labelImg *tensor.Array, step int64, tag string) error {
	if w.closed {
		return ErrClosed
	}
	if tag == "" {
		tag = "default"
	}
	return writeEmbedding(w.dir, mat, labels, labelImg, step, tag)
}

// Flush pushes buffered records to the file.
func (w *Writer) Flush() error {
	if w.closed {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flushing event file: %w", err)
	}
	return nil
}

// Close flushes and closes the event file. Calling Close more than once is
// a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	flushErr := w.Flush()
	w.closed = true
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing event file: %w", err)
	}
	return flushErr
}

func (w *Writer) write(step int64, v Value) error {
	if w.closed {
		return ErrClosed
	}
	ev := Event{
		WallTime: wallTime(w.now()),
		Step:     step,
		Summary:  &Summary{Values: []Value{v}},
	}
	return w.records.WriteRecord(ev.Marshal())
}

func wallTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
