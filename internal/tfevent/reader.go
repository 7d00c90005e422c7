package tfevent

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ScalarPoint is one scalar measurement read back from an event file.
type ScalarPoint struct {
	Step     int64     `json:"step"`
	Value    float64   `json:"value"`
	WallTime time.Time `json:"wall_time"`
}

// EventFiles returns the event files in dir, oldest first by name.
func EventFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "events.out.tfevents.*"))
	if err != nil {
		return nil, fmt.Errorf("listing event files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadEvents decodes every event in the file at path, in write order. An
// incomplete trailing record is ignored.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event file: %w", err)
	}
	defer f.Close()

	rr := NewRecordReader(bufio.NewReader(f))
	var events []Event
	for {
		data, err := rr.ReadRecord()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return events, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		ev, err := UnmarshalEvent(data)
		if err != nil {
			return events, fmt.Errorf("decoding event in %s: %w", filepath.Base(path), err)
		}
		events = append(events, *ev)
	}
	return events, nil
}

// ReadScalars collects the scalar summaries of every event file in dir,
// grouped by tag in write order.
func ReadScalars(dir string) (map[string][]ScalarPoint, error) {
	files, err := EventFiles(dir)
	if err != nil {
		return nil, err
	}

	scalars := make(map[string][]ScalarPoint)
	for _, path := range files {
		events, err := ReadEvents(path)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			if ev.Summary == nil {
				continue
			}
			for _, v := range ev.Summary.Values {
				if v.SimpleValue == nil {
					continue
				}
				scalars[v.Tag] = append(scalars[v.Tag], ScalarPoint{
					Step:     ev.Step,
					Value:    float64(*v.SimpleValue),
					WallTime: fromWallTime(ev.WallTime),
				})
			}
		}
	}
	return scalars, nil
}

func fromWallTime(wt float64) time.Time {
	sec, frac := math.Modf(wt)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
