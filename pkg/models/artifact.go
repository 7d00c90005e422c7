package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// ContentType tags how an artifact file's payload is interpreted.
type ContentType string

const (
	ContentTypeImage     ContentType = "numpy/image"
	ContentTypeHistogram ContentType = "numpy/hist"
	ContentTypeAudio     ContentType = "numpy/audio"
	ContentTypeEmbedding ContentType = "numpy/embedding"
)

// Well-known ArtifactMetadata keys.
const (
	MetaIteration  = "iteration"
	MetaSampleRate = "sample_rate"
	MetaLabels     = "labels"
	MetaLabelImage = "label_img"
)

// ArtifactMetadata is the free-form metadata attached to an artifact event.
// Numeric values may arrive as any Go integer or float type, or as
// json.Number, depending on the decoder that produced the map.
type ArtifactMetadata map[string]any

// Iteration returns the explicit iteration number, if present.
func (m ArtifactMetadata) Iteration() (int64, bool, error) {
	raw, ok := m[MetaIteration]
	if !ok || raw == nil {
		return 0, false, nil
	}
	f, err := toFloat(raw)
	if err != nil {
		return 0, false, fmt.Errorf("metadata %q: %w", MetaIteration, err)
	}
	if f != math.Trunc(f) || f < 0 {
		return 0, false, fmt.Errorf("metadata %q: %v is not a non-negative integer", MetaIteration, raw)
	}
	return int64(f), true, nil
}

// SampleRate returns the audio sample rate, if present.
func (m ArtifactMetadata) SampleRate() (float64, bool, error) {
	raw, ok := m[MetaSampleRate]
	if !ok || raw == nil {
		return 0, false, nil
	}
	f, err := toFloat(raw)
	if err != nil {
		return 0, false, fmt.Errorf("metadata %q: %w", MetaSampleRate, err)
	}
	return f, true, nil
}

// Labels returns the per-point labels used by embeddings. Non-string
// elements are formatted with %v.
func (m ArtifactMetadata) Labels() []string {
	switch v := m[MetaLabels].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			if s, ok := item.(string); ok {
				out[i] = s
				continue
			}
			out[i] = fmt.Sprintf("%v", item)
		}
		return out
	default:
		return nil
	}
}

// LabelImage returns the filename of the label image array, or "".
func (m ArtifactMetadata) LabelImage() string {
	s, _ := m[MetaLabelImage].(string)
	return s
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
