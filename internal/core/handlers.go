package core

import (
	"fmt"
	"path/filepath"

	"github.com/valter-silva-au/runboard/internal/tensor"
	"github.com/valter-silva-au/runboard/internal/tfevent"
)

// embeddingTag is the projector tag used for every embedding; the artifact
// name is not used.
const embeddingTag = "default"

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// HandleImage writes a rank-2 array as an HW image and a rank-3 array with a
// leading dimension of 1 or 3 as a CHW image.
func HandleImage(w SummaryWriter, a Artifact) error {
	var layout tfevent.ImageLayout
	switch {
	case a.Array.NDim() == 2:
		layout = tfevent.LayoutHW
	case a.Array.NDim() == 3 && (a.Array.Dim(0) == 1 || a.Array.Dim(0) == 3):
		layout = tfevent.LayoutCHW
	default:
		return violation("image %q has shape %s, want (H, W) or (1|3, H, W)", a.Name, a.Array.ShapeString())
	}
	return w.AddImage(a.Name, a.Array, a.Iteration, layout)
}

// HandleHistogram forwards the array unchanged as a histogram. Any shape is
// accepted; the writer flattens it.
func HandleHistogram(w SummaryWriter, a Artifact) error {
	return w.AddHistogram(a.Name, a.Array, a.Iteration)
}

// HandleAudio forwards the array as an audio clip. The sample_rate metadata
// entry is required.
func HandleAudio(w SummaryWriter, a Artifact) error {
	rate, ok, err := a.Metadata.SampleRate()
	if err != nil {
		return violation("audio %q: %v", a.Name, err)
	}
	if !ok {
		return violation("audio %q has no sample_rate", a.Name)
	}
	if rate <= 0 {
		return violation("audio %q has sample_rate %v, want > 0", a.Name, rate)
	}
	return w.AddAudio(a.Name, a.Array, a.Iteration, rate)
}

// HandleEmbedding forwards an N×D matrix to the projector. Labels come from
// the labels metadata entry; a sprite is added only when label_img names an
// N×C×H×W array file, resolved relative to the artifact file.
func HandleEmbedding(w SummaryWriter, a Artifact) error {
	if a.Array.NDim() != 2 {
		return violation("embedding has shape %s, want (N, D)", a.Array.ShapeString())
	}
	n := a.Array.Dim(0)

	labels := a.Metadata.Labels()
	if labels != nil && len(labels) != n {
		return violation("embedding has %d points but %d labels", n, len(labels))
	}

	var labelImg *tensor.Array
	if path := a.Metadata.LabelImage(); path != "" {
		if a.Load == nil {
			return violation("embedding label image %q cannot be loaded", path)
		}
		if !filepath.IsAbs(path) && a.Filename != "" {
			path = filepath.Join(filepath.Dir(a.Filename), path)
		}
		img, err := a.Load(path)
		if err != nil {
			return fmt.Errorf("loading label image: %w", err)
		}
		if img.NDim() != 4 || img.Dim(0) != n || (img.Dim(1) != 1 && img.Dim(1) != 3) {
			return violation("label image has shape %s, want (%d, 1|3, H, W)", img.ShapeString(), n)
		}
		labelImg = img
	}

	return w.AddEmbedding(a.Array, labels, labelImg, a.Iteration, embeddingTag)
}
