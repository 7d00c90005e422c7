package tfevent

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/valter-silva-au/runboard/internal/tensor"
)

const projectorConfigFile = "projector_config.pbtxt"

// writeEmbedding lays out the files the TensorBoard projector reads:
// tensors.tsv, metadata.tsv and sprite.png under <logdir>/<step:05d>/, and an
// entry appended to projector_config.pbtxt.
func writeEmbedding(logdir string, mat *tensor.Array, labels []string, labelImg *tensor.Array, step int64, tag string) error {
	if mat.NDim() != 2 {
		return fmt.Errorf("embedding needs an N×D matrix, got shape %s", mat.ShapeString())
	}
	n, d := mat.Dim(0), mat.Dim(1)
	if labels != nil && len(labels) != n {
		return fmt.Errorf("embedding has %d points but %d labels", n, len(labels))
	}
	if labelImg != nil {
		if labelImg.NDim() != 4 || labelImg.Dim(0) != n || (labelImg.Dim(1) != 1 && labelImg.Dim(1) != 3) {
			return fmt.Errorf("label image needs shape (%d, 1|3, H, W), got %s", n, labelImg.ShapeString())
		}
	}

	sub := fmt.Sprintf("%05d", step)
	dir := filepath.Join(logdir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating embedding directory: %w", err)
	}

	var rows strings.Builder
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if j > 0 {
				rows.WriteByte('\t')
			}
			rows.WriteString(strconv.FormatFloat(mat.Data[i*d+j], 'g', -1, 64))
		}
		rows.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, "tensors.tsv"), []byte(rows.String()), 0o644); err != nil {
		return fmt.Errorf("writing tensors.tsv: %w", err)
	}

	entry := projectorEntry{
		TensorName: tag + ":" + sub,
		TensorPath: sub + "/tensors.tsv",
	}

	if labels != nil {
		var meta strings.Builder
		for _, l := range labels {
			meta.WriteString(strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(l))
			meta.WriteByte('\n')
		}
		if err := os.WriteFile(filepath.Join(dir, "metadata.tsv"), []byte(meta.String()), 0o644); err != nil {
			return fmt.Errorf("writing metadata.tsv: %w", err)
		}
		entry.MetadataPath = sub + "/metadata.tsv"
	}

	if labelImg != nil {
		sprite, err := makeSprite(labelImg)
		if err != nil {
			return err
		}
		img, err := encodeImage(sprite, LayoutCHW)
		if err != nil {
			return fmt.Errorf("encoding sprite: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "sprite.png"), img.Encoded, 0o644); err != nil {
			return fmt.Errorf("writing sprite.png: %w", err)
		}
		entry.SpritePath = sub + "/sprite.png"
		entry.SpriteWidth = labelImg.Dim(3)
		entry.SpriteHeight = labelImg.Dim(2)
	}

	return appendProjectorConfig(filepath.Join(logdir, projectorConfigFile), entry)
}

// makeSprite tiles N CHW images into one square CHW grid, row-major.
func makeSprite(imgs *tensor.Array) (*tensor.Array, error) {
	n, c, h, w := imgs.Dim(0), imgs.Dim(1), imgs.Dim(2), imgs.Dim(3)
	grid := int(math.Ceil(math.Sqrt(float64(n))))
	if grid == 0 {
		return nil, fmt.Errorf("label image is empty")
	}
	sh, sw := grid*h, grid*w
	data := make([]float64, c*sh*sw)

	for k := 0; k < n; k++ {
		oy, ox := (k/grid)*h, (k%grid)*w
		for ch := 0; ch < c; ch++ {
			for y := 0; y < h; y++ {
				src := ((k*c+ch)*h + y) * w
				dst := (ch*sh+oy+y)*sw + ox
				copy(data[dst:dst+w], imgs.Data[src:src+w])
			}
		}
	}
	return tensor.New([]int{c, sh, sw}, data)
}

type projectorEntry struct {
	TensorName   string
	TensorPath   string
	MetadataPath string
	SpritePath   string
	SpriteWidth  int
	SpriteHeight int
}

func appendProjectorConfig(path string, e projectorEntry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening projector config: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "embeddings {\n")
	fmt.Fprintf(w, "  tensor_name: %q\n", e.TensorName)
	fmt.Fprintf(w, "  tensor_path: %q\n", e.TensorPath)
	if e.MetadataPath != "" {
		fmt.Fprintf(w, "  metadata_path: %q\n", e.MetadataPath)
	}
	if e.SpritePath != "" {
		fmt.Fprintf(w, "  sprite {\n")
		fmt.Fprintf(w, "    image_path: %q\n", e.SpritePath)
		fmt.Fprintf(w, "    single_image_dim: %d\n", e.SpriteWidth)
		fmt.Fprintf(w, "    single_image_dim: %d\n", e.SpriteHeight)
		fmt.Fprintf(w, "  }\n")
	}
	fmt.Fprintf(w, "}\n")

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing projector config: %w", err)
	}
	return nil
}
