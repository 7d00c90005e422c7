package tfevent

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valter-silva-au/runboard/internal/tensor"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func mustArray(t *testing.T, shape []int, data []float64) *tensor.Array {
	t.Helper()
	arr, err := tensor.New(shape, data)
	require.NoError(t, err)
	return arr
}

func openWriter(t *testing.T, opts ...Option) *Writer {
	t.Helper()
	w, err := NewWriter(filepath.Join(t.TempDir(), "run-1"), append([]Option{WithClock(fixedClock())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func readAll(t *testing.T, w *Writer) []Event {
	t.Helper()
	require.NoError(t, w.Flush())
	events, err := ReadEvents(w.Path())
	require.NoError(t, err)
	return events
}

func TestNewWriter_FileLayout(t *testing.T) {
	w := openWriter(t, WithComment("mnist started"))

	assert.True(t, strings.HasPrefix(filepath.Base(w.Path()), "events.out.tfevents.1740830400."))
	assert.Equal(t, filepath.Dir(w.Path()), w.Dir())

	events := readAll(t, w)
	require.Len(t, events, 2)
	assert.Equal(t, FileVersion, events[0].FileVersion)

	require.NotNil(t, events[1].Summary)
	comment := events[1].Summary.Values[0]
	assert.Equal(t, CommentTag, comment.Tag)
	require.NotNil(t, comment.Text)
	assert.Equal(t, "mnist started", *comment.Text)
	assert.Zero(t, events[1].Step)
}

func TestWriter_ScalarsReadBackInOrder(t *testing.T) {
	w := openWriter(t)
	for i, v := range []float64{1, 2, 3} {
		require.NoError(t, w.AddScalar("loss", v, int64(i)))
	}
	require.NoError(t, w.AddScalar("acc", 0.5, 10))
	require.NoError(t, w.Close())

	scalars, err := ReadScalars(w.Dir())
	require.NoError(t, err)
	require.Len(t, scalars["loss"], 3)
	for i, p := range scalars["loss"] {
		assert.Equal(t, int64(i), p.Step)
		assert.Equal(t, float64(i+1), p.Value)
	}
	require.Len(t, scalars["acc"], 1)
	assert.Equal(t, int64(10), scalars["acc"][0].Step)
}

func TestWriter_Image(t *testing.T) {
	w := openWriter(t)

	chw := mustArray(t, []int{3, 2, 4}, make([]float64, 24))
	require.NoError(t, w.AddImage("rgb", chw, 1, LayoutCHW))

	hw := mustArray(t, []int{5, 6}, make([]float64, 30))
	require.NoError(t, w.AddImage("gray", hw, 2, LayoutHW))

	bad := mustArray(t, []int{8, 8, 8}, make([]float64, 512))
	assert.Error(t, w.AddImage("bad", bad, 3, LayoutCHW))

	events := readAll(t, w)
	require.Len(t, events, 3)

	img := events[1].Summary.Values[0].Image
	require.NotNil(t, img)
	assert.Equal(t, int32(2), img.Height)
	assert.Equal(t, int32(4), img.Width)
	assert.Equal(t, int32(3), img.Colorspace)
	decoded, err := png.Decode(bytes.NewReader(img.Encoded))
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Bounds().Dx())
	assert.Equal(t, 2, decoded.Bounds().Dy())

	gray := events[2].Summary.Values[0].Image
	require.NotNil(t, gray)
	assert.Equal(t, int32(1), gray.Colorspace)
}

func TestEncodeImage_Scaling(t *testing.T) {
	normalized := mustArray(t, []int{1, 2}, []float64{0, 1})
	img, err := encodeImage(normalized, LayoutHW)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(img.Encoded))
	require.NoError(t, err)
	r, _, _, _ := decoded.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r, "1.0 scales to full intensity")

	bright := mustArray(t, []int{1, 2}, []float64{0.1, 2})
	img, err = encodeImage(bright, LayoutHW)
	require.NoError(t, err)
	decoded, err = png.Decode(bytes.NewReader(img.Encoded))
	require.NoError(t, err)
	r, _, _, _ = decoded.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r, "float values above 1 saturate")

	pixels := mustArray(t, []int{1, 2}, []float64{1, 200})
	pixels.DType = "u1"
	img, err = encodeImage(pixels, LayoutHW)
	require.NoError(t, err)
	decoded, err = png.Decode(bytes.NewReader(img.Encoded))
	require.NoError(t, err)
	r, _, _, _ = decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(1*0x101), r, "uint8 intensities are kept")
	r, _, _, _ = decoded.At(1, 0).RGBA()
	assert.Equal(t, uint32(200*0x101), r, "uint8 intensities are kept")
}

func TestWriter_Audio(t *testing.T) {
	w := openWriter(t)
	clip := mustArray(t, []int{4}, []float64{0, 0.5, -1, 2})
	require.NoError(t, w.AddAudio("clip", clip, 0, 16000))
	assert.Error(t, w.AddAudio("clip", clip, 1, 0))

	events := readAll(t, w)
	a := events[1].Summary.Values[0].Audio
	require.NotNil(t, a)
	assert.Equal(t, float32(16000), a.SampleRate)
	assert.Equal(t, int64(4), a.LengthFrames)
	assert.Equal(t, "RIFF", string(a.Encoded[:4]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(a.Encoded[24:28]))
	require.Len(t, a.Encoded, 44+8)
	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(a.Encoded[50:52])), "values above 1 are clipped")
}

func TestWriter_Histogram(t *testing.T) {
	w := openWriter(t)
	values := mustArray(t, []int{2, 3}, []float64{-2, -1, 0, 1, 2, 3})
	require.NoError(t, w.AddHistogram("weights", values, 7))

	events := readAll(t, w)
	h := events[1].Summary.Values[0].Histo
	require.NotNil(t, h)
	assert.Equal(t, int64(7), events[1].Step)
	assert.Equal(t, float64(6), h.Num)
	assert.Equal(t, -2.0, h.Min)
	assert.Equal(t, 3.0, h.Max)
}

func TestWriter_Embedding(t *testing.T) {
	w := openWriter(t)
	mat := mustArray(t, []int{3, 2}, []float64{1, 2, 3, 4, 5, 6})
	imgs := mustArray(t, []int{3, 1, 2, 2}, make([]float64, 12))

	require.NoError(t, w.AddEmbedding(mat, []string{"a", "b\tc", "d"}, imgs, 4, ""))

	dir := filepath.Join(w.Dir(), "00004")
	tensors, err := os.ReadFile(filepath.Join(dir, "tensors.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "1\t2\n3\t4\n5\t6\n", string(tensors))

	meta, err := os.ReadFile(filepath.Join(dir, "metadata.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb c\nd\n", string(meta))

	sprite, err := os.Open(filepath.Join(dir, "sprite.png"))
	require.NoError(t, err)
	defer sprite.Close()
	decoded, err := png.Decode(sprite)
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Bounds().Dx(), "3 images tile into a 2x2 grid")

	cfg, err := os.ReadFile(filepath.Join(w.Dir(), projectorConfigFile))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), `tensor_name: "default:00004"`)
	assert.Contains(t, string(cfg), `image_path: "00004/sprite.png"`)
}

func TestWriter_EmbeddingValidation(t *testing.T) {
	w := openWriter(t)
	mat := mustArray(t, []int{2, 2}, make([]float64, 4))

	assert.Error(t, w.AddEmbedding(mat, []string{"only-one"}, nil, 0, ""))
	assert.Error(t, w.AddEmbedding(mustArray(t, []int{4}, make([]float64, 4)), nil, nil, 0, ""))
	assert.Error(t, w.AddEmbedding(mat, nil, mustArray(t, []int{2, 2, 2}, make([]float64, 8)), 0, ""))

	require.NoError(t, w.AddEmbedding(mat, nil, nil, 1, "proj"))
	_, err := os.Stat(filepath.Join(w.Dir(), "00001", "metadata.tsv"))
	assert.True(t, os.IsNotExist(err), "no labels means no metadata.tsv")
}

func TestWriter_Closed(t *testing.T) {
	w := openWriter(t)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.AddScalar("x", 1, 0), ErrClosed)
	assert.ErrorIs(t, w.AddEmbedding(nil, nil, nil, 0, ""), ErrClosed)
}
