package tfevent

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/valter-silva-au/runboard/internal/tensor"
)

// encodeImage renders an HW or CHW array to PNG. Arrays decoded from uint8
// data are taken as pixel intensities. Everything else is treated as
// normalized, scaled by 255 and clipped to [0, 255].
func encodeImage(arr *tensor.Array, layout ImageLayout) (*Image, error) {
	var c, h, w int
	switch layout {
	case LayoutHW:
		if arr.NDim() != 2 {
			return nil, fmt.Errorf("layout HW needs a rank-2 array, got shape %s", arr.ShapeString())
		}
		c, h, w = 1, arr.Dim(0), arr.Dim(1)
	case LayoutCHW:
		if arr.NDim() != 3 || (arr.Dim(0) != 1 && arr.Dim(0) != 3) {
			return nil, fmt.Errorf("layout CHW needs shape (1|3, H, W), got %s", arr.ShapeString())
		}
		c, h, w = arr.Dim(0), arr.Dim(1), arr.Dim(2)
	default:
		return nil, fmt.Errorf("unknown image layout %q", layout)
	}
	if h == 0 || w == 0 {
		return nil, fmt.Errorf("image has zero size %s", arr.ShapeString())
	}

	scale := 255.0
	if arr.IsUint8() {
		scale = 1
	}

	var img image.Image
	if c == 1 {
		g := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.Pix[y*g.Stride+x] = toUint8(arr.Data[y*w+x] * scale)
			}
		}
		img = g
	} else {
		rgb := image.NewNRGBA(image.Rect(0, 0, w, h))
		plane := h * w
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				off := y*rgb.Stride + x*4
				for ch := 0; ch < 3; ch++ {
					rgb.Pix[off+ch] = toUint8(arr.Data[ch*plane+y*w+x] * scale)
				}
				rgb.Pix[off+3] = 255
			}
		}
		img = rgb
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return &Image{
		Height:     int32(h),
		Width:      int32(w),
		Colorspace: int32(c),
		Encoded:    buf.Bytes(),
	}, nil
}

func toUint8(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
