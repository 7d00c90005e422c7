// Package tensor provides the in-memory numeric array handed to content-type
// handlers, and a decoder for the NumPy .npy files artifacts are shipped in.
package tensor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Array is a dense n-dimensional array of float64 values stored in
// row-major (C) order.
type Array struct {
	Shape []int
	Data  []float64
	// DType is the NumPy type code the data was decoded from, such as "u1"
	// or "f8". Arrays built in memory leave it empty.
	DType string
}

// New builds an Array, checking that the shape matches the data length.
func New(shape []int, data []float64) (*Array, error) {
	n := 1
	for i, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("dimension %d is negative (%d)", i, d)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %s holds %d elements, got %d", formatShape(shape), n, len(data))
	}
	return &Array{Shape: append([]int(nil), shape...), Data: data}, nil
}

// IsUint8 reports whether the array was decoded from unsigned bytes.
func (a *Array) IsUint8() bool { return a.DType == "u1" }

// NDim returns the number of dimensions.
func (a *Array) NDim() int { return len(a.Shape) }

// Size returns the total number of elements.
func (a *Array) Size() int { return len(a.Data) }

// Dim returns the length of dimension i, or 0 when i is out of range.
func (a *Array) Dim(i int) int {
	if i < 0 || i >= len(a.Shape) {
		return 0
	}
	return a.Shape[i]
}

// MinMax returns the smallest and largest finite values. An array with no
// finite values yields (0, 0).
func (a *Array) MinMax() (lo, hi float64) {
	first := true
	for _, v := range a.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// ShapeString renders the shape the way NumPy prints it, e.g. "(3, 8, 8)".
func (a *Array) ShapeString() string { return formatShape(a.Shape) }

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
