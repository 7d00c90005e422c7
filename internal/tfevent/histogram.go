package tfevent

import (
	"errors"
	"math"
	"sort"
)

// defaultBucketLimits are TensorFlow's default histogram bucket right edges:
// ±1e-12 growing by 10% up to 1e20, mirrored around 0, capped by MaxFloat64.
var defaultBucketLimits = func() []float64 {
	var pos []float64
	for v := 1e-12; v < 1e20; v *= 1.1 {
		pos = append(pos, v)
	}
	limits := make([]float64, 0, 2*len(pos)+2)
	for i := len(pos) - 1; i >= 0; i-- {
		limits = append(limits, -pos[i])
	}
	limits = append(limits, 0)
	limits = append(limits, pos...)
	return append(limits, math.MaxFloat64)
}()

// newHistogram bins values into the default buckets and trims the empty
// buckets on both ends, keeping one empty bucket before the first populated
// one so its left edge is known.
func newHistogram(values []float64) (*Histogram, error) {
	if len(values) == 0 {
		return nil, errors.New("histogram needs at least one value")
	}

	counts := make([]float64, len(defaultBucketLimits))
	h := &Histogram{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("histogram values must be finite")
		}
		h.Min = math.Min(h.Min, v)
		h.Max = math.Max(h.Max, v)
		h.Sum += v
		h.SumSquares += v * v
		counts[sort.SearchFloat64s(defaultBucketLimits, v)]++
	}
	h.Num = float64(len(values))

	first, last := -1, -1
	for i, c := range counts {
		if c == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first > 0 {
		first--
	}
	h.BucketLimit = append([]float64(nil), defaultBucketLimits[first:last+1]...)
	h.Bucket = counts[first : last+1]
	return h, nil
}
