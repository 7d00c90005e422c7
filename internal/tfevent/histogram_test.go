package tfevent

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDefaultBucketLimits(t *testing.T) {
	require.True(t, sort.Float64sAreSorted(defaultBucketLimits))
	assert.Equal(t, math.MaxFloat64, defaultBucketLimits[len(defaultBucketLimits)-1])
	zero := sort.SearchFloat64s(defaultBucketLimits, 0)
	require.Equal(t, 0.0, defaultBucketLimits[zero])
	assert.InDelta(t, -1e-12, defaultBucketLimits[zero-1], 1e-24)
	assert.InDelta(t, 1e-12, defaultBucketLimits[zero+1], 1e-24)
}

func TestNewHistogram(t *testing.T) {
	h, err := newHistogram([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 3.0, h.Num)
	assert.Equal(t, 3.0, h.Sum)
	assert.Equal(t, 3.0, h.SumSquares)
	require.Len(t, h.Bucket, 2, "one populated bucket plus its empty left neighbour")
	assert.Equal(t, 0.0, h.Bucket[0])
	assert.Equal(t, 3.0, h.Bucket[1])
	assert.GreaterOrEqual(t, h.BucketLimit[1], 1.0)
	assert.Less(t, h.BucketLimit[0], 1.0)
}

func TestNewHistogram_Rejects(t *testing.T) {
	_, err := newHistogram(nil)
	assert.Error(t, err)
	_, err = newHistogram([]float64{1, math.NaN()})
	assert.Error(t, err)
	_, err = newHistogram([]float64{math.Inf(-1)})
	assert.Error(t, err)
}

// TestProperty3_HistogramCountsEveryValue verifies bucket counts always add
// up to the number of binned values.
func TestProperty3_HistogramCountsEveryValue(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		values := rapid.SliceOfN(rapid.Float64Range(-1e6, 1e6), 1, 200).Draw(rt, "values")

		h, err := newHistogram(values)
		if err != nil {
			rt.Fatalf("newHistogram: %v", err)
		}
		var total float64
		for _, c := range h.Bucket {
			total += c
		}
		if total != float64(len(values)) {
			rt.Fatalf("bucket counts sum to %v, want %d", total, len(values))
		}
		if len(h.Bucket) != len(h.BucketLimit) {
			rt.Fatalf("%d buckets but %d limits", len(h.Bucket), len(h.BucketLimit))
		}
	})
}
