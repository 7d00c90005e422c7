package core

import (
	"fmt"
	"testing"

	"github.com/valter-silva-au/runboard/pkg/models"
	"pgregory.net/rapid"
)

// =============================================================================
// Property 1: Iteration counter is monotonic
// =============================================================================

// TestProperty1_IterationCounterMonotonic verifies that for any mix of
// implicit and explicit calls, implicit iterations strictly increase, and
// explicit iterations are returned unchanged.
func TestProperty1_IterationCounterMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := NewIterationCounter()
		n := rapid.IntRange(1, 50).Draw(rt, "calls")

		prevPeek := c.Peek(models.ContentTypeImage)
		for i := 0; i < n; i++ {
			var explicit *int64
			if rapid.Bool().Draw(rt, fmt.Sprintf("explicit_%d", i)) {
				v := rapid.Int64Range(0, 1000).Draw(rt, fmt.Sprintf("value_%d", i))
				explicit = &v
			}

			before := c.Peek(models.ContentTypeImage)
			got := c.Next(models.ContentTypeImage, explicit)
			after := c.Peek(models.ContentTypeImage)

			if explicit == nil && got != before {
				rt.Fatalf("implicit call %d returned %d, want %d", i, got, before)
			}
			if explicit != nil && got != *explicit {
				rt.Fatalf("explicit call %d returned %d, want %d", i, got, *explicit)
			}
			if after <= prevPeek {
				rt.Fatalf("counter did not advance: %d -> %d", prevPeek, after)
			}
			if after <= got {
				rt.Fatalf("next implicit %d would reuse iteration %d", after, got)
			}
			prevPeek = after
		}
	})
}

// =============================================================================
// Property 2: Every metric pair becomes exactly one scalar, in order
// =============================================================================

// TestProperty2_MetricPairsForwardedInOrder verifies that LogMetrics emits one
// scalar per (value, step) pair of each metric, preserving input order.
func TestProperty2_MetricPairsForwardedInOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		reg := NewContentTypeRegistry()
		sessions := &fakeSessions{}
		obs, err := NewObserver(t.TempDir(), reg, WithSessionOpener(sessions.open))
		if err != nil {
			rt.Fatalf("NewObserver: %v", err)
		}
		if _, err := obs.StartRun(startedEvent("run")); err != nil {
			rt.Fatalf("StartRun: %v", err)
		}

		n := rapid.IntRange(0, 30).Draw(rt, "n")
		values := rapid.SliceOfN(rapid.Float64Range(-1e3, 1e3), n, n).Draw(rt, "values")
		steps := rapid.SliceOfN(rapid.Int64Range(0, 1e6), n, n).Draw(rt, "steps")

		if err := obs.LogMetrics(models.MetricsByName{"m": {Values: values, Steps: steps}}, nil); err != nil {
			rt.Fatalf("LogMetrics: %v", err)
		}

		calls := sessions.last().calls
		if len(calls) != n {
			rt.Fatalf("got %d scalars, want %d", len(calls), n)
		}
		for i, c := range calls {
			if c.Value != values[i] || c.Step != steps[i] {
				rt.Fatalf("scalar %d = (%v, %d), want (%v, %d)", i, c.Value, c.Step, values[i], steps[i])
			}
		}
	})
}

// =============================================================================
// Property 3: Unregistered content types never reach the writer
// =============================================================================

// TestProperty3_UnregisteredContentTypeIsNoop verifies that artifacts with a
// content type outside the registry make no writer calls and return nil.
func TestProperty3_UnregisteredContentTypeIsNoop(t *testing.T) {
	reg, err := NewDefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}

	rapid.Check(t, func(rt *rapid.T) {
		ct := models.ContentType(rapid.StringMatching(`[a-z]{0,8}(/[a-z]{1,8})?`).Draw(rt, "content_type"))
		if _, ok := reg.Lookup(ct); ok {
			rt.Skip("registered content type")
		}

		sessions := &fakeSessions{}
		obs, err := NewObserver(t.TempDir(), reg, WithSessionOpener(sessions.open))
		if err != nil {
			rt.Fatalf("NewObserver: %v", err)
		}
		if _, err := obs.StartRun(startedEvent("run")); err != nil {
			rt.Fatalf("StartRun: %v", err)
		}
		if err := obs.AddArtifact("a", "/missing.npy", nil, ct); err != nil {
			rt.Fatalf("AddArtifact(%q) = %v, want nil", ct, err)
		}
		if n := len(sessions.last().calls); n != 0 {
			rt.Fatalf("AddArtifact(%q) made %d writer calls", ct, n)
		}
	})
}
