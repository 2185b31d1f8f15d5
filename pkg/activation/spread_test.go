package activation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeActivationCube(t *testing.T) {
	sims := []float64{1.0, 0.9, 0.5, 0.0, -0.5, -1.0}
	out := ProbeActivation(sims)

	require.Len(t, out, len(sims))
	assert.InDelta(t, 1.0, out[0], 1e-12)
	assert.InDelta(t, 0.729, out[1], 1e-12)
	assert.InDelta(t, 0.125, out[2], 1e-12)
	assert.InDelta(t, 0.0, out[3], 1e-12)
	assert.InDelta(t, -0.125, out[4], 1e-12)
	assert.InDelta(t, -1.0, out[5], 1e-12)

	// Input untouched
	assert.Equal(t, 0.9, sims[1])
}

func TestCubeProperties(t *testing.T) {
	// |s³| ≤ |s| for |s| ≤ 1, and sign is preserved.
	for s := -1.0; s <= 1.0; s += 0.05 {
		c := Cube(s)
		assert.LessOrEqual(t, abs(c), abs(s)+1e-12, "s=%v", s)
		if s > 0 {
			assert.Greater(t, c, 0.0, "s=%v", s)
		}
		if s < 0 {
			assert.Less(t, c, 0.0, "s=%v", s)
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// TestSpreadChain verifies the two-hop chain: A(0.8) → B → C with unit
// forward strengths, γ=0.7, depth 2.
func TestSpreadChain(t *testing.T) {
	a0 := []float64{0.8, 0, 0}
	edges := []Edge{
		{Source: 0, Target: 1, Forward: 1.0},
		{Source: 1, Target: 2, Forward: 1.0},
	}
	cfg := &SpreadConfig{Depth: 2, Decay: 0.7, Bidirectional: false, ContributionFloor: 1e-6}

	delta := Spread(a0, edges, []int{0}, cfg)
	require.Len(t, delta, 3)
	assert.InDelta(t, 0.0, delta[0], 1e-12)
	assert.InDelta(t, 0.56, delta[1], 1e-12)
	assert.InDelta(t, 0.392, delta[2], 1e-12)
}

// TestSpreadNoSelfActivation verifies that with bidirectional traversal a
// seed never receives its own wave back through a cycle.
func TestSpreadNoSelfActivation(t *testing.T) {
	a0 := []float64{0.8, 0, 0}
	edges := []Edge{
		{Source: 0, Target: 1, Forward: 1.0, Backward: 1.0},
		{Source: 1, Target: 2, Forward: 1.0, Backward: 1.0},
	}
	cfg := &SpreadConfig{Depth: 2, Decay: 0.7, Bidirectional: true, ContributionFloor: 1e-6}

	delta := Spread(a0, edges, []int{0}, cfg)
	assert.Equal(t, 0.0, delta[0], "seed must not activate itself")
	assert.InDelta(t, 0.56, delta[1], 1e-12)
	assert.InDelta(t, 0.392, delta[2], 1e-12)
}

func TestSpreadSelfEdgeIgnored(t *testing.T) {
	a0 := []float64{1.0, 0}
	edges := []Edge{
		{Source: 0, Target: 0, Forward: 1.0},
		{Source: 0, Target: 1, Forward: 0.5},
	}
	delta := Spread(a0, edges, []int{0}, DefaultSpreadConfig())
	assert.Equal(t, 0.0, delta[0])
	assert.InDelta(t, 0.35, delta[1], 1e-9) // 1.0 × 0.5 × 0.7
}

func TestSpreadBackwardOnlyWhenBidirectional(t *testing.T) {
	a0 := []float64{0, 1.0}
	edges := []Edge{{Source: 0, Target: 1, Forward: 1.0, Backward: 0.6}}

	uni := Spread(a0, edges, []int{1}, &SpreadConfig{Depth: 1, Decay: 0.7})
	assert.Equal(t, 0.0, uni[0], "unidirectional walk must not use backward strength")

	bi := Spread(a0, edges, []int{1}, &SpreadConfig{Depth: 1, Decay: 0.7, Bidirectional: true})
	assert.InDelta(t, 0.42, bi[0], 1e-9) // 1.0 × 0.6 × 0.7
}

// TestSpreadBound checks the geometric bound: every later hop multiplies by
// weight × γ < 1, so no node's spread exceeds the first-hop deposit,
// seed energy × (max weight) × γ.
func TestSpreadBound(t *testing.T) {
	a0 := []float64{0.9, 0, 0, 0}
	edges := []Edge{
		{Source: 0, Target: 1, Forward: 0.8},
		{Source: 1, Target: 2, Forward: 0.8},
		{Source: 2, Target: 3, Forward: 0.8},
	}
	cfg := &SpreadConfig{Depth: 3, Decay: 0.7}
	delta := Spread(a0, edges, []int{0}, cfg)

	hopBound := a0[0] * 0.8 * 0.7 // single hop dominates the chain
	for i, d := range delta {
		assert.LessOrEqual(t, d, hopBound+1e-12, "node %d", i)
	}
}

func TestSpreadMultipleSeedsSum(t *testing.T) {
	// Two seeds both feeding node 2: contributions add.
	a0 := []float64{0.5, 0.5, 0}
	edges := []Edge{
		{Source: 0, Target: 2, Forward: 1.0},
		{Source: 1, Target: 2, Forward: 1.0},
	}
	delta := Spread(a0, edges, []int{0, 1}, &SpreadConfig{Depth: 1, Decay: 0.7})
	assert.InDelta(t, 0.7, delta[2], 1e-9)
}

func TestSpreadDegenerate(t *testing.T) {
	// Empty graph, no seeds, zero depth: all produce a zero vector.
	assert.Equal(t, []float64{0, 0}, Spread([]float64{1, 1}, nil, []int{0}, DefaultSpreadConfig()))
	assert.Equal(t, []float64{0, 0}, Spread([]float64{1, 1}, []Edge{{Source: 0, Target: 1, Forward: 1}}, nil, DefaultSpreadConfig()))
	assert.Equal(t, []float64{0, 0}, Spread([]float64{1, 1}, []Edge{{Source: 0, Target: 1, Forward: 1}}, []int{0}, &SpreadConfig{Depth: 0, Decay: 0.7}))

	// Out-of-range seeds and edges are ignored, not fatal.
	delta := Spread([]float64{1, 0}, []Edge{{Source: 0, Target: 5, Forward: 1}}, []int{0, 9}, DefaultSpreadConfig())
	assert.Equal(t, []float64{0, 0}, delta)
}
