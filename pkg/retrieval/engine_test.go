package retrieval

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/muninn/pkg/activation"
	"github.com/orneryd/muninn/pkg/temporal"
)

const (
	hourMS = int64(3600 * 1000)
	dayMS  = 24 * hourMS
)

// deterministic returns a config with noise disabled so rankings are exact.
func deterministic() *Config {
	cfg := DefaultConfig()
	cfg.NoiseParameter = 0
	return cfg
}

// basicInput builds an N-memory snapshot with sane defaults that individual
// tests override.
func basicInput(probe []float32, embeddings [][]float32, histories [][]int64, now int64) *Input {
	n := len(embeddings)
	emotions := make([]float64, n)
	for i := range emotions {
		emotions[i] = 0.5
	}
	return &Input{
		Probe:            probe,
		Embeddings:       embeddings,
		Histories:        histories,
		EmotionalWeights: emotions,
		NowMS:            now,
	}
}

// TestMorningRestoration is the canonical ranking scenario: three orthogonal
// memories accessed 2 hours, 2 days, and 30 days ago, probed along the first
// axis. Similarity dominates, recency breaks the tie among the rest.
func TestMorningRestoration(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput(
		[]float32{1, 0, 0},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[][]int64{
			{now - 2*hourMS},
			{now - 2*dayMS},
			{now - 30*dayMS},
		},
		now,
	)

	cfg := deterministic()
	// Orthogonal stale memories carry near-zero activation; keep them in
	// frame so the relative ordering is observable.
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, 0, candidates[0].Index)
	assert.Equal(t, 1, candidates[1].Index)
	assert.Equal(t, 2, candidates[2].Index)

	assert.Greater(t, candidates[0].Probability, 0.5)
	assert.Greater(t, candidates[0].Probability, candidates[1].Probability)
	assert.Greater(t, candidates[1].Probability, candidates[2].Probability)
}

// TestCubingFilter: similarities 0.9 vs 0.5 must produce probe activations
// in ratio ≈ 5.83, and the strong match must rank first on a base-level tie.
func TestCubingFilter(t *testing.T) {
	now := int64(1_700_000_000_000)
	sq9 := float32(math.Sqrt(1 - 0.81))
	sq5 := float32(math.Sqrt(1 - 0.25))
	in := basicInput(
		[]float32{1, 0},
		[][]float32{{0.9, sq9}, {0.5, sq5}},
		[][]int64{{now - hourMS}, {now - hourMS}},
		now,
	)

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, 0, candidates[0].Index)
	ratio := candidates[0].Components.Probe / candidates[1].Components.Probe
	assert.InDelta(t, 0.729/0.125, ratio, 0.01)
}

// TestAdversarialRecency: a highly similar memory accessed once 60 days ago
// must outrank an irrelevant memory hammered 100 times in the last hour.
func TestAdversarialRecency(t *testing.T) {
	now := int64(1_700_000_000_000)
	sq9 := float32(math.Sqrt(1 - 0.81))
	sq1 := float32(math.Sqrt(1 - 0.01))

	spam := make([]int64, 100)
	for i := range spam {
		spam[i] = now - int64(i+1)*36*1000 // spread across the hour
	}

	in := basicInput(
		[]float32{1, 0},
		[][]float32{{0.9, sq9}, {0.1, sq1}},
		[][]int64{{now - 60*dayMS}, spam},
		now,
	)

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, 0, candidates[0].Index, "probe cubing must dominate recency")
}

func TestSpreadingLiftsConnectedMemory(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput(
		[]float32{1, 0},
		[][]float32{{1, 0}, {0, 1}},
		[][]int64{{now - hourMS}, {now - hourMS}},
		now,
	)
	in.Associations = []activation.Edge{{Source: 0, Target: 1, Forward: 1.0}}

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	var connected Candidate
	for _, c := range candidates {
		if c.Index == 1 {
			connected = c
		}
	}
	assert.Greater(t, connected.Components.Spread, 0.0,
		"memory associated with the match should receive spread")
}

func TestModulatorsAreMultiplicative(t *testing.T) {
	now := int64(1_700_000_000_000)

	base := basicInput(
		[]float32{1, 0},
		[][]float32{{1, 0}, {1, 0}},
		[][]int64{{now - hourMS}, {now - hourMS}},
		now,
	)
	base.Projects = []string{"", "alpha"}
	base.QueryProject = "alpha"
	base.Temporal = &temporal.Context{SessionSet: map[int]bool{1: true}}
	base.WMBoosts = []float64{1.0, 1.5}

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).Retrieve(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Memory 1 carries WM boost 1.5, project boost 1.25, and session boost
	// 1.2 on the same underlying activation; it must rank first and its
	// modulated activation must reflect the full product.
	assert.Equal(t, 1, candidates[0].Index)
	boosted := candidates[0].Components.Modulated
	plain := candidates[1].Components.Modulated
	assert.InDelta(t, 1.5*1.25*1.2, boosted/plain, 1e-9)
}

func TestWMBoostCapped(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput(
		[]float32{1, 0},
		[][]float32{{1, 0}, {1, 0}},
		[][]int64{{now - hourMS}, {now - hourMS}},
		now,
	)
	in.WMBoosts = []float64{1.0, 10.0} // far beyond the cap

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	var capped, plain float64
	for _, c := range candidates {
		if c.Index == 1 {
			capped = c.Components.Modulated
		} else {
			plain = c.Components.Modulated
		}
	}
	assert.InDelta(t, 2.0, capped/plain, 1e-9, "boost must clamp at WMBoostCap")
}

func TestActivationThresholdCut(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput(
		[]float32{1, 0, 0},
		[][]float32{{1, 0, 0}, {0, 1, 0}},
		[][]int64{{now - hourMS}, {now - 30*dayMS}},
		now,
	)

	// Default threshold 0.3: the orthogonal, stale memory falls out before
	// normalization and all probability mass lands on the match.
	cfg := deterministic()
	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 0, candidates[0].Index)
	assert.InDelta(t, 1.0, candidates[0].Probability, 1e-9)
}

func TestProbabilitiesSumAtMostOne(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput(
		[]float32{1, 0, 0},
		[][]float32{{1, 0, 0}, {0.8, 0.6, 0}, {0.6, 0.8, 0}},
		[][]int64{{now - hourMS}, {now - hourMS}, {now - hourMS}},
		now,
	)

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)

	var sum float64
	for _, c := range candidates {
		sum += c.Probability
	}
	assert.LessOrEqual(t, sum, 1.0+1e-9)
	assert.InDelta(t, 1.0, sum, 1e-9, "no cutoffs fired, so the survivors carry all mass")
}

func TestMaxResultsCap(t *testing.T) {
	now := int64(1_700_000_000_000)
	n := 20
	embeddings := make([][]float32, n)
	histories := make([][]int64, n)
	for i := range embeddings {
		embeddings[i] = []float32{1, 0}
		histories[i] = []int64{now - hourMS}
	}
	in := basicInput([]float32{1, 0}, embeddings, histories, now)

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0
	cfg.MaxResults = 5

	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, candidates, 5)
}

func TestDeterminismWithoutNoise(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput(
		[]float32{0.6, 0.8},
		[][]float32{{1, 0}, {0, 1}, {0.7, 0.7}},
		[][]int64{{now - hourMS}, {now - 2*hourMS}, {now - 3*hourMS}},
		now,
	)
	in.Associations = []activation.Edge{
		{Source: 0, Target: 1, Forward: 0.5, Backward: 0.5},
		{Source: 1, Target: 2, Forward: 0.9},
	}

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	first, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	second, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Index, second[i].Index)
		assert.Equal(t, first[i].TotalActivation, second[i].TotalActivation)
		assert.Equal(t, first[i].Probability, second[i].Probability)
	}
}

func TestNoiseSeedReproducible(t *testing.T) {
	now := int64(1_700_000_000_000)
	mk := func() *Input {
		return basicInput(
			[]float32{1, 0},
			[][]float32{{1, 0}, {0.9, float32(math.Sqrt(1 - 0.81))}},
			[][]int64{{now - hourMS}, {now - hourMS}},
			now,
		)
	}

	cfg := DefaultConfig()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	a, err := NewWithSeed(cfg, 42).Retrieve(context.Background(), mk())
	require.NoError(t, err)
	b, err := NewWithSeed(cfg, 42).Retrieve(context.Background(), mk())
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed, same input, same ranking")
}

func TestEmptyCorpus(t *testing.T) {
	in := &Input{Probe: []float32{1, 0}, NowMS: 1}
	candidates, err := New(deterministic()).Retrieve(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestInputShapeErrors(t *testing.T) {
	now := int64(1_700_000_000_000)

	// Histories length disagrees.
	in := basicInput([]float32{1, 0}, [][]float32{{1, 0}}, [][]int64{{now}, {now}}, now)
	_, err := New(deterministic()).Retrieve(context.Background(), in)
	assert.ErrorIs(t, err, ErrInputShape)

	// Uniform corpus dimension disagrees with probe.
	in = basicInput([]float32{1, 0, 0}, [][]float32{{1, 0}, {0, 1}}, [][]int64{{now}, {now}}, now)
	_, err = New(deterministic()).Retrieve(context.Background(), in)
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestNumericInputErrors(t *testing.T) {
	now := int64(1_700_000_000_000)

	in := basicInput([]float32{1, 0}, [][]float32{{float32(math.NaN()), 0}}, [][]int64{{now}}, now)
	_, err := New(deterministic()).Retrieve(context.Background(), in)
	assert.ErrorIs(t, err, ErrNumericInput)

	in = basicInput([]float32{1, 0}, [][]float32{{1, 0}}, [][]int64{{now}}, now)
	in.EmotionalWeights = []float64{math.Inf(1)}
	_, err = New(deterministic()).Retrieve(context.Background(), in)
	assert.ErrorIs(t, err, ErrNumericInput)
}

func TestModelMismatch(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput([]float32{1, 0}, [][]float32{{1, 0}}, [][]int64{{now}}, now)
	in.ProbeModel = "all-MiniLM-L6-v2"
	in.Models = []string{"nomic-embed-text"}

	_, err := New(deterministic()).Retrieve(context.Background(), in)
	assert.ErrorIs(t, err, ErrModelMismatch)
}

func TestConfigValidation(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput([]float32{1, 0}, [][]float32{{1, 0}}, [][]int64{{now}}, now)

	bad := deterministic()
	bad.SpreadingDepth = -1
	_, err := New(bad).Retrieve(context.Background(), in)
	assert.ErrorIs(t, err, ErrConfigOutOfRange)

	bad = deterministic()
	bad.SpreadingDecay = 1.5
	_, err = New(bad).Retrieve(context.Background(), in)
	assert.ErrorIs(t, err, ErrConfigOutOfRange)

	bad = deterministic()
	bad.MaxResults = 0
	_, err = New(bad).Retrieve(context.Background(), in)
	assert.ErrorIs(t, err, ErrConfigOutOfRange)
}

func TestCancellation(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := basicInput([]float32{1, 0}, [][]float32{{1, 0}}, [][]int64{{now}}, now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(deterministic()).Retrieve(ctx, in)
	assert.ErrorIs(t, err, ErrCancelled)

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel2()
	time.Sleep(time.Millisecond)
	_, err = New(deterministic()).Retrieve(ctx2, in)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestEpisodicTermApplied(t *testing.T) {
	now := int64(1_700_000_000_000)
	// Memory 0 is the strong match; memory 2 is linked to it only through
	// the episode narrative, not the association graph.
	in := basicInput(
		[]float32{1, 0, 0},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[][]int64{{now - hourMS}, {now - hourMS}, {now - hourMS}},
		now,
	)
	in.Temporal = &temporal.Context{
		Episodes: []temporal.Episode{{
			ID:     "ep-1",
			Events: []int{0, 2},
			Links:  []temporal.Link{{Source: 0, Target: 1, Strength: 1.0, Direction: temporal.Forward}},
		}},
	}

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).Retrieve(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	byIndex := map[int]Candidate{}
	for _, c := range candidates {
		byIndex[c.Index] = c
	}
	assert.Greater(t, byIndex[2].Components.Modulated, byIndex[1].Components.Modulated,
		"episodic neighbor of the match must outrank the unlinked memory")
}
