package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visualInput(now int64) *VisualInput {
	return &VisualInput{
		Input: Input{
			Probe:      []float32{1, 0},
			Embeddings: [][]float32{{1, 0}, {1, 0}},
			Histories:  [][]int64{{now - hourMS}, {now - hourMS}},
			// Valence feeds nothing; arousal drives the emotion modulator.
			EmotionalWeights: []float64{0, 0},
			NowMS:            now,
		},
		Significance: []float64{1.0, 0.5},
		Arousal:      []float64{0.5, 0.5},
		Valence:      []float64{0.9, -0.9},
	}
}

func TestRetrieveVisualSignificance(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := visualInput(now)

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).RetrieveVisual(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Equal relevance and recency: significance decides the ranking.
	assert.Equal(t, 0, candidates[0].Index)
	assert.InDelta(t, 2.0, candidates[0].Components.Modulated/candidates[1].Components.Modulated, 1e-9)

	// Valence rides along without affecting order.
	assert.Equal(t, 0.9, candidates[0].Valence)
	assert.Equal(t, -0.9, candidates[1].Valence)
	assert.Equal(t, 1.0, candidates[0].Significance)
}

func TestRetrieveVisualArousalDrivesEmotion(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := visualInput(now)
	in.Significance = []float64{1.0, 1.0}
	in.Arousal = []float64{1.0, 0.0} // high arousal vs none
	in.Valence = []float64{-1.0, 1.0}

	cfg := deterministic()
	cfg.ActivationThreshold = 0
	cfg.MinProbability = 0

	candidates, err := New(cfg).RetrieveVisual(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Negative valence but high arousal still wins: arousal, not valence,
	// feeds the modulator.
	assert.Equal(t, 0, candidates[0].Index)
	assert.InDelta(t, 1.5, candidates[0].Components.Modulated/candidates[1].Components.Modulated, 1e-9)
}

func TestRetrieveVisualShapeErrors(t *testing.T) {
	now := int64(1_700_000_000_000)
	in := visualInput(now)
	in.Significance = []float64{1.0} // wrong length

	_, err := New(deterministic()).RetrieveVisual(context.Background(), in)
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestShouldPruneVisual(t *testing.T) {
	cfg := DefaultPruneConfig()

	// Fresh, significant, accessed: keep.
	assert.False(t, ShouldPruneVisual(0.8, hourMS, 10, cfg))

	// Ancient, insignificant, never accessed: prune.
	assert.True(t, ShouldPruneVisual(0.0, 365*dayMS*10, 0, cfg))

	// Significance alone can rescue an ancient memory.
	assert.False(t, ShouldPruneVisual(0.9, 365*dayMS*10, 0, cfg))

	// Nil config uses defaults.
	assert.True(t, ShouldPruneVisual(0.0, 365*dayMS*10, 0, nil))
}

func TestShouldPruneVisualMonotone(t *testing.T) {
	cfg := DefaultPruneConfig()
	cfg.PruneThreshold = 0.2

	// Retention never improves with age.
	prevPruned := false
	for _, days := range []int64{1, 10, 30, 90, 365, 3650} {
		pruned := ShouldPruneVisual(0.1, days*dayMS, 1, cfg)
		if prevPruned {
			assert.True(t, pruned, "pruning must be monotone in age (%d days)", days)
		}
		prevPruned = pruned
	}
	assert.True(t, prevPruned, "a low-significance memory must eventually fall below threshold")
}
