package retrieval

import (
	"context"
	"fmt"
	"math"
)

// VisualInput extends the retrieval snapshot for visual memories (semantic
// descriptions of media). Three things differ from text retrieval:
//
//   - Significance multiplies the final activation, so a striking frame
//     outranks a mundane one at equal relevance.
//   - The emotion modulator is fed by arousal, not valence; valence is
//     carried through for the host but never affects ranking.
//   - The project boost applies against the visual's own project tag, which
//     is already how Input.Projects works.
type VisualInput struct {
	Input

	// Significance scores each visual memory in [0, 1].
	Significance []float64

	// Arousal feeds the emotion modulator.
	Arousal []float64

	// Valence is returned alongside candidates and does not affect ranking.
	Valence []float64
}

// VisualCandidate is a ranked visual memory with its affect readings.
type VisualCandidate struct {
	Candidate
	Significance float64 `json:"significance"`
	Arousal      float64 `json:"arousal"`
	Valence      float64 `json:"valence"`
}

// RetrieveVisual ranks visual memories. Identical to Retrieve except for the
// three visual-specific behaviors documented on VisualInput.
func (e *Engine) RetrieveVisual(ctx context.Context, in *VisualInput) ([]VisualCandidate, error) {
	n := len(in.Embeddings)
	if len(in.Significance) != n {
		return nil, fmt.Errorf("%w: significance has %d entries for %d memories", ErrInputShape, len(in.Significance), n)
	}
	if len(in.Arousal) != n {
		return nil, fmt.Errorf("%w: arousal has %d entries for %d memories", ErrInputShape, len(in.Arousal), n)
	}
	if in.Valence != nil && len(in.Valence) != n {
		return nil, fmt.Errorf("%w: valence has %d entries for %d memories", ErrInputShape, len(in.Valence), n)
	}
	for i, s := range in.Significance {
		if !finite(s) {
			return nil, fmt.Errorf("%w: significance %d", ErrNumericInput, i)
		}
	}
	for i, a := range in.Arousal {
		if !finite(a) {
			return nil, fmt.Errorf("%w: arousal %d", ErrNumericInput, i)
		}
	}

	// Arousal drives the emotion modulator for visuals.
	derived := in.Input
	derived.EmotionalWeights = in.Arousal

	candidates, err := e.retrieve(ctx, &derived, in.Significance)
	if err != nil {
		return nil, err
	}

	out := make([]VisualCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = VisualCandidate{
			Candidate:    c,
			Significance: in.Significance[c.Index],
			Arousal:      in.Arousal[c.Index],
		}
		if in.Valence != nil {
			out[i].Valence = in.Valence[c.Index]
		}
	}
	return out, nil
}

// PruneConfig controls visual retention scoring.
//
// The retention score blends recency, access frequency, and significance the
// same way the engine's other decay math does: exponential age decay,
// log-saturating frequency, weighted sum.
type PruneConfig struct {
	// RecencyWeight, FrequencyWeight and SignificanceWeight blend the three
	// factors; they should sum to 1.
	RecencyWeight      float64
	FrequencyWeight    float64
	SignificanceWeight float64

	// HalfLifeHours is the age, in hours, at which the recency factor halves.
	HalfLifeHours float64

	// PruneThreshold is the retention score below which a visual memory is
	// a pruning candidate.
	PruneThreshold float64
}

// DefaultPruneConfig returns the standard retention parameters: a 30-day
// recency half-life and a 0.05 retention floor.
func DefaultPruneConfig() *PruneConfig {
	return &PruneConfig{
		RecencyWeight:      0.4,
		FrequencyWeight:    0.3,
		SignificanceWeight: 0.3,
		HalfLifeHours:      720,
		PruneThreshold:     0.05,
	}
}

// ShouldPruneVisual reports whether a visual memory's retention score has
// fallen below the prune threshold. Pure function of its arguments.
func ShouldPruneVisual(significance float64, ageMS int64, accessCount int64, cfg *PruneConfig) bool {
	if cfg == nil {
		cfg = DefaultPruneConfig()
	}

	ageHours := float64(ageMS) / (1000 * 3600)
	if ageHours < 0 {
		ageHours = 0
	}
	lambda := math.Ln2 / cfg.HalfLifeHours
	recency := math.Exp(-lambda * ageHours)

	// Log-saturating frequency, full marks at 100 accesses.
	frequency := math.Log(1+float64(accessCount)) / math.Log(101)
	if frequency > 1 {
		frequency = 1
	}

	score := cfg.RecencyWeight*recency +
		cfg.FrequencyWeight*frequency +
		cfg.SignificanceWeight*clip(significance, 0, 1)

	return score < cfg.PruneThreshold
}
