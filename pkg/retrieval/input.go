package retrieval

import (
	"fmt"
	"math"

	"github.com/orneryd/muninn/pkg/activation"
	"github.com/orneryd/muninn/pkg/temporal"
)

// Input is the snapshot a host hands to one retrieval call. All per-memory
// slices are parallel arrays of length N; Models, DecayRates, WMBoosts and
// Projects may be nil, in which case defaults apply. The engine reads the
// snapshot and mutates nothing.
type Input struct {
	// Probe is the query embedding.
	Probe []float32 `json:"probe"`

	// ProbeModel tags the model that produced the probe. When both this and
	// Models are set, every memory tag must match or the call fails with
	// ErrModelMismatch.
	ProbeModel string `json:"probe_model,omitempty"`

	// Embeddings holds one vector per memory.
	Embeddings [][]float32 `json:"embeddings"`

	// Models optionally tags each embedding's model.
	Models []string `json:"models,omitempty"`

	// Histories holds each memory's past retrieval timestamps in
	// milliseconds since epoch.
	Histories [][]int64 `json:"histories"`

	// EmotionalWeights are per-memory affect weights in [0, 1].
	EmotionalWeights []float64 `json:"emotional_weights"`

	// DecayRates are per-memory base-level decay exponents; nil or
	// non-positive entries use Config.DecayRate.
	DecayRates []float64 `json:"decay_rates,omitempty"`

	// WMBoosts are per-memory working-memory multipliers, capped at
	// Config.WMBoostCap; a nil slice or a non-positive entry applies no boost.
	WMBoosts []float64 `json:"wm_boosts,omitempty"`

	// Projects optionally tags each memory with a project scope.
	Projects []string `json:"projects,omitempty"`

	// Associations is the weighted directed edge list over corpus indices.
	Associations []activation.Edge `json:"associations,omitempty"`

	// NowMS is the query time in milliseconds since epoch.
	NowMS int64 `json:"now_ms"`

	// QueryProject scopes the project boost; empty disables it.
	QueryProject string `json:"query_project,omitempty"`

	// Temporal optionally carries the session set and episode anchors.
	Temporal *temporal.Context `json:"temporal,omitempty"`
}

// Components breaks a candidate's activation into its pipeline stages for
// explainability.
type Components struct {
	// Base is the weighted, squashed base-level activation w·σ(B).
	Base float64 `json:"base"`
	// Probe is the cubed similarity S³.
	Probe float64 `json:"probe"`
	// Spread is the associative spreading contribution.
	Spread float64 `json:"spread"`
	// Modulated is the activation after all multiplicative modulators and
	// the episodic term.
	Modulated float64 `json:"modulated"`
}

// Candidate is one ranked retrieval result.
type Candidate struct {
	// Index is the memory's position in the input arrays.
	Index int `json:"index"`
	// TotalActivation is the final activation entering normalization.
	TotalActivation float64 `json:"total_activation"`
	// Probability is the softmax retrieval probability.
	Probability float64 `json:"probability"`
	// Components is the per-stage breakdown.
	Components Components `json:"components"`
}

// validate fails fast on malformed input: shape disagreements, non-finite
// numbers, and mixed embedding models. Once validation passes the pipeline
// cannot fail (except by cancellation).
func (in *Input) validate() error {
	n := len(in.Embeddings)

	check := func(name string, got int) error {
		if got != n {
			return fmt.Errorf("%w: %s has %d entries for %d memories", ErrInputShape, name, got, n)
		}
		return nil
	}
	if err := check("histories", len(in.Histories)); err != nil {
		return err
	}
	if err := check("emotional weights", len(in.EmotionalWeights)); err != nil {
		return err
	}
	if in.DecayRates != nil {
		if err := check("decay rates", len(in.DecayRates)); err != nil {
			return err
		}
	}
	if in.WMBoosts != nil {
		if err := check("working-memory boosts", len(in.WMBoosts)); err != nil {
			return err
		}
	}
	if in.Projects != nil {
		if err := check("projects", len(in.Projects)); err != nil {
			return err
		}
	}
	if in.Models != nil {
		if err := check("models", len(in.Models)); err != nil {
			return err
		}
	}

	// A corpus of uniform dimension that disagrees with the probe is a shape
	// error; individually ragged rows are tolerated and score 0.
	if n > 0 && len(in.Probe) > 0 {
		uniform := true
		dim := len(in.Embeddings[0])
		for _, e := range in.Embeddings[1:] {
			if len(e) != dim {
				uniform = false
				break
			}
		}
		if uniform && dim != len(in.Probe) {
			return fmt.Errorf("%w: probe dimension %d, corpus dimension %d", ErrInputShape, len(in.Probe), dim)
		}
	}

	for _, v := range in.Probe {
		if !finite32(v) {
			return fmt.Errorf("%w: probe", ErrNumericInput)
		}
	}
	for i, e := range in.Embeddings {
		for _, v := range e {
			if !finite32(v) {
				return fmt.Errorf("%w: embedding %d", ErrNumericInput, i)
			}
		}
	}
	for i, w := range in.EmotionalWeights {
		if !finite(w) {
			return fmt.Errorf("%w: emotional weight %d", ErrNumericInput, i)
		}
	}
	for i, d := range in.DecayRates {
		if !finite(d) {
			return fmt.Errorf("%w: decay rate %d", ErrNumericInput, i)
		}
	}
	for i, b := range in.WMBoosts {
		if !finite(b) {
			return fmt.Errorf("%w: working-memory boost %d", ErrNumericInput, i)
		}
	}

	if in.ProbeModel != "" && in.Models != nil {
		for i, m := range in.Models {
			if m != "" && m != in.ProbeModel {
				return fmt.Errorf("%w: memory %d tagged %q, probe tagged %q", ErrModelMismatch, i, m, in.ProbeModel)
			}
		}
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finite32(f float32) bool {
	return finite(float64(f))
}
