// Package retrieval implements the Muninn retrieval pipeline: the public
// entry point that combines base-level activation, probe similarity,
// spreading activation, emotional and contextual modulators, and episodic
// spreading into a ranked, probability-normalized candidate list.
//
// The engine is pure computation over the snapshot a host supplies. It owns
// no I/O, no persistence, and no clock; every entry point is re-entrant and
// safe for concurrent use given immutable inputs.
//
// Pipeline (order is fixed for reproducibility):
//
//	validate → cosine similarities → cube (MINERVA) → base-level (ACT-R)
//	→ compose a⁰ = w·σ(B) + S³ → pick seeds → spread → modulators
//	→ episodic term → threshold → noise → softmax → cutoffs
//
// With NoiseParameter = 0 the pipeline is bit-deterministic: every reduction
// runs serially in index order.
//
// # ELI12 (Explain Like I'm 12)
//
// Imagine your brain as a dark room full of lightbulbs, one per memory.
// When you think of something, bulbs light up for three reasons:
//
//  1. Bulbs you've switched on recently (and often) still glow a little.
//  2. Bulbs that look like what you're thinking of light up a lot.
//  3. Lit bulbs pass a bit of current to bulbs wired next to them.
//
// Feelings, the project you're in, and what you did this session turn the
// brightness up a notch. Then the engine just reads off the brightest bulbs
// and tells you how sure it is about each one.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/exp/rand"

	"github.com/orneryd/muninn/pkg/activation"
	"github.com/orneryd/muninn/pkg/math/vector"
	"github.com/orneryd/muninn/pkg/temporal"
)

// preSpreadClip bounds the composed pre-spread activation so a pathological
// history cannot blow up the spreading wave.
const preSpreadClip = 10.0

// baseLevelWeight scales the squashed base-level term when composing with
// the cubed probe similarity. Recency and frequency contribute at most half
// a similarity unit, so a strong semantic match always beats a merely
// well-rehearsed memory.
const baseLevelWeight = 0.5

// Engine runs the retrieval pipeline. Create one with New and reuse it
// across calls; it holds only configuration and the noise source.
type Engine struct {
	cfg      *Config
	temporal *temporal.Config
	src      rand.Source
}

// New creates an Engine. A nil config uses DefaultConfig. The noise source
// is seeded from the wall clock; use NewWithSeed for reproducible noise.
func New(cfg *Config) *Engine {
	return NewWithSeed(cfg, uint64(time.Now().UnixNano()))
}

// NewWithSeed creates an Engine whose noise stream is seeded explicitly.
// With Config.NoiseParameter = 0 the seed is irrelevant.
func NewWithSeed(cfg *Config, seed uint64) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{
		cfg:      cfg,
		temporal: temporal.DefaultConfig(),
		src:      rand.NewSource(seed),
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Retrieve ranks the snapshot's memories against the probe and returns the
// token-budget-sized candidate list. An empty corpus returns an empty list,
// not an error. The input is never mutated; appending access timestamps for
// retrieved candidates is the host's job after return.
func (e *Engine) Retrieve(ctx context.Context, in *Input) ([]Candidate, error) {
	return e.retrieve(ctx, in, nil)
}

// retrieve is the shared pipeline core. significance, when non-nil, is the
// visual-scoring multiplier applied to the final activation.
func (e *Engine) retrieve(ctx context.Context, in *Input, significance []float64) ([]Candidate, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	n := len(in.Embeddings)
	if n == 0 {
		return []Candidate{}, nil
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	// 1–2. Similarities and the MINERVA cube.
	sims := vector.CosineBatch(in.Probe, in.Embeddings)
	probe := activation.ProbeActivation(sims)

	// 3. Base-level activation, squashed onto the probe's scale.
	decays := make([]float64, n)
	for i := range decays {
		decays[i] = e.cfg.DecayRate
		if in.DecayRates != nil && in.DecayRates[i] > 0 {
			decays[i] = in.DecayRates[i]
		}
	}
	rawBase := activation.BaseLevelBatch(in.Histories, in.NowMS, decays)
	base := make([]float64, n)
	for i, b := range rawBase {
		base[i] = baseLevelWeight * activation.Squash(b)
	}

	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	// 4. Compose pre-spread activation, clipped to a finite range.
	a0 := make([]float64, n)
	for i := range a0 {
		a0[i] = clip(base[i]+probe[i], -preSpreadClip, preSpreadClip)
	}

	// 5. Seeds: top-K by pre-spread activation, at or above the threshold.
	seeds := pickSeeds(a0, e.cfg.SeedCount, e.cfg.SeedThreshold)

	// 6. Spreading activation.
	spread := activation.Spread(a0, in.Associations, seeds, &activation.SpreadConfig{
		Depth:             e.cfg.SpreadingDepth,
		Decay:             e.cfg.SpreadingDecay,
		Bidirectional:     e.cfg.Bidirectional,
		ContributionFloor: 1e-6,
	})

	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	// 7. Multiplicative modulators, in fixed order: working memory, emotion,
	// project, session.
	act := make([]float64, n)
	for i := range act {
		a := a0[i] + spread[i]

		if in.WMBoosts != nil {
			boost := in.WMBoosts[i]
			if boost > e.cfg.WMBoostCap {
				boost = e.cfg.WMBoostCap
			}
			if boost > 0 {
				a *= boost
			}
		}

		w := clip(in.EmotionalWeights[i], 0, 1)
		a *= e.cfg.EmotionMultiplierLow + w*(e.cfg.EmotionMultiplierHigh-e.cfg.EmotionMultiplierLow)

		if in.QueryProject != "" && in.Projects != nil && in.Projects[i] == in.QueryProject {
			a *= e.cfg.ProjectBoost
		}

		if in.Temporal != nil && in.Temporal.SessionSet[i] {
			a *= e.cfg.SessionBoost
		}

		act[i] = a
	}

	// 8. Episodic spreading, when anchors were supplied.
	if in.Temporal != nil && len(in.Temporal.Episodes) > 0 {
		delta := temporal.SpreadActivation(act, in.Temporal.Episodes, e.temporal)
		for i := range act {
			act[i] += delta[i]
		}
	}

	if significance != nil {
		for i := range act {
			act[i] *= significance[i]
		}
	}

	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	// 9. Threshold cut, then noise, then softmax over the survivors.
	type scored struct {
		index int
		act   float64
	}
	survivors := make([]scored, 0, n)
	for i, a := range act {
		if a < e.cfg.ActivationThreshold {
			continue
		}
		survivors = append(survivors, scored{index: i, act: a})
	}
	if len(survivors) == 0 {
		return []Candidate{}, nil
	}

	if e.cfg.NoiseParameter > 0 {
		noise := newGumbelNoise(e.cfg.NoiseParameter, e.src)
		for i := range survivors {
			survivors[i].act += noise.sample()
		}
	}

	acts := make([]float64, len(survivors))
	for i, s := range survivors {
		acts[i] = s.act
	}
	probs := softmax(acts)

	// 10. Probability cutoffs and final ordering.
	candidates := make([]Candidate, 0, len(survivors))
	for i, s := range survivors {
		if probs[i] < e.cfg.MinProbability {
			continue
		}
		c := Candidate{
			Index:           s.index,
			TotalActivation: s.act,
			Probability:     probs[i],
			Components: Components{
				Base:      base[s.index],
				Probe:     probe[s.index],
				Spread:    spread[s.index],
				Modulated: act[s.index],
			},
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Probability > candidates[j].Probability
	})
	if len(candidates) > e.cfg.MaxResults {
		candidates = candidates[:e.cfg.MaxResults]
	}
	return candidates, nil
}

// pickSeeds returns the indices of the top-k activations at or above the
// threshold, ties broken by lower index.
func pickSeeds(a []float64, k int, threshold float64) []int {
	idx := make([]int, 0, len(a))
	for i, v := range a {
		if v >= threshold {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return a[idx[i]] > a[idx[j]]
	})
	if k > 0 && len(idx) > k {
		idx = idx[:k]
	}
	return idx
}

// softmax converts activations to probabilities with τ = 1, shifted by the
// max for numeric stability. The survivors' probabilities sum to 1; mass
// lost to later cutoffs is simply not returned.
func softmax(acts []float64) []float64 {
	maxAct := math.Inf(-1)
	for _, a := range acts {
		if a > maxAct {
			maxAct = a
		}
	}
	probs := make([]float64, len(acts))
	var sum float64
	for i, a := range acts {
		probs[i] = math.Exp(a - maxAct)
		sum += probs[i]
	}
	if sum == 0 {
		return probs
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// cancelled maps a fired context onto ErrCancelled.
func cancelled(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}
