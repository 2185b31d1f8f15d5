// Package activation implements the activation mathematics of the Muninn
// retrieval engine: ACT-R base-level activation over access histories,
// the MINERVA 2 cubic probe nonlinearity, and spreading activation over a
// weighted association graph.
//
// All functions are pure computation over host-supplied slices. Nothing in
// this package touches a clock or holds state; the query time is always an
// explicit argument.
//
// # ELI12 (Explain Like I'm 12)
//
// Your brain decides how easy a memory is to recall from three clues:
//
//  1. How recently and how often you used it (base-level). A phone number you
//     dialed an hour ago beats one you dialed last year — but dialing it a
//     hundred times also counts.
//  2. How much it looks like what you're thinking about right now (probe).
//     And weak resemblances get squashed hard: "kind of similar" loses to
//     "really similar" by a lot more than you'd expect. That's the cube.
//  3. What it's connected to (spreading). Thinking about "beach" wakes up
//     "sand" a little, which wakes up "castle" a tiny bit.
//
// The retrieval pipeline adds the three clues together and ranks.
package activation

import "math"

// Time and numeric constants for base-level activation.
const (
	// Epsilon avoids the singularity at elapsed time zero. Expressed in
	// seconds, matching the units of the decay power law.
	Epsilon = 0.001

	// DefaultDecay is the per-memory decay exponent d when none is supplied.
	DefaultDecay = 0.5

	msPerSecond = 1000.0
)

// BaseLevel computes ACT-R base-level activation for one memory.
//
// Given access timestamps t_1..t_k (milliseconds since epoch) and the query
// time now (also milliseconds), it returns
//
//	B = ln( Σ_j (Δt_j + ε)^(−d) )
//
// with Δt_j = now − t_j converted to seconds. The result is unbounded in both
// directions: it grows with the number of accesses and shrinks as they age.
//
// Edge cases:
//   - Empty history returns the floor ln(ε^−d), the activation of a memory
//     that has never been retrieved.
//   - Future timestamps (clock skew) have their Δt clamped to ε.
//   - Non-positive decay is replaced with DefaultDecay.
func BaseLevel(historyMS []int64, nowMS int64, decay float64) float64 {
	if decay <= 0 {
		decay = DefaultDecay
	}
	if len(historyMS) == 0 {
		return math.Log(math.Pow(Epsilon, -decay))
	}

	var sum float64
	for _, t := range historyMS {
		dt := float64(nowMS-t) / msPerSecond
		if dt < 0 {
			dt = Epsilon // clock skew: clamp the elapsed time to ε
		}
		sum += math.Pow(dt+Epsilon, -decay)
	}
	return math.Log(sum)
}

// BaseLevelBatch computes BaseLevel for every memory in a corpus.
//
// histories and decays are parallel; a nil decays slice (or a non-positive
// entry) falls back to DefaultDecay for the affected memories.
func BaseLevelBatch(histories [][]int64, nowMS int64, decays []float64) []float64 {
	out := make([]float64, len(histories))
	for i, h := range histories {
		d := DefaultDecay
		if i < len(decays) && decays[i] > 0 {
			d = decays[i]
		}
		out[i] = BaseLevel(h, nowMS, d)
	}
	return out
}

// Squash maps an unbounded base-level activation into (0, 1) with the
// logistic function. The retrieval pipeline combines σ(B) with the cubed
// probe similarity so that recency/frequency and semantic match compete on
// the same scale.
func Squash(b float64) float64 {
	s := 1.0 / (1.0 + math.Exp(-b))
	// float64 rounding saturates the logistic for large |b|; keep the result
	// strictly inside (0, 1).
	if s >= 1 {
		return math.Nextafter(1, 0)
	}
	if s <= 0 {
		return math.SmallestNonzeroFloat64
	}
	return s
}
