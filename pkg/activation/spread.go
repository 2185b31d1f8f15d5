package activation

// Edge is a directed association between two memories, addressed by corpus
// index. Forward is the strength of source→target traversal; Backward is the
// strength used when the graph is walked against the edge direction.
// Both strengths are expected in [0, 1].
type Edge struct {
	Source   int     `json:"source"`
	Target   int     `json:"target"`
	Forward  float64 `json:"forward"`
	Backward float64 `json:"backward"`
}

// SpreadConfig controls spreading activation.
type SpreadConfig struct {
	// Depth is the hop cap D. Spreading stops after D hops regardless of
	// remaining energy.
	Depth int

	// Decay is the per-hop multiplier γ. Must be below 1 for the spread to
	// converge inside the hop cap.
	Decay float64

	// Bidirectional also walks edges target→source using Backward strength.
	Bidirectional bool

	// ContributionFloor prunes per-node contributions below this magnitude.
	// Purely a speed optimization; 0 disables pruning.
	ContributionFloor float64
}

// DefaultSpreadConfig returns the standard spreading parameters:
// depth 3, decay 0.7, bidirectional traversal, floor 1e-6.
func DefaultSpreadConfig() *SpreadConfig {
	return &SpreadConfig{
		Depth:             3,
		Decay:             0.7,
		Bidirectional:     true,
		ContributionFloor: 1e-6,
	}
}

// neighbor is one traversable arc in the flattened adjacency list.
type neighbor struct {
	target int
	weight float64
}

// Spread propagates activation from seed memories along the association graph
// and returns the additive spread vector Δa (same length as activations).
//
// At each hop, every frontier node deposits contribution × edge weight × γ
// onto its neighbors; freshly deposited amounts form the next hop's frontier.
// Deposits within a hop are summed, so traversal order never affects the
// result. Cycles are bounded by the hop cap and the γ < 1 decay.
//
// Two rules keep the wave honest:
//   - Self-edges never participate.
//   - A wave never deposits back onto the seed it started from, so a memory
//     cannot activate itself through any cycle, bidirectional or not.
//
// The input activation vector is read for seed energies only and is not
// modified.
func Spread(activations []float64, edges []Edge, seeds []int, cfg *SpreadConfig) []float64 {
	n := len(activations)
	delta := make([]float64, n)
	if cfg == nil {
		cfg = DefaultSpreadConfig()
	}
	if n == 0 || len(edges) == 0 || len(seeds) == 0 || cfg.Depth <= 0 || cfg.Decay <= 0 {
		return delta
	}

	adj := make([][]neighbor, n)
	for _, e := range edges {
		if e.Source == e.Target {
			continue // self-loops are ignored
		}
		if e.Source < 0 || e.Source >= n || e.Target < 0 || e.Target >= n {
			continue
		}
		if e.Forward > 0 {
			adj[e.Source] = append(adj[e.Source], neighbor{e.Target, e.Forward})
		}
		if cfg.Bidirectional && e.Backward > 0 {
			adj[e.Target] = append(adj[e.Target], neighbor{e.Source, e.Backward})
		}
	}

	// Each seed spreads independently; waves from different seeds are
	// additive, so the per-seed loop is equivalent to a joint traversal.
	frontier := make(map[int]float64)
	next := make(map[int]float64)
	for _, seed := range seeds {
		if seed < 0 || seed >= n {
			continue
		}
		energy := activations[seed]
		if energy == 0 {
			continue
		}

		clear(frontier)
		frontier[seed] = energy
		for hop := 0; hop < cfg.Depth && len(frontier) > 0; hop++ {
			clear(next)
			for node, c := range frontier {
				for _, nb := range adj[node] {
					if nb.target == seed {
						continue // no self-activation via cycles
					}
					deposit := c * nb.weight * cfg.Decay
					if cfg.ContributionFloor > 0 && deposit < cfg.ContributionFloor && deposit > -cfg.ContributionFloor {
						continue
					}
					delta[nb.target] += deposit
					next[nb.target] += deposit
				}
			}
			frontier, next = next, frontier
		}
	}

	return delta
}
