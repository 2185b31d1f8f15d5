package temporal

import "sort"

// Config holds the episodic spreading parameters.
type Config struct {
	// ForwardStrength scales traversal in narrative direction.
	ForwardStrength float64

	// BackwardStrength scales traversal against narrative direction
	// (the TCM asymmetry: weaker than forward).
	BackwardStrength float64

	// PositionDecay is β: influence decays as β^(distance−1) with the
	// number of hops from the anchor.
	PositionDecay float64

	// MaxHops caps traversal depth, independent of associative spreading.
	MaxHops int

	// SeedCount is how many top-activation memories anchor the spread.
	SeedCount int
}

// DefaultConfig returns the standard episodic spreading parameters.
func DefaultConfig() *Config {
	return &Config{
		ForwardStrength:  1.0,
		BackwardStrength: 0.7,
		PositionDecay:    0.8,
		MaxHops:          3,
		SeedCount:        5,
	}
}

// Neighbor is one event reached from an anchor, with its traversal weight.
type Neighbor struct {
	// Index is the corpus index of the reached memory.
	Index int `json:"index"`
	// Position is the event position inside the episode.
	Position int `json:"position"`
	// Weight is dir × Πstrength × β^(hops−1).
	Weight float64 `json:"weight"`
	// Hops is the link distance from the anchor.
	Hops int `json:"hops"`
}

// walk traverses an episode's flow edges from the given position, downstream
// or upstream, collecting reachable events with their decayed weights.
// The direction factor applies once per query, the positional decay once per
// hop beyond the first, and link strengths multiply along the path.
func walk(ep *Episode, from int, dir QueryDirection, cfg *Config) []Neighbor {
	dirFactor := cfg.ForwardStrength
	if dir == Before {
		dirFactor = cfg.BackwardStrength
	}

	// Adjacency in the requested direction only.
	adj := make(map[int][]flowEdge)
	for _, e := range flowEdges(ep) {
		if dir == Before {
			e.from, e.to = e.to, e.from
		}
		adj[e.from] = append(adj[e.from], e)
	}

	type state struct {
		pos    int
		weight float64 // product of link strengths so far
		hops   int
	}

	best := make(map[int]Neighbor)
	frontier := []state{{pos: from, weight: 1.0}}
	for hop := 1; hop <= cfg.MaxHops && len(frontier) > 0; hop++ {
		var next []state
		for _, s := range frontier {
			for _, e := range adj[s.pos] {
				if e.to == from {
					continue
				}
				w := s.weight * e.strength
				decayed := dirFactor * w
				for i := 1; i < hop; i++ {
					decayed *= cfg.PositionDecay
				}
				if prev, ok := best[e.to]; !ok || decayed > prev.Weight {
					best[e.to] = Neighbor{
						Index:    ep.Events[e.to],
						Position: e.to,
						Weight:   decayed,
						Hops:     hop,
					}
				}
				next = append(next, state{pos: e.to, weight: w, hops: hop})
			}
		}
		frontier = next
	}

	out := make([]Neighbor, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// Neighbors returns up to k memories in the requested direction from the
// anchor memory's latest episode, ordered by descending asymmetric
// distance-decayed weight. A nil config uses DefaultConfig. An anchor that
// belongs to no episode yields nil.
func Neighbors(episodes []Episode, anchor int, dir QueryDirection, k int, cfg *Config) []Neighbor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if k <= 0 {
		return nil
	}
	ep, pos := latestEpisodeWith(episodes, anchor)
	if ep == nil {
		return nil
	}
	neighbors := walk(ep, pos, dir, cfg)
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// SpreadActivation computes the additive episodic term for the retrieval
// pipeline. Up to cfg.SeedCount memories with the highest current activation
// anchor the spread; each anchor that belongs to an episode contributes its
// activation × traversal weight to every event reachable within the hop cap,
// in both directions (forward at full strength, backward attenuated).
//
// Returns a delta vector of the same length as activations. The input is not
// modified.
func SpreadActivation(activations []float64, episodes []Episode, cfg *Config) []float64 {
	delta := make([]float64, len(activations))
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(activations) == 0 || len(episodes) == 0 || cfg.MaxHops <= 0 {
		return delta
	}

	seeds := topByActivation(activations, cfg.SeedCount)
	for _, seed := range seeds {
		ep, pos := latestEpisodeWith(episodes, seed)
		if ep == nil {
			continue
		}
		energy := activations[seed]
		if energy <= 0 {
			continue
		}
		for _, dir := range []QueryDirection{After, Before} {
			for _, n := range walk(ep, pos, dir, cfg) {
				if n.Index < 0 || n.Index >= len(delta) || n.Index == seed {
					continue
				}
				delta[n.Index] += energy * n.Weight
			}
		}
	}
	return delta
}

// topByActivation returns the indices of the k highest activations,
// ties broken by lower index.
func topByActivation(activations []float64, k int) []int {
	idx := make([]int, len(activations))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return activations[idx[i]] > activations[idx[j]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
