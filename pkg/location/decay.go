package location

// DecayConfig controls familiarity decay for stale locations.
type DecayConfig struct {
	// StaleThresholdDays is how long a location must go untouched before
	// decay applies at all.
	StaleThresholdDays int

	// MaxDecay is the largest per-application decay rate, felt by
	// completely unfamiliar locations.
	MaxDecay float64

	// Dampening reduces the decay rate for familiar locations:
	// rate = MaxDecay × (1 − f × Dampening). Well-worn paths fade slower.
	Dampening float64

	// BaseFloor is the familiarity no location decays below.
	BaseFloor float64

	// StickyBonus raises the floor for locations that were once well known:
	// floor = BaseFloor + StickyBonus × (f − 0.5) when f > 0.5.
	StickyBonus float64
}

// DefaultDecayConfig returns the standard decay parameters.
func DefaultDecayConfig() *DecayConfig {
	return &DecayConfig{
		StaleThresholdDays: 30,
		MaxDecay:           0.1,
		Dampening:          0.5,
		BaseFloor:          0.05,
		StickyBonus:        0.2,
	}
}

const msPerDay = 24 * 60 * 60 * 1000

// DecayFamiliarity applies one day's familiarity decay to a stale location
// and returns the updated record plus whether anything changed.
//
// Rules:
//   - Pinned locations are exempt.
//   - Nothing happens until the location has been untouched for the stale
//     threshold.
//   - Applying decay twice on the same day is a no-op: the second call sees
//     that less than a day has passed since LastDecayAtMS and leaves the
//     record alone. Decay resumes once a new day's worth of staleness
//     accrues.
//
// The decay itself follows the dampened-rate, sticky-floor curve: familiar
// locations decay slower and bottom out higher.
func DecayFamiliarity(loc Location, nowMS int64, cfg *DecayConfig) (Location, bool) {
	if cfg == nil {
		cfg = DefaultDecayConfig()
	}
	if loc.Pinned {
		return loc, false
	}

	staleMS := nowMS - loc.LastAccessedMS
	if staleMS < int64(cfg.StaleThresholdDays)*msPerDay {
		return loc, false
	}

	// Idempotent within a day: require a full day since the last application.
	if loc.LastDecayAtMS > 0 && nowMS-loc.LastDecayAtMS < msPerDay {
		return loc, false
	}

	f := loc.Familiarity
	rate := cfg.MaxDecay * (1 - f*cfg.Dampening)
	floor := cfg.BaseFloor
	if f > 0.5 {
		floor += cfg.StickyBonus * (f - 0.5)
	}

	decayed := f * (1 - rate)
	if decayed < floor {
		decayed = floor
	}

	changed := decayed != f
	loc.Familiarity = decayed
	loc.LastDecayAtMS = nowMS
	return loc, changed
}

// DecayAll applies DecayFamiliarity across a slice and returns how many
// records changed. The input slice is updated in place.
func DecayAll(locs []Location, nowMS int64, cfg *DecayConfig) int {
	changed := 0
	for i := range locs {
		updated, did := DecayFamiliarity(locs[i], nowMS, cfg)
		locs[i] = updated
		if did {
			changed++
		}
	}
	return changed
}
