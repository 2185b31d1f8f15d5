package retrieval

import "fmt"

// Config holds the retrieval pipeline parameters.
//
// Zero values are not meaningful defaults for most fields; construct with
// DefaultConfig() and override, as the rest of the codebase does.
//
// Example:
//
//	cfg := retrieval.DefaultConfig()
//	cfg.MaxResults = 20
//	cfg.NoiseParameter = 0 // deterministic ranking
//	engine := retrieval.New(cfg)
type Config struct {
	// DecayRate is the default per-memory base-level decay exponent d,
	// used where a memory carries no decay rate of its own.
	DecayRate float64

	// ActivationThreshold discards candidates whose modulated activation
	// falls below it, before probability normalization.
	ActivationThreshold float64

	// NoiseParameter is the standard deviation of the centered Gumbel noise
	// added before softmax normalization. 0 disables noise entirely and
	// makes the pipeline bit-deterministic.
	NoiseParameter float64

	// SpreadingDepth is the hop cap D of spreading activation.
	SpreadingDepth int

	// SpreadingDecay is the per-hop decay γ of spreading activation.
	SpreadingDecay float64

	// MinProbability drops results below this probability after
	// normalization.
	MinProbability float64

	// MaxResults caps the number of returned candidates.
	MaxResults int

	// Bidirectional walks backward edges with their backward strength.
	Bidirectional bool

	// EmotionMultiplierLow and EmotionMultiplierHigh map an emotional
	// weight in [0, 1] linearly onto a multiplier in [low, high].
	EmotionMultiplierLow  float64
	EmotionMultiplierHigh float64

	// WMBoostCap is the maximum multiplicative working-memory boost.
	WMBoostCap float64

	// ProjectBoost multiplies activation when a memory's project tag
	// matches the query project.
	ProjectBoost float64

	// SessionBoost multiplies activation for memories accessed in the
	// active session.
	SessionBoost float64

	// SeedCount is the number of top-activation memories that initiate
	// spreading.
	SeedCount int

	// SeedThreshold is the minimum pre-spread activation a seed must carry.
	SeedThreshold float64
}

// DefaultConfig returns the standard pipeline parameters.
func DefaultConfig() *Config {
	return &Config{
		DecayRate:             0.5,
		ActivationThreshold:   0.3,
		NoiseParameter:        0.1,
		SpreadingDepth:        3,
		SpreadingDecay:        0.7,
		MinProbability:        0.1,
		MaxResults:            10,
		Bidirectional:         true,
		EmotionMultiplierLow:  1.0,
		EmotionMultiplierHigh: 1.5,
		WMBoostCap:            2.0,
		ProjectBoost:          1.25,
		SessionBoost:          1.2,
		SeedCount:             5,
		SeedThreshold:         0,
	}
}

// Validate reports the first out-of-range parameter, wrapped in
// ErrConfigOutOfRange.
func (c *Config) Validate() error {
	switch {
	case c.DecayRate <= 0:
		return fmt.Errorf("%w: decay rate %v must be positive", ErrConfigOutOfRange, c.DecayRate)
	case c.SpreadingDepth < 0:
		return fmt.Errorf("%w: spreading depth %d must not be negative", ErrConfigOutOfRange, c.SpreadingDepth)
	case c.SpreadingDecay < 0 || c.SpreadingDecay > 1:
		return fmt.Errorf("%w: spreading decay %v must be in [0, 1]", ErrConfigOutOfRange, c.SpreadingDecay)
	case c.NoiseParameter < 0:
		return fmt.Errorf("%w: noise parameter %v must not be negative", ErrConfigOutOfRange, c.NoiseParameter)
	case c.MinProbability < 0 || c.MinProbability > 1:
		return fmt.Errorf("%w: min probability %v must be in [0, 1]", ErrConfigOutOfRange, c.MinProbability)
	case c.MaxResults < 1:
		return fmt.Errorf("%w: max results %d must be at least 1", ErrConfigOutOfRange, c.MaxResults)
	case c.EmotionMultiplierHigh < c.EmotionMultiplierLow:
		return fmt.Errorf("%w: emotion multiplier range [%v, %v] is inverted", ErrConfigOutOfRange, c.EmotionMultiplierLow, c.EmotionMultiplierHigh)
	case c.WMBoostCap < 1:
		return fmt.Errorf("%w: working-memory boost cap %v must be at least 1", ErrConfigOutOfRange, c.WMBoostCap)
	case c.SeedCount < 1:
		return fmt.Errorf("%w: seed count %d must be at least 1", ErrConfigOutOfRange, c.SeedCount)
	}
	return nil
}
