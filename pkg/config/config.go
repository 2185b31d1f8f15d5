// Package config loads Muninn configuration from environment variables and
// optional YAML files.
//
// Environment variables are prefixed with MUNINN_ and override file values;
// file values override defaults. The engine packages themselves never read
// the environment — hosts load a Config here and pass the typed sub-configs
// down.
//
// Example Usage:
//
//	cfg, err := config.Load("muninn.yaml")
//	if err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	engine := retrieval.New(cfg.Retrieval())
//
// Environment Variables:
//   - MUNINN_DATA_DIR="./data"
//   - MUNINN_ACTIVATION_THRESHOLD=0.3
//   - MUNINN_NOISE_PARAMETER=0.1
//   - MUNINN_SPREADING_DEPTH=3
//   - MUNINN_SPREADING_DECAY=0.7
//   - MUNINN_MAX_RESULTS=10
//   - MUNINN_SESSION_IDLE_TIMEOUT=30m
//   - MUNINN_LOCATION_STALE_DAYS=30
//   - MUNINN_ENCRYPTION_ENABLED=false
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/muninn/pkg/location"
	"github.com/orneryd/muninn/pkg/retrieval"
	"github.com/orneryd/muninn/pkg/temporal"
)

// Config holds all Muninn configuration.
type Config struct {
	// Store settings for the badger-backed snapshot store.
	Store StoreConfig `yaml:"store"`

	// Retrieval pipeline parameters.
	RetrievalConfig RetrievalConfig `yaml:"retrieval"`

	// Temporal spreading and session detection.
	Temporal TemporalConfig `yaml:"temporal"`

	// Location intuitions.
	Location LocationConfig `yaml:"location"`
}

// StoreConfig holds snapshot-store settings.
type StoreConfig struct {
	// DataDir is the badger directory.
	DataDir string `yaml:"data_dir"`
	// EmbeddingModel tags embeddings written by this host.
	EmbeddingModel string `yaml:"embedding_model"`
	// EmbeddingDimensions is the expected vector width.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
	// EncryptionEnabled turns on at-rest encryption of memory content.
	EncryptionEnabled bool `yaml:"encryption_enabled"`
	// EncryptionPassphrase derives the at-rest key when encryption is on.
	EncryptionPassphrase string `yaml:"encryption_passphrase"`
}

// RetrievalConfig mirrors retrieval.Config in YAML-friendly form.
type RetrievalConfig struct {
	DecayRate             float64 `yaml:"decay_rate"`
	ActivationThreshold   float64 `yaml:"activation_threshold"`
	NoiseParameter        float64 `yaml:"noise_parameter"`
	SpreadingDepth        int     `yaml:"spreading_depth"`
	SpreadingDecay        float64 `yaml:"spreading_decay"`
	MinProbability        float64 `yaml:"min_probability"`
	MaxResults            int     `yaml:"max_results"`
	Bidirectional         bool    `yaml:"bidirectional"`
	EmotionMultiplierLow  float64 `yaml:"emotion_multiplier_low"`
	EmotionMultiplierHigh float64 `yaml:"emotion_multiplier_high"`
	WMBoostCap            float64 `yaml:"wm_boost_cap"`
	ProjectBoost          float64 `yaml:"project_boost"`
	SessionBoost          float64 `yaml:"session_boost"`
	SeedCount             int     `yaml:"seed_count"`
	SeedThreshold         float64 `yaml:"seed_threshold"`
}

// TemporalConfig holds episodic spreading and session settings.
type TemporalConfig struct {
	ForwardStrength  float64       `yaml:"forward_strength"`
	BackwardStrength float64       `yaml:"backward_strength"`
	PositionDecay    float64       `yaml:"position_decay"`
	MaxHops          int           `yaml:"max_hops"`
	SeedCount        int           `yaml:"seed_count"`
	SessionIdle      time.Duration `yaml:"session_idle_timeout"`
}

// LocationConfig holds location-intuition settings.
type LocationConfig struct {
	Alpha              float64 `yaml:"alpha"`
	WellKnownThreshold float64 `yaml:"well_known_threshold"`
	SessionMultiplier  float64 `yaml:"session_multiplier"`
	StaleThresholdDays int     `yaml:"stale_threshold_days"`
	MaxDecay           float64 `yaml:"max_decay"`
	Dampening          float64 `yaml:"dampening"`
	BaseFloor          float64 `yaml:"base_floor"`
	StickyBonus        float64 `yaml:"sticky_bonus"`
}

// Default returns a Config carrying every package's defaults.
func Default() *Config {
	r := retrieval.DefaultConfig()
	t := temporal.DefaultConfig()
	s := temporal.DefaultSessionConfig()
	l := location.DefaultConfig()
	d := location.DefaultDecayConfig()

	return &Config{
		Store: StoreConfig{
			DataDir:             "./data",
			EmbeddingModel:      "all-MiniLM-L6-v2",
			EmbeddingDimensions: 384,
		},
		RetrievalConfig: RetrievalConfig{
			DecayRate:             r.DecayRate,
			ActivationThreshold:   r.ActivationThreshold,
			NoiseParameter:        r.NoiseParameter,
			SpreadingDepth:        r.SpreadingDepth,
			SpreadingDecay:        r.SpreadingDecay,
			MinProbability:        r.MinProbability,
			MaxResults:            r.MaxResults,
			Bidirectional:         r.Bidirectional,
			EmotionMultiplierLow:  r.EmotionMultiplierLow,
			EmotionMultiplierHigh: r.EmotionMultiplierHigh,
			WMBoostCap:            r.WMBoostCap,
			ProjectBoost:          r.ProjectBoost,
			SessionBoost:          r.SessionBoost,
			SeedCount:             r.SeedCount,
			SeedThreshold:         r.SeedThreshold,
		},
		Temporal: TemporalConfig{
			ForwardStrength:  t.ForwardStrength,
			BackwardStrength: t.BackwardStrength,
			PositionDecay:    t.PositionDecay,
			MaxHops:          t.MaxHops,
			SeedCount:        t.SeedCount,
			SessionIdle:      s.IdleTimeout,
		},
		Location: LocationConfig{
			Alpha:              l.Alpha,
			WellKnownThreshold: l.WellKnownThreshold,
			SessionMultiplier:  l.SessionMultiplier,
			StaleThresholdDays: d.StaleThresholdDays,
			MaxDecay:           d.MaxDecay,
			Dampening:          d.Dampening,
			BaseFloor:          d.BaseFloor,
			StickyBonus:        d.StickyBonus,
		},
	}
}

// Load reads defaults, then the YAML file at path (if non-empty), then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv reads defaults plus environment overrides only.
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	c.Store.DataDir = getEnv("MUNINN_DATA_DIR", c.Store.DataDir)
	c.Store.EmbeddingModel = getEnv("MUNINN_EMBEDDING_MODEL", c.Store.EmbeddingModel)
	c.Store.EmbeddingDimensions = getEnvInt("MUNINN_EMBEDDING_DIMENSIONS", c.Store.EmbeddingDimensions)
	c.Store.EncryptionEnabled = getEnvBool("MUNINN_ENCRYPTION_ENABLED", c.Store.EncryptionEnabled)
	c.Store.EncryptionPassphrase = getEnv("MUNINN_ENCRYPTION_PASSPHRASE", c.Store.EncryptionPassphrase)

	r := &c.RetrievalConfig
	r.DecayRate = getEnvFloat("MUNINN_DECAY_RATE", r.DecayRate)
	r.ActivationThreshold = getEnvFloat("MUNINN_ACTIVATION_THRESHOLD", r.ActivationThreshold)
	r.NoiseParameter = getEnvFloat("MUNINN_NOISE_PARAMETER", r.NoiseParameter)
	r.SpreadingDepth = getEnvInt("MUNINN_SPREADING_DEPTH", r.SpreadingDepth)
	r.SpreadingDecay = getEnvFloat("MUNINN_SPREADING_DECAY", r.SpreadingDecay)
	r.MinProbability = getEnvFloat("MUNINN_MIN_PROBABILITY", r.MinProbability)
	r.MaxResults = getEnvInt("MUNINN_MAX_RESULTS", r.MaxResults)
	r.Bidirectional = getEnvBool("MUNINN_BIDIRECTIONAL", r.Bidirectional)
	r.WMBoostCap = getEnvFloat("MUNINN_WM_BOOST_CAP", r.WMBoostCap)
	r.ProjectBoost = getEnvFloat("MUNINN_PROJECT_BOOST", r.ProjectBoost)
	r.SessionBoost = getEnvFloat("MUNINN_SESSION_BOOST", r.SessionBoost)

	c.Temporal.SessionIdle = getEnvDuration("MUNINN_SESSION_IDLE_TIMEOUT", c.Temporal.SessionIdle)
	c.Location.StaleThresholdDays = getEnvInt("MUNINN_LOCATION_STALE_DAYS", c.Location.StaleThresholdDays)
}

// Validate checks every section, delegating range checks to the packages
// that own the parameters.
func (c *Config) Validate() error {
	if err := c.Retrieval().Validate(); err != nil {
		return err
	}
	if c.Store.EncryptionEnabled && c.Store.EncryptionPassphrase == "" {
		return fmt.Errorf("config: encryption enabled without a passphrase")
	}
	if c.Store.EmbeddingDimensions <= 0 {
		return fmt.Errorf("config: embedding dimensions must be positive")
	}
	if c.Location.StaleThresholdDays < 0 {
		return fmt.Errorf("config: location stale threshold must not be negative")
	}
	return nil
}

// Retrieval converts the YAML-friendly section into the engine's config.
func (c *Config) Retrieval() *retrieval.Config {
	r := c.RetrievalConfig
	return &retrieval.Config{
		DecayRate:             r.DecayRate,
		ActivationThreshold:   r.ActivationThreshold,
		NoiseParameter:        r.NoiseParameter,
		SpreadingDepth:        r.SpreadingDepth,
		SpreadingDecay:        r.SpreadingDecay,
		MinProbability:        r.MinProbability,
		MaxResults:            r.MaxResults,
		Bidirectional:         r.Bidirectional,
		EmotionMultiplierLow:  r.EmotionMultiplierLow,
		EmotionMultiplierHigh: r.EmotionMultiplierHigh,
		WMBoostCap:            r.WMBoostCap,
		ProjectBoost:          r.ProjectBoost,
		SessionBoost:          r.SessionBoost,
		SeedCount:             r.SeedCount,
		SeedThreshold:         r.SeedThreshold,
	}
}

// TemporalSpread converts the temporal section for the spreading functions.
func (c *Config) TemporalSpread() *temporal.Config {
	return &temporal.Config{
		ForwardStrength:  c.Temporal.ForwardStrength,
		BackwardStrength: c.Temporal.BackwardStrength,
		PositionDecay:    c.Temporal.PositionDecay,
		MaxHops:          c.Temporal.MaxHops,
		SeedCount:        c.Temporal.SeedCount,
	}
}

// Session converts the temporal section for the session tracker.
func (c *Config) Session() *temporal.SessionConfig {
	s := temporal.DefaultSessionConfig()
	if c.Temporal.SessionIdle > 0 {
		s.IdleTimeout = c.Temporal.SessionIdle
	}
	return s
}

// LocationCurve converts the location section for the familiarity functions.
func (c *Config) LocationCurve() *location.Config {
	return &location.Config{
		Alpha:              c.Location.Alpha,
		WellKnownThreshold: c.Location.WellKnownThreshold,
		SessionMultiplier:  c.Location.SessionMultiplier,
	}
}

// LocationDecay converts the location section for familiarity decay.
func (c *Config) LocationDecay() *location.DecayConfig {
	return &location.DecayConfig{
		StaleThresholdDays: c.Location.StaleThresholdDays,
		MaxDecay:           c.Location.MaxDecay,
		Dampening:          c.Location.Dampening,
		BaseFloor:          c.Location.BaseFloor,
		StickyBonus:        c.Location.StickyBonus,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
