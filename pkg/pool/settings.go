package pool

import "time"

// Settings tunes the pool. Zero values are replaced by DefaultSettings.
type Settings struct {
	HealthCheckInterval    time.Duration `mapstructure:"health_check_interval"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	DegradedMultiplier     float64       `mapstructure:"degraded_multiplier"`
	LatencySmoothing       float64       `mapstructure:"latency_smoothing"`
	RefillBatchSize        int           `mapstructure:"refill_batch_size"`
	RefillMaxRetries       int           `mapstructure:"refill_max_retries"`
	// RefillTimeout bounds one provider fetch, independent of any caller.
	RefillTimeout time.Duration `mapstructure:"refill_timeout"`
	// MinAvailable is the per-provider floor the sweep tops up to.
	MinAvailable    int           `mapstructure:"min_available"`
	CheckoutTimeout time.Duration `mapstructure:"checkout_timeout"`
	DeadGracePeriod time.Duration `mapstructure:"dead_grace_period"`
	StickyTTL       time.Duration `mapstructure:"sticky_ttl"`
	// ProbeIdleAfter keeps the sweep away from recently used descriptors.
	ProbeIdleAfter   time.Duration `mapstructure:"probe_idle_after"`
	ProbeConcurrency int           `mapstructure:"probe_concurrency"`
}

func DefaultSettings() Settings {
	return Settings{
		HealthCheckInterval:    30 * time.Second,
		MaxConsecutiveFailures: 3,
		DegradedMultiplier:     0.5,
		LatencySmoothing:       0.3,
		RefillBatchSize:        10,
		RefillMaxRetries:       3,
		RefillTimeout:          30 * time.Second,
		MinAvailable:           0,
		CheckoutTimeout:        10 * time.Second,
		DeadGracePeriod:        10 * time.Minute,
		StickyTTL:              30 * time.Minute,
		ProbeIdleAfter:         time.Minute,
		ProbeConcurrency:       8,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.HealthCheckInterval <= 0 {
		s.HealthCheckInterval = d.HealthCheckInterval
	}
	if s.MaxConsecutiveFailures <= 0 {
		s.MaxConsecutiveFailures = d.MaxConsecutiveFailures
	}
	if s.DegradedMultiplier <= 0 || s.DegradedMultiplier >= 1 {
		s.DegradedMultiplier = d.DegradedMultiplier
	}
	if s.LatencySmoothing <= 0 || s.LatencySmoothing > 1 {
		s.LatencySmoothing = d.LatencySmoothing
	}
	if s.RefillBatchSize <= 0 {
		s.RefillBatchSize = d.RefillBatchSize
	}
	if s.RefillMaxRetries < 0 {
		s.RefillMaxRetries = 0
	}
	if s.RefillTimeout <= 0 {
		s.RefillTimeout = d.RefillTimeout
	}
	if s.MinAvailable < 0 {
		s.MinAvailable = 0
	}
	if s.CheckoutTimeout <= 0 {
		s.CheckoutTimeout = d.CheckoutTimeout
	}
	if s.DeadGracePeriod <= 0 {
		s.DeadGracePeriod = d.DeadGracePeriod
	}
	if s.ProbeConcurrency <= 0 {
		s.ProbeConcurrency = d.ProbeConcurrency
	}
	return s
}
