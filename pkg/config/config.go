// Package config loads the pool configuration through viper and resolves
// encrypted secrets.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"proxypool/pkg/database"
	"proxypool/pkg/pool"
	"proxypool/pkg/proxy"
)

const (
	ProbeModeHTTP = "http"
	ProbeModeDNS  = "dns"
)

type ProbeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Mode     string        `mapstructure:"mode"`
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Resolver string        `mapstructure:"resolver"`
	Domain   string        `mapstructure:"domain"`
}

type Config struct {
	Pool      pool.Settings   `mapstructure:"pool"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Providers []proxy.Config  `mapstructure:"providers"`
	Database  database.Config `mapstructure:"database"`

	// Secrets decrypts enc: values; it is owned by this configuration.
	Secrets *Secrets `mapstructure:"-"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	d := pool.DefaultSettings()
	v.SetDefault("pool.health_check_interval", d.HealthCheckInterval)
	v.SetDefault("pool.max_consecutive_failures", d.MaxConsecutiveFailures)
	v.SetDefault("pool.degraded_multiplier", d.DegradedMultiplier)
	v.SetDefault("pool.latency_smoothing", d.LatencySmoothing)
	v.SetDefault("pool.refill_batch_size", d.RefillBatchSize)
	v.SetDefault("pool.refill_max_retries", d.RefillMaxRetries)
	v.SetDefault("pool.refill_timeout", d.RefillTimeout)
	v.SetDefault("pool.min_available", d.MinAvailable)
	v.SetDefault("pool.checkout_timeout", d.CheckoutTimeout)
	v.SetDefault("pool.dead_grace_period", d.DeadGracePeriod)
	v.SetDefault("pool.sticky_ttl", d.StickyTTL)
	v.SetDefault("pool.probe_idle_after", d.ProbeIdleAfter)
	v.SetDefault("pool.probe_concurrency", d.ProbeConcurrency)

	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.mode", ProbeModeHTTP)
	v.SetDefault("probe.url", "https://ipinfo.io/json")
	v.SetDefault("probe.timeout", 10*time.Second)
	v.SetDefault("probe.resolver", "8.8.8.8")
	v.SetDefault("probe.domain", "www.google.com")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
}

// Load decodes v into a Config, decrypts secrets and validates the result.
// The secret key is read from PROXYPOOL_SECRET_KEY.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	if err := v.BindEnv("secret_key", SecretKeyEnv); err != nil {
		return nil, fmt.Errorf("failed to bind secret key: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Secrets = NewSecrets(v.GetString("secret_key"))

	if err := cfg.decryptSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decryptSecrets() error {
	for i := range c.Providers {
		p := &c.Providers[i]
		for _, field := range []*string{&p.Password, &p.APIKey, &p.PackageKey} {
			plain, err := c.Secrets.Decrypt(*field)
			if err != nil {
				return fmt.Errorf("%w: provider %d: %v", proxy.ErrConfiguration, i, err)
			}
			*field = plain
		}
	}
	plain, err := c.Secrets.Decrypt(c.Database.Password)
	if err != nil {
		return fmt.Errorf("database password: %w", err)
	}
	c.Database.Password = plain
	return nil
}

// Validate checks what can be checked without building providers; adapter
// specific fields are validated by proxy.NewProviders.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("at least one provider is required"))
	}
	for i, p := range c.Providers {
		switch p.System {
		case proxy.SystemStatic, proxy.SystemBrightData, proxy.SystemSOAX, proxy.SystemProxyRack:
		default:
			errs = append(errs, fmt.Errorf("provider %d: unsupported proxy system: %q", i, p.System))
		}
	}
	if m := c.Pool.DegradedMultiplier; m <= 0 || m >= 1 {
		errs = append(errs, fmt.Errorf("pool.degraded_multiplier must be in (0,1), got %v", m))
	}
	if c.Pool.MaxConsecutiveFailures < 1 {
		errs = append(errs, errors.New("pool.max_consecutive_failures must be at least 1"))
	}
	switch strings.ToLower(c.Probe.Mode) {
	case ProbeModeHTTP, ProbeModeDNS:
	default:
		errs = append(errs, fmt.Errorf("probe.mode must be http or dns, got %q", c.Probe.Mode))
	}
	if c.Database.Enabled && (c.Database.Host == "" || c.Database.DBName == "") {
		errs = append(errs, errors.New("database.host and database.dbname are required when the database is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", proxy.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
