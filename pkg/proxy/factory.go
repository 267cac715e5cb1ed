package proxy

import (
	"fmt"
	"log/slog"
)

// NewProvider creates a new proxy provider based on the config
func NewProvider(config Config, logger *slog.Logger) (Provider, error) {
	if config.Name == "" {
		config.Name = string(config.System)
	}
	var (
		p   Provider
		err error
	)
	switch config.System {
	case SystemStatic:
		p, err = newStaticProvider(config, logger)
	case SystemBrightData:
		p, err = newBrightDataProvider(config, logger)
	case SystemSOAX:
		p, err = newSoaxProvider(config, logger)
	case SystemProxyRack:
		p, err = newProxyRackProvider(config, logger)
	default:
		return nil, configError("unsupported proxy system: %q", config.System)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewProviders builds every configured provider. Names must be unique.
func NewProviders(configs []Config, logger *slog.Logger) ([]Provider, error) {
	if len(configs) == 0 {
		return nil, configError("no providers configured")
	}
	seen := make(map[string]bool, len(configs))
	providers := make([]Provider, 0, len(configs))
	for i, c := range configs {
		p, err := NewProvider(c, logger)
		if err != nil {
			return nil, fmt.Errorf("provider %d: %w", i, err)
		}
		if seen[p.Name()] {
			return nil, configError("duplicate provider name: %q", p.Name())
		}
		seen[p.Name()] = true
		providers = append(providers, p)
	}
	return providers, nil
}
