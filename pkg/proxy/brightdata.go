package proxy

import (
	"log/slog"
	"strings"

	"proxypool/pkg/models"
)

func newBrightDataProvider(config Config, logger *slog.Logger) (*SessionAdapter, error) {
	if config.System != SystemBrightData {
		return nil, configError("invalid system type for Bright Data provider")
	}
	if config.Customer == "" {
		return nil, configError("Bright Data customer is required")
	}
	if config.Zone == "" {
		return nil, configError("Bright Data zone is required")
	}
	if config.Password == "" {
		return nil, configError("Bright Data zone password is required")
	}
	if config.Endpoint == "" {
		return nil, configError("Bright Data endpoint is required")
	}
	if config.Protocol == "" {
		config.Protocol = models.ProtocolHTTP
	}

	return newSessionAdapter(config, logger, config.Password, func(t Targeting, sessionID string) string {
		return brightDataUsername(config.Customer, config.Zone, t, sessionID)
	})
}

// brightDataUsername produces
// brd-customer-<id>-zone-<zone>[-country-<cc>[-state-<st>]]-session-<sid>.
func brightDataUsername(customer, zone string, t Targeting, sessionID string) string {
	parts := []string{"brd-customer", customer, "zone", zone}
	if t.Country != "" {
		parts = append(parts, "country", strings.ToLower(t.Country))
		if t.State != "" {
			parts = append(parts, "state", strings.ToLower(t.State))
		}
	}
	parts = append(parts, "session", sessionID)
	return strings.Join(parts, "-")
}
