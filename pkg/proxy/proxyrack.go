package proxy

import (
	"fmt"
	"log/slog"
	"strings"

	"proxypool/pkg/models"
)

func newProxyRackProvider(config Config, logger *slog.Logger) (*SessionAdapter, error) {
	// Validate required ProxyRack configuration
	if config.System != SystemProxyRack {
		return nil, configError("invalid system type for ProxyRack provider")
	}
	if config.Username == "" {
		return nil, configError("ProxyRack username is required")
	}
	if config.APIKey == "" {
		return nil, configError("ProxyRack API key is required")
	}
	if config.Endpoint == "" {
		return nil, configError("ProxyRack endpoint is required")
	}
	if config.SessionLength == 0 {
		config.SessionLength = 360 // default to 6 minutes if not specified
	}
	if config.Protocol == "" {
		config.Protocol = models.ProtocolSOCKS5
	}

	refreshMinutes := config.SessionLength / 60
	if refreshMinutes < 1 {
		refreshMinutes = 1
	}
	return newSessionAdapter(config, logger, config.APIKey, func(t Targeting, sessionID string) string {
		return proxyRackUsername(config.Username, refreshMinutes, t, sessionID)
	})
}

// proxyRackUsername produces
// <user>[-country-<CC>[-state-<st>]]-session-<sid>-refreshMinutes-<min>[-isp-<isp>].
func proxyRackUsername(username string, refreshMinutes int, t Targeting, sessionID string) string {
	parts := []string{username}
	if t.Country != "" {
		parts = append(parts, "country", strings.ToUpper(t.Country))
		if t.State != "" {
			parts = append(parts, "state", strings.ToLower(t.State))
		}
	}
	parts = append(parts, "session", sessionID, "refreshMinutes", fmt.Sprint(refreshMinutes))
	if t.ISP != "" {
		parts = append(parts, "isp", encodeISP(t.ISP))
	}
	return strings.Join(parts, "-")
}
