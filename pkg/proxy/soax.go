package proxy

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"proxypool/pkg/models"
)

func newSoaxProvider(config Config, logger *slog.Logger) (*SessionAdapter, error) {
	// Validate required SOAX configuration
	if config.System != SystemSOAX {
		return nil, configError("invalid system type for SOAX provider")
	}
	if config.PackageID == "" {
		return nil, configError("SOAX package ID is required")
	}
	if config.PackageKey == "" {
		return nil, configError("SOAX package key is required")
	}
	if config.Endpoint == "" {
		return nil, configError("SOAX endpoint is required")
	}
	if config.SessionLength == 0 {
		config.SessionLength = 360 // default to 6 minutes if not specified
	}
	if config.Protocol == "" {
		config.Protocol = models.ProtocolSOCKS5
	}

	return newSessionAdapter(config, logger, config.PackageKey, func(t Targeting, sessionID string) string {
		return soaxUsername(config.PackageID, config.SessionLength, t, sessionID)
	})
}

// soaxUsername produces
// package-<id>[-country-<cc>[-region-<st>]]-sessionid-<sid>-sessionlength-<sec>[-isp-<isp>].
func soaxUsername(packageID string, sessionLength int, t Targeting, sessionID string) string {
	parts := []string{"package", packageID}
	if t.Country != "" {
		parts = append(parts, "country", strings.ToLower(t.Country))
		if t.State != "" {
			parts = append(parts, "region", strings.ToLower(t.State))
		}
	}
	parts = append(parts, "sessionid", sessionID, "sessionlength", fmt.Sprint(sessionLength))
	if t.ISP != "" {
		parts = append(parts, "isp", encodeISP(t.ISP))
	}
	return strings.Join(parts, "-")
}

// encodeISP escapes an ISP name for use inside a username segment.
func encodeISP(isp string) string {
	return strings.ReplaceAll(url.QueryEscape(isp), "+", "%20")
}
