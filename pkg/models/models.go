package models

import (
	"fmt"
	"strings"
)

// Protocol is the wire protocol spoken by a proxy endpoint
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolHTTPS  Protocol = "https"
	ProtocolSOCKS4 Protocol = "socks4"
	ProtocolSOCKS5 Protocol = "socks5"
)

// ParseProtocol returns the protocol for a scheme, case-insensitively.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolSOCKS4, ProtocolSOCKS5:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported protocol: %q", s)
	}
}

// EgressType is the network class a proxy exits from
type EgressType string

const (
	ResidentialType EgressType = "residential"
	DatacenterType  EgressType = "datacenter"
	MobileType      EgressType = "mobile"
	ISPType         EgressType = "isp"
)

func ParseEgressType(s string) (EgressType, error) {
	switch t := EgressType(strings.ToLower(strings.TrimSpace(s))); t {
	case ResidentialType, DatacenterType, MobileType, ISPType:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported egress type: %q", s)
	}
}

// HealthState is the classification computed from a descriptor's statistics
type HealthState string

const (
	HealthUnknown  HealthState = "unknown"
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthDead     HealthState = "dead"
)

// Outcome is what a caller reports after using a proxy
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)
