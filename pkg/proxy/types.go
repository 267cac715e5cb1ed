package proxy

import (
	"context"

	"proxypool/pkg/models"
)

// System represents the kind of adapter a provider entry configures
type System string

const (
	SystemStatic     System = "static"
	SystemBrightData System = "brightdata"
	SystemSOAX       System = "soax"
	SystemProxyRack  System = "proxyrack"
)

// Config represents the configuration for a proxy provider. Which fields are
// required depends on System.
type Config struct {
	Name   string            `mapstructure:"name"`
	System System            `mapstructure:"system"`
	Type   models.EgressType `mapstructure:"type"`
	// Protocol of the session endpoint, or the fallback for static entries
	// without a recognised scheme.
	Protocol models.Protocol `mapstructure:"protocol"`

	// Default targeting
	Country string `mapstructure:"country"`
	State   string `mapstructure:"state"`
	ISP     string `mapstructure:"isp"`

	// Static lists
	Proxies []string `mapstructure:"proxies"`
	File    string   `mapstructure:"file"`
	ListURL string   `mapstructure:"list_url"`

	// Session vendors
	Endpoint      string `mapstructure:"endpoint"`
	Customer      string `mapstructure:"customer"` // only used by Bright Data
	Zone          string `mapstructure:"zone"`     // only used by Bright Data
	Password      string `mapstructure:"password"` // only used by Bright Data
	Username      string `mapstructure:"username"` // only used by ProxyRack
	APIKey        string `mapstructure:"api_key"`  // only used by ProxyRack
	PackageID     string `mapstructure:"package_id"`
	PackageKey    string `mapstructure:"package_key"`
	SessionLength int    `mapstructure:"session_length"` // seconds
}

// Targeting is the per-request routing a session vendor encodes in the
// username. Empty fields fall back to the provider's configured defaults.
type Targeting struct {
	Country string
	State   string
	ISP     string
}

// Provider defines the interface for different proxy providers
type Provider interface {
	Name() string
	System() System
	Type() models.EgressType
	// FetchProxies returns fresh descriptors. Finite sources may ignore count.
	FetchProxies(ctx context.Context, count int) ([]*models.ProxyDescriptor, error)
}

// SessionProvider is a Provider that can mint a descriptor for an arbitrary
// location on demand.
type SessionProvider interface {
	Provider
	GetProxy(ctx context.Context, target Targeting) (*models.ProxyDescriptor, error)
}
