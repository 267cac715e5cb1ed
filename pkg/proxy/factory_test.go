package proxy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "static",
			config: Config{System: SystemStatic, Proxies: []string{"10.0.0.1:80"}},
		},
		{
			name:   "brightdata",
			config: Config{System: SystemBrightData, Customer: "c", Zone: "z", Password: "p", Endpoint: "h:1"},
		},
		{
			name:   "soax",
			config: Config{System: SystemSOAX, PackageID: "1", PackageKey: "k", Endpoint: "h:1"},
		},
		{
			name:   "proxyrack",
			config: Config{System: SystemProxyRack, Username: "u", APIKey: "k", Endpoint: "h:1"},
		},
		{
			name:    "unknown system",
			config:  Config{System: "luminati-classic"},
			wantErr: true,
		},
		{
			name:    "brightdata missing zone",
			config:  Config{System: SystemBrightData, Customer: "c", Password: "p", Endpoint: "h:1"},
			wantErr: true,
		},
		{
			name:    "endpoint without port",
			config:  Config{System: SystemProxyRack, Username: "u", APIKey: "k", Endpoint: "premium.residential.proxyrack.net"},
			wantErr: true,
		},
		{
			name:    "bad protocol",
			config:  Config{System: SystemSOAX, PackageID: "1", PackageKey: "k", Endpoint: "h:1", Protocol: "quic"},
			wantErr: true,
		},
		{
			name:    "bad type",
			config:  Config{System: SystemStatic, Proxies: []string{"10.0.0.1:80"}, Type: "satellite"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config, discardLogger())
			if tt.wantErr {
				require.ErrorIs(t, err, ErrConfiguration)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.config.System, p.System())
		})
	}
}

func TestNewProvidersRejectsDuplicates(t *testing.T) {
	cfg := Config{Name: "dc", System: SystemStatic, Proxies: []string{"10.0.0.1:80"}}

	providers, err := NewProviders([]Config{cfg}, discardLogger())
	require.NoError(t, err)
	require.Len(t, providers, 1)

	_, err = NewProviders([]Config{cfg, cfg}, discardLogger())
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewProviders(nil, discardLogger())
	require.ErrorIs(t, err, ErrConfiguration)
}
