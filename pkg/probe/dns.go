package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Jigsaw-Code/outline-sdk/dns"
	"github.com/Jigsaw-Code/outline-sdk/x/configurl"
	"github.com/Jigsaw-Code/outline-sdk/x/connectivity"

	"proxypool/pkg/models"
)

// DNSProber resolves Domain over TCP through a SOCKS5 proxy. Descriptors with
// other protocols are handed to Fallback.
type DNSProber struct {
	Resolver string
	Domain   string
	Timeout  time.Duration
	Fallback Prober
}

func (p *DNSProber) Probe(ctx context.Context, d models.ProxyDescriptor) (Result, error) {
	if d.Protocol != models.ProtocolSOCKS5 {
		if p.Fallback == nil {
			return Result{}, fmt.Errorf("dns probe does not support %s", d.Protocol)
		}
		return p.Fallback.Probe(ctx, d)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	streamDialer, err := configurl.NewDefaultConfigToDialer().NewStreamDialer(d.URL())
	if err != nil {
		return Result{}, fmt.Errorf("could not create dialer: %w", err)
	}
	resolver := dns.NewTCPResolver(streamDialer, net.JoinHostPort(p.Resolver, "53"))

	start := time.Now()
	result, err := connectivity.TestConnectivityWithResolver(ctx, resolver, p.Domain)
	if err != nil {
		return Result{}, err
	}
	if result != nil {
		return Result{}, fmt.Errorf("%s failed: %w", result.Op, findBaseError(result.Err))
	}
	return Result{Latency: time.Since(start)}, nil
}

// findBaseError unwraps an error chain to find the most basic underlying error
func findBaseError(err error) error {
	for err != nil {
		// Joined errors: the last one is usually the most specific
		if unwrapInterface, ok := err.(interface{ Unwrap() []error }); ok {
			errs := unwrapInterface.Unwrap()
			if len(errs) > 0 {
				err = errs[len(errs)-1]
				continue
			}
		}

		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
	return err
}
