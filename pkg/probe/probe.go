// Package probe checks whether a proxy can carry traffic and measures how long
// a round trip through it takes.
package probe

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Jigsaw-Code/outline-sdk/transport"

	"proxypool/pkg/fetch"
	"proxypool/pkg/ipinfo"
	"proxypool/pkg/models"
)

// Result is what a successful probe observed.
type Result struct {
	Latency time.Duration
	ExitIP  string
	Country string
}

// Prober checks one descriptor. An error means the proxy failed the probe.
type Prober interface {
	Probe(ctx context.Context, d models.ProxyDescriptor) (Result, error)
}

// HTTPProber fetches URL through the proxy. SOCKS5 is dialed with the outline
// SDK, HTTP(S) proxies are used as forward proxies, and SOCKS4 endpoints only
// get a TCP reachability check.
type HTTPProber struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

func NewHTTPProber(target string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{URL: target, Timeout: timeout, UserAgent: "proxypool-probe/1.0"}
}

func (p *HTTPProber) Probe(ctx context.Context, d models.ProxyDescriptor) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	opts := fetch.Options{
		Method:  "GET",
		Headers: []string{"User-Agent: " + p.UserAgent},
		Timeout: p.Timeout,
	}

	switch d.Protocol {
	case models.ProtocolSOCKS5:
		opts.Transport = d.URL()
	case models.ProtocolHTTP, models.ProtocolHTTPS:
		u, err := url.Parse(d.URL())
		if err != nil {
			return Result{}, fmt.Errorf("invalid proxy url: %w", err)
		}
		opts.ProxyURL = u
	case models.ProtocolSOCKS4:
		return dialProbe(ctx, d)
	default:
		return Result{}, fmt.Errorf("unsupported protocol: %s", d.Protocol)
	}

	res, err := fetch.Fetch(ctx, p.URL, opts)
	if err != nil {
		return Result{}, err
	}
	if res.StatusCode >= 400 {
		return Result{}, fmt.Errorf("probe returned status %d", res.StatusCode)
	}

	result := Result{Latency: res.Elapsed}
	if info, err := ipinfo.Parse(res.Body); err == nil {
		result.ExitIP = info.IP
		result.Country = info.Country
	}
	return result, nil
}

// dialProbe only proves the endpoint accepts TCP connections.
func dialProbe(ctx context.Context, d models.ProxyDescriptor) (Result, error) {
	dialer := &transport.TCPDialer{}
	start := time.Now()
	conn, err := dialer.DialStream(ctx, d.Address())
	if err != nil {
		return Result{}, fmt.Errorf("dial failed: %w", err)
	}
	conn.Close()
	return Result{Latency: time.Since(start)}, nil
}
