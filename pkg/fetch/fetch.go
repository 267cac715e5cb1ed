// Package fetch provides functionality to make HTTP requests through a proxy
package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/Jigsaw-Code/outline-sdk/x/configurl"
)

// Options contains all the configuration options for making a fetch request
type Options struct {
	// Transport config string understood by configurl, e.g. socks5://u:p@host:port.
	// Mutually exclusive with ProxyURL.
	Transport string
	// HTTP or HTTPS forward proxy, used through CONNECT for https targets.
	ProxyURL *url.URL
	// HTTP method to use (default: "GET")
	Method string
	// Raw HTTP headers to add (without \r\n)
	Headers []string
	// Timeout for the whole exchange (default: 5s)
	Timeout time.Duration
	// Cap on the body bytes read (default: 1 MiB)
	MaxBodyBytes int64
}

// Result contains the response from a fetch request
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Elapsed covers connect, request and reading the body.
	Elapsed time.Duration
}

// Fetch makes an HTTP request with the given options
func Fetch(ctx context.Context, target string, opts Options) (*Result, error) {
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.Transport != "" && opts.ProxyURL != nil {
		return nil, fmt.Errorf("transport and proxy url are mutually exclusive")
	}

	httpTransport, err := newTransport(opts)
	if err != nil {
		return nil, err
	}
	defer httpTransport.CloseIdleConnections()

	httpClient := &http.Client{
		Transport: httpTransport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Process headers
	if len(opts.Headers) > 0 {
		headerText := strings.Join(opts.Headers, "\r\n") + "\r\n\r\n"
		h, err := textproto.NewReader(bufio.NewReader(strings.NewReader(headerText))).ReadMIMEHeader()
		if err != nil {
			return nil, fmt.Errorf("invalid header line: %w", err)
		}
		for name, values := range h {
			for _, value := range values {
				req.Header.Add(name, value)
			}
		}
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read of page body failed: %w", err)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    time.Since(start),
	}, nil
}

func newTransport(opts Options) (*http.Transport, error) {
	if opts.ProxyURL != nil {
		return &http.Transport{
			Proxy:             http.ProxyURL(opts.ProxyURL),
			DisableKeepAlives: true,
		}, nil
	}

	dialer, err := configurl.NewDefaultConfigToDialer().NewStreamDialer(opts.Transport)
	if err != nil {
		return nil, fmt.Errorf("could not create dialer: %w", err)
	}

	dialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !strings.HasPrefix(network, "tcp") {
			return nil, fmt.Errorf("protocol not supported: %v", network)
		}
		return dialer.DialStream(ctx, addr)
	}
	return &http.Transport{
		DialContext:       dialContext,
		DisableKeepAlives: true,
	}, nil
}
