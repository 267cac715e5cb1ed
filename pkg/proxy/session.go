package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"proxypool/pkg/models"
)

// usernameFunc composes the vendor routing username for one session.
type usernameFunc func(target Targeting, sessionID string) string

// SessionAdapter mints descriptors that share one super-proxy endpoint and
// differ only in the session encoded in the username.
type SessionAdapter struct {
	config   Config
	logger   *slog.Logger
	host     string
	port     int
	password string
	username usernameFunc
	ids      *sessionIDs
}

func newSessionAdapter(config Config, logger *slog.Logger, password string, username usernameFunc) (*SessionAdapter, error) {
	host, portStr, err := net.SplitHostPort(config.Endpoint)
	if err != nil {
		return nil, configError("%s endpoint %q: %v", config.System, config.Endpoint, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, configError("%s endpoint %q: invalid port", config.System, config.Endpoint)
	}
	if _, err := models.ParseProtocol(string(config.Protocol)); err != nil {
		return nil, configError("%s provider %q: %v", config.System, config.Name, err)
	}
	if config.Type == "" {
		config.Type = models.ResidentialType
	}
	if _, err := models.ParseEgressType(string(config.Type)); err != nil {
		return nil, configError("%s provider %q: %v", config.System, config.Name, err)
	}

	return &SessionAdapter{
		config:   config,
		logger:   logger,
		host:     host,
		port:     port,
		password: password,
		username: username,
		ids:      newSessionIDs(),
	}, nil
}

func (p *SessionAdapter) Name() string            { return p.config.Name }
func (p *SessionAdapter) System() System          { return p.config.System }
func (p *SessionAdapter) Type() models.EgressType { return p.config.Type }

// GetProxy mints a descriptor for a new session routed to target.
func (p *SessionAdapter) GetProxy(ctx context.Context, target Targeting) (*models.ProxyDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if target.Country == "" {
		target.Country = p.config.Country
		if target.State == "" {
			target.State = p.config.State
		}
	}
	if target.Country == "" {
		target.State = ""
	}
	if target.ISP == "" {
		target.ISP = p.config.ISP
	}

	sessionID := p.ids.next()
	d := models.NewDescriptor(p.config.Name, p.host, p.port, p.config.Protocol)
	d.Username = p.username(target, sessionID)
	d.Password = p.password
	d.Type = p.config.Type
	d.SessionID = sessionID
	d.SetLocation(target.Country, target.State)

	p.logger.Debug("minted session proxy",
		"provider", p.config.Name,
		"session", sessionID,
		"country", d.Country,
		"state", d.State)
	return d, nil
}

// FetchProxies mints count sessions with the default targeting.
func (p *SessionAdapter) FetchProxies(ctx context.Context, count int) ([]*models.ProxyDescriptor, error) {
	descs := make([]*models.ProxyDescriptor, 0, count)
	for i := 0; i < count; i++ {
		d, err := p.GetProxy(ctx, Targeting{})
		if err != nil {
			return descs, fmt.Errorf("failed to mint session %d: %w", i, err)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// sessionIDs generates base-36 session identifiers: millisecond timestamp,
// a four character in-process counter and four random characters.
type sessionIDs struct {
	counter atomic.Uint64
	mu      sync.Mutex
	rng     *rand.Rand
	now     func() time.Time
}

const counterSpace = 36 * 36 * 36 * 36

func newSessionIDs() *sessionIDs {
	return &sessionIDs{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

func (g *sessionIDs) next() string {
	ts := strconv.FormatInt(g.now().UnixMilli(), 36)
	n := (g.counter.Add(1) - 1) % counterSpace
	counter := strconv.FormatUint(n, 36)

	g.mu.Lock()
	r := g.rng.Int63n(counterSpace)
	g.mu.Unlock()
	random := strconv.FormatInt(r, 36)

	return ts + pad36(counter) + pad36(random)
}

func pad36(s string) string {
	if len(s) >= 4 {
		return s
	}
	return strings.Repeat("0", 4-len(s)) + s
}
