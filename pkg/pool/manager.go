package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"proxypool/pkg/health"
	"proxypool/pkg/models"
	"proxypool/pkg/probe"
	"proxypool/pkg/proxy"
)

// Manager owns every descriptor in the pool. A single mutex guards the
// descriptor map, the endpoint index and all statistics; provider calls and
// probes always run with it released.
type Manager struct {
	settings  Settings
	tracker   health.Tracker
	logger    *slog.Logger
	providers []proxy.Provider
	byName    map[string]proxy.Provider
	prober    probe.Prober
	now       func() time.Time

	mu          sync.Mutex
	descriptors map[string]*models.ProxyDescriptor
	endpoints   map[string]string // endpoint key -> descriptor ID
	stopped     bool

	sticky  *stickyCache
	refills singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager returns an empty pool. A nil prober disables background probing;
// the sweep still purges dead descriptors and tops providers up.
func NewManager(settings Settings, providers []proxy.Provider, prober probe.Prober, logger *slog.Logger) *Manager {
	settings = settings.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	byName := make(map[string]proxy.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &Manager{
		settings:    settings,
		tracker:     health.NewTracker(settings.MaxConsecutiveFailures, settings.DegradedMultiplier, settings.LatencySmoothing),
		logger:      logger,
		providers:   providers,
		byName:      byName,
		prober:      prober,
		now:         time.Now,
		descriptors: make(map[string]*models.ProxyDescriptor),
		endpoints:   make(map[string]string),
		sticky:      newStickyCache(settings.StickyTTL),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start seeds the pool from every provider and launches the sweep loop. It
// fails only if every provider failed and the pool is still empty.
func (m *Manager) Start(ctx context.Context) error {
	var g errgroup.Group
	for _, p := range m.providers {
		p := p
		g.Go(func() error {
			added, err := m.refill(ctx, p, m.settings.RefillBatchSize)
			if err != nil {
				m.logger.Warn("initial fill failed", "provider", p.Name(), "error", err)
				return err
			}
			m.logger.Info("provider seeded", "provider", p.Name(), "added", added)
			return nil
		})
	}
	err := g.Wait()
	if err != nil && m.Stats().Total == 0 {
		return fmt.Errorf("failed to seed pool: %w", err)
	}

	if !m.track() {
		return fmt.Errorf("failed to start pool: %w", ErrStopped)
	}
	go m.loop()
	return nil
}

// Stop ends the sweep loop, background refills and in-flight provider
// fetches, and waits for them.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}

// track registers one background goroutine with the manager. It returns false
// once Stop has begun; the caller must then not start the goroutine.
func (m *Manager) track() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.wg.Add(1)
	return true
}

func (m *Manager) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.settings.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			report := m.Sweep(m.ctx)
			m.logger.Debug("sweep finished",
				"probed", report.Probed,
				"failed", report.Failed,
				"purged", report.Purged,
				"refilled", report.Refilled)
		}
	}
}

// Register adds descriptors minted outside the providers. Endpoints already
// in the pool are skipped.
func (m *Manager) Register(descs ...*models.ProxyDescriptor) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mergeLocked(descs)
}

func (m *Manager) mergeLocked(descs []*models.ProxyDescriptor) int {
	added := 0
	for _, d := range descs {
		key := d.EndpointKey()
		if _, exists := m.endpoints[key]; exists {
			continue
		}
		if d.ID == "" {
			d.ID = models.NewID()
		}
		if d.Health == "" {
			d.Health = models.HealthUnknown
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = m.now()
		}
		d.InUse, d.Holder = false, ""
		m.descriptors[d.ID] = d
		m.endpoints[key] = d.ID
		added++
	}
	return added
}

func (m *Manager) removeLocked(d *models.ProxyDescriptor) {
	delete(m.descriptors, d.ID)
	if m.endpoints[d.EndpointKey()] == d.ID {
		delete(m.endpoints, d.EndpointKey())
	}
	m.sticky.DeleteID(d.ID)
}

// quarantineLocked marks d dead. It returns d's provider so the caller can
// schedule a replacement once the lock is released.
func (m *Manager) quarantineLocked(d *models.ProxyDescriptor) proxy.Provider {
	d.Health = models.HealthDead
	d.QuarantinedAt = m.now()
	m.sticky.DeleteID(d.ID)
	m.logger.Info("proxy quarantined",
		"id", d.ID,
		"provider", d.Provider,
		"proxy", d.Redacted(),
		"consecutive_failures", d.ConsecutiveFailures)
	return m.byName[d.Provider]
}

// Stats returns counts by health state, in-use and per provider.
func (m *Manager) Stats() models.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := models.Stats{ByProvider: make(map[string]models.ProviderStats)}
	for _, d := range m.descriptors {
		stats.Total++
		switch d.Health {
		case models.HealthHealthy:
			stats.Healthy++
		case models.HealthDegraded:
			stats.Degraded++
		case models.HealthDead:
			stats.Dead++
		default:
			stats.Unknown++
		}
		if d.InUse {
			stats.InUse++
		}

		ps := stats.ByProvider[d.Provider]
		ps.Total++
		if d.Available() {
			ps.Available++
		}
		if d.IsDead() {
			ps.Dead++
		}
		stats.ByProvider[d.Provider] = ps
	}
	return stats
}

// Snapshot returns copies of every descriptor, ordered by ID.
func (m *Manager) Snapshot() []models.ProxyDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ProxyDescriptor, 0, len(m.descriptors))
	for _, d := range m.descriptors {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restore copies health history from a snapshot onto descriptors with the
// same endpoint. In-use state is never restored. It returns how many
// descriptors were updated.
func (m *Manager) Restore(snapshot []models.ProxyDescriptor) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	restored := 0
	for i := range snapshot {
		s := &snapshot[i]
		id, ok := m.endpoints[s.EndpointKey()]
		if !ok {
			continue
		}
		d := m.descriptors[id]
		d.LatencyMs = s.LatencyMs
		d.SuccessCount = s.SuccessCount
		d.FailureCount = s.FailureCount
		d.ConsecutiveFailures = s.ConsecutiveFailures
		d.ExitIP = s.ExitIP
		d.ExitCountry = s.ExitCountry
		d.LastUsedAt = s.LastUsedAt
		d.LastCheckedAt = s.LastCheckedAt
		d.Health = m.tracker.Classify(d)
		if d.IsDead() {
			d.QuarantinedAt = s.QuarantinedAt
			if d.QuarantinedAt.IsZero() {
				d.QuarantinedAt = m.now()
			}
		}
		restored++
	}
	return restored
}

func (m *Manager) availableFor(provider string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, d := range m.descriptors {
		if d.Provider == provider && d.Available() {
			n++
		}
	}
	return n
}
