package pool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"proxypool/pkg/models"
	"proxypool/pkg/probe"
	"proxypool/pkg/proxy"
)

type fakeProber struct {
	mu     sync.Mutex
	fail   map[string]bool
	probed map[string]int
}

func newFakeProber(failing ...string) *fakeProber {
	f := &fakeProber{fail: make(map[string]bool), probed: make(map[string]int)}
	for _, h := range failing {
		f.fail[h] = true
	}
	return f
}

func (f *fakeProber) Probe(ctx context.Context, d models.ProxyDescriptor) (probe.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed[d.Host]++
	if f.fail[d.Host] {
		return probe.Result{}, errors.New("connection refused")
	}
	return probe.Result{Latency: 80 * time.Millisecond, ExitIP: "203.0.113.1", Country: "nl"}, nil
}

func (f *fakeProber) count(host string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probed[host]
}

func newSweepManager(t *testing.T, settings Settings, prober probe.Prober, p *fakeProvider) *Manager {
	t.Helper()
	m := NewManager(settings, []proxy.Provider{p}, prober, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(m.Stop)
	seed(t, m)
	return m
}

func descriptorByHost(m *Manager, host string) (models.ProxyDescriptor, bool) {
	for _, d := range m.Snapshot() {
		if d.Host == host {
			return d, true
		}
	}
	return models.ProxyDescriptor{}, false
}

func TestSweepPromotesAndDemotes(t *testing.T) {
	dc := &fakeProvider{name: "dc", typ: models.DatacenterType, hosts: []string{"good", "bad"}}
	prober := newFakeProber("bad")
	m := newSweepManager(t, testSettings(), prober, dc)

	report := m.Sweep(context.Background())
	require.Equal(t, 2, report.Probed)
	require.Equal(t, 1, report.Failed)

	good, ok := descriptorByHost(m, "good")
	require.True(t, ok)
	require.Equal(t, models.HealthHealthy, good.Health)
	require.InDelta(t, 80.0, good.LatencyMs, 1e-9)
	require.Equal(t, "203.0.113.1", good.ExitIP)
	require.Equal(t, "NL", good.ExitCountry)
	require.Empty(t, good.Country)
	require.False(t, good.LastCheckedAt.IsZero())

	// Healthy descriptors are left alone; the failing one keeps being probed
	// until it dies.
	m.Sweep(context.Background())
	m.Sweep(context.Background())
	require.Equal(t, 1, prober.count("good"))
	require.Equal(t, 3, prober.count("bad"))

	bad, ok := descriptorByHost(m, "bad")
	require.True(t, ok)
	require.Equal(t, models.HealthDead, bad.Health)
	require.False(t, bad.QuarantinedAt.IsZero())

	m.Sweep(context.Background())
	require.Equal(t, 3, prober.count("bad"))
}

func TestSweepSkipsBusyDescriptors(t *testing.T) {
	dc := &fakeProvider{name: "dc", typ: models.DatacenterType, hosts: []string{"held", "recent"}}
	prober := newFakeProber()
	m := newSweepManager(t, testSettings(), prober, dc)

	held, err := m.Checkout(context.Background(), models.Criteria{})
	require.NoError(t, err)
	recent, err := m.Checkout(context.Background(), models.Criteria{})
	require.NoError(t, err)
	require.NoError(t, m.Release(recent.ID))

	report := m.Sweep(context.Background())
	require.Zero(t, report.Probed)
	require.Zero(t, prober.count(held.Host))
	require.Zero(t, prober.count(recent.Host))

	// Once idle long enough the released one is probed.
	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	report = m.Sweep(context.Background())
	require.Equal(t, 1, report.Probed)
	require.Equal(t, 1, prober.count(recent.Host))

	d, ok := descriptorByHost(m, held.Host)
	require.True(t, ok)
	require.True(t, d.InUse)
}

func TestSweepPurgesAfterGrace(t *testing.T) {
	dc := &fakeProvider{name: "dc", typ: models.DatacenterType, hosts: []string{"a", "b"}}
	settings := testSettings()
	settings.MinAvailable = 2
	settings.DeadGracePeriod = time.Minute
	m := newSweepManager(t, settings, nil, dc)

	dead, ok := descriptorByHost(m, "a")
	require.True(t, ok)
	for i := 0; i < settings.MaxConsecutiveFailures; i++ {
		require.NoError(t, m.Report(dead.ID, models.OutcomeFailure, 0))
	}
	require.Equal(t, 1, m.Stats().Dead)

	// Within the grace period the endpoint stays quarantined.
	report := m.Sweep(context.Background())
	require.Zero(t, report.Purged)
	require.Zero(t, report.Refilled)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	report = m.Sweep(context.Background())
	require.Equal(t, 1, report.Purged)
	require.Equal(t, 1, report.Refilled)

	again, ok := descriptorByHost(m, "a")
	require.True(t, ok)
	require.NotEqual(t, dead.ID, again.ID)
	require.Equal(t, models.HealthUnknown, again.Health)

	stats := m.Stats()
	require.Equal(t, 2, stats.Total)
	require.Zero(t, stats.Dead)
}

func TestSweepLoopRunsOnInterval(t *testing.T) {
	dc := &fakeProvider{name: "dc", typ: models.DatacenterType, hosts: []string{"a"}}
	prober := newFakeProber()
	settings := testSettings()
	settings.HealthCheckInterval = 10 * time.Millisecond

	m := NewManager(settings, []proxy.Provider{dc}, prober, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, func() bool { return prober.count("a") > 0 }, time.Second, 5*time.Millisecond)
	m.Stop()
}
