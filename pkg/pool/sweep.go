package pool

import (
	"context"
	"strings"
	"time"

	"proxypool/pkg/models"
	"proxypool/pkg/probe"
	"proxypool/pkg/proxy"
)

// SweepReport summarises one maintenance pass.
type SweepReport struct {
	Probed   int
	Failed   int
	Purged   int
	Refilled int
}

// Sweep runs one maintenance pass:
//   - descriptors dead for longer than the grace period are purged and their
//     endpoints become reusable
//   - idle unknown and degraded descriptors are probed and reclassified
//   - providers below the availability floor, or that lost a descriptor, are
//     refilled
//
// Probes only touch statistics, never the in-use flag, so a descriptor checked
// out while its probe runs stays checked out.
func (m *Manager) Sweep(ctx context.Context) SweepReport {
	var report SweepReport

	report.Purged = m.purgeExpired()

	died := make(map[string]proxy.Provider)
	if m.prober != nil {
		candidates := m.probeCandidates()
		if len(candidates) > 0 {
			outcomes := probe.Batch(ctx, m.prober, candidates, m.settings.ProbeConcurrency)
			// Probes cut short by shutdown say nothing about the proxy.
			if ctx.Err() == nil {
				report.Probed = len(outcomes)
				report.Failed = m.applyProbes(outcomes, died)
			}
		}
	}

	for _, p := range m.providers {
		if ctx.Err() != nil {
			break
		}
		need := m.settings.MinAvailable - m.availableFor(p.Name())
		if _, lost := died[p.Name()]; lost && need < 1 {
			need = 1
		}
		if need < 1 {
			continue
		}
		added, err := m.refill(ctx, p, need)
		if err != nil {
			m.logger.Warn("sweep refill failed", "provider", p.Name(), "error", err)
		}
		report.Refilled += added
	}
	return report
}

func (m *Manager) purgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.settings.DeadGracePeriod)
	purged := 0
	for _, d := range m.descriptors {
		if d.IsDead() && !d.InUse && d.QuarantinedAt.Before(cutoff) {
			m.removeLocked(d)
			purged++
		}
	}
	if purged > 0 {
		m.logger.Info("purged dead proxies", "count", purged)
	}
	return purged
}

func (m *Manager) probeCandidates() []models.ProxyDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	idleBefore := m.now().Add(-m.settings.ProbeIdleAfter)
	var out []models.ProxyDescriptor
	for _, d := range m.descriptors {
		if d.InUse {
			continue
		}
		if d.Health != models.HealthUnknown && d.Health != models.HealthDegraded {
			continue
		}
		if !d.LastUsedAt.IsZero() && d.LastUsedAt.After(idleBefore) {
			continue
		}
		out = append(out, *d)
	}
	return out
}

func (m *Manager) applyProbes(outcomes []probe.Outcome, died map[string]proxy.Provider) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	failed := 0
	for _, o := range outcomes {
		d, ok := m.descriptors[o.Descriptor.ID]
		if !ok || d.IsDead() {
			continue
		}
		d.LastCheckedAt = now
		if o.Err != nil {
			failed++
			d.FailureCount++
			d.ConsecutiveFailures++
			m.logger.Debug("probe failed", "id", d.ID, "proxy", d.Redacted(), "error", o.Err)
		} else {
			d.SuccessCount++
			d.ConsecutiveFailures = 0
			d.LatencyMs = m.tracker.UpdateLatency(d.LatencyMs, float64(o.Result.Latency)/float64(time.Millisecond))
			if o.Result.ExitIP != "" {
				d.ExitIP = o.Result.ExitIP
			}
			if o.Result.Country != "" {
				d.ExitCountry = strings.ToUpper(o.Result.Country)
			}
		}
		if p := m.reclassifyLocked(d); p != nil {
			died[p.Name()] = p
		}
	}
	return failed
}
