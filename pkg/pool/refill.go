package pool

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"proxypool/pkg/models"
	"proxypool/pkg/proxy"
)

// refill fetches up to count descriptors from p and merges them. Concurrent
// refills of the same provider share one fetch. The fetch belongs to the
// manager and is bounded by the refill timeout; ctx only bounds how long this
// caller waits for it. A caller that gives up leaves the fetch running, and
// its descriptors are still merged when it completes.
func (m *Manager) refill(ctx context.Context, p proxy.Provider, count int) (int, error) {
	ch := m.refills.DoChan(p.Name(), func() (interface{}, error) {
		return m.fetch(p, count)
	})
	select {
	case res := <-ch:
		added, _ := res.Val.(int)
		return added, res.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (m *Manager) fetch(p proxy.Provider, count int) (int, error) {
	if !m.track() {
		return 0, ErrStopped
	}
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(m.ctx, m.settings.RefillTimeout)
	defer cancel()

	descs, err := p.FetchProxies(ctx, count)
	m.mu.Lock()
	added := m.mergeLocked(descs)
	m.mu.Unlock()
	if err != nil {
		return added, &ProviderUnavailableError{Provider: p.Name(), Err: err}
	}
	return added, nil
}

// refillFor asks each provider that could satisfy criteria for more
// descriptors, stopping as soon as one matches. Session providers mint a
// descriptor routed to the requested location.
func (m *Manager) refillFor(ctx context.Context, criteria models.Criteria) {
	for _, p := range m.providers {
		if ctx.Err() != nil {
			return
		}
		if criteria.Type != "" && p.Type() != criteria.Type {
			continue
		}

		var err error
		if sp, ok := p.(proxy.SessionProvider); ok {
			var d *models.ProxyDescriptor
			d, err = sp.GetProxy(ctx, proxy.Targeting{Country: criteria.Country, State: criteria.State})
			if err == nil {
				m.Register(d)
			} else {
				err = &ProviderUnavailableError{Provider: p.Name(), Err: err}
			}
		} else {
			_, err = m.refill(ctx, p, m.settings.RefillBatchSize)
		}
		if err != nil {
			m.logger.Warn("on-demand refill failed", "provider", p.Name(), "error", err)
			continue
		}

		if m.hasCandidate(criteria) {
			return
		}
	}
}

func (m *Manager) hasCandidate(criteria models.Criteria) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.descriptors {
		if d.Available() && criteria.Matches(d) {
			return true
		}
	}
	return false
}

// scheduleRefill replaces lost capacity for p in the background, retrying
// with exponential backoff until the manager stops.
func (m *Manager) scheduleRefill(p proxy.Provider) {
	if !m.track() {
		return
	}
	go func() {
		defer m.wg.Done()

		count := m.settings.MinAvailable - m.availableFor(p.Name())
		if count < 1 {
			count = 1
		}

		b := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(m.settings.RefillMaxRetries)),
			m.ctx)
		err := backoff.Retry(func() error {
			added, err := m.refill(m.ctx, p, count)
			if err == nil {
				m.logger.Debug("background refill", "provider", p.Name(), "added", added)
			}
			return err
		}, b)
		if err != nil {
			m.logger.Warn("background refill failed", "provider", p.Name(), "error", err)
		}
	}()
}
