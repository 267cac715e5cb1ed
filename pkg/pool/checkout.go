package pool

import (
	"context"
	"fmt"

	"proxypool/pkg/models"
	"proxypool/pkg/proxy"
)

// Checkout hands out one descriptor matching criteria. A sticky key that is
// still bound to a live descriptor gets the same descriptor back. If nothing
// matches, the matching providers are refilled once before giving up with
// ErrPoolExhausted. The whole call is bounded by the checkout timeout.
func (m *Manager) Checkout(ctx context.Context, criteria models.Criteria) (*models.ProxyDescriptor, error) {
	criteria = criteria.Normalize()

	ctx, cancel := context.WithTimeout(ctx, m.settings.CheckoutTimeout)
	defer cancel()

	d, err := m.tryCheckout(criteria)
	if err != nil || d != nil {
		return d, err
	}

	m.refillFor(ctx, criteria)

	d, err = m.tryCheckout(criteria)
	if err != nil || d != nil {
		return d, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, ctxErr)
	}
	return nil, fmt.Errorf("%w: type=%q country=%q state=%q",
		ErrPoolExhausted, criteria.Type, criteria.Country, criteria.State)
}

func (m *Manager) tryCheckout(criteria models.Criteria) (*models.ProxyDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key := criteria.StickyKey; key != "" {
		if id, ok := m.sticky.Get(key); ok {
			d := m.descriptors[id]
			if d != nil && !d.IsDead() && (!d.InUse || d.Holder == key) {
				if err := m.claimLocked(d, key); err != nil {
					return nil, err
				}
				return d.Clone(), nil
			}
			m.sticky.Delete(key)
		}
	}

	var candidates []*models.ProxyDescriptor
	for _, d := range m.descriptors {
		if d.Available() && criteria.Matches(d) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	m.tracker.Rank(candidates)
	d := candidates[0]
	if err := m.claimLocked(d, criteria.StickyKey); err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

func (m *Manager) claimLocked(d *models.ProxyDescriptor, key string) error {
	if d.InUse && (key == "" || d.Holder != key) {
		m.logger.Error("double checkout prevented", "id", d.ID, "holder", d.Holder, "key", key)
		return fmt.Errorf("%w: %s", ErrDoubleCheckout, d.ID)
	}
	d.InUse = true
	d.Holder = key
	d.LastUsedAt = m.now()
	if key != "" {
		m.sticky.Set(key, d.ID)
	}
	return nil
}

// Report records the outcome of using a descriptor and releases it. Enough
// consecutive failures quarantine the descriptor and schedule a background
// refill of its provider. latencyMs is ignored for failures and when <= 0.
func (m *Manager) Report(id string, outcome models.Outcome, latencyMs float64) error {
	m.mu.Lock()
	d, ok := m.descriptors[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDescriptor, id)
	}

	switch outcome {
	case models.OutcomeSuccess:
		d.SuccessCount++
		d.ConsecutiveFailures = 0
		d.LatencyMs = m.tracker.UpdateLatency(d.LatencyMs, latencyMs)
	case models.OutcomeFailure:
		d.FailureCount++
		d.ConsecutiveFailures++
	default:
		m.mu.Unlock()
		return fmt.Errorf("unknown outcome: %q", outcome)
	}
	d.InUse, d.Holder = false, ""

	refill := m.reclassifyLocked(d)
	m.mu.Unlock()

	if refill != nil {
		m.scheduleRefill(refill)
	}
	return nil
}

// reclassifyLocked updates d.Health. Dead is terminal until the descriptor is
// purged. It returns the provider to refill when d has just died.
func (m *Manager) reclassifyLocked(d *models.ProxyDescriptor) proxy.Provider {
	if d.IsDead() {
		return nil
	}
	if d.Health = m.tracker.Classify(d); d.IsDead() {
		return m.quarantineLocked(d)
	}
	return nil
}

// Release returns a descriptor to the pool without touching its statistics.
func (m *Manager) Release(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.descriptors[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDescriptor, id)
	}
	d.InUse, d.Holder = false, ""
	return nil
}
