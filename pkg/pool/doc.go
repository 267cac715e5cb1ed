/*
Package pool hands out proxies to concurrent callers and keeps the set of
proxies healthy.

A Manager owns every ProxyDescriptor produced by the configured providers.
Callers interact with it through four operations:

	Checkout: pick the best available descriptor matching the criteria
	Report:   record success/failure (and latency) and release the descriptor
	Release:  give a descriptor back without recording an outcome
	Stats:    counts by health state, in-use and per provider

A descriptor is never handed to two callers at once. The one exception is a
sticky key: a caller presenting the same key gets the same descriptor back
until it dies or the binding expires.

Ranking prefers low latency; degraded descriptors are scaled down and dead
ones are never handed out. Descriptors that reach the consecutive-failure
threshold are quarantined, purged after a grace period, and replaced by a
background refill.

Usage Example:

	providers, err := proxy.NewProviders(cfg.Providers, logger)
	if err != nil {
		return err
	}
	m := pool.NewManager(cfg.Pool, providers, probe.NewHTTPProber(cfg.Probe.URL, cfg.Probe.Timeout), logger)
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	d, err := m.Checkout(ctx, models.Criteria{Type: models.ResidentialType, Country: "US", StickyKey: profileID})
	if errors.Is(err, pool.ErrPoolExhausted) {
		// back off and retry later
	}
	start := time.Now()
	ok := doRequest(d.URL())
	if ok {
		m.Report(d.ID, models.OutcomeSuccess, float64(time.Since(start).Milliseconds()))
	} else {
		m.Report(d.ID, models.OutcomeFailure, 0)
	}
*/
package pool
