package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"proxypool/pkg/models"
)

// upsertQuery refreshes the statistics of existing rows; identity columns
// are written once.
func upsertQuery(idb bun.IDB, descs *[]models.ProxyDescriptor) *bun.InsertQuery {
	return idb.NewInsert().
		Model(descs).
		On("CONFLICT (id) DO UPDATE").
		Set("health = EXCLUDED.health").
		Set("latency_ms = EXCLUDED.latency_ms").
		Set("success_count = EXCLUDED.success_count").
		Set("failure_count = EXCLUDED.failure_count").
		Set("consecutive_failures = EXCLUDED.consecutive_failures").
		Set("exit_ip = EXCLUDED.exit_ip").
		Set("exit_country = EXCLUDED.exit_country").
		Set("last_used_at = EXCLUDED.last_used_at").
		Set("last_checked_at = EXCLUDED.last_checked_at").
		Set("quarantined_at = EXCLUDED.quarantined_at")
}

func pruneQuery(idb bun.IDB, providers, keep []string) *bun.DeleteQuery {
	return idb.NewDelete().
		Model((*models.ProxyDescriptor)(nil)).
		Where("provider IN (?)", bun.In(providers)).
		Where("id NOT IN (?)", bun.In(keep))
}

// SaveSnapshot upserts descs and deletes rows of the same providers that are
// no longer in the pool, in one transaction.
func (db *DB) SaveSnapshot(ctx context.Context, descs []models.ProxyDescriptor) error {
	if len(descs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(descs))
	seen := make(map[string]bool)
	var providers []string
	for _, d := range descs {
		ids = append(ids, d.ID)
		if !seen[d.Provider] {
			seen[d.Provider] = true
			providers = append(providers, d.Provider)
		}
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := upsertQuery(tx, &descs).Exec(ctx); err != nil {
			return fmt.Errorf("error upserting descriptors: %w", err)
		}
		if _, err := pruneQuery(tx, providers, ids).Exec(ctx); err != nil {
			return fmt.Errorf("error pruning descriptors: %w", err)
		}
		return nil
	})
}

// LoadSnapshot returns the stored descriptors of the named providers, or of
// every provider when none are named.
func (db *DB) LoadSnapshot(ctx context.Context, providers ...string) ([]models.ProxyDescriptor, error) {
	var descs []models.ProxyDescriptor
	if err := selectQuery(db, &descs, providers).Scan(ctx); err != nil {
		return nil, fmt.Errorf("error loading snapshot: %w", err)
	}
	return descs, nil
}

func selectQuery(idb bun.IDB, descs *[]models.ProxyDescriptor, providers []string) *bun.SelectQuery {
	q := idb.NewSelect().Model(descs).Order("id")
	if len(providers) > 0 {
		q = q.Where("provider IN (?)", bun.In(providers))
	}
	return q
}
