package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"proxypool/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		successes   int64
		consecutive int
		want        models.HealthState
	}{
		{"never checked", 0, 0, models.HealthUnknown},
		{"failures without success", 0, 2, models.HealthUnknown},
		{"healthy", 5, 0, models.HealthHealthy},
		{"one failure after success", 5, 1, models.HealthDegraded},
		{"just below threshold", 5, 2, models.HealthDegraded},
		{"at threshold", 5, 3, models.HealthDead},
		{"at threshold without success", 0, 3, models.HealthDead},
		{"beyond threshold", 1, 7, models.HealthDead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &models.ProxyDescriptor{SuccessCount: tt.successes, ConsecutiveFailures: tt.consecutive}
			require.Equal(t, tt.want, Classify(d, 3))
		})
	}
}

func TestScore(t *testing.T) {
	healthy := &models.ProxyDescriptor{Health: models.HealthHealthy, LatencyMs: 99}
	degraded := &models.ProxyDescriptor{Health: models.HealthDegraded, LatencyMs: 99}
	dead := &models.ProxyDescriptor{Health: models.HealthDead, LatencyMs: 1}
	fresh := &models.ProxyDescriptor{Health: models.HealthUnknown}

	require.InDelta(t, 0.01, Score(healthy, 0.5), 1e-9)
	require.InDelta(t, 0.005, Score(degraded, 0.5), 1e-9)
	require.Zero(t, Score(dead, 0.5))
	require.Greater(t, Score(fresh, 0.5), Score(healthy, 0.5))
}

func TestUpdateLatency(t *testing.T) {
	require.Equal(t, 120.0, UpdateLatency(0, 120, 0.3))
	require.InDelta(t, 130.0, UpdateLatency(100, 200, 0.3), 1e-9)
	require.Equal(t, 100.0, UpdateLatency(100, 0, 0.3))
}

func TestRank(t *testing.T) {
	tracker := NewTracker(3, 0.5, 0.3)
	now := time.Now()

	slow := &models.ProxyDescriptor{ID: "a", Health: models.HealthHealthy, LatencyMs: 400}
	fast := &models.ProxyDescriptor{ID: "b", Health: models.HealthHealthy, LatencyMs: 50}
	fastDegraded := &models.ProxyDescriptor{ID: "c", Health: models.HealthDegraded, LatencyMs: 50}
	tieRecent := &models.ProxyDescriptor{ID: "d", Health: models.HealthHealthy, LatencyMs: 200, LastUsedAt: now}
	tieOld := &models.ProxyDescriptor{ID: "e", Health: models.HealthHealthy, LatencyMs: 200, LastUsedAt: now.Add(-time.Hour)}

	candidates := []*models.ProxyDescriptor{slow, tieRecent, fastDegraded, tieOld, fast}
	tracker.Rank(candidates)

	var order []string
	for _, d := range candidates {
		order = append(order, d.ID)
	}
	// fast(1/51) > fastDegraded(0.5/51) > tieOld = tieRecent(1/201) > slow(1/401)
	require.Equal(t, []string{"b", "c", "e", "d", "a"}, order)
}

func TestNewTrackerDefaults(t *testing.T) {
	tr := NewTracker(0, 2, 0)
	require.Equal(t, 3, tr.MaxConsecutiveFailures)
	require.Equal(t, 0.5, tr.DegradedMultiplier)
	require.Equal(t, 0.3, tr.LatencySmoothing)
}
