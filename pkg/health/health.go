// Package health classifies and ranks proxy descriptors from their statistics.
// Everything here is a pure function of its inputs; callers hold whatever lock
// protects the descriptors.
package health

import (
	"sort"

	"proxypool/pkg/models"
)

// epsilonMs keeps the score finite for descriptors with no latency sample,
// which also puts untested descriptors ahead of measured ones.
const epsilonMs = 1.0

// Tracker carries the tuning knobs shared by classification and scoring.
type Tracker struct {
	// MaxConsecutiveFailures is the streak at which a descriptor is dead.
	MaxConsecutiveFailures int
	// DegradedMultiplier scales the score of degraded descriptors, in (0,1).
	DegradedMultiplier float64
	// LatencySmoothing is the EMA weight of a new latency sample, in (0,1].
	LatencySmoothing float64
}

func NewTracker(maxFailures int, degradedMultiplier, smoothing float64) Tracker {
	if maxFailures < 1 {
		maxFailures = 3
	}
	if degradedMultiplier <= 0 || degradedMultiplier >= 1 {
		degradedMultiplier = 0.5
	}
	if smoothing <= 0 || smoothing > 1 {
		smoothing = 0.3
	}
	return Tracker{
		MaxConsecutiveFailures: maxFailures,
		DegradedMultiplier:     degradedMultiplier,
		LatencySmoothing:       smoothing,
	}
}

func (t Tracker) Classify(d *models.ProxyDescriptor) models.HealthState {
	return Classify(d, t.MaxConsecutiveFailures)
}

func (t Tracker) Score(d *models.ProxyDescriptor) float64 {
	return Score(d, t.DegradedMultiplier)
}

func (t Tracker) UpdateLatency(current, observed float64) float64 {
	return UpdateLatency(current, observed, t.LatencySmoothing)
}

// Classify derives the health state of d:
//
//	dead      consecutive failures >= threshold
//	degraded  1..threshold-1 consecutive failures after at least one success
//	healthy   at least one success and no current failure streak
//	unknown   no success recorded yet
func Classify(d *models.ProxyDescriptor, threshold int) models.HealthState {
	switch {
	case d.ConsecutiveFailures >= threshold:
		return models.HealthDead
	case d.SuccessCount == 0:
		return models.HealthUnknown
	case d.ConsecutiveFailures > 0:
		return models.HealthDegraded
	default:
		return models.HealthHealthy
	}
}

// Score is higher for faster descriptors. Dead descriptors score zero.
func Score(d *models.ProxyDescriptor, degradedMultiplier float64) float64 {
	var multiplier float64
	switch d.Health {
	case models.HealthDead:
		return 0
	case models.HealthDegraded:
		multiplier = degradedMultiplier
	default:
		multiplier = 1.0
	}
	latency := d.LatencyMs
	if latency < 0 {
		latency = 0
	}
	return (1 / (latency + epsilonMs)) * multiplier
}

// UpdateLatency folds observed into the running average. A zero current value
// means no sample yet and is replaced outright.
func UpdateLatency(current, observed, alpha float64) float64 {
	if observed <= 0 {
		return current
	}
	if current <= 0 {
		return observed
	}
	return alpha*observed + (1-alpha)*current
}

// Rank sorts candidates in place, best first: score descending, then least
// recently used, then ID so the order is deterministic.
func (t Tracker) Rank(candidates []*models.ProxyDescriptor) {
	scores := make(map[string]float64, len(candidates))
	for _, d := range candidates {
		scores[d.ID] = t.Score(d)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if sa, sb := scores[a.ID], scores[b.ID]; sa != sb {
			return sa > sb
		}
		if !a.LastUsedAt.Equal(b.LastUsedAt) {
			return a.LastUsedAt.Before(b.LastUsedAt)
		}
		return a.ID < b.ID
	})
}
