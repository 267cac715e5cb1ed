package probe

import (
	"context"
	"sync"

	"proxypool/pkg/models"
)

// Outcome pairs a probed descriptor with its result.
type Outcome struct {
	Descriptor models.ProxyDescriptor
	Result     Result
	Err        error
}

// Batch probes descs with at most workers concurrent probes. Outcomes are
// returned in completion order.
func Batch(ctx context.Context, prober Prober, descs []models.ProxyDescriptor, workers int) []Outcome {
	if workers < 1 {
		workers = 1
	}
	if workers > len(descs) {
		workers = len(descs)
	}

	jobs := make(chan models.ProxyDescriptor, len(descs))
	results := make(chan Outcome, len(descs))

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(ctx, prober, &wg, jobs, results)
	}

	for _, d := range descs {
		jobs <- d
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, 0, len(descs))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func worker(ctx context.Context, prober Prober, wg *sync.WaitGroup, jobs <-chan models.ProxyDescriptor, results chan<- Outcome) {
	defer wg.Done()
	for d := range jobs {
		if err := ctx.Err(); err != nil {
			results <- Outcome{Descriptor: d, Err: err}
			continue
		}
		res, err := prober.Probe(ctx, d)
		results <- Outcome{Descriptor: d, Result: res, Err: err}
	}
}
