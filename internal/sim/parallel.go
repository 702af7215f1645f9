package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one independent run of a batch. Jobs must not share controllers,
// metrics or simulators with each other.
type Job struct {
	Sim     *Simulator
	Request Request
	Config  Config
}

// RunBatch runs jobs on up to workers goroutines and returns results in job
// order. Cancellation is checked between runs; a run that has started always
// completes.
func RunBatch(ctx context.Context, jobs []Job, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := job.Sim.Run(job.Request, job.Config)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
