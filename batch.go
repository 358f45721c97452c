package scrub

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one request in a batch. When Sink is nil the output is buffered
// into the job's Result.Output.
type Job struct {
	Request Request
	Sink    io.Writer
}

// RunAll runs every job on p with at most limit running at once (no limit
// when limit <= 0). Results are returned in job order. A failed job does not
// stop the others; cancelling ctx fails the jobs still running or waiting.
func RunAll(ctx context.Context, p *Pipeline, jobs []Job, limit int) []*Result {
	start := time.Now()
	results := make([]*Result, len(jobs))

	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, job := range jobs {
		eg.Go(func() error {
			if job.Sink == nil {
				results[i] = p.Obfuscate(ctx, job.Request)
			} else {
				results[i] = p.Run(ctx, job.Request, job.Sink)
			}
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, r := range results {
		if r.Status == Failed {
			failed++
		}
	}
	emitBatchComplete(ctx, len(jobs), failed, time.Since(start))
	return results
}
