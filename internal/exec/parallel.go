package exec

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runChunks invokes fn once per chunk index in [0, chunks), bounded to
// e.Workers concurrent goroutines, and returns the first error encountered
// (cancelling the remaining chunks via the errgroup's derived context).
// Only the Parallel-strategy filter and aggregate paths call it; chunks <= 1
// runs fn once inline.
func (e *Executor) runChunks(ctx context.Context, chunks int, fn func(ctx context.Context, chunk int) error) error {
	if chunks <= 1 {
		return fn(ctx, 0)
	}
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		chunk := c
		g.Go(func() error {
			return fn(gctx, chunk)
		})
	}
	return g.Wait()
}

// chunkCountFor returns how many chunks a node's strategy splits n rows
// into, honoring node.ChunkSize and the physical plan's chosen Strategy.
func chunkCountFor(strategyParallel bool, n, chunkSize int) int {
	if !strategyParallel || n <= 0 {
		return 1
	}
	if chunkSize <= 0 {
		chunkSize = n
	}
	return numChunks(n, chunkSize)
}
