package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Factory builds an independent simulator for the given seed.
type Factory func(seed int64) (*Simulator, error)

// Ensemble runs the same schedule on independently seeded systems.
type Ensemble struct {
	factory   Factory
	numRuns   int
	seedStart int64
}

func NewEnsemble(factory Factory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart}
}

// Run executes every member concurrently; the first failure cancels the
// rest.
func (e *Ensemble) Run(ctx context.Context, sched Schedule) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			s, err := e.factory(e.seedStart + int64(idx))
			if err != nil {
				return err
			}
			results[idx], err = s.Run(ctx, sched)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
