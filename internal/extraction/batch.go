// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ProcessBatch processes candidates on at most limit goroutines. Outcomes
// keep input order. The only error is cancellation of ctx. A limit below one
// runs without a bound.
func (e *Engine) ProcessBatch(ctx context.Context, candidates []any, limit int) ([]Outcome, error) {
	outcomes := make([]Outcome, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, candidate := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.Process(candidate)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
