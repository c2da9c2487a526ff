package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"password-age-audit/internal/account"
)

// Tracker receives progress as rows are derived. progressbar.ProgressBar
// satisfies it.
type Tracker interface {
	Add(num int) error
}

// DeriveAll normalizes and derives every row. Work is split into contiguous
// chunks, one per worker, each with its own ParseStats; the partials are
// merged after all workers finish so the totals do not depend on scheduling.
// Output order matches input order.
func DeriveAll(ctx context.Context, rows []account.RawRow, n *account.Normalizer, now time.Time, workers int, progress Tracker) ([]Derived, account.ParseStats, error) {
	out := make([]Derived, len(rows))
	if len(rows) == 0 {
		return out, account.ParseStats{}, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(rows) {
		workers = len(rows)
	}
	chunk := (len(rows) + workers - 1) / workers
	partials := make([]account.ParseStats, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(rows))
		if start >= end {
			continue
		}
		stats := &partials[w]
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = Derive(n.Normalize(rows[i], stats), now)
				if progress != nil {
					_ = progress.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, account.ParseStats{}, err
	}

	var total account.ParseStats
	for _, p := range partials {
		total.Merge(p)
	}
	return out, total, nil
}
