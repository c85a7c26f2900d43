// Package reset wipes every engine-owned document in fixed-size
// batches, re-verifying between batches because the backing store may
// serve stale reads right after a delete.
package reset

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/store"
)

const (
	defaultBatchSize   = 100
	defaultSettleDelay = 500 * time.Millisecond
	defaultMaxPasses   = 20
	deleteParallelism  = 8
)

// prefixes cover every engine-owned document class.
var prefixes = []string{store.ItemPrefix, store.JobPrefix, store.RunPrefix, store.LeadsetPrefix}

// Option configures a Reset.
type Option func(*Reset)

// WithBatchSize overrides the per-pass deletion batch size.
func WithBatchSize(n int) Option {
	return func(r *Reset) { r.batchSize = n }
}

// WithSettleDelay overrides the pause before each re-verification scan.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Reset) { r.settle = d }
}

// WithMaxPasses overrides the iteration cap.
func WithMaxPasses(n int) Option {
	return func(r *Reset) { r.maxPasses = n }
}

// Reset deletes all engine documents.
type Reset struct {
	store     store.Store
	batchSize int
	settle    time.Duration
	maxPasses int
}

// New creates a Reset.
func New(st store.Store, opts ...Option) *Reset {
	r := &Reset{
		store:     st,
		batchSize: defaultBatchSize,
		settle:    defaultSettleDelay,
		maxPasses: defaultMaxPasses,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result reports a reset outcome. Per-item failures are counted, not
// fatal; Stalled is set when the pass cap was hit with documents left.
type Result struct {
	Deleted int  `json:"deleted"`
	Failed  int  `json:"failed"`
	Passes  int  `json:"passes"`
	Stalled bool `json:"stalled"`
}

// Run deletes everything, batch by batch, until a re-verification scan
// comes back empty or the pass cap is reached.
func (r *Reset) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	for pass := 0; pass < r.maxPasses; pass++ {
		if pass > 0 {
			// Let the store settle before trusting the next scan.
			select {
			case <-ctx.Done():
				return res, eris.Wrap(ctx.Err(), "reset: canceled")
			case <-time.After(r.settle):
			}
		}
		res.Passes++

		keys, err := r.collect(ctx)
		if err != nil {
			return res, err
		}
		if len(keys) == 0 {
			if err := r.store.Delete(ctx, store.FeedKey); err != nil {
				zap.L().Warn("reset: feed snapshot delete failed", zap.Error(err))
				res.Failed++
			}
			zap.L().Info("factory reset complete",
				zap.Int("deleted", res.Deleted),
				zap.Int("failed", res.Failed),
				zap.Int("passes", res.Passes),
			)
			return res, nil
		}

		deleted, failed := r.deleteBatch(ctx, keys)
		res.Deleted += deleted
		res.Failed += failed
		if deleted == 0 {
			// No progress; stop instead of spinning on undeletable keys.
			break
		}
	}
	res.Stalled = true
	zap.L().Warn("factory reset stalled",
		zap.Int("deleted", res.Deleted),
		zap.Int("failed", res.Failed),
		zap.Int("passes", res.Passes),
	)
	return res, nil
}

// collect gathers up to one batch of keys across all prefixes.
func (r *Reset) collect(ctx context.Context) ([]string, error) {
	var keys []string
	for _, prefix := range prefixes {
		remaining := r.batchSize - len(keys)
		if remaining <= 0 {
			break
		}
		docs, err := r.store.Scan(ctx, prefix, remaining)
		if err != nil {
			return nil, eris.Wrapf(err, "reset: scan %s", prefix)
		}
		for _, d := range docs {
			keys = append(keys, d.Key)
		}
	}
	return keys, nil
}

// deleteBatch removes the keys with bounded parallelism, counting
// failures per key instead of aborting the batch.
func (r *Reset) deleteBatch(ctx context.Context, keys []string) (deleted, failed int) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteParallelism)

	results := make([]error, len(keys))
	for idx, key := range keys {
		g.Go(func() error {
			results[idx] = r.store.Delete(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	for idx, err := range results {
		if err != nil {
			zap.L().Warn("reset: delete failed", zap.String("key", keys[idx]), zap.Error(err))
			failed++
			continue
		}
		deleted++
	}
	return deleted, failed
}
