// Package webhook is the push-path entry point: it verifies provider
// callbacks, acknowledges immediately, and applies the same merge
// primitives as the polling path so both converge on one record per
// item regardless of delivery order or duplication.
package webhook

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/enrich"
	"github.com/sells-group/leadscout/internal/feed"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/internal/syncer"
	"github.com/sells-group/leadscout/internal/taxonomy"
)

// Ingestor applies webhook events to local state.
type Ingestor struct {
	store        store.Store
	syncer       *syncer.Syncer
	orchestrator *enrich.Orchestrator
	feed         *feed.Aggregator
	reg          *taxonomy.Registry
	secret       string

	wg sync.WaitGroup
}

// New creates an Ingestor. secret may be empty, which disables
// signature checks.
func New(st store.Store, sy *syncer.Syncer, or *enrich.Orchestrator, fa *feed.Aggregator, reg *taxonomy.Registry, secret string) *Ingestor {
	return &Ingestor{store: st, syncer: sy, orchestrator: or, feed: fa, reg: reg, secret: secret}
}

// Drain waits for in-flight event processing to finish.
func (i *Ingestor) Drain() {
	i.wg.Wait()
}

// schedule runs Process detached from the request context; the
// response has already been sent.
func (i *Ingestor) schedule(evt Event) {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if err := i.Process(context.Background(), evt); err != nil {
			zap.L().Warn("webhook event failed",
				zap.String("type", evt.Type),
				zap.Error(err),
			)
		}
	}()
}

// Process applies one event. Unknown sessions and unknown event types
// are dropped with a log line; duplicates are safe because every write
// is an idempotent merge.
func (i *Ingestor) Process(ctx context.Context, evt Event) error {
	var err error
	switch evt.Type {
	case EventItemsDiscovered:
		err = i.itemsDiscovered(ctx, evt.Data)
	case EventSessionIdle:
		err = i.sessionIdle(ctx, evt.Data)
	case EventEnrichmentCompleted:
		err = i.enrichmentCompleted(ctx, evt.Data)
	default:
		zap.L().Info("webhook event type ignored", zap.String("type", evt.Type))
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := i.feed.Rebuild(ctx); err != nil {
		zap.L().Warn("feed rebuild after webhook failed", zap.Error(err))
	}
	return nil
}

func (i *Ingestor) itemsDiscovered(ctx context.Context, data json.RawMessage) error {
	var d ItemsDiscoveredData
	if err := json.Unmarshal(data, &d); err != nil {
		return eris.Wrap(err, "webhook: decode items.discovered")
	}
	run, ok, err := i.runForSession(ctx, d.SessionID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	created := 0
	for _, raw := range d.Items {
		wasNew, err := i.syncer.Upsert(ctx, syncer.Normalize(raw, run.ID, run.LeadsetID))
		if err != nil {
			zap.L().Warn("webhook item upsert failed",
				zap.String("item_id", raw.ID),
				zap.Error(err),
			)
			continue
		}
		if wasNew {
			created++
		}
	}
	if created > 0 {
		// Fast-path hint only; the next sync recount overwrites it.
		if _, err := i.store.Increment(ctx, store.RunKey(run.ID), "counters.found", int64(created)); err != nil {
			zap.L().Warn("found counter bump failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	return nil
}

func (i *Ingestor) sessionIdle(ctx context.Context, data json.RawMessage) error {
	var d SessionIdleData
	if err := json.Unmarshal(data, &d); err != nil {
		return eris.Wrap(err, "webhook: decode session.idle")
	}
	run, ok, err := i.runForSession(ctx, d.SessionID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if run.Status.Terminal() {
		return nil
	}

	run.Status = model.RunStatusCompleted
	run.Counters = model.RunCounters(d.Counters)
	if err := i.store.Put(ctx, store.RunKey(run.ID), run); err != nil {
		return eris.Wrapf(err, "webhook: complete run %s", run.ID)
	}

	leadset, err := store.GetAs[model.Leadset](ctx, i.store, store.LeadsetKey(run.LeadsetID))
	if err != nil {
		return eris.Wrapf(err, "webhook: load leadset %s", run.LeadsetID)
	}
	leadset.Status = model.LeadsetStatusIdle
	leadset.UpdatedAt = time.Now().UTC()
	if err := i.store.Put(ctx, store.LeadsetKey(leadset.ID), leadset); err != nil {
		return eris.Wrapf(err, "webhook: persist leadset %s", leadset.ID)
	}
	return nil
}

func (i *Ingestor) enrichmentCompleted(ctx context.Context, data json.RawMessage) error {
	var d EnrichmentCompletedData
	if err := json.Unmarshal(data, &d); err != nil {
		return eris.Wrap(err, "webhook: decode enrichment.completed")
	}
	run, ok, err := i.runForSession(ctx, d.SessionID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	requested, err := i.requestedFields(ctx, run.ID)
	if err != nil {
		return err
	}

	enriched := 0
	for _, raw := range d.Items {
		n, err := i.orchestrator.ApplyResults(ctx, raw, requested)
		if err != nil {
			zap.L().Warn("webhook enrichment apply failed",
				zap.String("item_id", raw.ID),
				zap.Error(err),
			)
			continue
		}
		if n > 0 {
			enriched++
		}
	}
	if enriched > 0 {
		if _, err := i.store.Increment(ctx, store.RunKey(run.ID), "counters.enriched", int64(enriched)); err != nil {
			zap.L().Warn("enriched counter bump failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	return nil
}

// runForSession maps a provider session id onto the local run. A
// missing mapping is a clean no-op: the event is logged and dropped.
func (i *Ingestor) runForSession(ctx context.Context, sessionID string) (*model.Run, bool, error) {
	docs, err := i.store.Scan(ctx, store.RunPrefix, 0)
	if err != nil {
		return nil, false, eris.Wrap(err, "webhook: scan runs")
	}
	runs, err := store.DecodeAll[model.Run](docs)
	if err != nil {
		return nil, false, err
	}
	var match *model.Run
	for idx := range runs {
		r := &runs[idx]
		if r.ProviderSessionID != sessionID {
			continue
		}
		// Prefer the non-terminal run; otherwise take the latest.
		if match == nil || (!r.Status.Terminal() && match.Status.Terminal()) ||
			(r.Status.Terminal() == match.Status.Terminal() && r.CreatedAt.After(match.CreatedAt)) {
			match = r
		}
	}
	if match == nil {
		zap.L().Info("webhook for unknown session dropped", zap.String("session_id", sessionID))
		return nil, false, nil
	}
	return match, true, nil
}

// requestedFields returns the union of field keys across the run's
// enrichment jobs, falling back to every taxonomy key when no job is
// recorded locally.
func (i *Ingestor) requestedFields(ctx context.Context, runID string) ([]string, error) {
	docs, err := i.store.Scan(ctx, store.JobPrefix, 0)
	if err != nil {
		return nil, eris.Wrap(err, "webhook: scan jobs")
	}
	jobs, err := store.DecodeAll[model.EnrichmentJob](docs)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var fields []string
	for _, j := range jobs {
		if j.RunID != runID {
			continue
		}
		for _, f := range j.Fields {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	if len(fields) == 0 {
		// No local job for this run: the request predates this process
		// or was issued elsewhere. Resolve against the full taxonomy.
		return i.reg.Keys(), nil
	}
	return fields, nil
}
