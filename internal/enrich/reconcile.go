package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/pkg/prospect"
)

const pageSize = 100

// ResolveJob runs the per-item reconciliation pass for a job. Callers
// may invoke it repeatedly: an already-completed job short-circuits,
// the pending→processing transition is written before the expensive
// pass so concurrent callers back off, and a failed job runs the pass
// again.
func (o *Orchestrator) ResolveJob(ctx context.Context, jobID string) (*model.EnrichmentJob, error) {
	job, err := store.GetAs[model.EnrichmentJob](ctx, o.store, store.JobKey(jobID))
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: load job %s", jobID)
	}
	switch job.Status {
	case model.JobStatusCompleted, model.JobStatusProcessing:
		return job, nil
	}

	job.Status = model.JobStatusProcessing
	job.UpdatedAt = time.Now().UTC()
	if err := o.store.Put(ctx, store.JobKey(jobID), job); err != nil {
		return nil, eris.Wrapf(err, "enrich: mark job %s processing", jobID)
	}

	applied := 0
	cursor := ""
	for {
		page, err := o.provider.ListItems(ctx, job.ProviderSessionID, cursor, pageSize)
		if err != nil {
			// Leave the job retryable rather than wedged at processing.
			o.failJob(ctx, job)
			return nil, eris.Wrapf(err, "enrich: list items for session %s", job.ProviderSessionID)
		}
		for _, raw := range page.Items {
			n, err := o.ApplyResults(ctx, raw, job.Fields)
			if err != nil {
				zap.L().Warn("enrichment apply failed",
					zap.String("item_id", raw.ID),
					zap.Error(err),
				)
				continue
			}
			applied += n
		}
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	job.Status = model.JobStatusCompleted
	job.UpdatedAt = time.Now().UTC()
	if err := o.store.Put(ctx, store.JobKey(jobID), job); err != nil {
		return nil, eris.Wrapf(err, "enrich: complete job %s", jobID)
	}

	if err := o.recountEnriched(ctx, job.RunID); err != nil {
		zap.L().Warn("enrich: recount failed", zap.String("run_id", job.RunID), zap.Error(err))
	}
	if err := o.settleStatuses(ctx, job); err != nil {
		return nil, err
	}

	zap.L().Info("enrichment job resolved",
		zap.String("job_id", jobID),
		zap.Int("fields_applied", applied),
	)
	return job, nil
}

// failJob parks the job at failed so a later ResolveJob call can run
// the pass again instead of short-circuiting on processing.
func (o *Orchestrator) failJob(ctx context.Context, job *model.EnrichmentJob) {
	job.Status = model.JobStatusFailed
	job.UpdatedAt = time.Now().UTC()
	if err := o.store.Put(ctx, store.JobKey(job.ID), job); err != nil {
		zap.L().Warn("enrich: mark job failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}

// ApplyResults resolves one raw item's embedded enrichment results and
// merges the recovered fields onto the stored item. Returns the number
// of fields applied. Items with no local record are skipped.
func (o *Orchestrator) ApplyResults(ctx context.Context, raw prospect.Item, requested []string) (int, error) {
	if len(raw.Enrichments) == 0 {
		return 0, nil
	}
	key := store.ItemKey(raw.ID)
	item, err := store.GetAs[model.Item](ctx, o.store, key)
	if eris.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "enrich: load item %s", raw.ID)
	}

	resolved, unresolved := o.resolver.ResolveBatch(raw.Enrichments, requested)
	for _, u := range unresolved {
		zap.L().Debug("enrichment result unresolved",
			zap.String("item_id", raw.ID),
			zap.String("format", u.Format),
			zap.String("result", u.Result),
		)
	}
	if len(resolved) == 0 {
		return 0, nil
	}

	if item.Enrichment.Fields == nil {
		item.Enrichment.Fields = make(map[string]string, len(resolved))
	}
	for k, v := range resolved {
		item.Enrichment.Fields[k] = v
	}
	item.Enrichment.Status = model.EnrichmentStateDone
	if err := o.store.Put(ctx, key, item); err != nil {
		return 0, eris.Wrapf(err, "enrich: persist item %s", raw.ID)
	}
	return len(resolved), nil
}

// recountEnriched recomputes the run's enriched counter from stored
// items, overwriting any webhook fast-path increments.
func (o *Orchestrator) recountEnriched(ctx context.Context, runID string) error {
	run, err := store.GetAs[model.Run](ctx, o.store, store.RunKey(runID))
	if err != nil {
		return err
	}
	docs, err := o.store.Scan(ctx, store.ItemPrefix, 0)
	if err != nil {
		return err
	}
	items, err := store.DecodeAll[model.Item](docs)
	if err != nil {
		return err
	}
	enriched := 0
	for _, it := range items {
		if it.RunID == runID && it.Enrichment.Status == model.EnrichmentStateDone {
			enriched++
		}
	}
	run.Counters.Enriched = enriched
	return o.store.Put(ctx, store.RunKey(runID), run)
}

// settleStatuses closes the enriching loop: the run returns to
// completed and the leadset to idle.
func (o *Orchestrator) settleStatuses(ctx context.Context, job *model.EnrichmentJob) error {
	run, err := store.GetAs[model.Run](ctx, o.store, store.RunKey(job.RunID))
	if err == nil && run.Status == model.RunStatusEnriching {
		run.Status = model.RunStatusCompleted
		if err := o.store.Put(ctx, store.RunKey(run.ID), run); err != nil {
			return eris.Wrapf(err, "enrich: persist run %s", run.ID)
		}
	}
	leadset, err := store.GetAs[model.Leadset](ctx, o.store, store.LeadsetKey(job.LeadsetID))
	if err != nil {
		return eris.Wrapf(err, "enrich: load leadset %s", job.LeadsetID)
	}
	if leadset.Status == model.LeadsetStatusEnriching {
		leadset.Status = model.LeadsetStatusIdle
		leadset.UpdatedAt = time.Now().UTC()
		if err := o.store.Put(ctx, store.LeadsetKey(leadset.ID), leadset); err != nil {
			return eris.Wrapf(err, "enrich: persist leadset %s", leadset.ID)
		}
	}
	return nil
}
