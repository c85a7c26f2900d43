// Package enrich issues provider enrichment requests for a leadset's
// items and reconciles the results back onto local records.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resolve"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/internal/taxonomy"
	"github.com/sells-group/leadscout/pkg/prospect"
)

// UnknownFieldsError rejects a request naming field keys outside the
// taxonomy.
type UnknownFieldsError struct {
	Fields []string `json:"fields"`
}

func (e *UnknownFieldsError) Error() string {
	return fmt.Sprintf("enrich: unknown fields: %s", strings.Join(e.Fields, ", "))
}

// Orchestrator resolves field requests and drives enrichment jobs.
type Orchestrator struct {
	provider prospect.Client
	store    store.Store
	reg      *taxonomy.Registry
	resolver *resolve.Resolver
}

// New creates an Orchestrator.
func New(provider prospect.Client, st store.Store, reg *taxonomy.Registry) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		store:    st,
		reg:      reg,
		resolver: resolve.New(reg),
	}
}

// ResolveFields picks the final field set for a request. Priority:
// requested∩allowlist when non-empty, the allowlist itself when
// nothing was requested, defaults∩allowlist, the allowlist, and
// finally the global defaults. An empty allowlist means the leadset
// does not restrict fields.
func ResolveFields(requested, allow, defaults []string) []string {
	if len(allow) == 0 {
		if len(requested) > 0 {
			return requested
		}
		return defaults
	}
	if inter := intersect(requested, allow); len(inter) > 0 {
		return inter
	}
	if len(requested) == 0 {
		return allow
	}
	if inter := intersect(defaults, allow); len(inter) > 0 {
		return inter
	}
	return allow
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// RequestEnrichment issues one provider enrichment request per
// resolved field and persists the job binding fields to provider
// request ids.
func (o *Orchestrator) RequestEnrichment(ctx context.Context, leadsetID string, requested []string) (*model.EnrichmentJob, error) {
	var unknown []string
	for _, f := range requested {
		if !o.reg.Known(f) {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownFieldsError{Fields: unknown}
	}

	leadset, err := store.GetAs[model.Leadset](ctx, o.store, store.LeadsetKey(leadsetID))
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: load leadset %s", leadsetID)
	}
	if leadset.ProviderSessionID == "" {
		return nil, eris.Errorf("enrich: leadset %s has no discovery session", leadsetID)
	}
	run, err := o.latestRun(ctx, leadsetID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, eris.Errorf("enrich: leadset %s has no run to enrich", leadsetID)
	}

	fields := ResolveFields(requested, leadset.AllowedFields, o.reg.Defaults())

	job := &model.EnrichmentJob{
		ID:                uuid.New().String(),
		RunID:             run.ID,
		LeadsetID:         leadsetID,
		ProviderSessionID: leadset.ProviderSessionID,
		Fields:            fields,
		Status:            model.JobStatusPending,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	for _, key := range fields {
		f := o.reg.ByKey(key)
		enr, err := o.provider.CreateEnrichment(ctx, leadset.ProviderSessionID, prospect.CreateEnrichmentRequest{
			Description: taxonomy.MarkInstruction(key, f.Instruction),
			Format:      string(f.Format),
			Options:     f.Options,
			FieldTag:    key,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "enrich: create enrichment for field %s", key)
		}
		job.Requests = append(job.Requests, model.FieldRequest{
			Field:             key,
			ProviderRequestID: enr.ID,
			Format:            string(f.Format),
		})
	}

	if err := o.store.Put(ctx, store.JobKey(job.ID), job); err != nil {
		return nil, eris.Wrapf(err, "enrich: persist job %s", job.ID)
	}

	run.Status = model.RunStatusEnriching
	if err := o.store.Put(ctx, store.RunKey(run.ID), run); err != nil {
		return nil, eris.Wrapf(err, "enrich: persist run %s", run.ID)
	}
	leadset.Status = model.LeadsetStatusEnriching
	leadset.UpdatedAt = time.Now().UTC()
	if err := o.store.Put(ctx, store.LeadsetKey(leadsetID), leadset); err != nil {
		return nil, eris.Wrapf(err, "enrich: persist leadset %s", leadsetID)
	}
	o.markItemsEnriching(ctx, run.ID)

	zap.L().Info("enrichment requested",
		zap.String("leadset_id", leadsetID),
		zap.String("job_id", job.ID),
		zap.Strings("fields", fields),
	)
	return job, nil
}

// markItemsEnriching flips the run's untouched items to enriching so
// the feed reflects in-flight work. Items already reconciled stay
// done. Failures are logged and skipped; the reconcile pass settles
// the state either way.
func (o *Orchestrator) markItemsEnriching(ctx context.Context, runID string) {
	docs, err := o.store.Scan(ctx, store.ItemPrefix, 0)
	if err != nil {
		zap.L().Warn("enrich: scan items", zap.Error(err))
		return
	}
	items, err := store.DecodeAll[model.Item](docs)
	if err != nil {
		zap.L().Warn("enrich: decode items", zap.Error(err))
		return
	}
	for i := range items {
		it := &items[i]
		if it.RunID != runID {
			continue
		}
		if it.Enrichment.Status != "" && it.Enrichment.Status != model.EnrichmentStateNone {
			continue
		}
		it.Enrichment.Status = model.EnrichmentStateEnriching
		if err := o.store.Put(ctx, store.ItemKey(it.ItemID), it); err != nil {
			zap.L().Warn("enrich: mark item enriching",
				zap.String("item_id", it.ItemID),
				zap.Error(err),
			)
		}
	}
}

// latestRun returns the leadset's newest run by CreatedAt, id as the
// tie-break.
func (o *Orchestrator) latestRun(ctx context.Context, leadsetID string) (*model.Run, error) {
	docs, err := o.store.Scan(ctx, store.RunPrefix, 0)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: scan runs")
	}
	runs, err := store.DecodeAll[model.Run](docs)
	if err != nil {
		return nil, err
	}
	var latest *model.Run
	for i := range runs {
		r := &runs[i]
		if r.LeadsetID != leadsetID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) ||
			(r.CreatedAt.Equal(latest.CreatedAt) && r.ID > latest.ID) {
			latest = r
		}
	}
	return latest, nil
}
