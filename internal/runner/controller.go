// Package runner owns the per-leadset run state machine: run creation
// in new, extend, and replace modes, cooperative cancellation, and
// status transitions mirrored onto the leadset.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/pkg/prospect"
)

// ConflictError rejects a mode=new start while a discovery session is
// already active for the leadset. It carries the existing identifiers
// so the caller can offer extend/replace/force.
type ConflictError struct {
	LeadsetID string `json:"leadset_id"`
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
	ItemCount int    `json:"item_count"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("runner: leadset %s already has active session %s (run %s, %d items)",
		e.LeadsetID, e.SessionID, e.RunID, e.ItemCount)
}

// Controller drives run lifecycle against the provider and the store.
type Controller struct {
	provider    prospect.Client
	store       store.Store
	callbackURL string
}

// New creates a Controller. callbackURL, when set, is handed to the
// provider so webhook events flow back to this deployment.
func New(provider prospect.Client, st store.Store, callbackURL string) *Controller {
	return &Controller{provider: provider, store: st, callbackURL: callbackURL}
}

// StartRun begins a discovery run for the leadset.
//
// mode=new fails with a ConflictError when a session is already active
// and force is false; with force the prior run is retired and its
// provider session canceled first. mode=replace first deletes the
// provider session and all local items from the prior run. mode=extend
// appends a sub-search to the existing session and requires one to
// exist.
func (c *Controller) StartRun(ctx context.Context, leadsetID string, mode model.RunMode, count int, force bool) (*model.Run, error) {
	if !mode.Valid() {
		return nil, eris.Errorf("runner: unknown run mode %q", mode)
	}
	leadset, err := store.GetAs[model.Leadset](ctx, c.store, store.LeadsetKey(leadsetID))
	if err != nil {
		return nil, eris.Wrapf(err, "runner: load leadset %s", leadsetID)
	}

	active, err := c.activeRun(ctx, leadsetID)
	if err != nil {
		return nil, err
	}

	switch mode {
	case model.RunModeNew:
		if active != nil || leadset.ProviderSessionID != "" {
			if !force {
				conflict := &ConflictError{
					LeadsetID: leadsetID,
					SessionID: leadset.ProviderSessionID,
				}
				if active != nil {
					conflict.RunID = active.ID
					if conflict.SessionID == "" {
						conflict.SessionID = active.ProviderSessionID
					}
					conflict.ItemCount, _ = c.countItems(ctx, active.ID)
				}
				return nil, conflict
			}
			if err := c.retirePrior(ctx, leadset, active); err != nil {
				return nil, err
			}
		}
	case model.RunModeReplace:
		if err := c.teardownPrior(ctx, leadset, active); err != nil {
			return nil, err
		}
	case model.RunModeExtend:
		if leadset.ProviderSessionID == "" {
			return nil, eris.Errorf("runner: leadset %s has no session to extend", leadsetID)
		}
	}

	query := BuildQuery(*leadset)
	criteria := BuildCriteria(*leadset)

	run := &model.Run{
		ID:             uuid.New().String(),
		LeadsetID:      leadsetID,
		Mode:           mode,
		Status:         model.RunStatusRunning,
		RequestedCount: count,
		SearchQuery:    query,
		CreatedAt:      time.Now().UTC(),
	}

	if mode == model.RunModeExtend {
		sub, err := c.provider.AppendSearch(ctx, leadset.ProviderSessionID, prospect.AppendSearchRequest{
			Query:    query,
			Count:    count,
			Criteria: criteria,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "runner: extend session %s", leadset.ProviderSessionID)
		}
		run.ProviderSessionID = leadset.ProviderSessionID
		run.SearchID = sub.ID
	} else {
		session, err := c.provider.CreateSession(ctx, prospect.CreateSessionRequest{
			Query:         query,
			Count:         count,
			EntityType:    string(model.EntityTypeCompany),
			Criteria:      criteria,
			CorrelationID: leadsetID,
			CallbackURL:   c.callbackURL,
		})
		if err != nil {
			return nil, eris.Wrap(err, "runner: create session")
		}
		run.ProviderSessionID = session.ID
	}

	if err := c.store.Put(ctx, store.RunKey(run.ID), run); err != nil {
		return nil, eris.Wrapf(err, "runner: persist run %s", run.ID)
	}

	leadset.ProviderSessionID = run.ProviderSessionID
	leadset.Status = model.LeadsetStatusRunning
	leadset.UpdatedAt = time.Now().UTC()
	if err := c.store.Put(ctx, store.LeadsetKey(leadsetID), leadset); err != nil {
		return nil, eris.Wrapf(err, "runner: persist leadset %s", leadsetID)
	}

	zap.L().Info("run started",
		zap.String("leadset_id", leadsetID),
		zap.String("run_id", run.ID),
		zap.String("session_id", run.ProviderSessionID),
		zap.String("mode", string(mode)),
	)
	return run, nil
}

// Cancel flips a non-terminal run to canceled locally no matter what
// the provider says; a terminal run is returned unchanged. An extend
// run cancels only its sub-search; any other mode cancels the whole
// session. Provider failures are logged, not retried.
func (c *Controller) Cancel(ctx context.Context, runID string) (*model.Run, error) {
	run, err := store.GetAs[model.Run](ctx, c.store, store.RunKey(runID))
	if err != nil {
		return nil, eris.Wrapf(err, "runner: load run %s", runID)
	}
	if run.Status.Terminal() {
		return run, nil
	}

	if run.Mode == model.RunModeExtend && run.SearchID != "" {
		if err := c.provider.CancelSearch(ctx, run.ProviderSessionID, run.SearchID); err != nil {
			zap.L().Warn("provider search cancel failed",
				zap.String("run_id", runID),
				zap.String("search_id", run.SearchID),
				zap.Error(err),
			)
		}
	} else if run.ProviderSessionID != "" {
		if err := c.provider.CancelSession(ctx, run.ProviderSessionID); err != nil {
			zap.L().Warn("provider session cancel failed",
				zap.String("run_id", runID),
				zap.String("session_id", run.ProviderSessionID),
				zap.Error(err),
			)
		}
	}

	now := time.Now().UTC()
	run.Status = model.RunStatusCanceled
	run.CanceledAt = &now
	if err := c.store.Put(ctx, store.RunKey(runID), run); err != nil {
		return nil, eris.Wrapf(err, "runner: persist canceled run %s", runID)
	}

	if err := c.setLeadsetStatus(ctx, run.LeadsetID, model.LeadsetStatusIdle); err != nil {
		return nil, err
	}
	return run, nil
}

// Refresh mirrors the provider session's counters and status onto the
// run. An idle session completes the run and returns the leadset to
// idle.
func (c *Controller) Refresh(ctx context.Context, runID string) (*model.Run, error) {
	run, err := store.GetAs[model.Run](ctx, c.store, store.RunKey(runID))
	if err != nil {
		return nil, eris.Wrapf(err, "runner: load run %s", runID)
	}
	if run.Status.Terminal() {
		return run, nil
	}

	session, err := c.provider.GetSession(ctx, run.ProviderSessionID)
	if err != nil {
		return nil, eris.Wrapf(err, "runner: refresh session %s", run.ProviderSessionID)
	}

	run.Counters = model.RunCounters(session.Counters)
	switch session.Status {
	case prospect.SessionStatusIdle, prospect.SessionStatusCompleted:
		run.Status = model.RunStatusCompleted
	case prospect.SessionStatusFailed:
		run.Status = model.RunStatusFailed
	}
	if err := c.store.Put(ctx, store.RunKey(runID), run); err != nil {
		return nil, eris.Wrapf(err, "runner: persist refreshed run %s", runID)
	}
	switch run.Status {
	case model.RunStatusCompleted:
		if err := c.setLeadsetStatus(ctx, run.LeadsetID, model.LeadsetStatusIdle); err != nil {
			return nil, err
		}
	case model.RunStatusFailed:
		if err := c.setLeadsetStatus(ctx, run.LeadsetID, model.LeadsetStatusFailed); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// ActiveRun returns the leadset's single non-terminal run, or nil.
func (c *Controller) ActiveRun(ctx context.Context, leadsetID string) (*model.Run, error) {
	return c.activeRun(ctx, leadsetID)
}

func (c *Controller) activeRun(ctx context.Context, leadsetID string) (*model.Run, error) {
	docs, err := c.store.Scan(ctx, store.RunPrefix, 0)
	if err != nil {
		return nil, eris.Wrap(err, "runner: scan runs")
	}
	runs, err := store.DecodeAll[model.Run](docs)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].LeadsetID == leadsetID && !runs[i].Status.Terminal() {
			return &runs[i], nil
		}
	}
	return nil, nil
}

// retirePrior cancels the provider session and retires the active run
// before a forced new start, keeping a single non-terminal run per
// leadset. Unlike a replace start, the prior run's items stay.
func (c *Controller) retirePrior(ctx context.Context, leadset *model.Leadset, active *model.Run) error {
	if leadset.ProviderSessionID != "" {
		if err := c.provider.CancelSession(ctx, leadset.ProviderSessionID); err != nil {
			zap.L().Warn("provider session cancel failed",
				zap.String("session_id", leadset.ProviderSessionID),
				zap.Error(err),
			)
		}
	}
	if active != nil {
		now := time.Now().UTC()
		active.Status = model.RunStatusCanceled
		active.CanceledAt = &now
		if err := c.store.Put(ctx, store.RunKey(active.ID), active); err != nil {
			return eris.Wrapf(err, "runner: retire run %s", active.ID)
		}
	}
	leadset.ProviderSessionID = ""
	return nil
}

// teardownPrior deletes the provider session and every local item tied
// to the prior run before a replace-mode start.
func (c *Controller) teardownPrior(ctx context.Context, leadset *model.Leadset, active *model.Run) error {
	if leadset.ProviderSessionID != "" {
		if err := c.provider.DeleteSession(ctx, leadset.ProviderSessionID); err != nil {
			return eris.Wrapf(err, "runner: delete session %s", leadset.ProviderSessionID)
		}
	}

	docs, err := c.store.Scan(ctx, store.ItemPrefix, 0)
	if err != nil {
		return eris.Wrap(err, "runner: scan items for replace")
	}
	items, err := store.DecodeAll[model.Item](docs)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.LeadsetID != leadset.ID {
			continue
		}
		if err := c.store.Delete(ctx, store.ItemKey(it.ItemID)); err != nil {
			return eris.Wrapf(err, "runner: delete item %s", it.ItemID)
		}
	}

	if active != nil {
		now := time.Now().UTC()
		active.Status = model.RunStatusCanceled
		active.CanceledAt = &now
		if err := c.store.Put(ctx, store.RunKey(active.ID), active); err != nil {
			return eris.Wrapf(err, "runner: retire run %s", active.ID)
		}
	}

	leadset.ProviderSessionID = ""
	return nil
}

func (c *Controller) countItems(ctx context.Context, runID string) (int, error) {
	docs, err := c.store.Scan(ctx, store.ItemPrefix, 0)
	if err != nil {
		return 0, err
	}
	items, err := store.DecodeAll[model.Item](docs)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, it := range items {
		if it.RunID == runID {
			n++
		}
	}
	return n, nil
}

func (c *Controller) setLeadsetStatus(ctx context.Context, leadsetID string, status model.LeadsetStatus) error {
	leadset, err := store.GetAs[model.Leadset](ctx, c.store, store.LeadsetKey(leadsetID))
	if err != nil {
		return eris.Wrapf(err, "runner: load leadset %s", leadsetID)
	}
	leadset.Status = status
	leadset.UpdatedAt = time.Now().UTC()
	if err := c.store.Put(ctx, store.LeadsetKey(leadsetID), leadset); err != nil {
		return eris.Wrapf(err, "runner: persist leadset %s", leadsetID)
	}
	return nil
}
