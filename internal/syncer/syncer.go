// Package syncer mirrors provider-discovered items into the local
// store. Writes are idempotent merges keyed by the provider item id, so
// re-syncing an unchanged result set and racing the webhook path both
// converge on one record per item.
package syncer

import (
	"context"
	"math"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/pkg/prospect"
)

// snippetMaxLen caps snippets derived from raw page content.
const snippetMaxLen = 280

// pageSize is the provider page size for item listing.
const pageSize = 100

// Syncer fetches and merges discovered items.
type Syncer struct {
	provider prospect.Client
	store    store.Store
}

// New creates a Syncer.
func New(provider prospect.Client, st store.Store) *Syncer {
	return &Syncer{provider: provider, store: st}
}

// Result summarizes one sync pass.
type Result struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Merged  int `json:"merged"`
}

// Sync pulls every item page for the session and upserts each item.
// After the pass it recounts the run's items and overwrites the found
// counter, which makes the recount the source of truth over any blind
// webhook increments.
func (s *Syncer) Sync(ctx context.Context, sessionID, runID, leadsetID string) (*Result, error) {
	var res Result
	cursor := ""
	for {
		page, err := s.provider.ListItems(ctx, sessionID, cursor, pageSize)
		if err != nil {
			return nil, eris.Wrapf(err, "syncer: list items for session %s", sessionID)
		}
		for _, raw := range page.Items {
			item := Normalize(raw, runID, leadsetID)
			created, err := s.Upsert(ctx, item)
			if err != nil {
				return nil, err
			}
			res.Fetched++
			if created {
				res.Created++
			} else {
				res.Merged++
			}
		}
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if err := s.recountFound(ctx, runID); err != nil {
		zap.L().Warn("syncer: recount found failed",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
	return &res, nil
}

// Upsert merges one normalized item into the store, keyed by its
// provider id. Returns true when the item was newly created.
func (s *Syncer) Upsert(ctx context.Context, item model.Item) (bool, error) {
	key := store.ItemKey(item.ItemID)
	existing, err := store.GetAs[model.Item](ctx, s.store, key)
	if eris.Is(err, store.ErrNotFound) {
		if item.Enrichment.Status == "" {
			item.Enrichment.Status = model.EnrichmentStateNone
		}
		if err := s.store.Put(ctx, key, item); err != nil {
			return false, eris.Wrapf(err, "syncer: create item %s", item.ItemID)
		}
		return true, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "syncer: load item %s", item.ItemID)
	}

	existing.MergeFrom(item)
	if err := s.store.Put(ctx, key, existing); err != nil {
		return false, eris.Wrapf(err, "syncer: merge item %s", item.ItemID)
	}
	return false, nil
}

// recountFound counts the run's stored items and writes the result
// into the run document's counters.
func (s *Syncer) recountFound(ctx context.Context, runID string) error {
	run, err := store.GetAs[model.Run](ctx, s.store, store.RunKey(runID))
	if err != nil {
		return err
	}
	docs, err := s.store.Scan(ctx, store.ItemPrefix, 0)
	if err != nil {
		return err
	}
	items, err := store.DecodeAll[model.Item](docs)
	if err != nil {
		return err
	}
	found := 0
	for _, it := range items {
		if it.RunID == runID {
			found++
		}
	}
	run.Counters.Found = found
	return s.store.Put(ctx, store.RunKey(runID), run)
}

// Normalize converts one raw provider item into the local shape.
func Normalize(raw prospect.Item, runID, leadsetID string) model.Item {
	item := model.Item{
		ItemID:    raw.ID,
		RunID:     runID,
		LeadsetID: leadsetID,
		SourceURL: raw.URL,
		Enrichment: model.ItemEnrichment{
			Status: model.EnrichmentStateNone,
		},
	}

	// Person sub-object takes priority over company.
	switch {
	case raw.Person != nil:
		item.EntityType = model.EntityTypePerson
		item.Entity.Name = raw.Person.Name
	case raw.Company != nil:
		item.EntityType = model.EntityTypeCompany
		item.Entity.Name = raw.Company.Name
		item.Entity.Domain = raw.Company.Domain
	default:
		item.EntityType = model.EntityTypeCompany
	}
	if item.Entity.Domain == "" {
		item.Entity.Domain = domainFromURL(raw.URL)
	}

	item.Snippet = snippet(raw.Description, raw.Content)

	for _, ev := range raw.Evaluations {
		item.Evaluations = append(item.Evaluations, model.Evaluation{
			Criterion: ev.Criterion,
			Satisfied: ev.Satisfied,
			Reasoning: ev.Reasoning,
		})
	}
	item.Score = score(item.Evaluations)

	return item
}

// score is the percentage of satisfied evaluations, rounded; zero when
// there are none.
func score(evals []model.Evaluation) int {
	if len(evals) == 0 {
		return 0
	}
	satisfied := 0
	for _, ev := range evals {
		if ev.Satisfied {
			satisfied++
		}
	}
	return int(math.Round(100 * float64(satisfied) / float64(len(evals))))
}

// snippet prefers the provider description; otherwise it collapses the
// raw content's whitespace and truncates it.
func snippet(description, content string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	collapsed := strings.Join(strings.Fields(content), " ")
	if len(collapsed) > snippetMaxLen {
		collapsed = strings.TrimSpace(collapsed[:snippetMaxLen]) + "…"
	}
	return collapsed
}

// domainFromURL extracts the host from a source URL, stripping any
// leading "www.".
func domainFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	return strings.TrimPrefix(host, "www.")
}
