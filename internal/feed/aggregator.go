// Package feed rebuilds the denormalized read snapshot served to
// clients. The snapshot is derived wholesale from stored entities and
// replaced atomically; nothing ever patches it in place.
package feed

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

// scanCap bounds each entity scan during a rebuild.
const scanCap = 10000

// Source is a preloaded entity set for rebuilds that already hold the
// data, sparing a second scan.
type Source struct {
	Leadsets []model.Leadset
	Runs     []model.Run
	Items    []model.Item
}

// Aggregator rebuilds the feed snapshot.
type Aggregator struct {
	store store.Store
}

// New creates an Aggregator.
func New(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Rebuild scans all entities and replaces the snapshot.
func (a *Aggregator) Rebuild(ctx context.Context) (*model.FeedSnapshot, error) {
	src, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return a.RebuildFrom(ctx, *src)
}

// RebuildFrom assembles the snapshot from a caller-supplied entity set
// and replaces the stored one, bumping the change version. Identical
// sources always assemble identical content.
func (a *Aggregator) RebuildFrom(ctx context.Context, src Source) (*model.FeedSnapshot, error) {
	snapshot := Assemble(src)

	prev, err := store.GetAs[model.FeedSnapshot](ctx, a.store, store.FeedKey)
	switch {
	case eris.Is(err, store.ErrNotFound):
		snapshot.Version = 1
	case err != nil:
		return nil, eris.Wrap(err, "feed: load previous snapshot")
	default:
		snapshot.Version = prev.Version + 1
	}
	snapshot.GeneratedAt = time.Now().UTC()

	if err := a.store.Put(ctx, store.FeedKey, snapshot); err != nil {
		return nil, eris.Wrap(err, "feed: replace snapshot")
	}
	zap.L().Debug("feed rebuilt",
		zap.Int64("version", snapshot.Version),
		zap.Int("leadsets", snapshot.Counts.Leadsets),
		zap.Int("items", snapshot.Counts.Items),
	)
	return snapshot, nil
}

// Assemble groups the entities into the snapshot shape. Pure and
// deterministic: leadsets sorted by id, latest run selected by
// CreatedAt descending with run id as the stable tie-break, items
// sorted by score descending then item id.
func Assemble(src Source) *model.FeedSnapshot {
	leadsets := append([]model.Leadset(nil), src.Leadsets...)
	sort.Slice(leadsets, func(i, j int) bool { return leadsets[i].ID < leadsets[j].ID })

	runsByLeadset := make(map[string][]model.Run)
	for _, r := range src.Runs {
		runsByLeadset[r.LeadsetID] = append(runsByLeadset[r.LeadsetID], r)
	}
	itemsByRun := make(map[string][]model.Item)
	for _, it := range src.Items {
		itemsByRun[it.RunID] = append(itemsByRun[it.RunID], it)
	}

	details := make(map[string]model.LeadsetDetail, len(leadsets))
	counts := model.FeedCounts{Leadsets: len(leadsets), Runs: len(src.Runs), Items: len(src.Items)}

	for _, ls := range leadsets {
		detail := model.LeadsetDetail{Leadset: ls, Items: []model.Item{}}
		if latest := latestRun(runsByLeadset[ls.ID]); latest != nil {
			detail.Run = latest
			items := append([]model.Item(nil), itemsByRun[latest.ID]...)
			sort.Slice(items, func(i, j int) bool {
				if items[i].Score != items[j].Score {
					return items[i].Score > items[j].Score
				}
				return items[i].ItemID < items[j].ItemID
			})
			detail.Items = items
		}
		details[ls.ID] = detail
	}

	return &model.FeedSnapshot{
		Leadsets: leadsets,
		Details:  details,
		Settings: map[string]string{},
		Counts:   counts,
	}
}

func latestRun(runs []model.Run) *model.Run {
	var latest *model.Run
	for i := range runs {
		r := &runs[i]
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) ||
			(r.CreatedAt.Equal(latest.CreatedAt) && r.ID > latest.ID) {
			latest = r
		}
	}
	return latest
}

func (a *Aggregator) load(ctx context.Context) (*Source, error) {
	var src Source

	docs, err := a.store.Scan(ctx, store.LeadsetPrefix, scanCap)
	if err != nil {
		return nil, eris.Wrap(err, "feed: scan leadsets")
	}
	if src.Leadsets, err = store.DecodeAll[model.Leadset](docs); err != nil {
		return nil, err
	}

	docs, err = a.store.Scan(ctx, store.RunPrefix, scanCap)
	if err != nil {
		return nil, eris.Wrap(err, "feed: scan runs")
	}
	if src.Runs, err = store.DecodeAll[model.Run](docs); err != nil {
		return nil, err
	}

	docs, err = a.store.Scan(ctx, store.ItemPrefix, scanCap)
	if err != nil {
		return nil, eris.Wrap(err, "feed: scan items")
	}
	if src.Items, err = store.DecodeAll[model.Item](docs); err != nil {
		return nil, err
	}

	return &src, nil
}
