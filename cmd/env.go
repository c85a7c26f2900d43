package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/enrich"
	"github.com/sells-group/leadscout/internal/feed"
	"github.com/sells-group/leadscout/internal/runner"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/internal/syncer"
	"github.com/sells-group/leadscout/internal/taxonomy"
	"github.com/sells-group/leadscout/internal/webhook"
	"github.com/sells-group/leadscout/pkg/prospect"
)

// env wires the shared provider client, store, and components. One
// instance per invocation, injected into every component.
type env struct {
	Store        store.Store
	Provider     prospect.Client
	Registry     *taxonomy.Registry
	Runner       *runner.Controller
	Syncer       *syncer.Syncer
	Orchestrator *enrich.Orchestrator
	Feed         *feed.Aggregator
	Ingestor     *webhook.Ingestor
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	provider := prospect.NewClient(cfg.Prospect.Key,
		prospect.WithBaseURL(cfg.Prospect.BaseURL),
		prospect.WithRateLimit(cfg.Prospect.RequestsPerSec, cfg.Prospect.Burst),
	)

	reg := taxonomy.NewRegistry()
	sy := syncer.New(provider, st)
	orch := enrich.New(provider, st, reg)
	fa := feed.New(st)

	return &env{
		Store:        st,
		Provider:     provider,
		Registry:     reg,
		Runner:       runner.New(provider, st, cfg.Webhook.CallbackURL),
		Syncer:       sy,
		Orchestrator: orch,
		Feed:         fa,
		Ingestor:     webhook.New(st, sy, orch, fa, reg, cfg.Webhook.Secret),
	}, nil
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite", "":
		return store.NewSQLite(sc.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL)
	}
	return nil, eris.Errorf("unknown store driver %q", sc.Driver)
}
