package runner

import (
	"context"

	"github.com/sells-group/leadscout/pkg/prospect"
)

// mockProvider implements prospect.Client with overridable funcs.
type mockProvider struct {
	createSessionFn    func(ctx context.Context, req prospect.CreateSessionRequest) (*prospect.Session, error)
	appendSearchFn     func(ctx context.Context, sessionID string, req prospect.AppendSearchRequest) (*prospect.SubSearch, error)
	getSessionFn       func(ctx context.Context, id string) (*prospect.Session, error)
	listItemsFn        func(ctx context.Context, sessionID, cursor string, limit int) (*prospect.ItemPage, error)
	cancelSessionFn    func(ctx context.Context, id string) error
	cancelSearchFn     func(ctx context.Context, sessionID, searchID string) error
	deleteSessionFn    func(ctx context.Context, id string) error
	createEnrichmentFn func(ctx context.Context, sessionID string, req prospect.CreateEnrichmentRequest) (*prospect.Enrichment, error)
	getEnrichmentFn    func(ctx context.Context, sessionID, id string) (*prospect.Enrichment, error)
}

func (m *mockProvider) CreateSession(ctx context.Context, req prospect.CreateSessionRequest) (*prospect.Session, error) {
	return m.createSessionFn(ctx, req)
}

func (m *mockProvider) AppendSearch(ctx context.Context, sessionID string, req prospect.AppendSearchRequest) (*prospect.SubSearch, error) {
	return m.appendSearchFn(ctx, sessionID, req)
}

func (m *mockProvider) GetSession(ctx context.Context, id string) (*prospect.Session, error) {
	return m.getSessionFn(ctx, id)
}

func (m *mockProvider) ListItems(ctx context.Context, sessionID, cursor string, limit int) (*prospect.ItemPage, error) {
	return m.listItemsFn(ctx, sessionID, cursor, limit)
}

func (m *mockProvider) CancelSession(ctx context.Context, id string) error {
	return m.cancelSessionFn(ctx, id)
}

func (m *mockProvider) CancelSearch(ctx context.Context, sessionID, searchID string) error {
	return m.cancelSearchFn(ctx, sessionID, searchID)
}

func (m *mockProvider) DeleteSession(ctx context.Context, id string) error {
	return m.deleteSessionFn(ctx, id)
}

func (m *mockProvider) CreateEnrichment(ctx context.Context, sessionID string, req prospect.CreateEnrichmentRequest) (*prospect.Enrichment, error) {
	return m.createEnrichmentFn(ctx, sessionID, req)
}

func (m *mockProvider) GetEnrichment(ctx context.Context, sessionID, id string) (*prospect.Enrichment, error) {
	return m.getEnrichmentFn(ctx, sessionID, id)
}
