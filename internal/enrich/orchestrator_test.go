package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/internal/taxonomy"
	"github.com/sells-group/leadscout/pkg/prospect"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestResolveFields(t *testing.T) {
	defaults := []string{"email", "linkedinUrl"}
	tests := []struct {
		name      string
		requested []string
		allow     []string
		want      []string
	}{
		{
			name:      "empty allowlist does not restrict requests",
			requested: []string{"phone", "geoLocation"},
			want:      []string{"phone", "geoLocation"},
		},
		{
			name: "empty allowlist and no request falls to defaults",
			want: defaults,
		},
		{
			name:      "request intersected with allowlist",
			requested: []string{"phone", "email"},
			allow:     []string{"email", "geoLocation"},
			want:      []string{"email"},
		},
		{
			name:  "no request uses the allowlist",
			allow: []string{"email", "geoLocation"},
			want:  []string{"email", "geoLocation"},
		},
		{
			name:      "disjoint request falls to defaults within allowlist",
			requested: []string{"phone"},
			allow:     []string{"email", "geoLocation"},
			want:      []string{"email"},
		},
		{
			name:      "disjoint request and disjoint defaults use the allowlist",
			requested: []string{"phone"},
			allow:     []string{"employeeCount"},
			want:      []string{"employeeCount"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFields(tt.requested, tt.allow, defaults))
		})
	}
}

func TestRequestEnrichment_RejectsUnknownFields(t *testing.T) {
	o := New(&mockProvider{}, store.NewMemory(), taxonomy.NewRegistry())
	_, err := o.RequestEnrichment(context.Background(), "ls1", []string{"email", "shoeSize"})
	var unknown *UnknownFieldsError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []string{"shoeSize"}, unknown.Fields)
}

func TestRequestEnrichment_RequiresSessionAndRun(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	o := New(&mockProvider{}, st, taxonomy.NewRegistry())

	require.NoError(t, st.Put(ctx, store.LeadsetKey("ls1"), model.Leadset{ID: "ls1"}))
	_, err := o.RequestEnrichment(ctx, "ls1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no discovery session")

	require.NoError(t, st.Put(ctx, store.LeadsetKey("ls1"), model.Leadset{ID: "ls1", ProviderSessionID: "sess1"}))
	_, err = o.RequestEnrichment(ctx, "ls1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run to enrich")
}

func TestRequestEnrichment_CreatesOneRequestPerField(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	reg := taxonomy.NewRegistry()

	require.NoError(t, st.Put(ctx, store.LeadsetKey("ls1"), model.Leadset{
		ID: "ls1", ProviderSessionID: "sess1", Status: model.LeadsetStatusRunning,
	}))
	require.NoError(t, st.Put(ctx, store.RunKey("r1"), model.Run{
		ID: "r1", LeadsetID: "ls1", ProviderSessionID: "sess1", Status: model.RunStatusRunning,
	}))

	var reqs []prospect.CreateEnrichmentRequest
	provider := &mockProvider{
		createEnrichmentFn: func(_ context.Context, sessionID string, req prospect.CreateEnrichmentRequest) (*prospect.Enrichment, error) {
			assert.Equal(t, "sess1", sessionID)
			reqs = append(reqs, req)
			return &prospect.Enrichment{ID: "enr-" + req.FieldTag}, nil
		},
	}

	job, err := New(provider, st, reg).RequestEnrichment(ctx, "ls1", []string{"email", "buyingIntent"})
	require.NoError(t, err)

	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.True(t, strings.HasPrefix(req.Description, "[field:"+req.FieldTag+"]"),
			"instruction must carry the field marker: %q", req.Description)
	}
	assert.Equal(t, string(taxonomy.FormatEmail), reqs[0].Format)

	assert.Equal(t, []string{"email", "buyingIntent"}, job.Fields)
	require.Len(t, job.Requests, 2)
	assert.Equal(t, "email", job.Requests[0].Field)
	assert.Equal(t, "enr-email", job.Requests[0].ProviderRequestID)
	assert.Equal(t, model.JobStatusPending, job.Status)

	// Statuses flip to enriching on both the run and the leadset.
	run, err := store.GetAs[model.Run](ctx, st, store.RunKey("r1"))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusEnriching, run.Status)
	ls, err := store.GetAs[model.Leadset](ctx, st, store.LeadsetKey("ls1"))
	require.NoError(t, err)
	assert.Equal(t, model.LeadsetStatusEnriching, ls.Status)

	stored, err := store.GetAs[model.EnrichmentJob](ctx, st, store.JobKey(job.ID))
	require.NoError(t, err)
	assert.Equal(t, job.ID, stored.ID)
}

func TestRequestEnrichment_MarksItemsEnriching(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	require.NoError(t, st.Put(ctx, store.LeadsetKey("ls1"), model.Leadset{
		ID: "ls1", ProviderSessionID: "sess1", Status: model.LeadsetStatusRunning,
	}))
	require.NoError(t, st.Put(ctx, store.RunKey("r1"), model.Run{
		ID: "r1", LeadsetID: "ls1", ProviderSessionID: "sess1", Status: model.RunStatusRunning,
	}))
	require.NoError(t, st.Put(ctx, store.ItemKey("i1"), model.Item{
		ItemID: "i1", RunID: "r1", LeadsetID: "ls1",
	}))
	require.NoError(t, st.Put(ctx, store.ItemKey("i2"), model.Item{
		ItemID: "i2", RunID: "r1", LeadsetID: "ls1",
		Enrichment: model.ItemEnrichment{
			Status: model.EnrichmentStateDone,
			Fields: map[string]string{"email": "x@y.com"},
		},
	}))
	require.NoError(t, st.Put(ctx, store.ItemKey("i3"), model.Item{
		ItemID: "i3", RunID: "rX", LeadsetID: "other",
		Enrichment: model.ItemEnrichment{Status: model.EnrichmentStateNone},
	}))

	provider := &mockProvider{
		createEnrichmentFn: func(_ context.Context, _ string, req prospect.CreateEnrichmentRequest) (*prospect.Enrichment, error) {
			return &prospect.Enrichment{ID: "enr-" + req.FieldTag}, nil
		},
	}
	_, err := New(provider, st, taxonomy.NewRegistry()).RequestEnrichment(ctx, "ls1", []string{"email"})
	require.NoError(t, err)

	// Untouched items flip to enriching; done items and other runs stay.
	i1, err := store.GetAs[model.Item](ctx, st, store.ItemKey("i1"))
	require.NoError(t, err)
	assert.Equal(t, model.EnrichmentStateEnriching, i1.Enrichment.Status)

	i2, err := store.GetAs[model.Item](ctx, st, store.ItemKey("i2"))
	require.NoError(t, err)
	assert.Equal(t, model.EnrichmentStateDone, i2.Enrichment.Status)

	i3, err := store.GetAs[model.Item](ctx, st, store.ItemKey("i3"))
	require.NoError(t, err)
	assert.Equal(t, model.EnrichmentStateNone, i3.Enrichment.Status)
}

func TestRequestEnrichment_PicksLatestRun(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	require.NoError(t, st.Put(ctx, store.LeadsetKey("ls1"), model.Leadset{ID: "ls1", ProviderSessionID: "sess1"}))
	early := model.Run{ID: "r1", LeadsetID: "ls1", ProviderSessionID: "sess1", Status: model.RunStatusCompleted}
	late := model.Run{ID: "r2", LeadsetID: "ls1", ProviderSessionID: "sess1", Status: model.RunStatusCompleted}
	late.CreatedAt = early.CreatedAt.Add(1)
	require.NoError(t, st.Put(ctx, store.RunKey(early.ID), early))
	require.NoError(t, st.Put(ctx, store.RunKey(late.ID), late))

	provider := &mockProvider{
		createEnrichmentFn: func(_ context.Context, _ string, req prospect.CreateEnrichmentRequest) (*prospect.Enrichment, error) {
			return &prospect.Enrichment{ID: "enr-" + req.FieldTag}, nil
		},
	}
	job, err := New(provider, st, taxonomy.NewRegistry()).RequestEnrichment(ctx, "ls1", []string{"email"})
	require.NoError(t, err)
	assert.Equal(t, "r2", job.RunID)
}
