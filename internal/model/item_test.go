package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemMergeFrom(t *testing.T) {
	base := func() Item {
		return Item{
			ItemID:    "i1",
			RunID:     "r1",
			LeadsetID: "ls1",
			Entity:    Entity{Name: "Acme", Domain: "acme.com"},
			Snippet:   "old snippet",
			Enrichment: ItemEnrichment{
				Status: EnrichmentStateDone,
				Fields: map[string]string{"email": "a@acme.com"},
			},
		}
	}

	t.Run("empty incoming fields leave the record unchanged", func(t *testing.T) {
		got := base()
		got.MergeFrom(Item{ItemID: "i1"})
		assert.Equal(t, base(), got)
	})

	t.Run("non-empty descriptive fields win", func(t *testing.T) {
		got := base()
		got.MergeFrom(Item{
			Entity:  Entity{Name: "Acme Inc"},
			Snippet: "new snippet",
		})
		assert.Equal(t, "Acme Inc", got.Entity.Name)
		assert.Equal(t, "acme.com", got.Entity.Domain)
		assert.Equal(t, "new snippet", got.Snippet)
	})

	t.Run("evaluations replace wholesale with their score", func(t *testing.T) {
		got := base()
		got.MergeFrom(Item{
			Evaluations: []Evaluation{{Criterion: "c", Satisfied: true}},
			Score:       100,
		})
		assert.Len(t, got.Evaluations, 1)
		assert.Equal(t, 100, got.Score)
	})

	t.Run("enrichment status none never downgrades done", func(t *testing.T) {
		got := base()
		got.MergeFrom(Item{Enrichment: ItemEnrichment{Status: EnrichmentStateNone}})
		assert.Equal(t, EnrichmentStateDone, got.Enrichment.Status)
	})

	t.Run("enrichment fields merge key by key", func(t *testing.T) {
		got := base()
		got.MergeFrom(Item{Enrichment: ItemEnrichment{
			Fields: map[string]string{"phone": "+1 555 010 2000"},
		}})
		assert.Equal(t, "a@acme.com", got.Enrichment.Fields["email"])
		assert.Equal(t, "+1 555 010 2000", got.Enrichment.Fields["phone"])
	})
}

func TestRunStatusTerminal(t *testing.T) {
	assert.False(t, RunStatusRunning.Terminal())
	assert.False(t, RunStatusEnriching.Terminal())
	assert.True(t, RunStatusCanceled.Terminal())
	assert.True(t, RunStatusCompleted.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
}

func TestRunModeValid(t *testing.T) {
	assert.True(t, RunModeNew.Valid())
	assert.True(t, RunModeExtend.Valid())
	assert.True(t, RunModeReplace.Valid())
	assert.False(t, RunMode("again").Valid())
}
