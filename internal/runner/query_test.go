package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadscout/internal/model"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		ls   model.Leadset
		want string
	}{
		{
			name: "all facets in fixed order",
			ls: model.Leadset{
				Criteria: model.Criteria{
					Description:   "industrial pump manufacturers",
					Archetype:     "manufacturer",
					Region:        "Midwest US",
					SizeBand:      "51-200",
					Tags:          []string{"hydraulics", "OEM"},
					IntentSignals: []string{"hiring maintenance engineers"},
				},
			},
			want: "industrial pump manufacturers manufacturer in Midwest US 51-200 size " +
				"focusing on hydraulics, OEM showing intent for hiring maintenance engineers",
		},
		{
			name: "partial facets skip empty slots",
			ls: model.Leadset{
				Criteria: model.Criteria{Archetype: "agency", Region: "EMEA"},
			},
			want: "agency in EMEA",
		},
		{
			name: "empty criteria falls back to name",
			ls:   model.Leadset{Name: "  Logistics Leads "},
			want: "Logistics Leads",
		},
		{
			name: "no criteria and no name returns generic query",
			ls:   model.Leadset{},
			want: genericQuery,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.ls))
		})
	}
}

func TestBuildQueryIsDeterministic(t *testing.T) {
	ls := model.Leadset{
		Criteria: model.Criteria{
			Description: "saas vendors",
			Tags:        []string{"billing", "payments"},
		},
	}
	first := BuildQuery(ls)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildQuery(ls))
	}
}

func TestBuildCriteria(t *testing.T) {
	ls := model.Leadset{
		Criteria: model.Criteria{
			IntentSignals: []string{"expanding to new regions", "hiring sales reps"},
		},
	}
	assert.Equal(t, []string{
		"Shows intent for expanding to new regions",
		"Shows intent for hiring sales reps",
	}, BuildCriteria(ls))

	assert.Empty(t, BuildCriteria(model.Leadset{}))
}
