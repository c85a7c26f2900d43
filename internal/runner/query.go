package runner

import (
	"fmt"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

// genericQuery is the last-resort search term when a leadset has
// neither facets nor a name.
const genericQuery = "b2b companies"

// BuildQuery assembles the provider search query from the leadset's
// facets in a fixed order, so the same leadset always produces the
// same query. Falls back to the leadset name, then a generic term.
func BuildQuery(ls model.Leadset) string {
	if ls.Criteria.Empty() {
		if name := strings.TrimSpace(ls.Name); name != "" {
			return name
		}
		return genericQuery
	}

	var parts []string
	if d := strings.TrimSpace(ls.Criteria.Description); d != "" {
		parts = append(parts, d)
	}
	if a := strings.TrimSpace(ls.Criteria.Archetype); a != "" {
		parts = append(parts, a)
	}
	if r := strings.TrimSpace(ls.Criteria.Region); r != "" {
		parts = append(parts, fmt.Sprintf("in %s", r))
	}
	if sz := strings.TrimSpace(ls.Criteria.SizeBand); sz != "" {
		parts = append(parts, fmt.Sprintf("%s size", sz))
	}
	if len(ls.Criteria.Tags) > 0 {
		parts = append(parts, fmt.Sprintf("focusing on %s", strings.Join(ls.Criteria.Tags, ", ")))
	}
	if len(ls.Criteria.IntentSignals) > 0 {
		parts = append(parts, fmt.Sprintf("showing intent for %s", strings.Join(ls.Criteria.IntentSignals, ", ")))
	}
	return strings.Join(parts, " ")
}

// BuildCriteria produces one provider evaluation criterion per intent
// signal.
func BuildCriteria(ls model.Leadset) []string {
	out := make([]string, 0, len(ls.Criteria.IntentSignals))
	for _, sig := range ls.Criteria.IntentSignals {
		out = append(out, fmt.Sprintf("Shows intent for %s", sig))
	}
	return out
}
