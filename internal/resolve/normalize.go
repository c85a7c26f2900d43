package resolve

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/taxonomy"
)

// notFoundRe matches the canonical ways providers say the information
// does not exist. Any matching result maps to model.ValueNotFound,
// which is distinct from the field never having been resolved.
var notFoundRe = regexp.MustCompile(`(?i)^\s*(not\s+found|notfound|n/?a|none(\s+found)?|unknown|unavailable|no\s+\w+(\s+\w+)?\s+found|could\s+not\s+\w+.*|cannot\s+find.*|no\s+information.*)\s*\.?\s*$`)

// urgencyVocab maps to high intent; explorationVocab to medium.
var (
	urgencyVocab     = []string{"actively", "urgent", "immediately", "right now", "evaluating", "in-market", "ready to", "this quarter", "currently looking"}
	explorationVocab = []string{"exploring", "researching", "considering", "early stage", "curious", "gathering information", "window shopping"}
)

// employeeBuckets are the canonical size bands, upper bound inclusive.
var employeeBuckets = []struct {
	max   int
	label string
}{
	{10, "1-10"},
	{50, "11-50"},
	{200, "51-200"},
	{500, "201-500"},
	{1000, "501-1000"},
	{5000, "1001-5000"},
	{10000, "5001-10000"},
	{25000, "10001-25000"},
}

const employeeBucketTop = "25001+"

var geoCaser = cases.Title(language.English)

// NormalizeValue canonicalizes a raw enrichment value for the given
// field. The not-found sentinel applies to every field.
func NormalizeValue(field, raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" || notFoundRe.MatchString(text) {
		return model.ValueNotFound
	}

	switch field {
	case taxonomy.FieldBuyingIntent, taxonomy.FieldPartnershipIntentLevel:
		return NormalizeIntent(text)
	case taxonomy.FieldEmployeeCount:
		return BucketEmployeeCount(text)
	case taxonomy.FieldGeoLocation:
		return normalizeLocation(text)
	case taxonomy.FieldLeadType, taxonomy.FieldPrimaryContactChannel:
		return strings.ToLower(text)
	case taxonomy.FieldAudienceOverlapScore:
		if m := overlapIntRe.FindString(text); m != "" {
			return m
		}
		return text
	}
	return text
}

// NormalizeIntent maps free intent text onto {high, medium, low}.
// Rules are checked in priority order: an explicit level word wins,
// then urgency/readiness vocabulary, then exploration vocabulary, and
// anything else is low.
func NormalizeIntent(text string) string {
	lower := strings.ToLower(text)
	if m := levelRe.FindString(lower); m != "" {
		return strings.ToLower(m)
	}
	if containsAny(lower, urgencyVocab) {
		return "high"
	}
	if containsAny(lower, explorationVocab) {
		return "medium"
	}
	return "low"
}

var (
	numberRe    = regexp.MustCompile(`\d[\d,]*`)
	rangePairRe = regexp.MustCompile(`\d[\d,]*\s*-\s*(\d[\d,]*)`)
)

// BucketEmployeeCount maps a count or range onto the fixed size bands.
// A range takes its upper bound, so canonical band strings map to
// themselves. Input with no digits yields the not-found sentinel.
func BucketEmployeeCount(text string) string {
	raw := ""
	if m := rangePairRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else if m := numberRe.FindString(text); m != "" {
		raw = m
	}
	if raw == "" {
		return model.ValueNotFound
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return model.ValueNotFound
	}
	for _, b := range employeeBuckets {
		if n <= b.max {
			return b.label
		}
	}
	return employeeBucketTop
}

// normalizeLocation tidies "city, country" text: trimmed segments,
// single separator, title case.
func normalizeLocation(text string) string {
	parts := strings.Split(text, ",")
	for i, p := range parts {
		parts[i] = geoCaser.String(strings.ToLower(strings.TrimSpace(p)))
	}
	return strings.Join(parts, ", ")
}
