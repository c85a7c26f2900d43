// Package resolve recovers which field an enrichment result belongs to
// when the provider's response omits an explicit tag, and normalizes
// the value for storage. The resolver is an ordered list of pure
// strategies; the first match wins.
package resolve

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadscout/internal/taxonomy"
	"github.com/sells-group/leadscout/pkg/prospect"
)

// Resolution is one recovered (field, value) pair.
type Resolution struct {
	Field string
	Value string
}

// ambiguityGroups lists field sets whose heuristics can claim each
// other's results. When a key is already claimed and exactly one
// sibling is requested-but-unclaimed, the result is reassigned to it.
var ambiguityGroups = [][]string{
	{taxonomy.FieldBuyingIntent, taxonomy.FieldPartnershipIntentLevel},
}

// formatFields are the output formats that map 1:1 onto a field key, so
// a bare format hint identifies the field.
var formatFields = map[string]string{
	string(taxonomy.FormatEmail): taxonomy.FieldEmail,
	string(taxonomy.FormatPhone): taxonomy.FieldPhone,
}

type strategy func(r *Resolver, res prospect.EnrichmentResult) (string, bool)

// Ordered cascade. Explicit signals outrank everything the content
// might look like.
var strategies = []strategy{
	(*Resolver).fromExplicitTag,
	(*Resolver).fromMarker,
	(*Resolver).fromFormat,
	(*Resolver).fromContent,
}

// Resolver infers field keys for untagged enrichment results.
type Resolver struct {
	reg *taxonomy.Registry
}

// New creates a Resolver over the field taxonomy.
func New(reg *taxonomy.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// ResolveOne runs the cascade over a single result. The second return
// is false when no strategy matched.
func (r *Resolver) ResolveOne(res prospect.EnrichmentResult) (Resolution, bool) {
	for _, s := range strategies {
		if field, ok := s(r, res); ok {
			return Resolution{Field: field, Value: NormalizeValue(field, res.Result)}, true
		}
	}
	return Resolution{}, false
}

// ResolveBatch resolves every enrichment result attached to one item.
// requested is the set of field keys the job asked for; it scopes
// collision reassignment. Unresolvable results are returned separately
// and are non-fatal.
func (r *Resolver) ResolveBatch(results []prospect.EnrichmentResult, requested []string) (map[string]string, []prospect.EnrichmentResult) {
	requestedSet := make(map[string]bool, len(requested))
	for _, f := range requested {
		requestedSet[f] = true
	}

	resolved := make(map[string]string, len(results))
	var unresolved []prospect.EnrichmentResult
	for _, res := range results {
		rr, ok := r.ResolveOne(res)
		if !ok {
			unresolved = append(unresolved, res)
			continue
		}
		if _, claimed := resolved[rr.Field]; claimed {
			alt, ok := reassign(rr.Field, requestedSet, resolved)
			if !ok {
				unresolved = append(unresolved, res)
				continue
			}
			rr.Field = alt
			rr.Value = NormalizeValue(alt, res.Result)
		}
		resolved[rr.Field] = rr.Value
	}
	return resolved, unresolved
}

// reassign finds the single requested-but-unclaimed sibling of field in
// its ambiguity group, if there is exactly one.
func reassign(field string, requested map[string]bool, claimed map[string]string) (string, bool) {
	for _, group := range ambiguityGroups {
		inGroup := false
		for _, f := range group {
			if f == field {
				inGroup = true
				break
			}
		}
		if !inGroup {
			continue
		}
		var candidates []string
		for _, f := range group {
			if f == field {
				continue
			}
			if _, taken := claimed[f]; taken {
				continue
			}
			if requested[f] {
				candidates = append(candidates, f)
			}
		}
		if len(candidates) == 1 {
			return candidates[0], true
		}
		return "", false
	}
	return "", false
}

// fromExplicitTag trusts the provider's field-tag attribute outright.
func (r *Resolver) fromExplicitTag(res prospect.EnrichmentResult) (string, bool) {
	if res.Field != "" && r.reg.Known(res.Field) {
		return res.Field, true
	}
	return "", false
}

// fromMarker parses the field-key marker prefix out of the echoed
// instruction text.
func (r *Resolver) fromMarker(res prospect.EnrichmentResult) (string, bool) {
	key, ok := taxonomy.ParseMarker(res.Description)
	if ok && r.reg.Known(key) {
		return key, true
	}
	return "", false
}

// fromFormat maps a 1:1 output format onto its field.
func (r *Resolver) fromFormat(res prospect.EnrichmentResult) (string, bool) {
	field, ok := formatFields[res.Format]
	return field, ok
}

var (
	emailRe      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe      = regexp.MustCompile(`^[\d\s()+.\-]+$`)
	digitRe      = regexp.MustCompile(`\d`)
	rangeRe      = regexp.MustCompile(`^\d+\s*-\s*\d+$`)
	levelRe      = regexp.MustCompile(`(?i)\b(high|medium|low)\b`)
	cityPairRe   = regexp.MustCompile(`^[A-Z][A-Za-z.'\- ]*,\s*[A-Z][A-Za-z.'\- ]*$`)
	overlapIntRe = regexp.MustCompile(`\b([1-9]|10)\b`)
)

var partnershipVocab = []string{"partner", "partnership", "collaborat", "alliance", "co-market", "joint"}

var leadTypeKeywords = []string{
	"retailer", "distributor", "investor", "manufacturer", "wholesaler",
	"agency", "reseller", "brand", "marketplace", "service provider",
}

var overlapVocab = []string{"overlap", "audience", "similar"}

var channelKeywords = []string{"email", "phone", "linkedin", "contact form", "twitter", "instagram"}

// fromContent applies the shape heuristics in priority order.
func (r *Resolver) fromContent(res prospect.EnrichmentResult) (string, bool) {
	text := strings.TrimSpace(res.Result)
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)

	switch {
	case emailRe.MatchString(text):
		return taxonomy.FieldEmail, true
	case phoneRe.MatchString(text) && len(digitRe.FindAllString(text, -1)) >= 10:
		return taxonomy.FieldPhone, true
	case strings.Contains(lower, "linkedin.com"):
		return taxonomy.FieldLinkedinURL, true
	case levelRe.MatchString(text):
		if containsAny(lower, partnershipVocab) {
			return taxonomy.FieldPartnershipIntentLevel, true
		}
		return taxonomy.FieldBuyingIntent, true
	case rangeRe.MatchString(text):
		return taxonomy.FieldEmployeeCount, true
	case cityPairRe.MatchString(text):
		return taxonomy.FieldGeoLocation, true
	case containsAny(lower, leadTypeKeywords):
		return taxonomy.FieldLeadType, true
	case containsAny(lower, overlapVocab) && overlapIntRe.MatchString(text):
		return taxonomy.FieldAudienceOverlapScore, true
	case containsAny(lower, channelKeywords):
		return taxonomy.FieldPrimaryContactChannel, true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
