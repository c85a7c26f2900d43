// Package taxonomy defines the closed set of enrichment field keys, the
// provider-facing metadata for each, and indexed lookups over them.
package taxonomy

// Format is the provider output-format hint for an enrichment request.
type Format string

const (
	FormatEmail   Format = "email"
	FormatPhone   Format = "phone"
	FormatURL     Format = "url"
	FormatText    Format = "text"
	FormatOptions Format = "options"
)

// Canonical field keys.
const (
	FieldEmail                  = "email"
	FieldPhone                  = "phone"
	FieldLinkedinURL            = "linkedinUrl"
	FieldBuyingIntent           = "buyingIntent"
	FieldEmployeeCount          = "employeeCount"
	FieldGeoLocation            = "geoLocation"
	FieldLeadType               = "leadType"
	FieldPartnershipIntentLevel = "partnershipIntentLevel"
	FieldAudienceOverlapScore   = "audienceOverlapScore"
	FieldPrimaryContactChannel  = "primaryContactChannel"
)

// Field describes one extractable attribute: its canonical key, the
// name external systems know it by, the instruction sent verbatim to
// the provider, the output-format hint, and the default credit cost.
type Field struct {
	Key          string   `json:"key"`
	ExternalName string   `json:"external_name"`
	Instruction  string   `json:"instruction"`
	Format       Format   `json:"format"`
	Options      []string `json:"options,omitempty"`
	Cost         float64  `json:"cost"`
}

var intentOptions = []string{"High", "Medium", "Low"}

// fields is the full taxonomy table. Order is the default request order.
var fields = []Field{
	{
		Key:          FieldEmail,
		ExternalName: "Email",
		Instruction:  "Find the best business email address for reaching this lead. Prefer a named contact over a generic inbox.",
		Format:       FormatEmail,
		Cost:         1.0,
	},
	{
		Key:          FieldPhone,
		ExternalName: "Phone",
		Instruction:  "Find the main business phone number for this lead, including country code if available.",
		Format:       FormatPhone,
		Cost:         1.0,
	},
	{
		Key:          FieldLinkedinURL,
		ExternalName: "LinkedIn URL",
		Instruction:  "Find the LinkedIn profile or company page URL for this lead.",
		Format:       FormatURL,
		Cost:         0.5,
	},
	{
		Key:          FieldBuyingIntent,
		ExternalName: "Buying Intent",
		Instruction:  "Assess how likely this lead is to be actively looking to purchase solutions in this space right now. Answer High, Medium, or Low.",
		Format:       FormatOptions,
		Options:      intentOptions,
		Cost:         0.75,
	},
	{
		Key:          FieldEmployeeCount,
		ExternalName: "Employee Count",
		Instruction:  "Find the approximate number of employees at this company, as a number or a range.",
		Format:       FormatText,
		Cost:         0.5,
	},
	{
		Key:          FieldGeoLocation,
		ExternalName: "Location",
		Instruction:  "Find the primary location of this lead as city and country.",
		Format:       FormatText,
		Cost:         0.25,
	},
	{
		Key:          FieldLeadType,
		ExternalName: "Lead Type",
		Instruction:  "Classify this lead's business model, for example retailer, distributor, manufacturer, agency, or investor.",
		Format:       FormatText,
		Cost:         0.25,
	},
	{
		Key:          FieldPartnershipIntentLevel,
		ExternalName: "Partnership Intent",
		Instruction:  "Assess this lead's openness to partnership or collaboration opportunities. Answer High, Medium, or Low.",
		Format:       FormatOptions,
		Options:      intentOptions,
		Cost:         0.25,
	},
	{
		Key:          FieldAudienceOverlapScore,
		ExternalName: "Audience Overlap",
		Instruction:  "Rate the overlap between this lead's audience and ours on a scale of 1 to 10.",
		Format:       FormatText,
		Cost:         0.25,
	},
	{
		Key:          FieldPrimaryContactChannel,
		ExternalName: "Primary Contact Channel",
		Instruction:  "Identify the best channel to reach this lead first, for example email, phone, LinkedIn, or a contact form.",
		Format:       FormatText,
		Cost:         0.25,
	},
}

// defaultFieldKeys are requested when neither the caller nor the
// leadset restricts the field set.
var defaultFieldKeys = []string{FieldEmail, FieldLinkedinURL, FieldBuyingIntent, FieldGeoLocation}

// Registry is an indexed view over the taxonomy table.
type Registry struct {
	fields     []Field
	byKey      map[string]*Field
	byExternal map[string]*Field
}

// NewRegistry builds the indexed registry over the static table.
func NewRegistry() *Registry {
	r := &Registry{
		fields:     fields,
		byKey:      make(map[string]*Field, len(fields)),
		byExternal: make(map[string]*Field, len(fields)),
	}
	for i := range r.fields {
		f := &r.fields[i]
		r.byKey[f.Key] = f
		r.byExternal[f.ExternalName] = f
	}
	return r
}

// ByKey returns the field for the given canonical key, or nil.
func (r *Registry) ByKey(key string) *Field {
	return r.byKey[key]
}

// ByExternalName returns the field for the given external name, or nil.
func (r *Registry) ByExternalName(name string) *Field {
	return r.byExternal[name]
}

// Known reports whether key is part of the taxonomy.
func (r *Registry) Known(key string) bool {
	_, ok := r.byKey[key]
	return ok
}

// Keys returns all canonical keys in table order.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		out = append(out, f.Key)
	}
	return out
}

// Defaults returns the default request field keys.
func (r *Registry) Defaults() []string {
	out := make([]string, len(defaultFieldKeys))
	copy(out, defaultFieldKeys)
	return out
}

// All returns the full field table in order.
func (r *Registry) All() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}
