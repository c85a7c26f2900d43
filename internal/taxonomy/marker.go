package taxonomy

import "strings"

// The enrichment instruction can be prefixed with a machine-parseable
// marker naming the field key, so the key survives providers that drop
// the explicit field-tag attribute.

const (
	markerOpen  = "[field:"
	markerClose = "]"
)

// MarkInstruction prefixes instruction with the field-key marker.
func MarkInstruction(key, instruction string) string {
	return markerOpen + key + markerClose + " " + instruction
}

// ParseMarker extracts the field key from a marked description. Returns
// the key and true when the marker prefix is present and well formed.
func ParseMarker(description string) (string, bool) {
	if !strings.HasPrefix(description, markerOpen) {
		return "", false
	}
	rest := description[len(markerOpen):]
	end := strings.Index(rest, markerClose)
	if end <= 0 {
		return "", false
	}
	key := rest[:end]
	if strings.ContainsAny(key, " \t\n") {
		return "", false
	}
	return key, true
}
