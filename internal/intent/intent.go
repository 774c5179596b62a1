// Package intent parses the trailing <intent=X> marker the completion
// model is instructed to append to its replies.
package intent

import (
	"regexp"
	"strings"
)

// Unknown is reported when no well-formed marker is present.
const Unknown = "unknown"

// markerPattern matches <intent=X> where X is one or more non-'>'
// characters. An empty marker (<intent=>) does not match. The captured
// value is deliberately not checked against any vocabulary.
var markerPattern = regexp.MustCompile(`<intent=([^>]+)>`)

// Extract returns the user-visible reply with every marker removed and
// the trimmed value of the first marker, or Unknown when none is found.
// Extraction is idempotent: re-running it on a cleaned reply returns
// the same string and Unknown.
func Extract(raw string) (cleaned, label string) {
	label = Unknown
	if m := markerPattern.FindStringSubmatch(raw); m != nil {
		label = strings.TrimSpace(m[1])
	}
	cleaned = strings.TrimSpace(markerPattern.ReplaceAllString(raw, ""))
	return cleaned, label
}
