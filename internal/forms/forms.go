// File: internal/forms/forms.go
// Description: Candidate-form extraction and filtering. The detector scans a
// loaded page for <form> elements and produces field descriptors; the filter
// weeds out search bars, newsletter widgets, and login boxes before the
// matcher ever sees them.

package forms

import (
	"strings"

	"go.uber.org/zap"
)

// Field describes one interactive control inside a detected form. Selector is
// resolvable on the live page and is what the filler drives.
type Field struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Selector    string `json:"selector"`
}

// Descriptor is one candidate <form> with its non-hidden fields, in DOM order.
type Descriptor struct {
	Index    int     `json:"index"`
	Selector string  `json:"selector"`
	Fields   []Field `json:"fields"`
}

// FilledField records one successfully filled control. The sequence of these
// is both the user-facing feedback and the "no-op" failure signal: zero
// records across all forms aborts the session.
type FilledField struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// minSubstantiveFields is the field count a form must exceed to be treated as
// a real application form rather than a search or filter bar.
const minSubstantiveFields = 3

var (
	exclusionKeywords = []string{"search", "filter", "subscribe", "newsletter", "login", "signin"}
	inclusionKeywords = []string{"email", "name", "phone", "resume", "cv", "cover"}
)

// Identifier returns the lowercased concatenation of everything that names a
// field. Keyword filtering and value matching both run against it.
func (f Field) Identifier() string {
	return strings.ToLower(f.Name + " " + f.ID + " " + f.Placeholder + " " + f.Label)
}

// Filter drops forms that are noise: too few substantive fields, or
// identifiers dominated by exclusion keywords. An application-signal keyword
// in any field identifier overrides the exclusion - a login-looking form that
// asks for a resume is still worth filling.
func Filter(detected []Descriptor, logger *zap.Logger) []Descriptor {
	var kept []Descriptor
	for _, form := range detected {
		if len(form.Fields) <= minSubstantiveFields {
			logger.Debug("Dropping non-substantive form.",
				zap.Int("form_index", form.Index), zap.Int("fields", len(form.Fields)))
			continue
		}

		joined := joinedIdentifiers(form)
		if containsAny(joined, exclusionKeywords) && !containsAny(joined, inclusionKeywords) {
			logger.Debug("Dropping excluded form.", zap.Int("form_index", form.Index))
			continue
		}

		kept = append(kept, form)
	}
	return kept
}

func joinedIdentifiers(form Descriptor) string {
	var sb strings.Builder
	for _, f := range form.Fields {
		sb.WriteString(f.Identifier())
		sb.WriteByte(' ')
	}
	return sb.String()
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
