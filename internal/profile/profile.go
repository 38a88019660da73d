// File: internal/profile/profile.go
// Description: Canonical key-value projection of the nested autofill payload.
// The flattened profile is the single source of truth the field matcher reads
// values from.

package profile

import (
	"fmt"
	"strings"
)

// AutofillData is the nested payload supplied with an automation start
// request. User and CV sections are free-form maps because callers send
// whatever their profile schema holds.
type AutofillData struct {
	User        map[string]any `json:"user"`
	CVData      map[string]any `json:"cv_data"`
	Job         map[string]any `json:"job"`
	CoverLetter string         `json:"cover_letter"`
}

// Flat is the flattened profile: canonical field name -> value.
type Flat map[string]string

// Canonical field names. The matcher iterates these in a fixed order; see
// the alias table in the autofill package.
const (
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldFullName    = "fullName"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldAddress     = "address"
	FieldCity        = "city"
	FieldState       = "state"
	FieldZip         = "zip"
	FieldCountry     = "country"
	FieldLinkedIn    = "linkedin"
	FieldGitHub      = "github"
	FieldPortfolio   = "portfolio"
	FieldCompany     = "currentCompany"
	FieldTitle       = "currentTitle"
	FieldResume      = "resume"
	FieldCoverLetter = "coverLetter"
)

// Flatten projects the nested payload onto canonical keys.
//
// Precedence is asymmetric on purpose: user-supplied values win for contact
// fields, but CV-derived data wins for professional-network links (the CV
// parser is the more reliable source for those). This mirrors the upstream
// profile semantics exactly; do not unify the direction.
func Flatten(data AutofillData) Flat {
	flat := make(Flat)

	userFirst := func(canonical string, keys ...string) {
		if v := lookup(data.User, keys...); v != "" {
			flat[canonical] = v
		} else if v := lookup(data.CVData, keys...); v != "" {
			flat[canonical] = v
		}
	}
	cvFirst := func(canonical string, keys ...string) {
		if v := lookup(data.CVData, keys...); v != "" {
			flat[canonical] = v
		} else if v := lookup(data.User, keys...); v != "" {
			flat[canonical] = v
		}
	}

	// Contact and identity: user wins.
	userFirst(FieldFirstName, "first_name", "firstName")
	userFirst(FieldLastName, "last_name", "lastName")
	userFirst(FieldEmail, "email", "email_address")
	userFirst(FieldPhone, "phone", "phone_number", "mobile")
	userFirst(FieldAddress, "address", "street_address")
	userFirst(FieldCity, "city")
	userFirst(FieldState, "state", "province")
	userFirst(FieldZip, "zip", "zip_code", "postal_code")
	userFirst(FieldCountry, "country")

	// Professional-network links: cv_data wins.
	cvFirst(FieldLinkedIn, "linkedin", "linkedin_url")
	cvFirst(FieldGitHub, "github", "github_url")
	cvFirst(FieldPortfolio, "portfolio", "portfolio_url", "website", "personal_website")

	// Current position: the CV is the only realistic source, user as fallback.
	cvFirst(FieldCompany, "current_company", "company")
	cvFirst(FieldTitle, "current_title", "job_title", "title")

	// Resume path: user preference over parsed CV location.
	userFirst(FieldResume, "resume_path", "resume", "cv_path")

	if data.CoverLetter != "" {
		flat[FieldCoverLetter] = data.CoverLetter
	} else {
		userFirst(FieldCoverLetter, "cover_letter")
	}

	// Derived full name, only when both halves exist.
	if first, last := flat[FieldFirstName], flat[FieldLastName]; first != "" && last != "" {
		flat[FieldFullName] = first + " " + last
	} else if first := flat[FieldFirstName]; first != "" {
		flat[FieldFullName] = first
	}

	return flat
}

// lookup probes a map for the first non-empty value among the given keys,
// stringifying scalars the payload may carry as numbers or bools.
func lookup(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		// JSON numbers arrive as float64; render integers without a fraction.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}
