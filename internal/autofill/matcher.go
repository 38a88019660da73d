// File: internal/autofill/matcher.go
// Description: Heuristic mapping from detected form-field identifiers to
// canonical profile values. Pure string containment over normalized
// identifiers; no ML, by design.

package autofill

import (
	"strings"

	"github.com/hireflow/autoapply/internal/forms"
	"github.com/hireflow/autoapply/internal/profile"
)

// aliasEntry binds one canonical profile field to the normalized substring
// patterns that identify it on real-world forms.
type aliasEntry struct {
	Canonical string
	Patterns  []string
}

// aliasTable is scanned in declaration order and the first entry whose
// pattern matches AND whose profile value is non-empty wins. Ordering is
// deliberate: specific name fields come before the bare "name" catch-all,
// and professional links before the generic "url"/"website" patterns.
var aliasTable = []aliasEntry{
	{profile.FieldFirstName, []string{"firstname", "fname", "givenname", "first"}},
	{profile.FieldLastName, []string{"lastname", "lname", "surname", "familyname", "last"}},
	{profile.FieldEmail, []string{"email", "emailaddress"}},
	{profile.FieldPhone, []string{"phone", "mobile", "telephone", "tel"}},
	{profile.FieldFullName, []string{"fullname", "yourname", "name"}},
	{profile.FieldLinkedIn, []string{"linkedin"}},
	{profile.FieldGitHub, []string{"github"}},
	{profile.FieldPortfolio, []string{"portfolio", "personalwebsite", "website", "url"}},
	{profile.FieldAddress, []string{"streetaddress", "address", "street"}},
	{profile.FieldCity, []string{"city", "town"}},
	{profile.FieldState, []string{"state", "province", "region"}},
	{profile.FieldZip, []string{"zipcode", "zip", "postalcode", "postal"}},
	{profile.FieldCountry, []string{"country"}},
	{profile.FieldCompany, []string{"currentcompany", "employer", "company"}},
	{profile.FieldTitle, []string{"currenttitle", "jobtitle", "position", "role"}},
	{profile.FieldCoverLetter, []string{"coverletter", "cover", "motivation"}},
	{profile.FieldResume, []string{"resume", "cv"}},
}

// normalize lowercases an identifier and strips the separators that vary
// between form conventions, so "First_Name", "first-name" and "firstname"
// all compare equal.
func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '\t', '\n':
			return -1
		}
		return r
	}, s)
}

// matchField maps one detected field to a canonical profile value. Returns
// ok=false when nothing matched or every matching canonical key had an empty
// profile value; the caller skips such fields without error.
func matchField(field forms.Field, flat profile.Flat) (canonical, value string, ok bool) {
	identifier := normalize(field.Name + field.ID + field.Placeholder)
	if identifier == "" {
		return "", "", false
	}

	for _, entry := range aliasTable {
		for _, pattern := range entry.Patterns {
			if !strings.Contains(identifier, pattern) {
				continue
			}
			if v := flat[entry.Canonical]; v != "" {
				return entry.Canonical, v, true
			}
			// Pattern matched but the profile has no value; keep scanning
			// later entries rather than claiming the field.
			break
		}
	}
	return "", "", false
}

// truthy interprets a profile value for checkbox fields.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no", "off":
		return false
	}
	return true
}
