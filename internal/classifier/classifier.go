// File: internal/classifier/classifier.go
// Description: Coarse page classification for the autofill pipeline. Decides
// whether a loaded page is an auth wall, an application form, or just a job
// description, from a serializable snapshot of the live DOM.

package classifier

import (
	"strings"
)

// Category is the coarse type of a loaded page.
type Category string

const (
	CategoryLogin          Category = "login"
	CategoryRegister       Category = "register"
	CategoryApplication    Category = "application"
	CategoryJobDescription Category = "job_description"
	CategoryUnknown        Category = "unknown"
)

// sparseTextThreshold is the visible-text length below which a page carrying
// a password field is assumed to exist only for authentication.
const sparseTextThreshold = 2000

var (
	loginKeywords    = []string{"login", "sign in", "signin", "log in"}
	registerKeywords = []string{"register", "sign up", "signup", "create account", "join"}
	applyKeywords    = []string{"apply", "application", "submit"}
)

// Snapshot is the serializable projection of a live page that the
// classification rules run against. It is produced in-page by a single
// Evaluate call (see snapshot.go) and is trivially constructible in tests.
type Snapshot struct {
	URL                    string `json:"url"`
	Title                  string `json:"title"`
	VisibleTextLength      int    `json:"visibleTextLength"`
	HasPasswordInput       bool   `json:"hasPasswordInput"`
	HasFileInput           bool   `json:"hasFileInput"`
	SubstantiveFormCount   int    `json:"substantiveFormCount"`
	HasVisibleApplyControl bool   `json:"hasVisibleApplyControl"`
}

// Classify applies the priority-ordered rules to a snapshot. The ordering is
// load-bearing: the auth-wall check runs first because application forms
// frequently co-occur with login prompts in page footers, and the file-upload
// short-circuit must precede the job-description branch.
func Classify(snap Snapshot) Category {
	urlAndTitle := strings.ToLower(snap.URL + " " + snap.Title)
	title := strings.ToLower(snap.Title)

	// 1. Auth-wall detection.
	if snap.HasPasswordInput {
		if containsAny(urlAndTitle, loginKeywords) {
			return CategoryLogin
		}
		if containsAny(urlAndTitle, registerKeywords) {
			return CategoryRegister
		}
		if snap.VisibleTextLength < sparseTextThreshold {
			// Sparse auth pages default to login intent.
			return CategoryLogin
		}
		// A password field alone, on a content-rich page, is not decisive.
	}

	// 2. Application-page detection. A file-upload input is the strongest
	// ATS signal and short-circuits everything else.
	if snap.HasFileInput {
		return CategoryApplication
	}
	if snap.SubstantiveFormCount > 0 {
		if containsAny(strings.ToLower(snap.URL), applyKeywords) {
			return CategoryApplication
		}
		if strings.Contains(title, "apply") {
			return CategoryApplication
		}
	}

	// 3. Job-description detection: an apply control with nothing to fill.
	if snap.HasVisibleApplyControl && snap.SubstantiveFormCount == 0 {
		return CategoryJobDescription
	}

	return CategoryUnknown
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
