// File: internal/forms/forms_test.go
package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func makeForm(index int, fields ...Field) Descriptor {
	return Descriptor{Index: index, Selector: "form", Fields: fields}
}

func namedFields(names ...string) []Field {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n, Type: "text", Selector: "[name=" + n + "]"}
	}
	return fields
}

func TestFilter_SubstantiveThreshold(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("three fields is noise", func(t *testing.T) {
		small := makeForm(0, namedFields("q", "location", "radius")...)
		assert.Empty(t, Filter([]Descriptor{small}, logger))
	})

	t.Run("four fields survives", func(t *testing.T) {
		ok := makeForm(0, namedFields("q1", "q2", "q3", "q4")...)
		assert.Len(t, Filter([]Descriptor{ok}, logger), 1)
	})
}

func TestFilter_ExclusionKeywords(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("search form is dropped", func(t *testing.T) {
		search := makeForm(0, namedFields("search_query", "job_category", "salary_band", "distance")...)
		assert.Empty(t, Filter([]Descriptor{search}, logger))
	})

	t.Run("newsletter form is dropped", func(t *testing.T) {
		news := makeForm(0,
			Field{ID: "newsletter-topic"}, Field{ID: "newsletter-freq"},
			Field{ID: "newsletter-lang"}, Field{ID: "newsletter-consent"})
		assert.Empty(t, Filter([]Descriptor{news}, logger))
	})

	t.Run("inclusion signal overrides exclusion", func(t *testing.T) {
		// A "login"-tagged form that still asks for email/phone/resume is an
		// application form behind an account-creation step.
		mixed := makeForm(0, namedFields("login_id", "email", "phone", "resume_url")...)
		assert.Len(t, Filter([]Descriptor{mixed}, logger), 1)
	})

	t.Run("clean application form passes", func(t *testing.T) {
		app := makeForm(1, namedFields("first_name", "last_name", "email", "phone")...)
		kept := Filter([]Descriptor{app}, logger)
		assert.Len(t, kept, 1)
		assert.Equal(t, 1, kept[0].Index)
	})
}

func TestFilter_PreservesOrder(t *testing.T) {
	logger := zaptest.NewLogger(t)

	first := makeForm(0, namedFields("first_name", "last_name", "email", "phone")...)
	noise := makeForm(1, namedFields("search", "filter")...)
	second := makeForm(2, namedFields("cover_letter", "portfolio", "linkedin", "github")...)

	kept := Filter([]Descriptor{first, noise, second}, logger)
	assert.Len(t, kept, 2)
	assert.Equal(t, 0, kept[0].Index)
	assert.Equal(t, 2, kept[1].Index)
}

func TestFieldIdentifier(t *testing.T) {
	f := Field{Name: "First_Name", ID: "applicant-first", Placeholder: "First name", Label: "Given name"}
	id := f.Identifier()
	assert.Contains(t, id, "first_name")
	assert.Contains(t, id, "applicant-first")
	assert.NotContains(t, id, "First")
}
