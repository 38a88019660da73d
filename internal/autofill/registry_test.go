// File: internal/autofill/registry_test.go
package autofill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestHandlerForHostname(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))

	tests := []struct {
		url  string
		want string
	}{
		{"https://remoteok.com/remote-jobs/12345", "remoteok"},
		{"https://remoteok.io/remote-jobs/12345", "remoteok"},
		{"https://www.indeed.com/viewjob?jk=abc", "indeed"},
		{"https://uk.indeed.com/viewjob?jk=abc", "indeed"},
		{"https://www.linkedin.com/jobs/view/999", "linkedin"},
		{"https://jobs.example.com/careers/42", "generic"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			h := registry.HandlerFor(tt.url, "")
			assert.Equal(t, tt.want, h.Name())
		})
	}
}

func TestHandlerForSourceHint(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))

	// Aggregator redirect URLs carry no usable hostname; the hint decides.
	h := registry.HandlerFor("https://aggregator.example.com/out/123", "RemoteOK")
	assert.Equal(t, "remoteok", h.Name())

	h = registry.HandlerFor("https://aggregator.example.com/out/123", "  indeed  ")
	assert.Equal(t, "indeed", h.Name())
}

func TestHandlerHostnameBeatsSourceHint(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))

	h := registry.HandlerFor("https://www.linkedin.com/jobs/view/999", "remoteok")
	assert.Equal(t, "linkedin", h.Name())
}

func TestHandlerForGarbageInput(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))

	assert.Equal(t, "generic", registry.HandlerFor("::not a url::", "").Name())
	assert.Equal(t, "generic", registry.HandlerFor("", "unknown-board").Name())
}
