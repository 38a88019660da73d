// File: internal/autofill/registry.go
package autofill

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Registry resolves the handler for a target. Hostname substring match takes
// priority; the caller-supplied job-source hint is the fallback signal; the
// generic handler is the default. New site handlers register by hostname
// pattern - a closed, extensible variant set rather than a class hierarchy.
type Registry struct {
	logger  *zap.Logger
	generic *GenericHandler

	// byHost is scanned in order; first substring match wins.
	byHost []hostEntry
	// bySource maps job-source hints to handlers by exact (case-insensitive)
	// equality.
	bySource map[string]Handler
}

type hostEntry struct {
	pattern string
	handler Handler
}

// NewRegistry wires up the built-in handler set.
func NewRegistry(logger *zap.Logger) *Registry {
	remoteok := NewRemoteOKHandler(logger)
	indeed := NewIndeedHandler(logger)
	linkedin := NewLinkedInHandler(logger)

	return &Registry{
		logger:  logger.Named("dispatch"),
		generic: NewGenericHandler(logger),
		byHost: []hostEntry{
			{"remoteok.com", remoteok},
			{"remoteok.io", remoteok},
			{"indeed.com", indeed},
			{"linkedin.com", linkedin},
		},
		bySource: map[string]Handler{
			"remoteok": remoteok,
			"indeed":   indeed,
			"linkedin": linkedin,
		},
	}
}

// HandlerFor selects a handler for the target URL and optional source hint.
func (r *Registry) HandlerFor(target, jobSource string) Handler {
	if u, err := url.Parse(target); err == nil {
		host := strings.ToLower(u.Hostname())
		for _, entry := range r.byHost {
			if strings.Contains(host, entry.pattern) {
				r.logger.Debug("Handler selected by hostname.",
					zap.String("handler", entry.handler.Name()), zap.String("host", host))
				return entry.handler
			}
		}
	}

	if h, ok := r.bySource[strings.ToLower(strings.TrimSpace(jobSource))]; ok {
		r.logger.Debug("Handler selected by job-source hint.",
			zap.String("handler", h.Name()), zap.String("job_source", jobSource))
		return h
	}

	return r.generic
}
