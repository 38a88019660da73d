// File: internal/autofill/handler.go
// Description: The site-handler strategy interface and the generic default
// implementation. Site-specific handlers only ever customize page
// preparation; the matching and filling behavior is shared.

package autofill

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/classifier"
	"github.com/hireflow/autoapply/internal/forms"
	"github.com/hireflow/autoapply/internal/profile"
)

// Handler is the per-site strategy. PreparePage navigates from wherever the
// job link landed to the actual application form (clicking through "Apply"
// buttons, following new tabs); FillForm maps and fills one detected form.
type Handler interface {
	Name() string

	// PreparePage returns the page the form detector should run against.
	// Implementations return the input page unchanged when no preparation is
	// needed or possible (best-effort degradation), and ErrLoginRequired
	// when an auth wall blocks all further progress.
	PreparePage(ctx context.Context, b *browser.Browser, page *browser.Page) (*browser.Page, error)

	// FillForm fills every mappable field of one form. Per-field failures
	// are logged and skipped, never returned: partial fills are worth more
	// than aborted ones.
	FillForm(ctx context.Context, page *browser.Page, form forms.Descriptor, flat profile.Flat) []forms.FilledField
}

// GenericHandler is the shared default. Site handlers embed it to inherit
// FillForm and override only preparation.
type GenericHandler struct {
	logger *zap.Logger
}

// NewGenericHandler builds the default handler.
func NewGenericHandler(logger *zap.Logger) *GenericHandler {
	return &GenericHandler{logger: logger.Named("handler.generic")}
}

// Name implements Handler.
func (h *GenericHandler) Name() string { return "generic" }

// PreparePage checks for an auth wall and otherwise leaves the page alone.
func (h *GenericHandler) PreparePage(ctx context.Context, _ *browser.Browser, page *browser.Page) (*browser.Page, error) {
	category, err := classifier.ClassifyPage(ctx, page)
	if err != nil {
		return page, fmt.Errorf("page classification failed: %w", err)
	}
	if category == classifier.CategoryLogin || category == classifier.CategoryRegister {
		return page, fmt.Errorf("%s page detected: %w", category, ErrLoginRequired)
	}
	return page, nil
}

// FillForm implements the heuristic matcher (see matcher.go) with
// type-dispatched filling.
func (h *GenericHandler) FillForm(ctx context.Context, page *browser.Page, form forms.Descriptor, flat profile.Flat) []forms.FilledField {
	var filled []forms.FilledField

	for _, field := range form.Fields {
		canonical, value, ok := matchField(field, flat)
		if !ok {
			h.logger.Debug("No profile value for field; skipping.",
				zap.String("field", field.Identifier()))
			continue
		}

		switch field.Type {
		case "file":
			// Upload automation is out of scope; leave file inputs alone.
			h.logger.Debug("Skipping file input.", zap.String("field", canonical))
			continue
		case "checkbox":
			if !truthy(value) {
				continue
			}
		}

		if err := h.fillOne(ctx, page, field, value); err != nil {
			// Deliberate partial-failure tolerance: one stubborn field must
			// not abort the rest of the form.
			h.logger.Warn("Could not fill field.",
				zap.String("field", canonical),
				zap.String("selector", field.Selector),
				zap.Error(err))
			continue
		}

		filled = append(filled, forms.FilledField{Field: canonical, Value: value, Type: field.Type})
		h.logger.Debug("Filled field.", zap.String("field", canonical), zap.String("type", field.Type))
	}

	return filled
}

// fillOne waits for the field's selector and sets its value according to the
// control type, firing input/change so framework-bound forms notice.
func (h *GenericHandler) fillOne(ctx context.Context, page *browser.Page, field forms.Field, value string) error {
	if err := page.WaitVisible(ctx, field.Selector); err != nil {
		return err
	}

	selJSON, err := json.Marshal(field.Selector)
	if err != nil {
		return fmt.Errorf("selector not encodable: %w", err)
	}
	valJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("value not encodable: %w", err)
	}

	script := fmt.Sprintf(`(() => {
        const el = document.querySelector(%s);
        if (!el) return 'missing';
        const type = (el.type || el.tagName.toLowerCase());
        if (type === 'checkbox' || type === 'radio') {
            el.checked = true;
        } else if (el.tagName.toLowerCase() === 'select') {
            el.value = %s;
            if (el.selectedIndex === -1) return 'no-option';
        } else {
            el.focus();
            el.value = %s;
        }
        el.dispatchEvent(new Event('input', { bubbles: true }));
        el.dispatchEvent(new Event('change', { bubbles: true }));
        return 'ok';
    })()`, selJSON, valJSON, valJSON)

	var result string
	if err := page.Evaluate(ctx, script, &result); err != nil {
		return fmt.Errorf("fill evaluation failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("fill reported %q for selector '%s'", result, field.Selector)
	}
	return nil
}
