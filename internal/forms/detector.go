// File: internal/forms/detector.go
package forms

import (
	"context"
	"fmt"

	"github.com/hireflow/autoapply/internal/browser"
)

// detectJS extracts every <form> with its non-hidden interactive controls.
// Selectors prefer stable attributes (id, then name scoped to the form) and
// fall back to positional paths, so the filler can address each control on
// the live page afterwards.
const detectJS = `(() => {
    const forms = Array.from(document.querySelectorAll('form'));
    return forms.map((form, formIdx) => {
        const formSelector = 'form:nth-of-type(' + (formIdx + 1) + ')';
        const controls = Array.from(
            form.querySelectorAll('input:not([type="hidden"]), select, textarea'));

        const fields = controls.map((el, elIdx) => {
            let selector;
            if (el.id) {
                selector = '#' + CSS.escape(el.id);
            } else if (el.name) {
                selector = formSelector + ' [name="' + el.name.replace(/"/g, '\\"') + '"]';
            } else {
                selector = formSelector + ' ' + el.tagName.toLowerCase() +
                    ':nth-of-type(' + (elIdx + 1) + ')';
            }

            let label = '';
            if (el.id) {
                const labelled = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
                if (labelled) label = labelled.innerText.trim();
            }
            if (!label) {
                const wrapping = el.closest('label');
                if (wrapping) label = wrapping.innerText.trim();
            }

            return {
                name: el.name || '',
                id: el.id || '',
                placeholder: el.placeholder || '',
                label: label,
                type: (el.type || el.tagName.toLowerCase()),
                selector: selector
            };
        });

        return { index: formIdx, selector: formSelector, fields: fields };
    });
})()`

// Detect scans the live page for candidate forms. The result is unfiltered;
// callers apply Filter before matching.
func Detect(ctx context.Context, page *browser.Page) ([]Descriptor, error) {
	var detected []Descriptor
	if err := page.Evaluate(ctx, detectJS, &detected); err != nil {
		return nil, fmt.Errorf("form detection failed: %w", err)
	}
	return detected, nil
}
