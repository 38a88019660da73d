// File: internal/classifier/snapshot.go
package classifier

import (
	"context"
	"fmt"

	"github.com/hireflow/autoapply/internal/browser"
)

// snapshotJS computes the classification snapshot inside the page. It is a
// pure function of the live DOM returning a plain serializable object, so it
// crosses the CDP boundary as JSON.
const snapshotJS = `(() => {
    const visible = (el) => el.offsetWidth > 0 && el.offsetHeight > 0;

    const substantiveFormCount = Array.from(document.querySelectorAll('form'))
        .filter(form => {
            const controls = form.querySelectorAll('input:not([type="hidden"]), select, textarea');
            return controls.length > 3;
        }).length;

    const applyRe = /apply|start application/i;
    const candidates = Array.from(document.querySelectorAll(
        'button, a, input[type="button"], input[type="submit"]'));
    const hasVisibleApplyControl = candidates.some(el => {
        if (!visible(el)) return false;
        const text = (el.innerText || el.value || '').trim();
        return applyRe.test(text);
    });

    return {
        url: window.location.href,
        title: document.title || '',
        visibleTextLength: (document.body ? document.body.innerText : '').length,
        hasPasswordInput: document.querySelector('input[type="password"]') !== null,
        hasFileInput: document.querySelector('input[type="file"]') !== null,
        substantiveFormCount: substantiveFormCount,
        hasVisibleApplyControl: hasVisibleApplyControl
    };
})()`

// TakeSnapshot evaluates the snapshot function on the live page.
func TakeSnapshot(ctx context.Context, page *browser.Page) (Snapshot, error) {
	var snap Snapshot
	if err := page.Evaluate(ctx, snapshotJS, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to snapshot page for classification: %w", err)
	}
	return snap, nil
}

// ClassifyPage is the convenience composition used by the orchestrator and
// the site handlers.
func ClassifyPage(ctx context.Context, page *browser.Page) (Category, error) {
	snap, err := TakeSnapshot(ctx, page)
	if err != nil {
		return CategoryUnknown, err
	}
	return Classify(snap), nil
}
