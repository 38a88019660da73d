// File: internal/autofill/errors.go
package autofill

import "errors"

// Sentinel errors for the orchestration-level failure taxonomy. Intermediate
// layers that catch-and-continue must check errors.Is against these and
// re-throw; ErrLoginRequired in particular has to survive every generic
// recovery path on its way up.
var (
	// ErrLoginRequired means an authentication or registration wall was hit
	// where an application form was expected. Fatal and non-retryable: no
	// further automated progress is possible.
	ErrLoginRequired = errors.New("login required")

	// ErrNoApplicationForms means form detection ran but nothing survived
	// the noise filter; there is nothing to fill.
	ErrNoApplicationForms = errors.New("no application forms found on page")

	// ErrNothingFilled means forms existed but not a single field could be
	// mapped, signaling an unsupported layout or an empty profile.
	ErrNothingFilled = errors.New("no fields could be filled")

	// ErrPageLost means the active page closed mid-flow and no other open
	// tab could be recovered.
	ErrPageLost = errors.New("active page closed and no recoverable tab found")
)
