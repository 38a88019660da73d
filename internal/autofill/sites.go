// File: internal/autofill/sites.go
// Description: Indeed and LinkedIn handlers. Both boards gate most postings
// behind accounts, so their preparation is mostly about surfacing the login
// wall early instead of wasting a detection pass.

package autofill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/classifier"
)

// IndeedHandler drives indeed.com postings.
type IndeedHandler struct {
	*GenericHandler
	logger *zap.Logger
}

// NewIndeedHandler builds the Indeed handler.
func NewIndeedHandler(logger *zap.Logger) *IndeedHandler {
	return &IndeedHandler{
		GenericHandler: NewGenericHandler(logger),
		logger:         logger.Named("handler.indeed"),
	}
}

// Name implements Handler.
func (h *IndeedHandler) Name() string { return "indeed" }

// indeedApplySelectors cover the apply button variants Indeed ships.
var indeedApplySelectors = []string{
	"#indeedApplyButton",
	".jobsearch-IndeedApplyButton-newDesign",
	".ia-IndeedApplyButton",
}

// PreparePage classifies first (Indeed interleaves login prompts with
// postings), then clicks through the native apply widget when present.
func (h *IndeedHandler) PreparePage(ctx context.Context, b *browser.Browser, page *browser.Page) (*browser.Page, error) {
	category, err := classifier.ClassifyPage(ctx, page)
	if err != nil {
		return page, fmt.Errorf("page classification failed: %w", err)
	}
	switch category {
	case classifier.CategoryLogin, classifier.CategoryRegister:
		return page, fmt.Errorf("%s page detected: %w", category, ErrLoginRequired)
	case classifier.CategoryApplication:
		return page, nil
	}

	for _, selector := range indeedApplySelectors {
		if err := page.Click(ctx, selector); err != nil {
			continue
		}
		page.Settle(ctx)
		category, err := classifier.ClassifyPage(ctx, page)
		if err != nil {
			break
		}
		if category == classifier.CategoryLogin || category == classifier.CategoryRegister {
			return page, fmt.Errorf("%s wall behind apply widget: %w", category, ErrLoginRequired)
		}
		h.logger.Debug("Clicked Indeed apply widget.", zap.String("selector", selector))
		break
	}
	return page, nil
}

// LinkedInHandler drives linkedin.com postings.
type LinkedInHandler struct {
	*GenericHandler
	logger *zap.Logger
}

// NewLinkedInHandler builds the LinkedIn handler.
func NewLinkedInHandler(logger *zap.Logger) *LinkedInHandler {
	return &LinkedInHandler{
		GenericHandler: NewGenericHandler(logger),
		logger:         logger.Named("handler.linkedin"),
	}
}

// Name implements Handler.
func (h *LinkedInHandler) Name() string { return "linkedin" }

// PreparePage surfaces LinkedIn's pervasive auth wall and otherwise opens
// the Easy Apply modal when one exists.
func (h *LinkedInHandler) PreparePage(ctx context.Context, b *browser.Browser, page *browser.Page) (*browser.Page, error) {
	category, err := classifier.ClassifyPage(ctx, page)
	if err != nil {
		return page, fmt.Errorf("page classification failed: %w", err)
	}
	switch category {
	case classifier.CategoryLogin, classifier.CategoryRegister:
		return page, fmt.Errorf("%s page detected: %w", category, ErrLoginRequired)
	case classifier.CategoryApplication:
		return page, nil
	}

	if err := page.Click(ctx, ".jobs-apply-button"); err == nil {
		page.Settle(ctx)
		category, err := classifier.ClassifyPage(ctx, page)
		if err == nil && (category == classifier.CategoryLogin || category == classifier.CategoryRegister) {
			return page, fmt.Errorf("%s wall behind Easy Apply: %w", category, ErrLoginRequired)
		}
		h.logger.Debug("Opened Easy Apply modal.")
	}
	return page, nil
}
