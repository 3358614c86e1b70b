package financial

import (
	"context"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/llm"
)

const extractStage = "extract_financial"

// Extractor asks a model for a draft financial record.
type Extractor struct {
	model llm.Model
	Now   func() time.Time
}

func NewExtractor(model llm.Model) *Extractor {
	return &Extractor{
		model: model,
		Now:   time.Now,
	}
}

// Extract returns a draft for an invoice or receipt. Any error wraps ErrNoRecord; the
// exchange is returned in every case so callers can keep it on the run's trace.
func (e *Extractor) Extract(ctx context.Context, text string, category document.Category, accounts []Account) (*Draft, llm.Exchange, error) {
	if !category.IsFinancial() {
		return nil, llm.Exchange{Stage: extractStage}, ErrNotFinancial
	}

	resp, ex := llm.Call(ctx, e.model, extractStage, llm.Request{
		System: extractionSystem,
		Prompt: extractionPrompt(text, category, accounts),
		JSON:   true,
	})
	if ex.Error != "" {
		return nil, ex, fmt.Errorf("%w: %s", ErrExtractionFailed, ex.Error)
	}

	draft, err := llm.ParseObject[Draft](resp)
	if err != nil {
		return nil, ex, fmt.Errorf("%w: %v", ErrNoStructuredData, err)
	}

	if err := applyCategoryDefaults(&draft, category, e.Now()); err != nil {
		return nil, ex, err
	}

	return &draft, ex, nil
}
