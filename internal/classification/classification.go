// Package classification labels extracted document text with a category from the
// closed set in package document.
package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/llm"
)

const stage = "classify"

// Confidence assigned when the model output cannot be read as a category.
const (
	FallbackConfidence   = 0.1
	FirstTokenConfidence = 0.5
	KeywordConfidence    = 0.3
	defaultConfidence    = 0.5
	maxPromptText        = 12000
)

// Result is a category label with the model's confidence and rationale.
type Result struct {
	Category   document.Category `json:"category"`
	Confidence float64           `json:"confidence"`
	Rationale  string            `json:"rationale"`
	Method     string            `json:"method"`
}

// Parse methods recorded on a Result.
const (
	MethodStructured = "structured"
	MethodFirstToken = "first_token"
	MethodKeyword    = "keyword"
	MethodFallback   = "fallback"
)

type Classifier struct {
	model  llm.Model
	logger *slog.Logger
}

func NewClassifier(model llm.Model, logger *slog.Logger) *Classifier {
	return &Classifier{
		model:  model,
		logger: logger,
	}
}

// Classify never fails: model errors and unreadable output become CategoryOther with
// FallbackConfidence. The exchange is returned for the run's trace.
func (c *Classifier) Classify(ctx context.Context, text string, meta document.Metadata) (Result, llm.Exchange) {
	resp, ex := llm.Call(ctx, c.model, stage, llm.Request{
		System: systemPrompt(),
		Prompt: userPrompt(text, meta),
		JSON:   true,
	})
	if ex.Error != "" {
		c.logger.WarnContext(ctx, "classification unavailable, using fallback", "error", ex.Error)
		return fallback("classification unavailable: " + ex.Error), ex
	}

	return Interpret(resp), ex
}

type response struct {
	Category   string          `json:"category"`
	Confidence json.RawMessage `json:"confidence"`
	Rationale  string          `json:"rationale"`
}

// Interpret reads a model response. Structured JSON is preferred; free text falls back
// to its first token and then to keyword recovery.
func Interpret(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback("empty response")
	}

	if resp, err := llm.ParseObject[response](raw); err == nil && strings.TrimSpace(resp.Category) != "" {
		category, ok := document.ParseCategory(normalizeLabel(resp.Category))
		if !ok {
			return Result{
				Category:   document.CategoryOther,
				Confidence: FallbackConfidence,
				Rationale:  resp.Rationale,
				Method:     MethodFallback,
			}
		}

		return Result{
			Category:   category,
			Confidence: confidence(resp.Confidence),
			Rationale:  resp.Rationale,
			Method:     MethodStructured,
		}
	}

	if category, ok := firstToken(raw); ok {
		return Result{
			Category:   category,
			Confidence: FirstTokenConfidence,
			Rationale:  raw,
			Method:     MethodFirstToken,
		}
	}

	if category, ok := recoverFromKeywords(raw); ok {
		return Result{
			Category:   category,
			Confidence: KeywordConfidence,
			Rationale:  raw,
			Method:     MethodKeyword,
		}
	}

	return fallback(raw)
}

func fallback(rationale string) Result {
	return Result{
		Category:   document.CategoryOther,
		Confidence: FallbackConfidence,
		Rationale:  rationale,
		Method:     MethodFallback,
	}
}

// normalizeLabel maps "Bank Statement", "id-card" and similar to category identifiers.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, `"'*.:,;!`)

	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

func firstToken(raw string) (document.Category, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return document.CategoryOther, false
	}

	candidates := []string{fields[0]}
	if len(fields) > 1 {
		candidates = append([]string{fields[0] + " " + fields[1]}, candidates...)
	}

	for _, c := range candidates {
		if category, ok := document.ParseCategory(normalizeLabel(c)); ok {
			return category, true
		}
	}

	return document.CategoryOther, false
}

// confidence accepts a number, a numeric string, or a low/medium/high label, clamped to [0,1].
func confidence(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return defaultConfidence
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return defaultConfidence
		}

		f = labelConfidence(s)
	}

	if f > 1 && f <= 100 {
		f /= 100
	}

	return min(max(f, 0), 1)
}

func labelConfidence(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "high":
		return 0.9
	case "medium":
		return 0.6
	case "low":
		return 0.3
	}

	if f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err == nil {
		return f
	}

	return defaultConfidence
}

func systemPrompt() string {
	labels := make([]string, len(document.Categories))
	for i, c := range document.Categories {
		labels[i] = string(c)
	}

	return fmt.Sprintf(`You classify business documents received by an accounting practice.
Choose exactly one category from: %s.
Respond with one JSON object and nothing else:
{"category": "<category>", "confidence": <number between 0 and 1>, "rationale": "<one sentence>"}
Use "other" when no category fits.`, strings.Join(labels, ", "))
}

func userPrompt(text string, meta document.Metadata) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Filename: %s\n", meta.Filename)
	fmt.Fprintf(&sb, "MIME type: %s\n", meta.MimeType)

	if meta.SourceChannel != "" {
		fmt.Fprintf(&sb, "Received via: %s\n", meta.SourceChannel)
	}

	sb.WriteString("\nDocument text:\n")

	r := []rune(text)
	if len(r) > maxPromptText {
		r = r[:maxPromptText]
	}

	sb.WriteString(string(r))

	return sb.String()
}
