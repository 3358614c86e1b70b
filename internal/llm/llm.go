// Package llm wraps the generative model used for document classification and
// financial data extraction, and the helpers stages use to read its output.
package llm

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyResponse = errors.New("model returned no content")

// Request is a single prompt sent to a model. JSON asks the model for a JSON-only response;
// callers must still tolerate free text.
type Request struct {
	System string
	Prompt string
	JSON   bool
}

//go:generate mockgen -source=llm.go -destination=model_mock.go -package=llm
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Exchange is one prompt/response pair kept on a run's reasoning trace.
type Exchange struct {
	Stage    string    `json:"stage"`
	Prompt   string    `json:"prompt"`
	Response string    `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Call runs req against m and records the exchange regardless of outcome.
func Call(ctx context.Context, m Model, stage string, req Request) (string, Exchange) {
	ex := Exchange{
		Stage:  stage,
		Prompt: req.Prompt,
		At:     time.Now().UTC(),
	}

	resp, err := m.Generate(ctx, req)
	if err != nil {
		ex.Error = err.Error()
		return "", ex
	}

	ex.Response = resp

	return resp, ex
}
