// Package workflow runs a document through classification, client routing and
// financial extraction, leaving it in a terminal state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/document"
)

var ErrNoExtractedText = errors.New("document has no extracted text")

type Engine struct {
	rt          *Runtime
	concurrency int
}

// NewEngine returns an engine that runs at most concurrency documents at once in RunBatch.
func NewEngine(rt *Runtime, concurrency int) *Engine {
	return &Engine{
		rt:          rt,
		concurrency: max(concurrency, 1),
	}
}

// Run processes one document to a terminal state. When it returns an error the
// document has already been marked failed, except when the run never started.
func (e *Engine) Run(ctx context.Context, id uuid.UUID) (*Result, error) {
	doc, err := e.rt.Coordinator.Begin(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}

	wc, err := e.start(ctx, doc)
	if err != nil {
		return nil, e.fail(ctx, id, err)
	}

	for wc.Node != NodeDone {
		if err := e.step(ctx, wc); err != nil {
			return nil, e.fail(ctx, id, fmt.Errorf("%s node: %w", wc.Node, err))
		}

		next, err := transition(wc)
		if err != nil {
			return nil, e.fail(ctx, id, err)
		}

		wc.Node = next
	}

	state := wc.terminalState()

	note := document.NewNote("run", "completed", map[string]any{
		"state":              string(state),
		"notification_sent":  wc.NotificationSent,
		"selection_required": wc.SelectionRequired,
		"exchanges":          len(wc.Trace),
	})
	if wc.NotificationError != "" {
		note.Detail["notification_error"] = wc.NotificationError
	}

	if err := e.rt.Coordinator.Complete(ctx, id, state, note); err != nil {
		return nil, e.fail(ctx, id, fmt.Errorf("completing run: %w", err))
	}

	e.rt.Logger.InfoContext(ctx, "run complete",
		"document_id", id,
		"category", wc.category(),
		"state", state,
	)

	return wc.result(state), nil
}

func (e *Engine) start(ctx context.Context, doc *document.Document) (*Context, error) {
	if strings.TrimSpace(doc.ExtractedText) == "" {
		return nil, ErrNoExtractedText
	}

	sender, err := e.rt.Resolver.Sender(ctx, doc.SenderIndividualID)
	if err != nil {
		return nil, fmt.Errorf("loading sender: %w", err)
	}

	return newContext(doc, sender), nil
}

func (e *Engine) step(ctx context.Context, wc *Context) error {
	switch wc.Node {
	case NodeClassify:
		return e.classify(ctx, wc)
	case NodeResolveClient:
		return e.resolveClient(ctx, wc)
	case NodeReject:
		return e.reject(ctx, wc)
	case NodeRequestSelection:
		return e.requestSelection(ctx, wc)
	case NodeAutoAssign:
		return e.autoAssign(ctx, wc)
	case NodeExtractFinancial:
		return e.extractFinancial(ctx, wc)
	case NodeDone:
		return nil
	}

	return fmt.Errorf("unknown node %d", wc.Node)
}

func (e *Engine) fail(ctx context.Context, id uuid.UUID, err error) error {
	e.rt.Logger.ErrorContext(ctx, "run failed", "document_id", id, "error", err)
	e.rt.Coordinator.Fail(ctx, id, err)

	return err
}
