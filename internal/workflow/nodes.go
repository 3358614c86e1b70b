package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/financial"
	"github.com/MrJamesThe3rd/docflow/internal/notify"
)

func (e *Engine) classify(ctx context.Context, wc *Context) error {
	res, ex := e.rt.Classifier.Classify(ctx, wc.Text, wc.Metadata)
	wc.Trace = append(wc.Trace, ex)
	wc.Classification = res

	note := document.NewNote("classify", "classified", map[string]any{
		"category":   string(res.Category),
		"confidence": res.Confidence,
		"rationale":  res.Rationale,
		"method":     res.Method,
	})
	if err := e.rt.Coordinator.RecordClassification(ctx, wc.DocumentID, res.Category, note); err != nil {
		return fmt.Errorf("recording classification: %w", err)
	}

	e.rt.Logger.InfoContext(ctx, "classify node complete",
		"document_id", wc.DocumentID,
		"category", res.Category,
		"confidence", res.Confidence,
	)

	return nil
}

func (e *Engine) resolveClient(ctx context.Context, wc *Context) error {
	if !client.RequiresClientLink(wc.category()) {
		return nil
	}

	outcome, err := e.rt.Resolver.Resolve(ctx, wc.document, wc.Sender)
	if err != nil {
		return fmt.Errorf("resolving client: %w", err)
	}

	wc.Outcome = &outcome
	wc.Candidates = outcome.Candidates

	if outcome.Kind == client.OutcomeAlreadyLinked {
		linked := outcome.ClientID
		wc.ClientID = &linked
	}

	e.rt.Logger.InfoContext(ctx, "resolve_client node complete",
		"document_id", wc.DocumentID,
		"outcome", outcome.Kind,
		"candidates", len(outcome.Candidates),
	)

	return nil
}

func (e *Engine) reject(ctx context.Context, wc *Context) error {
	wc.Rejected = true
	wc.NotificationSent = e.send(ctx, wc, notify.TemplateDocumentRejected, map[string]string{
		"name":     wc.Sender.Name,
		"filename": wc.Metadata.Filename,
	})

	return nil
}

func (e *Engine) requestSelection(ctx context.Context, wc *Context) error {
	wc.SelectionRequired = true

	options := make([]string, len(wc.Candidates))
	for i, c := range wc.Candidates {
		options[i] = fmt.Sprintf("%d. %s", i+1, c.ClientName)
	}

	wc.NotificationSent = e.send(ctx, wc, notify.TemplateClientSelection, map[string]string{
		"name":     wc.Sender.Name,
		"filename": wc.Metadata.Filename,
		"options":  strings.Join(options, "\n"),
	})

	return nil
}

// send delivers a notification once. Failures are logged and kept on the context; they
// never fail the run.
func (e *Engine) send(ctx context.Context, wc *Context, template string, vars map[string]string) bool {
	err := e.rt.Notifier.Send(ctx, notify.Message{
		To:        wc.Sender.Phone,
		Template:  template,
		Variables: vars,
	})
	if err != nil {
		wc.NotificationError = err.Error()

		e.rt.Logger.WarnContext(ctx, "notification not sent",
			"document_id", wc.DocumentID,
			"template", template,
			"error", err,
		)

		return false
	}

	return true
}

func (e *Engine) autoAssign(ctx context.Context, wc *Context) error {
	if len(wc.Candidates) != 1 {
		return fmt.Errorf("auto assignment needs exactly one candidate, have %d", len(wc.Candidates))
	}

	assigned, err := e.rt.Coordinator.AssignClient(ctx, wc.DocumentID, wc.Candidates[0].ClientID, "auto")
	if err != nil {
		return fmt.Errorf("assigning client: %w", err)
	}

	wc.ClientID = &assigned

	return nil
}

func (e *Engine) extractFinancial(ctx context.Context, wc *Context) error {
	if wc.ClientID == nil {
		return fmt.Errorf("extraction needs a client")
	}

	accounts, err := e.rt.Accounts.ListAccounts(ctx, *wc.ClientID)
	if err != nil {
		return fmt.Errorf("loading chart of accounts: %w", err)
	}

	draft, ex, err := e.rt.Extractor.Extract(ctx, wc.Text, wc.category(), accounts)
	if ex.Prompt != "" {
		wc.Trace = append(wc.Trace, ex)
	}

	if err != nil {
		return e.noRecord(ctx, wc, err)
	}

	rec, err := e.rt.Validator.Validate(draft, wc.category(), accounts)
	if err != nil {
		return e.noRecord(ctx, wc, err)
	}

	recordID, err := e.rt.Coordinator.CreateFinancialRecord(ctx, wc.DocumentID, rec)
	if err != nil {
		return fmt.Errorf("creating financial record: %w", err)
	}

	wc.FinancialRecordID = &recordID

	e.rt.Logger.InfoContext(ctx, "extract_financial node complete",
		"document_id", wc.DocumentID,
		"record_id", recordID,
		"line_items", len(rec.LineItems),
	)

	return nil
}

// noRecord records an expected extraction outcome. Errors outside ErrNoRecord are
// infrastructure failures and fail the run.
func (e *Engine) noRecord(ctx context.Context, wc *Context, cause error) error {
	if !errors.Is(cause, financial.ErrNoRecord) {
		return cause
	}

	wc.NoRecordReason = cause.Error()

	e.rt.Logger.InfoContext(ctx, "no financial record produced",
		"document_id", wc.DocumentID,
		"reason", cause,
	)

	note := document.NewNote("extract_financial", "no_record", map[string]any{
		"reason": cause.Error(),
	})
	if err := e.rt.Coordinator.AppendNote(ctx, wc.DocumentID, note); err != nil {
		return fmt.Errorf("recording extraction outcome: %w", err)
	}

	return nil
}
