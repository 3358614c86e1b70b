package view

import (
	"context"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/workflow"
)

const (
	dbTimeout  = 5 * time.Second
	runTimeout = 2 * time.Minute
)

// FormatDate formats a time.Time into YYYY-MM-DD HH:MM.
func FormatDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func FormatCategory(c *document.Category) string {
	if c == nil {
		return "-"
	}

	return string(*c)
}

// FormatResult summarises a finished run for the status line.
func FormatResult(res *workflow.Result) string {
	s := fmt.Sprintf("%s: %s", res.Category, res.State)
	if res.FinancialRecordID != nil {
		s += fmt.Sprintf(" (record %s)", res.FinancialRecordID)
	}

	return s
}

// lastError returns the detail of the most recent failure note, if any.
func lastError(doc *document.Document) string {
	for i := len(doc.Notes) - 1; i >= 0; i-- {
		if doc.Notes[i].Event != "failed" {
			continue
		}

		if msg, ok := doc.Notes[i].Detail["reason"].(string); ok {
			return msg
		}
	}

	return ""
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// RunCtx bounds a workflow run, which includes model calls.
func RunCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), runTimeout)
}
