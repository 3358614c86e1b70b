package workflow

import (
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/classification"
	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/llm"
)

// Node is a step of the processing state machine.
type Node int

const (
	NodeClassify Node = iota
	NodeResolveClient
	NodeReject
	NodeRequestSelection
	NodeAutoAssign
	NodeExtractFinancial
	NodeDone
)

func (n Node) String() string {
	switch n {
	case NodeClassify:
		return "classify"
	case NodeResolveClient:
		return "resolve_client"
	case NodeReject:
		return "reject"
	case NodeRequestSelection:
		return "request_selection"
	case NodeAutoAssign:
		return "auto_assign"
	case NodeExtractFinancial:
		return "extract_financial"
	case NodeDone:
		return "done"
	}

	return "unknown"
}

// Context is the state of one run. It lives only as long as the run; what survives is
// written through the Coordinator.
type Context struct {
	Trace      []llm.Exchange
	Node       Node
	DocumentID uuid.UUID
	Text       string
	Metadata   document.Metadata

	Classification classification.Result
	Sender         *client.Individual

	// Outcome is nil when the category needs no client.
	Outcome    *client.Outcome
	Candidates []client.Candidate
	ClientID   *uuid.UUID

	SelectionRequired bool
	Rejected          bool
	NotificationSent  bool
	NotificationError string

	FinancialRecordID *uuid.UUID
	NoRecordReason    string

	document *document.Document
}

func newContext(doc *document.Document, sender *client.Individual) *Context {
	return &Context{
		Node:       NodeClassify,
		DocumentID: doc.ID,
		Text:       doc.ExtractedText,
		Metadata:   doc.Metadata,
		Sender:     sender,
		document:   doc,
	}
}

func (wc *Context) category() document.Category {
	return wc.Classification.Category
}

// terminalState maps the run's flags onto the document state it ends in.
func (wc *Context) terminalState() document.State {
	switch {
	case wc.NotificationSent && wc.SelectionRequired:
		return document.StateAwaitingClientSelection
	case wc.NotificationSent && wc.Rejected:
		return document.StateRejected
	}

	return document.StateProcessed
}

// Result summarises a finished run for its caller.
type Result struct {
	Success           bool              `json:"success"`
	DocumentID        uuid.UUID         `json:"document_id"`
	Category          document.Category `json:"category"`
	State             document.State    `json:"lifecycle_state"`
	FinancialRecordID *uuid.UUID        `json:"financial_record_id,omitempty"`
	NotificationSent  bool              `json:"notification_sent"`
	SelectionRequired bool              `json:"selection_required"`
}

func (wc *Context) result(state document.State) *Result {
	return &Result{
		Success:           true,
		DocumentID:        wc.DocumentID,
		Category:          wc.category(),
		State:             state,
		FinancialRecordID: wc.FinancialRecordID,
		NotificationSent:  wc.NotificationSent,
		SelectionRequired: wc.SelectionRequired,
	}
}
