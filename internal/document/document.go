package document

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrTextNotAllowed = errors.New("extracted text can only be attached to pending or failed documents")
)

// Category is the closed set of labels a document can be classified into.
type Category string

const (
	CategoryInvoice          Category = "invoice"
	CategoryReceipt          Category = "receipt"
	CategoryIDCard           Category = "id_card"
	CategoryPassport         Category = "passport"
	CategoryBankStatement    Category = "bank_statement"
	CategoryContract         Category = "contract"
	CategoryEngagementLetter Category = "engagement_letter"
	CategoryOther            Category = "other"
)

// Categories lists every valid category in prompt order.
var Categories = []Category{
	CategoryInvoice,
	CategoryReceipt,
	CategoryIDCard,
	CategoryPassport,
	CategoryBankStatement,
	CategoryContract,
	CategoryEngagementLetter,
	CategoryOther,
}

// ParseCategory returns the category matching s and whether it is part of the closed set.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if slices.Contains(Categories, c) {
		return c, true
	}

	return CategoryOther, false
}

// IsFinancial reports whether documents of this category carry a financial record.
func (c Category) IsFinancial() bool {
	return c == CategoryInvoice || c == CategoryReceipt
}

// RequiresClient reports whether documents of this category must be linked to a business client.
func (c Category) RequiresClient() bool {
	switch c {
	case CategoryInvoice, CategoryReceipt, CategoryBankStatement, CategoryContract, CategoryEngagementLetter:
		return true
	}

	return false
}

// State is the externally visible processing status of a document.
type State string

const (
	StatePending                 State = "pending"
	StateProcessing              State = "processing"
	StateProcessed               State = "processed"
	StateRejected                State = "rejected"
	StateAwaitingClientSelection State = "awaiting_client_selection"
	StateFailed                  State = "failed"
)

func (s State) rank() int {
	switch s {
	case StatePending:
		return 0
	case StateProcessing:
		return 1
	case StateProcessed, StateRejected, StateAwaitingClientSelection, StateFailed:
		return 2
	}

	return -1
}

// ParseState returns the state named s and whether it exists.
func ParseState(s string) (State, bool) {
	st := State(s)
	return st, st.rank() >= 0
}

// IsTerminal reports whether a run ends in this state.
func (s State) IsTerminal() bool {
	return s.rank() == 2
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle moving forward.
// Failed is reachable from every state; terminal states only move to themselves or failed.
func (s State) CanAdvanceTo(next State) bool {
	if next == StateFailed {
		return true
	}

	if s.IsTerminal() {
		return s == next
	}

	return next.rank() >= s.rank()
}

// Metadata describes the uploaded file and the channel it arrived through.
type Metadata struct {
	Filename      string `json:"filename"`
	MimeType      string `json:"mime_type"`
	Size          int64  `json:"size"`
	SourceChannel string `json:"source_channel"`
}

// Note is one append-only entry in a document's processing notes.
type Note struct {
	At     time.Time      `json:"at"`
	Stage  string         `json:"stage"`
	Event  string         `json:"event"`
	Detail map[string]any `json:"detail,omitempty"`
}

// NewNote stamps a note with the current time.
func NewNote(stage, event string, detail map[string]any) Note {
	return Note{
		At:     time.Now().UTC(),
		Stage:  stage,
		Event:  event,
		Detail: detail,
	}
}

// Document is an ingested business document processed by the workflow engine.
type Document struct {
	ID                 uuid.UUID
	PracticeID         uuid.UUID
	Category           *Category
	State              State
	ExtractedText      string
	Metadata           Metadata
	SenderIndividualID uuid.UUID
	AssignedClientID   *uuid.UUID
	FinancialRecordID  *uuid.UUID
	Notes              []Note
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
