// Package persistence owns every durable write a workflow run makes. Each operation
// re-reads the document under a row lock inside its own transaction and commits before
// returning.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/financial"
)

var (
	ErrRunInProgress   = errors.New("document is already being processed")
	ErrNotProcessing   = errors.New("document is not in processing state")
	ErrStateRegression = errors.New("state change would move the document backwards")
	ErrNoClient        = errors.New("document has no assigned client")
	ErrDuplicateRecord = errors.New("financial record already exists for document")
)

//go:generate mockgen -source=coordinator.go -destination=repository_mock.go -package=persistence
type Repository interface {
	Begin(ctx context.Context) (Tx, error)
}

type Tx interface {
	LockDocument(ctx context.Context, id uuid.UUID) (*document.Document, error)
	UpdateState(ctx context.Context, id uuid.UUID, state document.State) error
	UpdateCategory(ctx context.Context, id uuid.UUID, category document.Category) error
	UpdateAssignedClient(ctx context.Context, id, clientID uuid.UUID) error
	UpdateFinancialRecord(ctx context.Context, id, recordID uuid.UUID) error
	AppendNotes(ctx context.Context, id uuid.UUID, notes []document.Note) error
	CreateRecord(ctx context.Context, rec *financial.Record) error
	CreateLineItem(ctx context.Context, recordID uuid.UUID, item *financial.LineItem) error
	Commit() error
	Rollback() error
}

type Coordinator struct {
	repo       Repository
	logger     *slog.Logger
	staleAfter time.Duration
	Now        func() time.Time
}

// NewCoordinator returns a coordinator that treats a processing run older than
// staleAfter as abandoned.
func NewCoordinator(repo Repository, logger *slog.Logger, staleAfter time.Duration) *Coordinator {
	return &Coordinator{
		repo:       repo,
		logger:     logger,
		staleAfter: staleAfter,
		Now:        time.Now,
	}
}

func withTx[T any](ctx context.Context, repo Repository, fn func(tx Tx) (T, error)) (T, error) {
	var zero T

	tx, err := repo.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("committing transaction: %w", err)
	}

	return result, nil
}

// Begin starts a run: the document moves to processing unless another run holds it.
func (c *Coordinator) Begin(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return withTx(ctx, c.repo, func(tx Tx) (*document.Document, error) {
		doc, err := tx.LockDocument(ctx, id)
		if err != nil {
			return nil, err
		}

		if doc.State == document.StateProcessing && c.Now().Sub(doc.UpdatedAt) < c.staleAfter {
			return nil, ErrRunInProgress
		}

		if err := tx.UpdateState(ctx, id, document.StateProcessing); err != nil {
			return nil, err
		}

		note := document.NewNote("run", "started", map[string]any{
			"previous_state": string(doc.State),
		})
		if err := tx.AppendNotes(ctx, id, []document.Note{note}); err != nil {
			return nil, err
		}

		doc.State = document.StateProcessing
		doc.Notes = append(doc.Notes, note)

		return doc, nil
	})
}

// RecordClassification stores the category with a note carrying confidence and rationale.
func (c *Coordinator) RecordClassification(ctx context.Context, id uuid.UUID, category document.Category, note document.Note) error {
	_, err := withTx(ctx, c.repo, func(tx Tx) (struct{}, error) {
		if _, err := lockProcessing(ctx, tx, id); err != nil {
			return struct{}{}, err
		}

		if err := tx.UpdateCategory(ctx, id, category); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, tx.AppendNotes(ctx, id, []document.Note{note})
	})

	return err
}

// AssignClient links the document to clientID and returns the committed link. A client
// that is already linked is never replaced; its id is returned instead.
func (c *Coordinator) AssignClient(ctx context.Context, id, clientID uuid.UUID, source string) (uuid.UUID, error) {
	return withTx(ctx, c.repo, func(tx Tx) (uuid.UUID, error) {
		doc, err := tx.LockDocument(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}

		if doc.AssignedClientID != nil {
			if *doc.AssignedClientID != clientID {
				c.logger.WarnContext(ctx, "client already assigned, keeping existing link",
					"document_id", id,
					"assigned_client_id", *doc.AssignedClientID,
					"requested_client_id", clientID,
				)
			}

			return *doc.AssignedClientID, nil
		}

		if err := tx.UpdateAssignedClient(ctx, id, clientID); err != nil {
			return uuid.Nil, err
		}

		note := document.NewNote("resolve_client", "client_assigned", map[string]any{
			"client_id": clientID.String(),
			"source":    source,
		})
		if err := tx.AppendNotes(ctx, id, []document.Note{note}); err != nil {
			return uuid.Nil, err
		}

		return clientID, nil
	})
}

// CreateFinancialRecord persists rec and its line items, then links the document to it.
// A document that already has a record keeps it and the existing id is returned. Line
// items that cannot be stored are skipped and logged.
func (c *Coordinator) CreateFinancialRecord(ctx context.Context, id uuid.UUID, rec *financial.Record) (uuid.UUID, error) {
	return withTx(ctx, c.repo, func(tx Tx) (uuid.UUID, error) {
		doc, err := lockProcessing(ctx, tx, id)
		if err != nil {
			return uuid.Nil, err
		}

		if doc.FinancialRecordID != nil {
			c.logger.InfoContext(ctx, "financial record already exists",
				"document_id", id,
				"record_id", *doc.FinancialRecordID,
			)

			return *doc.FinancialRecordID, nil
		}

		if doc.AssignedClientID == nil {
			return uuid.Nil, ErrNoClient
		}

		rec.DocumentID = doc.ID
		rec.PracticeID = doc.PracticeID
		rec.ClientID = *doc.AssignedClientID

		if err := tx.CreateRecord(ctx, rec); err != nil {
			return uuid.Nil, err
		}

		kept := rec.LineItems[:0]
		skipped := 0

		for i := range rec.LineItems {
			item := rec.LineItems[i]

			err := item.Check()
			if err == nil {
				err = tx.CreateLineItem(ctx, rec.ID, &item)
			}

			if err != nil {
				skipped++

				c.logger.WarnContext(ctx, "skipping line item",
					"document_id", id,
					"position", item.Position,
					"error", err,
				)

				continue
			}

			kept = append(kept, item)
		}

		rec.LineItems = kept

		if err := tx.UpdateFinancialRecord(ctx, id, rec.ID); err != nil {
			return uuid.Nil, err
		}

		note := document.NewNote("extract_financial", "record_created", map[string]any{
			"record_id":          rec.ID.String(),
			"line_items":         len(kept),
			"line_items_skipped": skipped,
			"total_amount":       rec.TotalAmount.StringFixed(2),
		})
		if err := tx.AppendNotes(ctx, id, []document.Note{note}); err != nil {
			return uuid.Nil, err
		}

		return rec.ID, nil
	})
}

// AppendNote adds a note without touching any other field.
func (c *Coordinator) AppendNote(ctx context.Context, id uuid.UUID, note document.Note) error {
	_, err := withTx(ctx, c.repo, func(tx Tx) (struct{}, error) {
		if _, err := tx.LockDocument(ctx, id); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, tx.AppendNotes(ctx, id, []document.Note{note})
	})

	return err
}

// Complete moves the document to its terminal state for this run.
func (c *Coordinator) Complete(ctx context.Context, id uuid.UUID, state document.State, note document.Note) error {
	_, err := withTx(ctx, c.repo, func(tx Tx) (struct{}, error) {
		doc, err := tx.LockDocument(ctx, id)
		if err != nil {
			return struct{}{}, err
		}

		if !doc.State.CanAdvanceTo(state) {
			return struct{}{}, fmt.Errorf("%w: %s to %s", ErrStateRegression, doc.State, state)
		}

		if err := tx.UpdateState(ctx, id, state); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, tx.AppendNotes(ctx, id, []document.Note{note})
	})

	return err
}

// Fail marks the document failed with the cause in its notes. It runs even when ctx is
// already cancelled and only logs its own errors.
func (c *Coordinator) Fail(ctx context.Context, id uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)

	_, err := withTx(ctx, c.repo, func(tx Tx) (struct{}, error) {
		if _, err := tx.LockDocument(ctx, id); err != nil {
			return struct{}{}, err
		}

		if err := tx.UpdateState(ctx, id, document.StateFailed); err != nil {
			return struct{}{}, err
		}

		note := document.NewNote("run", "failed", map[string]any{
			"reason": cause.Error(),
		})

		return struct{}{}, tx.AppendNotes(ctx, id, []document.Note{note})
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "recording run failure",
			"document_id", id,
			"cause", cause,
			"error", err,
		)
	}
}

func lockProcessing(ctx context.Context, tx Tx, id uuid.UUID) (*document.Document, error) {
	doc, err := tx.LockDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.State != document.StateProcessing {
		return nil, fmt.Errorf("%w: %s", ErrNotProcessing, doc.State)
	}

	return doc, nil
}
