package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/database"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/financial"
	financialStore "github.com/MrJamesThe3rd/docflow/internal/financial/store"
	"github.com/MrJamesThe3rd/docflow/internal/persistence"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectDocumentColumns = `
	id, practice_id, category, state, extracted_text, metadata, sender_individual_id,
	assigned_client_id, financial_record_id, processing_notes, created_at, updated_at
`

// scanDocument reads a row in selectDocumentColumns order.
func scanDocument(s scanner) (*document.Document, error) {
	var doc document.Document

	var category sql.NullString

	var state string

	var metadata, notes []byte

	if err := s.Scan(
		&doc.ID, &doc.PracticeID, &category, &state, &doc.ExtractedText, &metadata, &doc.SenderIndividualID,
		&doc.AssignedClientID, &doc.FinancialRecordID, &notes, &doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	doc.State = document.State(state)

	if category.Valid {
		c := document.Category(category.String)
		doc.Category = &c
	}

	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}

	if err := json.Unmarshal(notes, &doc.Notes); err != nil {
		return nil, fmt.Errorf("decoding processing notes: %w", err)
	}

	return &doc, nil
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, document.ErrNotFound
		}

		return nil, fmt.Errorf("getting document: %w", err)
	}

	return doc, nil
}

func (s *Store) ListByState(ctx context.Context, state document.State) ([]*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + `
		FROM documents
		WHERE state = $1
		ORDER BY updated_at ASC`

	rows, err := s.db.QueryContext(ctx, query, state)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return docs, nil
}

func (s *Store) UpdateExtractedText(ctx context.Context, id uuid.UUID, text string, note document.Note) error {
	notes, err := json.Marshal([]document.Note{note})
	if err != nil {
		return fmt.Errorf("encoding note: %w", err)
	}

	query := `
		UPDATE documents
		SET extracted_text = $1, processing_notes = processing_notes || $2::jsonb, updated_at = NOW()
		WHERE id = $3
	`

	res, err := s.db.ExecContext(ctx, query, text, string(notes), id)
	if err != nil {
		return fmt.Errorf("updating extracted text: %w", err)
	}

	return expectOne(res)
}

type runTx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (persistence.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning run tx: %w", err)
	}

	return &runTx{tx: dbTx}, nil
}

func (rt *runTx) Commit() error   { return rt.tx.Commit() }
func (rt *runTx) Rollback() error { return rt.tx.Rollback() }

func (rt *runTx) LockDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`

	doc, err := scanDocument(rt.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, document.ErrNotFound
		}

		return nil, fmt.Errorf("locking document: %w", err)
	}

	return doc, nil
}

func (rt *runTx) UpdateState(ctx context.Context, id uuid.UUID, state document.State) error {
	return rt.update(ctx, "updating state", `SET state = $1`, id, state)
}

func (rt *runTx) UpdateCategory(ctx context.Context, id uuid.UUID, category document.Category) error {
	return rt.update(ctx, "updating category", `SET category = $1`, id, category)
}

func (rt *runTx) UpdateAssignedClient(ctx context.Context, id, clientID uuid.UUID) error {
	return rt.update(ctx, "assigning client", `SET assigned_client_id = $1`, id, clientID)
}

func (rt *runTx) UpdateFinancialRecord(ctx context.Context, id, recordID uuid.UUID) error {
	return rt.update(ctx, "linking financial record", `SET financial_record_id = $1`, id, recordID)
}

func (rt *runTx) AppendNotes(ctx context.Context, id uuid.UUID, notes []document.Note) error {
	b, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}

	return rt.update(ctx, "appending notes", `SET processing_notes = processing_notes || $1::jsonb`, id, string(b))
}

func (rt *runTx) update(ctx context.Context, op, set string, id uuid.UUID, value any) error {
	query := `UPDATE documents ` + set + `, updated_at = NOW() WHERE id = $2`

	res, err := rt.tx.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := expectOne(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (rt *runTx) CreateRecord(ctx context.Context, rec *financial.Record) error {
	err := financialStore.InsertRecord(ctx, rt.tx, rec)
	if database.IsUniqueViolation(err) {
		return persistence.ErrDuplicateRecord
	}

	return err
}

// CreateLineItem inserts under a savepoint so a rejected item leaves the rest of the
// transaction usable.
func (rt *runTx) CreateLineItem(ctx context.Context, recordID uuid.UUID, item *financial.LineItem) error {
	if _, err := rt.tx.ExecContext(ctx, "SAVEPOINT line_item"); err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}

	if err := financialStore.InsertLineItem(ctx, rt.tx, recordID, item); err != nil {
		if _, rbErr := rt.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT line_item"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back savepoint: %w", rbErr))
		}

		return err
	}

	if _, err := rt.tx.ExecContext(ctx, "RELEASE SAVEPOINT line_item"); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}

	return nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}

	if n == 0 {
		return document.ErrNotFound
	}

	return nil
}
