package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/financial"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListAccounts returns a client's active chart of accounts ordered by code.
func (s *Store) ListAccounts(ctx context.Context, clientID uuid.UUID) ([]financial.Account, error) {
	query := `
		SELECT id, code, name, type
		FROM accounts
		WHERE client_id = $1 AND archived_at IS NULL
		ORDER BY code ASC
	`

	rows, err := s.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []financial.Account

	for rows.Next() {
		var a financial.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}

	return accounts, nil
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func InsertRecord(ctx context.Context, q Querier, rec *financial.Record) error {
	query := `
		INSERT INTO financial_records (
			practice_id, client_id, document_id, kind, reference_number,
			issue_date, due_date, subtotal, tax_amount, total_amount, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`

	err := q.QueryRowContext(ctx, query,
		rec.PracticeID,
		rec.ClientID,
		rec.DocumentID,
		rec.Kind,
		rec.ReferenceNumber,
		rec.IssueDate,
		rec.DueDate,
		rec.Subtotal,
		rec.TaxAmount,
		rec.TotalAmount,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating financial record: %w", err)
	}

	return nil
}

func InsertLineItem(ctx context.Context, q Querier, recordID uuid.UUID, li *financial.LineItem) error {
	query := `
		INSERT INTO financial_line_items (
			record_id, position, description, quantity, unit_price, tax_rate,
			tax_amount, subtotal, total, account_code, account_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := q.QueryRowContext(ctx, query,
		recordID,
		li.Position,
		li.Description,
		li.Quantity.IntPart(),
		li.UnitPrice,
		li.TaxRate,
		li.TaxAmount,
		li.Subtotal,
		li.Total,
		li.AccountCode,
		li.AccountID,
	).Scan(&li.ID)
	if err != nil {
		return fmt.Errorf("creating line item: %w", err)
	}

	return nil
}
