package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/client"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetIndividual(ctx context.Context, id uuid.UUID) (*client.Individual, error) {
	query := `
		SELECT id, practice_id, name, phone
		FROM individuals
		WHERE id = $1
	`

	var ind client.Individual

	err := s.db.QueryRowContext(ctx, query, id).Scan(&ind.ID, &ind.PracticeID, &ind.Name, &ind.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, client.ErrIndividualNotFound
		}

		return nil, fmt.Errorf("getting individual: %w", err)
	}

	return &ind, nil
}

// ListCandidates walks individual -> customers -> active client associations. Rows come
// back in discovery order and may repeat a client reached through several customers.
func (s *Store) ListCandidates(ctx context.Context, individualID uuid.UUID) ([]client.Candidate, error) {
	query := `
		SELECT c.id, c.name, cu.id, cu.name
		FROM customer_individuals ci
		JOIN customers cu ON cu.id = ci.customer_id
		JOIN customer_clients cc ON cc.customer_id = cu.id AND cc.active
		JOIN clients c ON c.id = cc.client_id
		WHERE ci.individual_id = $1
		ORDER BY ci.created_at ASC, cc.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, individualID)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	defer rows.Close()

	var candidates []client.Candidate

	for rows.Next() {
		var c client.Candidate
		if err := rows.Scan(&c.ClientID, &c.ClientName, &c.ContactID, &c.ContactName); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}

		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidate rows: %w", err)
	}

	return candidates, nil
}
