package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/document"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=client
type Repository interface {
	GetIndividual(ctx context.Context, id uuid.UUID) (*Individual, error)
	ListCandidates(ctx context.Context, individualID uuid.UUID) ([]Candidate, error)
}

type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// RequiresClientLink reports whether a document of this category must belong to a client.
func RequiresClientLink(category document.Category) bool {
	return category.RequiresClient()
}

func (r *Resolver) Sender(ctx context.Context, id uuid.UUID) (*Individual, error) {
	return r.repo.GetIndividual(ctx, id)
}

// Resolve decides the client outcome for doc. A document that already has a client is
// reported as linked without consulting the sender's relationships.
func (r *Resolver) Resolve(ctx context.Context, doc *document.Document, sender *Individual) (Outcome, error) {
	if doc.AssignedClientID != nil {
		return Outcome{Kind: OutcomeAlreadyLinked, ClientID: *doc.AssignedClientID}, nil
	}

	candidates, err := r.Candidates(ctx, sender.ID)
	if err != nil {
		return Outcome{}, err
	}

	switch len(candidates) {
	case 0:
		return Outcome{Kind: OutcomeNoCandidates}, nil
	case 1:
		return Outcome{
			Kind:       OutcomeSingleCandidate,
			ClientID:   candidates[0].ClientID,
			Candidates: candidates,
		}, nil
	}

	return Outcome{Kind: OutcomeMultipleCandidates, Candidates: candidates}, nil
}

// Candidates lists the distinct clients reachable from an individual, in the order they
// were first discovered.
func (r *Resolver) Candidates(ctx context.Context, individualID uuid.UUID) ([]Candidate, error) {
	all, err := r.repo.ListCandidates(ctx, individualID)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(all))
	candidates := make([]Candidate, 0, len(all))

	for _, c := range all {
		if _, ok := seen[c.ClientID]; ok {
			continue
		}

		seen[c.ClientID] = struct{}{}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// Select checks that clientID is one of the individual's candidates.
func (r *Resolver) Select(ctx context.Context, individualID, clientID uuid.UUID) (Candidate, error) {
	candidates, err := r.Candidates(ctx, individualID)
	if err != nil {
		return Candidate{}, err
	}

	for _, c := range candidates {
		if c.ClientID == clientID {
			return c, nil
		}
	}

	return Candidate{}, ErrNotCandidate
}
