// Package client decides which business client a document belongs to from the people
// its sender is associated with.
package client

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrIndividualNotFound = errors.New("individual not found")
	ErrNotCandidate       = errors.New("client is not a candidate for this sender")
)

// Individual is a person who sends documents in.
type Individual struct {
	ID         uuid.UUID
	PracticeID uuid.UUID
	Name       string
	Phone      string
}

// Candidate is a client reachable from an individual through one of their contacts.
type Candidate struct {
	ClientID    uuid.UUID `json:"client_id"`
	ClientName  string    `json:"client_name"`
	ContactID   uuid.UUID `json:"contact_id"`
	ContactName string    `json:"contact_name"`
}

type OutcomeKind int

const (
	OutcomeAlreadyLinked OutcomeKind = iota
	OutcomeNoCandidates
	OutcomeSingleCandidate
	OutcomeMultipleCandidates
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAlreadyLinked:
		return "already_linked"
	case OutcomeNoCandidates:
		return "no_candidates"
	case OutcomeSingleCandidate:
		return "single_candidate"
	case OutcomeMultipleCandidates:
		return "multiple_candidates"
	}

	return "unknown"
}

// Outcome is the result of resolving a document's client.
// ClientID is set for AlreadyLinked and SingleCandidate.
type Outcome struct {
	Kind       OutcomeKind
	ClientID   uuid.UUID
	Candidates []Candidate
}
