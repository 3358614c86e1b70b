package document

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/encoding"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=document
type Repository interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByState(ctx context.Context, state State) ([]*Document, error)
	UpdateExtractedText(ctx context.Context, id uuid.UUID, text string, note Note) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetDocument(ctx, id)
}

func (s *Service) ListByState(ctx context.Context, state State) ([]*Document, error) {
	return s.repo.ListByState(ctx, state)
}

// AttachText stores OCR output as the document's extracted text. The input may be in any
// encoding the detector recognises; it is normalised to UTF-8 first.
func (s *Service) AttachText(ctx context.Context, id uuid.UUID, r io.Reader) error {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	if doc.State != StatePending && doc.State != StateFailed {
		return ErrTextNotAllowed
	}

	text, charset, err := encoding.ReadString(r)
	if err != nil {
		return fmt.Errorf("reading extracted text: %w", err)
	}

	note := NewNote("ingest", "text_attached", map[string]any{
		"charset": string(charset),
		"length":  len(text),
	})

	return s.repo.UpdateExtractedText(ctx, id, text, note)
}
