package workflow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/classification"
	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/financial"
	"github.com/MrJamesThe3rd/docflow/internal/llm"
	"github.com/MrJamesThe3rd/docflow/internal/notify"
)

//go:generate mockgen -source=runtime.go -destination=runtime_mock.go -package=workflow
type Coordinator interface {
	Begin(ctx context.Context, id uuid.UUID) (*document.Document, error)
	RecordClassification(ctx context.Context, id uuid.UUID, category document.Category, note document.Note) error
	AssignClient(ctx context.Context, id, clientID uuid.UUID, source string) (uuid.UUID, error)
	CreateFinancialRecord(ctx context.Context, id uuid.UUID, rec *financial.Record) (uuid.UUID, error)
	AppendNote(ctx context.Context, id uuid.UUID, note document.Note) error
	Complete(ctx context.Context, id uuid.UUID, state document.State, note document.Note) error
	Fail(ctx context.Context, id uuid.UUID, cause error)
}

type Classifier interface {
	Classify(ctx context.Context, text string, meta document.Metadata) (classification.Result, llm.Exchange)
}

type Resolver interface {
	Sender(ctx context.Context, id uuid.UUID) (*client.Individual, error)
	Resolve(ctx context.Context, doc *document.Document, sender *client.Individual) (client.Outcome, error)
}

type Extractor interface {
	Extract(ctx context.Context, text string, category document.Category, accounts []financial.Account) (*financial.Draft, llm.Exchange, error)
}

type Validator interface {
	Validate(d *financial.Draft, category document.Category, accounts []financial.Account) (*financial.Record, error)
}

type Accounts interface {
	ListAccounts(ctx context.Context, clientID uuid.UUID) ([]financial.Account, error)
}

type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Runtime bundles the collaborators every node needs.
type Runtime struct {
	Coordinator Coordinator
	Classifier  Classifier
	Resolver    Resolver
	Extractor   Extractor
	Validator   Validator
	Accounts    Accounts
	Notifier    Notifier
	Logger      *slog.Logger
}
