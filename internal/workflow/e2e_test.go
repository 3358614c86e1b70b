package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/docflow/internal/classification"
	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/financial"
	"github.com/MrJamesThe3rd/docflow/internal/llm"
	"github.com/MrJamesThe3rd/docflow/internal/notify"
	"github.com/MrJamesThe3rd/docflow/internal/persistence"
	"github.com/MrJamesThe3rd/docflow/internal/workflow"
)

// memStore is a persistence.Repository whose transactions work on copies and publish
// them on commit.
type memStore struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]document.Document
	records map[uuid.UUID]financial.Record

	createRecordErr error
}

func newMemStore(docs ...*document.Document) *memStore {
	s := &memStore{
		docs:    make(map[uuid.UUID]document.Document),
		records: make(map[uuid.UUID]financial.Record),
	}

	for _, d := range docs {
		s.docs[d.ID] = *d
	}

	return s
}

func (s *memStore) Begin(_ context.Context) (persistence.Tx, error) {
	s.mu.Lock()

	return &memTx{
		s:       s,
		docs:    maps.Clone(s.docs),
		records: maps.Clone(s.records),
	}, nil
}

func (s *memStore) doc(id uuid.UUID) document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.docs[id]
}

type memTx struct {
	s       *memStore
	docs    map[uuid.UUID]document.Document
	records map[uuid.UUID]financial.Record
	done    bool
}

func (tx *memTx) LockDocument(_ context.Context, id uuid.UUID) (*document.Document, error) {
	d, ok := tx.docs[id]
	if !ok {
		return nil, document.ErrNotFound
	}

	d.Notes = append([]document.Note(nil), d.Notes...)

	return &d, nil
}

func (tx *memTx) mutate(id uuid.UUID, fn func(d *document.Document)) error {
	d, ok := tx.docs[id]
	if !ok {
		return document.ErrNotFound
	}

	fn(&d)
	d.UpdatedAt = time.Now()
	tx.docs[id] = d

	return nil
}

func (tx *memTx) UpdateState(_ context.Context, id uuid.UUID, state document.State) error {
	return tx.mutate(id, func(d *document.Document) { d.State = state })
}

func (tx *memTx) UpdateCategory(_ context.Context, id uuid.UUID, category document.Category) error {
	return tx.mutate(id, func(d *document.Document) { d.Category = &category })
}

func (tx *memTx) UpdateAssignedClient(_ context.Context, id, clientID uuid.UUID) error {
	return tx.mutate(id, func(d *document.Document) { d.AssignedClientID = &clientID })
}

func (tx *memTx) UpdateFinancialRecord(_ context.Context, id, recordID uuid.UUID) error {
	return tx.mutate(id, func(d *document.Document) { d.FinancialRecordID = &recordID })
}

func (tx *memTx) AppendNotes(_ context.Context, id uuid.UUID, notes []document.Note) error {
	return tx.mutate(id, func(d *document.Document) {
		d.Notes = append(append([]document.Note(nil), d.Notes...), notes...)
	})
}

func (tx *memTx) CreateRecord(_ context.Context, rec *financial.Record) error {
	if tx.s.createRecordErr != nil {
		return tx.s.createRecordErr
	}

	rec.ID = uuid.New()
	tx.records[rec.ID] = *rec

	return nil
}

func (tx *memTx) CreateLineItem(_ context.Context, recordID uuid.UUID, item *financial.LineItem) error {
	rec := tx.records[recordID]
	item.ID = uuid.New()
	rec.LineItems = append(append([]financial.LineItem(nil), rec.LineItems...), *item)
	tx.records[recordID] = rec

	return nil
}

func (tx *memTx) Commit() error {
	tx.s.docs = tx.docs
	tx.s.records = tx.records
	tx.done = true
	tx.s.mu.Unlock()

	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}

	tx.done = true
	tx.s.mu.Unlock()

	return nil
}

type modelFunc func(ctx context.Context, req llm.Request) (string, error)

func (f modelFunc) Generate(ctx context.Context, req llm.Request) (string, error) { return f(ctx, req) }

type fakeRelationships struct {
	individual *client.Individual
	candidates []client.Candidate
	queried    int
}

func (f *fakeRelationships) GetIndividual(_ context.Context, id uuid.UUID) (*client.Individual, error) {
	if f.individual.ID != id {
		return nil, client.ErrIndividualNotFound
	}

	return f.individual, nil
}

func (f *fakeRelationships) ListCandidates(_ context.Context, _ uuid.UUID) ([]client.Candidate, error) {
	f.queried++
	return f.candidates, nil
}

type fakeAccounts []financial.Account

func (f fakeAccounts) ListAccounts(_ context.Context, _ uuid.UUID) ([]financial.Account, error) {
	return f, nil
}

type recordingNotifier struct {
	sent []notify.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

const invoiceText = `ACME SUPPLIES LTD
INVOICE No. INV-2024-001
Date: 2024-03-01
2 x Widget @ 10.00 (VAT 20%)`

// invoiceModel answers classification and extraction prompts for invoiceText.
func invoiceModel(extraction string) llm.Model {
	return modelFunc(func(_ context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.System, "You classify") {
			return `{"category":"invoice","confidence":0.97,"rationale":"invoice number and VAT line"}`, nil
		}

		return extraction, nil
	})
}

type e2e struct {
	store     *memStore
	relations *fakeRelationships
	notifier  *recordingNotifier
	engine    *workflow.Engine
}

func newE2E(model llm.Model, doc *document.Document, candidates []client.Candidate) *e2e {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &e2e{
		store:     newMemStore(doc),
		relations: &fakeRelationships{individual: &client.Individual{ID: doc.SenderIndividualID, Name: "Ana", Phone: "+351910000000"}, candidates: candidates},
		notifier:  &recordingNotifier{},
	}

	env.engine = workflow.NewEngine(&workflow.Runtime{
		Coordinator: persistence.NewCoordinator(env.store, logger, 15*time.Minute),
		Classifier:  classification.NewClassifier(model, logger),
		Resolver:    client.NewResolver(env.relations),
		Extractor:   financial.NewExtractor(model),
		Validator:   financial.NewValidator(),
		Accounts:    fakeAccounts{{ID: uuid.New(), Code: "5000", Name: "Purchases", Type: "expense"}},
		Notifier:    env.notifier,
		Logger:      logger,
	}, 1)

	return env
}

func pendingDoc(text string) *document.Document {
	return &document.Document{
		ID:                 uuid.New(),
		PracticeID:         uuid.New(),
		State:              document.StatePending,
		ExtractedText:      text,
		Metadata:           document.Metadata{Filename: "invoice.pdf", MimeType: "application/pdf"},
		SenderIndividualID: uuid.New(),
	}
}

func TestEndToEnd_InvoiceWithLinkedClient(t *testing.T) {
	doc := pendingDoc(invoiceText)
	clientID := uuid.New()
	doc.AssignedClientID = &clientID

	extraction := "Here you go:\n" +
		`{"reference_number":"INV-2024-001","issue_date":"2024-03-01",` +
		`"line_items":[{"description":"Widget","quantity":2,"unit_price":10.00,"tax_rate":20,"account_code":"5000"}]}`

	env := newE2E(invoiceModel(extraction), doc, nil)

	res, err := env.engine.Run(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, document.StateProcessed, res.State)
	assert.Equal(t, document.CategoryInvoice, res.Category)
	assert.False(t, res.NotificationSent)
	require.NotNil(t, res.FinancialRecordID)

	assert.Zero(t, env.relations.queried)
	assert.Empty(t, env.notifier.sent)

	rec := env.store.records[*res.FinancialRecordID]
	require.Len(t, rec.LineItems, 1)

	li := rec.LineItems[0]
	assert.Equal(t, "20.00", li.Subtotal.StringFixed(2))
	assert.Equal(t, "4.00", li.TaxAmount.StringFixed(2))
	assert.Equal(t, "24.00", li.Total.StringFixed(2))
	require.NotNil(t, li.AccountCode)
	assert.Equal(t, "5000", *li.AccountCode)

	assert.Equal(t, "20.00", rec.Subtotal.StringFixed(2))
	assert.Equal(t, "4.00", rec.TaxAmount.StringFixed(2))
	assert.Equal(t, "24.00", rec.TotalAmount.StringFixed(2))
	assert.Equal(t, clientID, rec.ClientID)
	assert.Equal(t, doc.PracticeID, rec.PracticeID)
	assert.Equal(t, "2024-03-31", rec.DueDate.Format(time.DateOnly))

	stored := env.store.doc(doc.ID)
	assert.Equal(t, document.StateProcessed, stored.State)
	require.NotNil(t, stored.Category)
	assert.Equal(t, document.CategoryInvoice, *stored.Category)
	assert.Equal(t, res.FinancialRecordID, stored.FinancialRecordID)

	// a second run keeps the same record
	again, err := env.engine.Run(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, res.FinancialRecordID, again.FinancialRecordID)
	assert.Len(t, env.store.records, 1)
}

func TestEndToEnd_InvoiceMissingIssueDate(t *testing.T) {
	doc := pendingDoc(invoiceText)
	clientID := uuid.New()
	doc.AssignedClientID = &clientID

	env := newE2E(invoiceModel(`{"reference_number":"INV-9","line_items":[]}`), doc, nil)

	res, err := env.engine.Run(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, document.StateProcessed, res.State)
	assert.Nil(t, res.FinancialRecordID)
	assert.Empty(t, env.store.records)

	stored := env.store.doc(doc.ID)
	assert.Nil(t, stored.FinancialRecordID)
	assert.True(t, hasEvent(stored.Notes, "no_record"))
}

func TestEndToEnd_SingleCandidateAutoAssigned(t *testing.T) {
	doc := pendingDoc(invoiceText)
	acme := client.Candidate{ClientID: uuid.New(), ClientName: "Acme"}

	env := newE2E(invoiceModel(`{"issue_date":"2024-03-01","total_amount":"€ 24,00"}`), doc, []client.Candidate{acme, acme})

	res, err := env.engine.Run(context.Background(), doc.ID)
	require.NoError(t, err)

	stored := env.store.doc(doc.ID)
	require.NotNil(t, stored.AssignedClientID)
	assert.Equal(t, acme.ClientID, *stored.AssignedClientID)
	assert.Equal(t, document.StateProcessed, res.State)

	rec := env.store.records[*res.FinancialRecordID]
	assert.Equal(t, "24.00", rec.TotalAmount.StringFixed(2))
}

func TestEndToEnd_Routing(t *testing.T) {
	tests := []struct {
		name       string
		candidates []client.Candidate
		wantState  document.State
		wantSent   int
	}{
		{"NoCandidates", nil, document.StateRejected, 1},
		{"MultipleCandidates", []client.Candidate{{ClientID: uuid.New(), ClientName: "A"}, {ClientID: uuid.New(), ClientName: "B"}}, document.StateAwaitingClientSelection, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := pendingDoc(invoiceText)
			env := newE2E(invoiceModel(`{}`), doc, tt.candidates)

			res, err := env.engine.Run(context.Background(), doc.ID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantState, res.State)
			assert.Len(t, env.notifier.sent, tt.wantSent)
			assert.Nil(t, env.store.doc(doc.ID).AssignedClientID)
			assert.Empty(t, env.store.records)
		})
	}
}

func TestEndToEnd_UnparseableClassification(t *testing.T) {
	doc := pendingDoc("????")
	model := modelFunc(func(context.Context, llm.Request) (string, error) {
		return "no idea", nil
	})

	env := newE2E(model, doc, nil)

	res, err := env.engine.Run(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.CategoryOther, res.Category)
	assert.Equal(t, document.StateProcessed, res.State)
	assert.Zero(t, env.relations.queried)
}

func TestEndToEnd_RecordCreationFails(t *testing.T) {
	doc := pendingDoc(invoiceText)
	clientID := uuid.New()
	doc.AssignedClientID = &clientID

	env := newE2E(invoiceModel(`{"issue_date":"2024-03-01","line_items":[{"quantity":1,"unit_price":5}]}`), doc, nil)
	env.store.createRecordErr = errors.New("disk full")

	res, err := env.engine.Run(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Nil(t, res)

	stored := env.store.doc(doc.ID)
	assert.Equal(t, document.StateFailed, stored.State)
	assert.Nil(t, stored.FinancialRecordID)
	assert.Empty(t, env.store.records)

	last := stored.Notes[len(stored.Notes)-1]
	assert.Equal(t, "failed", last.Event)
	assert.Contains(t, last.Detail["reason"], "disk full")
}

func hasEvent(notes []document.Note, event string) bool {
	for _, n := range notes {
		if n.Event == event {
			return true
		}
	}

	return false
}
