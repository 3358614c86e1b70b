package persistence_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/financial"
	"github.com/MrJamesThe3rd/docflow/internal/persistence"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newCoordinator(t *testing.T) (*persistence.Coordinator, *persistence.MockTx) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := persistence.NewMockRepository(ctrl)
	tx := persistence.NewMockTx(ctrl)

	repo.EXPECT().Begin(gomock.Any()).Return(tx, nil).AnyTimes()
	tx.EXPECT().Rollback().Return(nil).AnyTimes()

	c := persistence.NewCoordinator(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), 15*time.Minute)
	c.Now = func() time.Time { return now }

	return c, tx
}

func TestCoordinator_Begin(t *testing.T) {
	id := uuid.New()

	type testCase struct {
		name    string
		doc     *document.Document
		wantErr error
	}

	tests := []testCase{
		{
			name: "Pending",
			doc:  &document.Document{ID: id, State: document.StatePending, UpdatedAt: now.Add(-time.Hour)},
		},
		{
			name: "FailedRetry",
			doc:  &document.Document{ID: id, State: document.StateFailed, UpdatedAt: now.Add(-time.Minute)},
		},
		{
			name:    "ActiveRun",
			doc:     &document.Document{ID: id, State: document.StateProcessing, UpdatedAt: now.Add(-time.Minute)},
			wantErr: persistence.ErrRunInProgress,
		},
		{
			name: "StaleRun",
			doc:  &document.Document{ID: id, State: document.StateProcessing, UpdatedAt: now.Add(-time.Hour)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, tx := newCoordinator(t)

			tx.EXPECT().LockDocument(gomock.Any(), id).Return(tt.doc, nil)

			if tt.wantErr == nil {
				tx.EXPECT().UpdateState(gomock.Any(), id, document.StateProcessing).Return(nil)
				tx.EXPECT().AppendNotes(gomock.Any(), id, gomock.Len(1)).Return(nil)
				tx.EXPECT().Commit().Return(nil)
			}

			doc, err := c.Begin(context.Background(), id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, document.StateProcessing, doc.State)
		})
	}
}

func TestCoordinator_RecordClassificationRequiresProcessing(t *testing.T) {
	id := uuid.New()
	c, tx := newCoordinator(t)

	tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{ID: id, State: document.StateFailed}, nil)

	err := c.RecordClassification(context.Background(), id, document.CategoryInvoice, document.NewNote("classify", "classified", nil))
	assert.ErrorIs(t, err, persistence.ErrNotProcessing)
}

func TestCoordinator_AssignClient(t *testing.T) {
	id := uuid.New()
	existing := uuid.New()
	requested := uuid.New()

	t.Run("New", func(t *testing.T) {
		c, tx := newCoordinator(t)

		tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{ID: id, State: document.StateProcessing}, nil)
		tx.EXPECT().UpdateAssignedClient(gomock.Any(), id, requested).Return(nil)
		tx.EXPECT().AppendNotes(gomock.Any(), id, gomock.Any()).Return(nil)
		tx.EXPECT().Commit().Return(nil)

		got, err := c.AssignClient(context.Background(), id, requested, "auto")
		require.NoError(t, err)
		assert.Equal(t, requested, got)
	})

	t.Run("NeverOverwrites", func(t *testing.T) {
		c, tx := newCoordinator(t)

		tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{ID: id, AssignedClientID: &existing}, nil)
		tx.EXPECT().Commit().Return(nil)

		got, err := c.AssignClient(context.Background(), id, requested, "selection")
		require.NoError(t, err)
		assert.Equal(t, existing, got)
	})
}

func TestCoordinator_CreateFinancialRecord(t *testing.T) {
	id := uuid.New()
	practice := uuid.New()
	clientID := uuid.New()
	recordID := uuid.New()

	t.Run("SkipsBadLineItems", func(t *testing.T) {
		c, tx := newCoordinator(t)

		huge := decimal.New(1, 13)
		rec := &financial.Record{
			TotalAmount: decimal.NewFromInt(24),
			LineItems: []financial.LineItem{
				{Position: 1, Description: "ok", Quantity: decimal.NewFromInt(1)},
				{Position: 2, Description: "too big", Quantity: decimal.NewFromInt(1), UnitPrice: huge, Subtotal: huge, Total: huge},
				{Position: 3, Description: "db rejects", Quantity: decimal.NewFromInt(1)},
			},
		}

		tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{
			ID:               id,
			PracticeID:       practice,
			State:            document.StateProcessing,
			AssignedClientID: &clientID,
		}, nil)
		tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *financial.Record) error {
				assert.Equal(t, id, r.DocumentID)
				assert.Equal(t, practice, r.PracticeID)
				assert.Equal(t, clientID, r.ClientID)
				r.ID = recordID
				return nil
			})
		tx.EXPECT().CreateLineItem(gomock.Any(), recordID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, li *financial.LineItem) error {
				if li.Position == 3 {
					return errors.New("numeric field overflow")
				}
				return nil
			}).Times(2)
		tx.EXPECT().UpdateFinancialRecord(gomock.Any(), id, recordID).Return(nil)
		tx.EXPECT().AppendNotes(gomock.Any(), id, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, notes []document.Note) error {
				assert.Equal(t, 2, notes[0].Detail["line_items_skipped"])
				return nil
			})
		tx.EXPECT().Commit().Return(nil)

		got, err := c.CreateFinancialRecord(context.Background(), id, rec)
		require.NoError(t, err)
		assert.Equal(t, recordID, got)
		require.Len(t, rec.LineItems, 1)
		assert.Equal(t, "ok", rec.LineItems[0].Description)
	})

	t.Run("Idempotent", func(t *testing.T) {
		c, tx := newCoordinator(t)

		tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{
			ID:                id,
			State:             document.StateProcessing,
			AssignedClientID:  &clientID,
			FinancialRecordID: &recordID,
		}, nil)
		tx.EXPECT().Commit().Return(nil)

		got, err := c.CreateFinancialRecord(context.Background(), id, &financial.Record{})
		require.NoError(t, err)
		assert.Equal(t, recordID, got)
	})

	t.Run("NoClient", func(t *testing.T) {
		c, tx := newCoordinator(t)

		tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{ID: id, State: document.StateProcessing}, nil)

		_, err := c.CreateFinancialRecord(context.Background(), id, &financial.Record{})
		assert.ErrorIs(t, err, persistence.ErrNoClient)
	})

	t.Run("RecordInsertFails", func(t *testing.T) {
		c, tx := newCoordinator(t)

		tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{
			ID:               id,
			State:            document.StateProcessing,
			AssignedClientID: &clientID,
		}, nil)
		tx.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

		_, err := c.CreateFinancialRecord(context.Background(), id, &financial.Record{})
		assert.Error(t, err)
	})
}

func TestCoordinator_Complete(t *testing.T) {
	id := uuid.New()

	t.Run("Forward", func(t *testing.T) {
		c, tx := newCoordinator(t)

		tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{ID: id, State: document.StateProcessing}, nil)
		tx.EXPECT().UpdateState(gomock.Any(), id, document.StateProcessed).Return(nil)
		tx.EXPECT().AppendNotes(gomock.Any(), id, gomock.Any()).Return(nil)
		tx.EXPECT().Commit().Return(nil)

		err := c.Complete(context.Background(), id, document.StateProcessed, document.NewNote("run", "completed", nil))
		assert.NoError(t, err)
	})

	t.Run("Regression", func(t *testing.T) {
		c, tx := newCoordinator(t)

		tx.EXPECT().LockDocument(gomock.Any(), id).Return(&document.Document{ID: id, State: document.StateRejected}, nil)

		err := c.Complete(context.Background(), id, document.StateProcessed, document.NewNote("run", "completed", nil))
		assert.ErrorIs(t, err, persistence.ErrStateRegression)
	})
}

func TestCoordinator_FailIgnoresCancellation(t *testing.T) {
	id := uuid.New()
	c, tx := newCoordinator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx.EXPECT().LockDocument(gomock.Any(), id).
		DoAndReturn(func(ctx context.Context, _ uuid.UUID) (*document.Document, error) {
			assert.NoError(t, ctx.Err())
			return &document.Document{ID: id, State: document.StateProcessing}, nil
		})
	tx.EXPECT().UpdateState(gomock.Any(), id, document.StateFailed).Return(nil)
	tx.EXPECT().AppendNotes(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, notes []document.Note) error {
			assert.Equal(t, "failed", notes[0].Event)
			assert.Equal(t, "boom", notes[0].Detail["reason"])
			return nil
		})
	tx.EXPECT().Commit().Return(nil)

	c.Fail(ctx, id, errors.New("boom"))
}
