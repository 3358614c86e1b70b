package document

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/persistence"
	"github.com/MrJamesThe3rd/docflow/internal/workflow"
)

type fixture struct {
	docs    *document.MockRepository
	clients *client.MockRepository
	runs    *workflow.MockCoordinator
	router  chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		docs:    document.NewMockRepository(ctrl),
		clients: client.NewMockRepository(ctrl),
		runs:    workflow.NewMockCoordinator(ctrl),
	}

	coordinator := persistence.NewCoordinator(persistence.NewMockRepository(ctrl), logger, time.Minute)
	engine := workflow.NewEngine(&workflow.Runtime{Coordinator: f.runs, Logger: logger}, 1)

	h := NewHandler(document.NewService(f.docs), client.NewResolver(f.clients), coordinator, engine)

	f.router = chi.NewRouter()
	f.router.Route("/documents", h.Routes)

	return f
}

func (f *fixture) do(method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Get(t *testing.T) {
	id := uuid.New()
	category := document.CategoryInvoice

	t.Run("Found", func(t *testing.T) {
		f := newFixture(t)
		f.docs.EXPECT().GetDocument(gomock.Any(), id).Return(&document.Document{
			ID:       id,
			Category: &category,
			State:    document.StateProcessed,
		}, nil)

		rec := f.do(http.MethodGet, "/documents/"+id.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "invoice", got["category"])
		assert.Equal(t, "processed", got["lifecycle_state"])
		assert.Equal(t, []any{}, got["processing_notes"])
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)
		f.docs.EXPECT().GetDocument(gomock.Any(), id).Return(nil, document.ErrNotFound)

		rec := f.do(http.MethodGet, "/documents/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("BadID", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(http.MethodGet, "/documents/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t)
	f.docs.EXPECT().ListByState(gomock.Any(), document.StateFailed).Return([]*document.Document{{ID: uuid.New()}}, nil)

	rec := f.do(http.MethodGet, "/documents?state=failed", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)

	rec = f.do(http.MethodGet, "/documents?state=archived", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AttachText(t *testing.T) {
	id := uuid.New()

	t.Run("Accepted", func(t *testing.T) {
		f := newFixture(t)
		f.docs.EXPECT().GetDocument(gomock.Any(), id).Return(&document.Document{ID: id, State: document.StatePending}, nil)
		f.docs.EXPECT().UpdateExtractedText(gomock.Any(), id, "RECEIPT\nTotal 4.50", gomock.Any()).Return(nil)

		rec := f.do(http.MethodPut, "/documents/"+id.String()+"/text", strings.NewReader("RECEIPT\nTotal 4.50"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("WrongState", func(t *testing.T) {
		f := newFixture(t)
		f.docs.EXPECT().GetDocument(gomock.Any(), id).Return(&document.Document{ID: id, State: document.StateProcessing}, nil)

		rec := f.do(http.MethodPut, "/documents/"+id.String()+"/text", strings.NewReader("x"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandler_Candidates(t *testing.T) {
	id := uuid.New()
	sender := uuid.New()
	acme := client.Candidate{ClientID: uuid.New(), ClientName: "Acme"}

	f := newFixture(t)
	f.docs.EXPECT().GetDocument(gomock.Any(), id).Return(&document.Document{ID: id, SenderIndividualID: sender}, nil)
	f.clients.EXPECT().ListCandidates(gomock.Any(), sender).Return([]client.Candidate{acme, acme}, nil)

	rec := f.do(http.MethodGet, "/documents/"+id.String()+"/candidates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []client.Candidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []client.Candidate{acme}, got)
}

func TestHandler_SelectClientNotCandidate(t *testing.T) {
	id := uuid.New()
	sender := uuid.New()

	f := newFixture(t)
	f.docs.EXPECT().GetDocument(gomock.Any(), id).Return(&document.Document{ID: id, SenderIndividualID: sender}, nil)
	f.clients.EXPECT().ListCandidates(gomock.Any(), sender).Return([]client.Candidate{{ClientID: uuid.New()}}, nil)

	body, _ := json.Marshal(selectClientRequest{ClientID: uuid.New()})
	rec := f.do(http.MethodPost, "/documents/"+id.String()+"/client", bytes.NewReader(body))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_ProcessBatchValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/documents/process", strings.NewReader(`{"document_ids":[]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/documents/process", strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RunIgnoresRequestCancellation(t *testing.T) {
	id := uuid.New()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	expectLiveBegin := func(f *fixture) {
		f.runs.EXPECT().
			Begin(gomock.Any(), id).
			DoAndReturn(func(ctx context.Context, _ uuid.UUID) (*document.Document, error) {
				assert.NoError(t, ctx.Err())
				return nil, persistence.ErrRunInProgress
			})
	}

	t.Run("Single", func(t *testing.T) {
		f := newFixture(t)
		expectLiveBegin(f)

		req := httptest.NewRequest(http.MethodPost, "/documents/"+id.String()+"/process", nil).WithContext(cancelled)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Batch", func(t *testing.T) {
		f := newFixture(t)
		expectLiveBegin(f)

		body := strings.NewReader(`{"document_ids":["` + id.String() + `"]}`)
		req := httptest.NewRequest(http.MethodPost, "/documents/process", body).WithContext(cancelled)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got []batchItemResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Error, persistence.ErrRunInProgress.Error())
	})
}
