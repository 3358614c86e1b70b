package document

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
	"github.com/MrJamesThe3rd/docflow/internal/persistence"
	"github.com/MrJamesThe3rd/docflow/internal/workflow"
)

const maxTextBytes = 10 << 20

type Handler struct {
	documents   *document.Service
	resolver    *client.Resolver
	coordinator *persistence.Coordinator
	engine      *workflow.Engine
}

func NewHandler(
	documents *document.Service,
	resolver *client.Resolver,
	coordinator *persistence.Coordinator,
	engine *workflow.Engine,
) *Handler {
	return &Handler{
		documents:   documents,
		resolver:    resolver,
		coordinator: coordinator,
		engine:      engine,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/process", h.processBatch)
	r.Get("/{id}", h.get)
	r.Put("/{id}/text", h.attachText)
	r.Post("/{id}/process", h.process)
	r.Get("/{id}/candidates", h.candidates)
	r.Post("/{id}/client", h.selectClient)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	state := document.StateAwaitingClientSelection

	if s := r.URL.Query().Get("state"); s != "" {
		st, ok := document.ParseState(s)
		if !ok {
			http.Error(w, "unknown state", http.StatusBadRequest)
			return
		}

		state = st
	}

	docs, err := h.documents.ListByState(r.Context(), state)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(docs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(doc))
}

func (h *Handler) attachText(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxTextBytes)

	if err := h.documents.AttachText(r.Context(), id, body); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	res, err := h.engine.Run(runContext(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type batchRequest struct {
	DocumentIDs []uuid.UUID `json:"document_ids"`
}

type batchItemResponse struct {
	DocumentID uuid.UUID        `json:"document_id"`
	Result     *workflow.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func (h *Handler) processBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.DocumentIDs) == 0 {
		http.Error(w, "document_ids is required", http.StatusBadRequest)
		return
	}

	items := h.engine.RunBatch(runContext(r), req.DocumentIDs)

	resp := make([]batchItemResponse, len(items))
	for i, item := range items {
		resp[i] = batchItemResponse{DocumentID: item.DocumentID, Result: item.Result}
		if item.Err != nil {
			resp[i].Error = item.Err.Error()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	candidates, err := h.resolver.Candidates(r.Context(), doc.SenderIndividualID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, candidates)
}

type selectClientRequest struct {
	ClientID uuid.UUID `json:"client_id"`
}

// selectClient records a sender's choice of client and starts a new run for the document.
func (h *Handler) selectClient(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req selectClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.resolver.Select(r.Context(), doc.SenderIndividualID, req.ClientID); err != nil {
		writeError(w, err)
		return
	}

	ctx := runContext(r)

	if _, err := h.coordinator.AssignClient(ctx, id, req.ClientID, "selection"); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.engine.Run(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, document.ErrNotFound):
		http.Error(w, "document not found", http.StatusNotFound)
	case errors.Is(err, client.ErrIndividualNotFound):
		http.Error(w, "sender not found", http.StatusNotFound)
	case errors.Is(err, persistence.ErrRunInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, document.ErrTextNotAllowed), errors.Is(err, client.ErrNotCandidate),
		errors.Is(err, workflow.ErrNoExtractedText):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &maxBytes):
		http.Error(w, "text too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, io.ErrUnexpectedEOF):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// runContext detaches a run from its request. A run that starts always reaches a
// terminal state, even when the caller disconnects or the request times out.
func runContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
