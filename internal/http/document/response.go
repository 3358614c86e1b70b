package document

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docflow/internal/document"
)

type documentResponse struct {
	ID                 uuid.UUID          `json:"id"`
	Category           *document.Category `json:"category,omitempty"`
	State              document.State     `json:"lifecycle_state"`
	Metadata           document.Metadata  `json:"metadata"`
	SenderIndividualID uuid.UUID          `json:"sender_individual_id"`
	AssignedClientID   *uuid.UUID         `json:"assigned_client_id,omitempty"`
	FinancialRecordID  *uuid.UUID         `json:"financial_record_id,omitempty"`
	HasText            bool               `json:"has_text"`
	Notes              []document.Note    `json:"processing_notes"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func toResponse(doc *document.Document) documentResponse {
	notes := doc.Notes
	if notes == nil {
		notes = []document.Note{}
	}

	return documentResponse{
		ID:                 doc.ID,
		Category:           doc.Category,
		State:              doc.State,
		Metadata:           doc.Metadata,
		SenderIndividualID: doc.SenderIndividualID,
		AssignedClientID:   doc.AssignedClientID,
		FinancialRecordID:  doc.FinancialRecordID,
		HasText:            doc.ExtractedText != "",
		Notes:              notes,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
}

func toResponseList(docs []*document.Document) []documentResponse {
	resp := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, toResponse(d))
	}

	return resp
}
