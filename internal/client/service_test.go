package client_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
)

func TestResolver_Resolve(t *testing.T) {
	sender := &client.Individual{ID: uuid.New(), Name: "Ana"}
	linked := uuid.New()
	acme := client.Candidate{ClientID: uuid.New(), ClientName: "Acme", ContactID: uuid.New(), ContactName: "Acme Holdings"}
	beta := client.Candidate{ClientID: uuid.New(), ClientName: "Beta", ContactID: uuid.New(), ContactName: "Beta Group"}
	acmeViaOther := client.Candidate{ClientID: acme.ClientID, ClientName: "Acme", ContactID: uuid.New(), ContactName: "Family"}

	type testCase struct {
		name      string
		doc       *document.Document
		setupMock func(m *client.MockRepository)
		want      client.Outcome
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "AlreadyLinked",
			doc:  &document.Document{AssignedClientID: &linked},
			want: client.Outcome{Kind: client.OutcomeAlreadyLinked, ClientID: linked},
		},
		{
			name: "NoCandidates",
			doc:  &document.Document{},
			setupMock: func(m *client.MockRepository) {
				m.EXPECT().ListCandidates(gomock.Any(), sender.ID).Return(nil, nil)
			},
			want: client.Outcome{Kind: client.OutcomeNoCandidates},
		},
		{
			name: "SingleAfterDedup",
			doc:  &document.Document{},
			setupMock: func(m *client.MockRepository) {
				m.EXPECT().ListCandidates(gomock.Any(), sender.ID).Return([]client.Candidate{acme, acmeViaOther}, nil)
			},
			want: client.Outcome{Kind: client.OutcomeSingleCandidate, ClientID: acme.ClientID, Candidates: []client.Candidate{acme}},
		},
		{
			name: "Multiple",
			doc:  &document.Document{},
			setupMock: func(m *client.MockRepository) {
				m.EXPECT().ListCandidates(gomock.Any(), sender.ID).Return([]client.Candidate{beta, acme, acmeViaOther}, nil)
			},
			want: client.Outcome{Kind: client.OutcomeMultipleCandidates, Candidates: []client.Candidate{beta, acme}},
		},
		{
			name: "LookupFails",
			doc:  &document.Document{},
			setupMock: func(m *client.MockRepository) {
				m.EXPECT().ListCandidates(gomock.Any(), sender.ID).Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := client.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := client.NewResolver(repo).Resolve(context.Background(), tt.doc, sender)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_Select(t *testing.T) {
	individual := uuid.New()
	acme := client.Candidate{ClientID: uuid.New(), ClientName: "Acme"}

	ctrl := gomock.NewController(t)
	repo := client.NewMockRepository(ctrl)
	repo.EXPECT().ListCandidates(gomock.Any(), individual).Return([]client.Candidate{acme}, nil).Times(2)

	r := client.NewResolver(repo)

	got, err := r.Select(context.Background(), individual, acme.ClientID)
	require.NoError(t, err)
	assert.Equal(t, acme, got)

	_, err = r.Select(context.Background(), individual, uuid.New())
	assert.ErrorIs(t, err, client.ErrNotCandidate)
}

func TestRequiresClientLink(t *testing.T) {
	for _, c := range document.Categories {
		want := c == document.CategoryInvoice || c == document.CategoryReceipt ||
			c == document.CategoryBankStatement || c == document.CategoryContract ||
			c == document.CategoryEngagementLetter
		assert.Equal(t, want, client.RequiresClientLink(c), c)
	}
}
