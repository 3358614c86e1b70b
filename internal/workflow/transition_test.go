package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/docflow/internal/classification"
	"github.com/MrJamesThe3rd/docflow/internal/client"
	"github.com/MrJamesThe3rd/docflow/internal/document"
)

func TestTransition(t *testing.T) {
	outcome := func(k client.OutcomeKind) *client.Outcome { return &client.Outcome{Kind: k} }

	tests := []struct {
		name     string
		node     Node
		category document.Category
		outcome  *client.Outcome
		want     Node
	}{
		{"ClassifyAlwaysResolves", NodeClassify, document.CategoryOther, nil, NodeResolveClient},
		{"NoLinkRequired", NodeResolveClient, document.CategoryPassport, nil, NodeDone},
		{"NoCandidates", NodeResolveClient, document.CategoryInvoice, outcome(client.OutcomeNoCandidates), NodeReject},
		{"Multiple", NodeResolveClient, document.CategoryContract, outcome(client.OutcomeMultipleCandidates), NodeRequestSelection},
		{"Single", NodeResolveClient, document.CategoryContract, outcome(client.OutcomeSingleCandidate), NodeAutoAssign},
		{"LinkedFinancial", NodeResolveClient, document.CategoryReceipt, outcome(client.OutcomeAlreadyLinked), NodeExtractFinancial},
		{"LinkedNonFinancial", NodeResolveClient, document.CategoryBankStatement, outcome(client.OutcomeAlreadyLinked), NodeDone},
		{"AssignFinancial", NodeAutoAssign, document.CategoryInvoice, nil, NodeExtractFinancial},
		{"AssignNonFinancial", NodeAutoAssign, document.CategoryEngagementLetter, nil, NodeDone},
		{"RejectDone", NodeReject, document.CategoryInvoice, nil, NodeDone},
		{"SelectionDone", NodeRequestSelection, document.CategoryInvoice, nil, NodeDone},
		{"ExtractDone", NodeExtractFinancial, document.CategoryInvoice, nil, NodeDone},
		{"DoneStays", NodeDone, document.CategoryInvoice, nil, NodeDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wc := &Context{
				Node:           tt.node,
				Classification: classification.Result{Category: tt.category},
				Outcome:        tt.outcome,
			}

			got, err := transition(wc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_Unknown(t *testing.T) {
	_, err := transition(&Context{Node: Node(99)})
	assert.Error(t, err)

	_, err = transition(&Context{Node: NodeResolveClient, Outcome: &client.Outcome{Kind: client.OutcomeKind(42)}})
	assert.Error(t, err)
}

func TestTerminalState(t *testing.T) {
	tests := []struct {
		name string
		wc   Context
		want document.State
	}{
		{"SelectionSent", Context{NotificationSent: true, SelectionRequired: true}, document.StateAwaitingClientSelection},
		{"RejectionSent", Context{NotificationSent: true, Rejected: true}, document.StateRejected},
		{"RejectionNotSent", Context{Rejected: true}, document.StateProcessed},
		{"SelectionNotSent", Context{SelectionRequired: true}, document.StateProcessed},
		{"Plain", Context{}, document.StateProcessed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.wc.terminalState())
		})
	}
}
