package financial

import (
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/docflow/internal/document"
)

const maxPromptText = 20000

const extractionSystem = `You extract structured financial data from the OCR text of business documents.
Respond with one JSON object and nothing else, using this shape:
{
  "reference_number": "string",
  "issue_date": "YYYY-MM-DD",
  "due_date": "YYYY-MM-DD",
  "transaction_date": "YYYY-MM-DD",
  "subtotal": number,
  "tax_amount": number,
  "total_amount": number,
  "line_items": [
    {"description": "string", "quantity": number, "unit_price": number, "tax_rate": number, "account_code": "string"}
  ]
}
tax_rate is a percentage (20 means 20%). Use null for anything the document does not state.
Only use an account_code from the list you are given; leave it empty when none fits.`

func extractionPrompt(text string, category document.Category, accounts []Account) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Document type: %s\n", category)

	switch category {
	case document.CategoryReceipt:
		sb.WriteString("Receipts have a single transaction date; report it as transaction_date.\n")
	case document.CategoryInvoice:
		sb.WriteString("Invoices must state an issue date. Report the due date only if printed.\n")
	}

	if len(accounts) > 0 {
		sb.WriteString("\nChart of accounts:\n")

		for _, a := range accounts {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", a.Code, a.Name, a.Type)
		}
	}

	sb.WriteString("\nDocument text:\n")
	sb.WriteString(clip(text, maxPromptText))

	return sb.String()
}
