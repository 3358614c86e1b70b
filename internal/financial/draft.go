package financial

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Draft is the loosely typed record a model returns. Every field is kept as text until
// validation coerces it.
type Draft struct {
	ReferenceNumber Text        `json:"reference_number"`
	IssueDate       Text        `json:"issue_date"`
	DueDate         Text        `json:"due_date"`
	TransactionDate Text        `json:"transaction_date"`
	Subtotal        Amount      `json:"subtotal"`
	TaxAmount       Amount      `json:"tax_amount"`
	TotalAmount     Amount      `json:"total_amount"`
	LineItems       []DraftLine `json:"line_items"`
}

type DraftLine struct {
	Description Text   `json:"description"`
	Quantity    Amount `json:"quantity"`
	UnitPrice   Amount `json:"unit_price"`
	TaxRate     Amount `json:"tax_rate"`
	AccountCode Text   `json:"account_code"`
}

// Amount holds a numeric field as the model wrote it: a JSON number, a string such as
// "€1.234,50", or null.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Amount(s)
		return nil
	}

	*a = Amount(b)

	return nil
}

// Text holds a string field the model may have written as a bare number, such as a
// reference 10452 or an account code 4000. Numbers and booleans keep their JSON spelling.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}

	*t = Text(b)

	return nil
}

func (t Text) trim() Text {
	return Text(strings.TrimSpace(string(t)))
}
