// Package financial turns the text of invoices and receipts into validated financial
// records with line items coded against a client's chart of accounts.
package financial

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/docflow/internal/document"
)

var (
	// ErrNoRecord marks every outcome where a document yields no financial record.
	// It is an expected result, not an infrastructure failure.
	ErrNoRecord = errors.New("no financial record produced")

	ErrNoStructuredData = fmt.Errorf("%w: response held no structured data", ErrNoRecord)
	ErrMissingIssueDate = fmt.Errorf("%w: invoice has no issue date", ErrNoRecord)
	ErrUnparseableDate  = fmt.Errorf("%w: unparseable date", ErrNoRecord)
	ErrExtractionFailed = fmt.Errorf("%w: extraction unavailable", ErrNoRecord)
	ErrNotFinancial     = fmt.Errorf("%w: category carries no financial record", ErrNoRecord)

	ErrLineItemOutOfRange = errors.New("line item value out of storable range")
)

var (
	maxMoney    = decimal.New(1, 12)
	maxQuantity = decimal.NewFromInt(1<<31 - 1)
	maxTaxRate  = decimal.NewFromInt(1000)
)

// Record is a structured financial record derived from one invoice or receipt.
type Record struct {
	ID              uuid.UUID
	PracticeID      uuid.UUID
	ClientID        uuid.UUID
	DocumentID      uuid.UUID
	Kind            document.Category
	ReferenceNumber string
	IssueDate       time.Time
	DueDate         time.Time
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	LineItems       []LineItem
	CreatedAt       time.Time
}

type LineItem struct {
	ID          uuid.UUID
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	Subtotal    decimal.Decimal
	Total       decimal.Decimal
	AccountCode *string
	AccountID   *uuid.UUID
}

// Check reports whether the item fits the columns it is stored in.
func (li LineItem) Check() error {
	for _, v := range []decimal.Decimal{li.UnitPrice, li.Subtotal, li.TaxAmount, li.Total} {
		if v.Abs().GreaterThanOrEqual(maxMoney) {
			return fmt.Errorf("%w: amount %s", ErrLineItemOutOfRange, v)
		}
	}

	if li.Quantity.GreaterThan(maxQuantity) {
		return fmt.Errorf("%w: quantity %s", ErrLineItemOutOfRange, li.Quantity)
	}

	if li.TaxRate.Abs().GreaterThanOrEqual(maxTaxRate) {
		return fmt.Errorf("%w: tax rate %s", ErrLineItemOutOfRange, li.TaxRate)
	}

	return nil
}

// Account is an entry in a client's chart of accounts.
type Account struct {
	ID   uuid.UUID
	Code string
	Name string
	Type string
}

func accountsByCode(accounts []Account) map[string]Account {
	m := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		m[a.Code] = a
	}

	return m
}
