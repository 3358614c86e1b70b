package financial

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/docflow/internal/document"
)

const maxDescription = 500

var hundred = decimal.NewFromInt(100)

// Validator coerces a draft into a consistent record. It performs no I/O.
type Validator struct {
	Now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{Now: time.Now}
}

// Validate returns a record whose line arithmetic and header totals are consistent, or
// an error wrapping ErrNoRecord when the draft cannot yield one. Money is coerced to zero
// rather than failing; dates are not.
func (v *Validator) Validate(d *Draft, category document.Category, accounts []Account) (*Record, error) {
	if d == nil {
		return nil, ErrNoStructuredData
	}

	draft := *d
	if err := applyCategoryDefaults(&draft, category, v.Now()); err != nil {
		return nil, err
	}

	issued, ok := ParseDate(string(draft.IssueDate))
	if !ok {
		return nil, ErrUnparseableDate
	}

	due := issued
	if draft.DueDate != "" {
		if due, ok = ParseDate(string(draft.DueDate)); !ok {
			return nil, ErrUnparseableDate
		}
	}

	rec := &Record{
		Kind:            category,
		ReferenceNumber: string(draft.ReferenceNumber),
		IssueDate:       issued,
		DueDate:         due,
		Subtotal:        money(draft.Subtotal),
		TaxAmount:       money(draft.TaxAmount),
		TotalAmount:     money(draft.TotalAmount),
		LineItems:       make([]LineItem, 0, len(draft.LineItems)),
	}

	codes := accountsByCode(accounts)

	for i, dl := range draft.LineItems {
		rec.LineItems = append(rec.LineItems, lineItem(i+1, dl, codes))
	}

	reconcileHeader(rec)

	return rec, nil
}

func lineItem(pos int, dl DraftLine, codes map[string]Account) LineItem {
	qty, price := lineQuantity(dl.Quantity, dl.UnitPrice)

	li := LineItem{
		Position:    pos,
		Description: clip(strings.TrimSpace(string(dl.Description)), maxDescription),
		Quantity:    qty,
		UnitPrice:   price,
		TaxRate:     taxRate(dl.TaxRate),
	}

	li.Subtotal = li.Quantity.Mul(li.UnitPrice).Round(2)
	li.TaxAmount = li.Subtotal.Mul(li.TaxRate).Div(hundred).Round(2)
	li.Total = li.Subtotal.Add(li.TaxAmount)

	if acc, ok := codes[strings.TrimSpace(string(dl.AccountCode))]; ok {
		li.AccountCode = &acc.Code
		li.AccountID = &acc.ID
	}

	return li
}

// reconcileHeader fills header amounts the draft left at zero from the line items.
func reconcileHeader(rec *Record) {
	var subtotal, tax, total decimal.Decimal

	for _, li := range rec.LineItems {
		subtotal = subtotal.Add(li.Subtotal)
		tax = tax.Add(li.TaxAmount)
		total = total.Add(li.Total)
	}

	if rec.Subtotal.IsZero() {
		rec.Subtotal = subtotal
	}

	if rec.TaxAmount.IsZero() {
		rec.TaxAmount = tax
	}

	if rec.TotalAmount.IsZero() {
		rec.TotalAmount = total
	}
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n])
}
