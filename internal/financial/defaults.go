package financial

import (
	"time"

	"github.com/MrJamesThe3rd/docflow/internal/document"
)

const invoiceTerms = 30 * 24 * time.Hour

// applyCategoryDefaults fills the fields a category implies. Extraction and validation
// both call it so the rules cannot drift apart.
func applyCategoryDefaults(d *Draft, category document.Category, now time.Time) error {
	d.ReferenceNumber = d.ReferenceNumber.trim()
	d.IssueDate = d.IssueDate.trim()
	d.DueDate = d.DueDate.trim()
	d.TransactionDate = d.TransactionDate.trim()

	switch category {
	case document.CategoryReceipt:
		date := d.TransactionDate
		if date == "" {
			date = d.IssueDate
		}

		if date == "" {
			date = Text(now.UTC().Format(time.DateOnly))
		}

		d.IssueDate, d.DueDate = date, date

		if d.ReferenceNumber == "" {
			d.ReferenceNumber = Text("RCPT-" + now.UTC().Format("20060102150405"))
		}

	case document.CategoryInvoice:
		if d.IssueDate == "" {
			return ErrMissingIssueDate
		}

		if d.DueDate == "" {
			if issued, ok := ParseDate(string(d.IssueDate)); ok {
				d.DueDate = Text(issued.Add(invoiceTerms).Format(time.DateOnly))
			}
		}

	default:
		return ErrNotFinancial
	}

	return nil
}
