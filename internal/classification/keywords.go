package classification

import (
	"strings"

	"github.com/MrJamesThe3rd/docflow/internal/document"
)

// keywordTable is searched in order; more specific phrases come first.
var keywordTable = []struct {
	keyword  string
	category document.Category
}{
	{"engagement letter", document.CategoryEngagementLetter},
	{"letter of engagement", document.CategoryEngagementLetter},
	{"bank statement", document.CategoryBankStatement},
	{"statement of account", document.CategoryBankStatement},
	{"passport", document.CategoryPassport},
	{"identity card", document.CategoryIDCard},
	{"id card", document.CategoryIDCard},
	{"driving licence", document.CategoryIDCard},
	{"driver's license", document.CategoryIDCard},
	{"receipt", document.CategoryReceipt},
	{"invoice", document.CategoryInvoice},
	{"contract", document.CategoryContract},
	{"agreement", document.CategoryContract},
}

// recoverFromKeywords is a best-effort recovery for free-text answers that explain a
// category without leading with it. Containment matching can misfire on negations.
func recoverFromKeywords(text string) (document.Category, bool) {
	lower := strings.ToLower(text)

	for _, k := range keywordTable {
		if strings.Contains(lower, k.keyword) {
			return k.category, true
		}
	}

	return document.CategoryOther, false
}
