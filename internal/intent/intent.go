// Package intent turns heterogeneous WhatsApp messages (text, voice,
// receipt photos) into a structured financial intent using Gemini.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags the variant of an Intent.
type Kind string

const (
	KindExpense    Kind = "expense"
	KindIncome     Kind = "income"
	KindBalance    Kind = "balance"
	KindStatement  Kind = "statement"
	KindIncomplete Kind = "incomplete"
)

// Intent is the validated classification of one message. Transaction
// kinds always carry a positive two-decimal Amount and a non-empty
// Description; anything the model produced that violates that is coerced
// to KindIncomplete at the boundary instead of being trusted downstream.
type Intent struct {
	Kind              Kind
	Amount            decimal.Decimal
	Description       string
	SuggestedCategory string
	PaymentMethod     string
}

// Incomplete returns the ambiguous-classification value.
func Incomplete() Intent {
	return Intent{Kind: KindIncomplete}
}

// IsTransaction reports whether the intent records money movement.
func (i Intent) IsTransaction() bool {
	return i.Kind == KindExpense || i.Kind == KindIncome
}

// thousandsOnly matches comma-less pt-BR amounts whose dots are grouping
// separators ("1.234", "1.234.567").
var thousandsOnly = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// ParseAmount parses a Brazilian-formatted monetary string ("45,90",
// "1.234,56", "R$ 50") into a positive two-decimal value. Plain decimal
// points are accepted too since voice transcriptions produce them, but
// dot-grouped digits without a comma stay thousands separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "R$")
	clean = strings.TrimPrefix(clean, "r$")
	clean = strings.TrimSpace(clean)
	if strings.Contains(clean, ",") {
		// pt-BR: dots are thousand separators, comma is the decimal mark.
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	} else if thousandsOnly.MatchString(clean) {
		clean = strings.ReplaceAll(clean, ".", "")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %q is not positive", s)
	}
	return d, nil
}
