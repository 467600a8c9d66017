package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldin/whatsapp-gateway/internal/finance"
	"github.com/saldin/whatsapp-gateway/internal/storage"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "R$ 0,00"},
		{"45.9", "R$ 45,90"},
		{"1234.56", "R$ 1.234,56"},
		{"1234567.89", "R$ 1.234.567,89"},
		{"100", "R$ 100,00"},
		{"1000", "R$ 1.000,00"},
		{"-45.9", "-R$ 45,90"},
	}

	for _, tt := range tests {
		got := FormatCurrency(decimal.RequireFromString(tt.in))
		if got != tt.want {
			t.Errorf("FormatCurrency(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfirmationMessage(t *testing.T) {
	bal := decimal.RequireFromString("954.10")
	c := &finance.Confirmation{
		Direction:    storage.Expense,
		Amount:       decimal.RequireFromString("45.90"),
		Description:  "mercado",
		CategoryName: "Alimentação",
		AccountLabel: "Conta",
		Code:         "TXN-20250314-A1B2C3",
		CreatedAt:    time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		NewBalance:   &bal,
	}

	msg := ConfirmationMessage(c)
	for _, want := range []string{
		"Gasto registrado",
		"R$ 45,90",
		"mercado",
		"14/03/2025",
		"Alimentação",
		"TXN-20250314-A1B2C3",
		"R$ 954,10",
		`excluir TXN-20250314-A1B2C3`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("ConfirmationMessage missing %q:\n%s", want, msg)
		}
	}
}

func TestConfirmationMessage_IncomeWithoutBalance(t *testing.T) {
	c := &finance.Confirmation{
		Direction:    storage.Income,
		Amount:       decimal.RequireFromString("100.00"),
		Description:  "freela",
		AccountLabel: "Conta",
		Code:         "TXN-20250314-XYZ789",
		CreatedAt:    time.Now(),
	}

	msg := ConfirmationMessage(c)
	if !strings.Contains(msg, "Receita registrada") {
		t.Errorf("expected income title, got:\n%s", msg)
	}
	// Balance read failed upstream; the line is omitted, not zeroed.
	if strings.Contains(msg, "Saldo atual") {
		t.Errorf("expected no balance line, got:\n%s", msg)
	}
}

func TestStatementMessage(t *testing.T) {
	entries := []storage.LedgerEntry{
		{
			Direction:       storage.Expense,
			Amount:          decimal.RequireFromString("45.90"),
			Description:     "mercado",
			TransactionCode: "TXN-20250314-A1B2C3",
			CreatedAt:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			Direction:       storage.Income,
			Amount:          decimal.RequireFromString("1200.00"),
			Description:     "salário",
			TransactionCode: "TXN-20250310-D4E5F6",
			CreatedAt:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	msg := StatementMessage(entries)
	for _, want := range []string{"🔴", "🟢", "R$ 45,90", "R$ 1.200,00", "TXN-20250310-D4E5F6", "14/03/2025"} {
		if !strings.Contains(msg, want) {
			t.Errorf("StatementMessage missing %q:\n%s", want, msg)
		}
	}
}

func TestStatementMessage_Empty(t *testing.T) {
	if got := StatementMessage(nil); got != MsgEmptyStatement {
		t.Errorf("StatementMessage(nil) = %q, want %q", got, MsgEmptyStatement)
	}
}
