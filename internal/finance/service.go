// Package finance persists classified intents as ledger entries and
// answers balance and statement queries.
package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/saldin/whatsapp-gateway/internal/intent"
	"github.com/saldin/whatsapp-gateway/internal/storage"
	"github.com/saldin/whatsapp-gateway/internal/textnorm"
)

// SourceWhatsApp tags every entry created through the messaging channel.
const SourceWhatsApp = "whatsapp"

// bankMethods are the payment methods that imply a bank movement and so
// resolve a settlement account. Credit-card-flavored methods deliberately
// resolve to no account, leaving the default-card rule downstream.
var bankMethods = map[string]bool{
	"pix":           true,
	"debito":        true,
	"transferencia": true,
	"dinheiro":      true,
	"boleto":        true,
}

// Confirmation is the payload the reply formatter renders after a
// successful record or edit.
type Confirmation struct {
	EntryID      string
	Direction    storage.Direction
	Amount       decimal.Decimal
	Description  string
	CategoryName string
	AccountLabel string
	Code         string
	CreatedAt    time.Time
	// NewBalance is nil when the balance could not be computed; a failed
	// read must not void a successful insert.
	NewBalance *decimal.Decimal
}

// Service implements recording, balance and statement operations over the
// collaborating stores.
type Service struct {
	ledger     storage.LedgerStore
	categories storage.CategoryStore
	settlement storage.SettlementResolver
	log        zerolog.Logger
	now        func() time.Time
}

// NewService creates a Service.
func NewService(ledger storage.LedgerStore, categories storage.CategoryStore, settlement storage.SettlementResolver, log zerolog.Logger) *Service {
	return &Service{
		ledger:     ledger,
		categories: categories,
		settlement: settlement,
		log:        log,
		now:        time.Now,
	}
}

// Record persists a transaction intent as a ledger entry and returns the
// confirmation payload including the recomputed balance.
func (s *Service) Record(ctx context.Context, userID string, it intent.Intent) (*Confirmation, error) {
	if !it.IsTransaction() {
		return nil, fmt.Errorf("record: intent kind %q is not a transaction", it.Kind)
	}
	if !it.Amount.IsPositive() {
		return nil, fmt.Errorf("record: amount %s is not positive", it.Amount)
	}

	dir := storage.Expense
	if it.Kind == intent.KindIncome {
		dir = storage.Income
	}

	categoryID, categoryName := s.resolveCategory(ctx, userID, it.SuggestedCategory, dir)
	accountID := s.resolveSettlement(ctx, userID, it.PaymentMethod)

	now := s.now()
	entry := &storage.LedgerEntry{
		ID:              uuid.NewString(),
		UserID:          userID,
		Direction:       dir,
		Amount:          it.Amount,
		Description:     it.Description,
		CategoryID:      categoryID,
		BankAccountID:   accountID,
		Source:          SourceWhatsApp,
		Status:          storage.StatusConfirmed,
		TransactionCode: GenerateCode(now),
		CreatedAt:       now,
	}

	if err := s.ledger.InsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("record: insert entry: %w", err)
	}

	return s.confirmation(ctx, entry, categoryName, it.PaymentMethod), nil
}

// Balance returns the account's liquid balance, preferring the
// precomputed aggregate and falling back to a manual ledger sum so the
// query stays correct under partial degradation.
func (s *Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	bal, err := s.ledger.LiquidBalance(ctx, userID)
	if err == nil {
		return bal, nil
	}
	s.log.Warn().Err(err).Str("user_id", userID).Msg("Balance aggregate unavailable, using manual sum")

	bal, err = s.ledger.SumLedger(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: manual sum: %w", err)
	}
	return bal, nil
}

// LastEntries returns the newest entries across both directions.
func (s *Service) LastEntries(ctx context.Context, userID string, limit int) ([]storage.LedgerEntry, error) {
	entries, err := s.ledger.LastEntries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("last entries: %w", err)
	}
	return entries, nil
}

// FindByCode resolves a transaction code to a live entry owned by userID.
func (s *Service) FindByCode(ctx context.Context, userID, code string) (*storage.LedgerEntry, error) {
	return s.ledger.FindByCode(ctx, userID, code)
}

// Delete soft-deletes the entry with the given code. Foreign or unknown
// codes surface storage.ErrNotFound and mutate nothing.
func (s *Service) Delete(ctx context.Context, userID, code string) error {
	return s.ledger.SoftDelete(ctx, userID, code)
}

// ApplyEdit supersedes the mutable fields of the entry referenced by code
// at the end of an edit dialogue and returns its confirmation payload.
func (s *Service) ApplyEdit(ctx context.Context, userID, code string, amount decimal.Decimal, description, categoryName string) (*Confirmation, error) {
	entry, err := s.ledger.FindByCode(ctx, userID, code)
	if err != nil {
		return nil, fmt.Errorf("apply edit: %w", err)
	}

	categoryID, resolvedName := s.resolveCategory(ctx, userID, categoryName, entry.Direction)
	entry.Amount = amount
	entry.Description = description
	entry.CategoryID = categoryID

	if err := s.ledger.Supersede(ctx, entry); err != nil {
		return nil, fmt.Errorf("apply edit: %w", err)
	}
	return s.confirmation(ctx, entry, resolvedName, ""), nil
}

func (s *Service) confirmation(ctx context.Context, entry *storage.LedgerEntry, categoryName, method string) *Confirmation {
	c := &Confirmation{
		EntryID:      entry.ID,
		Direction:    entry.Direction,
		Amount:       entry.Amount,
		Description:  entry.Description,
		CategoryName: categoryName,
		AccountLabel: accountLabel(entry.BankAccountID, method),
		Code:         entry.TransactionCode,
		CreatedAt:    entry.CreatedAt,
	}
	if bal, err := s.Balance(ctx, entry.UserID); err == nil {
		c.NewBalance = &bal
	} else {
		s.log.Error().Err(err).Str("user_id", entry.UserID).Msg("Balance unavailable for confirmation")
	}
	return c
}

// resolveCategory never fails the transaction: exact case-insensitive
// match first, then the direction's generic fallback, then none.
func (s *Service) resolveCategory(ctx context.Context, userID, name string, dir storage.Direction) (*string, string) {
	if name != "" {
		cat, err := s.categories.FindByName(ctx, userID, name, dir)
		if err == nil {
			return &cat.ID, cat.Name
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Str("user_id", userID).Str("category", name).Msg("Category lookup failed")
		}
	}

	cat, err := s.categories.Fallback(ctx, userID, dir)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Fallback category lookup failed")
		}
		return nil, name
	}
	return &cat.ID, cat.Name
}

func (s *Service) resolveSettlement(ctx context.Context, userID, method string) *string {
	if !bankMethods[textnorm.Fold(method)] {
		return nil
	}
	accountID, err := s.settlement.DefaultSettlementAccount(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Settlement account lookup failed")
		return nil
	}
	return accountID
}

func accountLabel(bankAccountID *string, method string) string {
	if bankAccountID == nil && isCreditMethod(method) {
		return "Cartão de Crédito"
	}
	return "Conta"
}

func isCreditMethod(method string) bool {
	switch textnorm.Fold(method) {
	case "credito", "cartao", "cartao de credito", "credit":
		return true
	}
	return false
}
