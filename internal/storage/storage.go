// Package storage defines the contracts the conversational pipeline has
// with the surrounding application's data store. The web app owns the
// schema; this service only consumes the slices of it listed here.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateMessage is returned by MessageLog.Insert when the
	// provider message ID was already logged. It is the only dedup
	// mechanism in the pipeline, so callers must treat it as terminal.
	ErrDuplicateMessage = errors.New("storage: duplicate message")

	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("storage: not found")
)

// MessageKind is the content type of an inbound WhatsApp message.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageAudio MessageKind = "audio"
	MessageImage MessageKind = "image"
)

// InboundMessage is the raw delivery log row, written before any
// processing so that duplicates are rejected up front.
type InboundMessage struct {
	ID         string
	MessageID  string
	Phone      string
	Kind       MessageKind
	Payload    string
	ReceivedAt time.Time
}

// MessageLog records inbound deliveries and their processing outcome.
type MessageLog interface {
	// Insert stores the message, returning ErrDuplicateMessage if the
	// provider message ID was seen before.
	Insert(ctx context.Context, msg *InboundMessage) error
	// MarkProcessed attaches the processing result to a stored message.
	MarkProcessed(ctx context.Context, id, result string) error
	// MarkFailed attaches an error message to a stored message.
	MarkFailed(ctx context.Context, id, cause string) error
}

// AccountDirectory resolves phone numbers to verified account IDs.
type AccountDirectory interface {
	// FindVerified returns the account ID of the first verified link
	// matching any of the given phone variants, or ErrNotFound.
	FindVerified(ctx context.Context, phones []string) (string, error)
}

// Direction distinguishes the two ledger tables.
type Direction string

const (
	Expense Direction = "expense"
	Income  Direction = "income"
)

// Category is a per-user, per-direction spending category.
type Category struct {
	ID   string
	Name string
}

// CategoryStore performs best-effort category resolution.
type CategoryStore interface {
	// FindByName does a case-insensitive name match scoped to the user
	// and direction. ErrNotFound when nothing matches.
	FindByName(ctx context.Context, userID, name string, dir Direction) (*Category, error)
	// Fallback returns the generic "Outros" category for the direction.
	Fallback(ctx context.Context, userID string, dir Direction) (*Category, error)
}

// Entry statuses. Incomes have no pending state; entries created through
// the messaging channel are confirmed immediately.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDeleted   = "deleted"
)

// LedgerEntry is one expense or income row.
type LedgerEntry struct {
	ID              string
	UserID          string
	Direction       Direction
	Amount          decimal.Decimal
	Description     string
	CategoryID      *string
	BankAccountID   *string
	Source          string
	Status          string
	TransactionCode string
	CreatedAt       time.Time
}

// LedgerStore persists and reads ledger entries.
type LedgerStore interface {
	// InsertEntry stores a new entry in the table for its direction.
	InsertEntry(ctx context.Context, e *LedgerEntry) error
	// FindByCode returns the non-deleted entry with the given
	// transaction code owned by userID, or ErrNotFound.
	FindByCode(ctx context.Context, userID, code string) (*LedgerEntry, error)
	// SoftDelete flips the entry to deleted without removing the row,
	// preserving reconciliation history. ErrNotFound when the code does
	// not resolve to a live entry owned by userID.
	SoftDelete(ctx context.Context, userID, code string) error
	// Supersede replaces the mutable fields (amount, description,
	// category) of an existing entry in full.
	Supersede(ctx context.Context, e *LedgerEntry) error
	// LastEntries merges both directions, newest first, at most limit.
	LastEntries(ctx context.Context, userID string, limit int) ([]LedgerEntry, error)
	// LiquidBalance returns the precomputed aggregate balance.
	LiquidBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	// SumLedger computes the balance manually (incomes minus
	// non-deleted expenses), used when the aggregate is unavailable.
	SumLedger(ctx context.Context, userID string) (decimal.Decimal, error)
}

// SettlementResolver finds the account a bank-moving payment settles on.
type SettlementResolver interface {
	// DefaultSettlementAccount returns the user's preferred settlement
	// account ID, or nil when none is configured (cash-like fallback).
	DefaultSettlementAccount(ctx context.Context, userID string) (*string, error)
}

// EditField is the ledger-entry field an edit session is waiting on.
type EditField string

const (
	FieldAmount      EditField = "amount"
	FieldDescription EditField = "description"
	FieldCategory    EditField = "category"
)

// EditSession is the persisted per-account edit dialogue state. At most
// one session exists per user; starting a new edit overrides it.
type EditSession struct {
	UserID      string
	EntryCode   string
	Direction   Direction
	WaitingFor  EditField
	Amount      *decimal.Decimal
	Description *string
	ExpiresAt   time.Time
}

// SessionStore keeps edit sessions outside process memory so consecutive
// messages can be handled by different instances. Put is an upsert with
// last-write-wins semantics.
type SessionStore interface {
	// Get returns the open session for the user, treating expired rows
	// as absent. ErrNotFound when there is none.
	Get(ctx context.Context, userID string) (*EditSession, error)
	Put(ctx context.Context, s *EditSession) error
	Delete(ctx context.Context, userID string) error
}
