// Package memory implements the storage contracts in process memory. It
// backs tests and local development; production uses the postgres store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldin/whatsapp-gateway/internal/storage"
)

// Store is a mutex-guarded in-memory implementation of every storage
// interface.
type Store struct {
	mu        sync.Mutex
	messages  map[string]*storage.InboundMessage // by MessageID
	accounts  map[string]account                 // phone -> account
	cats      []category
	entries   map[string]*storage.LedgerEntry // by entry ID
	sessions  map[string]*storage.EditSession // by user ID
	results   map[string]string               // message row ID -> result
	failures  map[string]string               // message row ID -> error message
	defaults  map[string]string               // user ID -> settlement account ID
	balances  map[string]decimal.Decimal      // user ID -> aggregate balance
	aggregate bool
	now       func() time.Time
}

type account struct {
	userID   string
	verified bool
}

type category struct {
	id     string
	userID string
	name   string
	dir    storage.Direction
}

// NewStore creates an empty store with the aggregate balance path
// enabled.
func NewStore() *Store {
	return &Store{
		messages:  make(map[string]*storage.InboundMessage),
		accounts:  make(map[string]account),
		entries:   make(map[string]*storage.LedgerEntry),
		sessions:  make(map[string]*storage.EditSession),
		results:   make(map[string]string),
		failures:  make(map[string]string),
		defaults:  make(map[string]string),
		balances:  make(map[string]decimal.Decimal),
		aggregate: true,
		now:       time.Now,
	}
}

// ─── seeding helpers ───

// LinkAccount registers a phone-number link.
func (s *Store) LinkAccount(phone, userID string, verified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[phone] = account{userID: userID, verified: verified}
}

// AddCategory registers a category for lookups.
func (s *Store) AddCategory(id, userID, name string, dir storage.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats = append(s.cats, category{id: id, userID: userID, name: name, dir: dir})
}

// SetDefaultSettlementAccount sets the user's settlement account.
func (s *Store) SetDefaultSettlementAccount(userID, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[userID] = accountID
}

// DisableAggregate makes LiquidBalance fail, forcing the manual fallback.
func (s *Store) DisableAggregate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregate = false
}

// Entries returns a snapshot of all ledger entries.
func (s *Store) Entries() []storage.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// Message returns the logged message for a provider message ID.
func (s *Store) Message(messageID string) (storage.InboundMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return storage.InboundMessage{}, false
	}
	return *m, true
}

// ─── MessageLog ───

func (s *Store) Insert(_ context.Context, msg *storage.InboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.MessageID]; ok {
		return storage.ErrDuplicateMessage
	}
	cp := *msg
	s.messages[msg.MessageID] = &cp
	return nil
}

func (s *Store) MarkProcessed(_ context.Context, id, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = result
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = cause
	return nil
}

// Outcome returns the recorded result and error message for a message
// row ID.
func (s *Store) Outcome(id string) (result, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[id], s.failures[id]
}

// ─── AccountDirectory ───

func (s *Store) FindVerified(_ context.Context, phones []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range phones {
		if acc, ok := s.accounts[p]; ok && acc.verified {
			return acc.userID, nil
		}
	}
	return "", storage.ErrNotFound
}

// ─── CategoryStore ───

func (s *Store) FindByName(_ context.Context, userID, name string, dir storage.Direction) (*storage.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.userID == userID && c.dir == dir && strings.EqualFold(c.name, name) {
			return &storage.Category{ID: c.id, Name: c.name}, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) Fallback(_ context.Context, userID string, dir storage.Direction) (*storage.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.userID == userID && c.dir == dir && strings.Contains(strings.ToLower(c.name), "outros") {
			return &storage.Category{ID: c.id, Name: c.name}, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ─── LedgerStore ───

func (s *Store) InsertEntry(_ context.Context, e *storage.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

func (s *Store) FindByCode(_ context.Context, userID, code string) (*storage.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.findLive(userID, code)
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *Store) SoftDelete(_ context.Context, userID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.findLive(userID, code)
	if !ok {
		return storage.ErrNotFound
	}
	e.Status = storage.StatusDeleted
	return nil
}

func (s *Store) Supersede(_ context.Context, e *storage.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID]
	if !ok || cur.UserID != e.UserID {
		return storage.ErrNotFound
	}
	cur.Amount = e.Amount
	cur.Description = e.Description
	cur.CategoryID = e.CategoryID
	return nil
}

func (s *Store) LastEntries(_ context.Context, userID string, limit int) ([]storage.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.LedgerEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.Status != storage.StatusDeleted {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) LiquidBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aggregate {
		return decimal.Zero, storage.ErrNotFound
	}
	if bal, ok := s.balances[userID]; ok {
		return bal, nil
	}
	return s.sumLocked(userID), nil
}

func (s *Store) SumLedger(_ context.Context, userID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(userID), nil
}

func (s *Store) sumLocked(userID string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.entries {
		if e.UserID != userID || e.Status == storage.StatusDeleted {
			continue
		}
		if e.Direction == storage.Income {
			total = total.Add(e.Amount)
		} else {
			total = total.Sub(e.Amount)
		}
	}
	return total
}

func (s *Store) findLive(userID, code string) (*storage.LedgerEntry, bool) {
	for _, e := range s.entries {
		if e.UserID == userID && e.TransactionCode == code && e.Status != storage.StatusDeleted {
			return e, true
		}
	}
	return nil, false
}

// ─── SettlementResolver ───

func (s *Store) DefaultSettlementAccount(_ context.Context, userID string) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.defaults[userID]; ok {
		return &id, nil
	}
	return nil, nil
}

// ─── SessionStore ───

func (s *Store) Get(_ context.Context, userID string) (*storage.EditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok || s.now().After(sess.ExpiresAt) {
		return nil, storage.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) Put(_ context.Context, sess *storage.EditSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.UserID] = &cp
	return nil
}

func (s *Store) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
