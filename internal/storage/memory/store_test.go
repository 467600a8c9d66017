package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldin/whatsapp-gateway/internal/storage"
)

func TestInsert_Duplicate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	msg := &storage.InboundMessage{
		ID:         "row-1",
		MessageID:  "wamid.1",
		Phone:      "5547999998888",
		Kind:       storage.MessageText,
		ReceivedAt: time.Now(),
	}
	require.NoError(t, s.Insert(ctx, msg))

	retry := *msg
	retry.ID = "row-2"
	assert.ErrorIs(t, s.Insert(ctx, &retry), storage.ErrDuplicateMessage)

	logged, ok := s.Message("wamid.1")
	require.True(t, ok)
	assert.Equal(t, "row-1", logged.ID, "original row must survive the retry")
}

func TestOutcome(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.MarkProcessed(ctx, "row-1", "balance"))
	require.NoError(t, s.MarkFailed(ctx, "row-2", "boom"))

	result, errMsg := s.Outcome("row-1")
	assert.Equal(t, "balance", result)
	assert.Empty(t, errMsg)

	result, errMsg = s.Outcome("row-2")
	assert.Empty(t, result)
	assert.Equal(t, "boom", errMsg)
}

func TestFindVerified(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.LinkAccount("554799998888", "user-1", true)
	s.LinkAccount("5511000000000", "user-2", false)

	// Second variant matches.
	userID, err := s.FindVerified(ctx, []string{"5547999998888", "554799998888"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	// Linked but unverified numbers do not resolve.
	_, err = s.FindVerified(ctx, []string{"5511000000000"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.FindVerified(ctx, []string{"550000000000"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSoftDelete_HidesEntry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	entry := &storage.LedgerEntry{
		ID:              "e-1",
		UserID:          "user-1",
		Direction:       storage.Expense,
		Amount:          decimal.RequireFromString("45.90"),
		Description:     "mercado",
		Status:          storage.StatusConfirmed,
		TransactionCode: "TXN-20250314-A1B2C3",
		CreatedAt:       time.Now(),
	}
	require.NoError(t, s.InsertEntry(ctx, entry))

	require.NoError(t, s.SoftDelete(ctx, "user-1", entry.TransactionCode))

	_, err := s.FindByCode(ctx, "user-1", entry.TransactionCode)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	entries, err := s.LastEntries(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	sum, err := s.SumLedger(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, sum.IsZero(), "deleted entries must not count in the sum")
}

func TestSoftDelete_ForeignCode(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	entry := &storage.LedgerEntry{
		ID:              "e-1",
		UserID:          "user-1",
		Amount:          decimal.RequireFromString("10.00"),
		Status:          storage.StatusConfirmed,
		TransactionCode: "TXN-20250314-A1B2C3",
	}
	require.NoError(t, s.InsertEntry(ctx, entry))

	err := s.SoftDelete(ctx, "someone-else", entry.TransactionCode)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Owner still sees it.
	_, err = s.FindByCode(ctx, "user-1", entry.TransactionCode)
	assert.NoError(t, err)
}

func TestSessionUpsert(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := &storage.EditSession{
		UserID:     "user-1",
		EntryCode:  "TXN-20250314-A1B2C3",
		Direction:  storage.Expense,
		WaitingFor: storage.FieldAmount,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, s.Put(ctx, first))

	second := &storage.EditSession{
		UserID:     "user-1",
		EntryCode:  "TXN-20250315-D4E5F6",
		Direction:  storage.Income,
		WaitingFor: storage.FieldAmount,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, s.Put(ctx, second))

	got, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "TXN-20250315-D4E5F6", got.EntryCode, "last write wins")
}

func TestSessionExpiry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &storage.EditSession{
		UserID:     "user-1",
		EntryCode:  "TXN-20250314-A1B2C3",
		WaitingFor: storage.FieldAmount,
		ExpiresAt:  time.Now().Add(-time.Minute),
	}))

	_, err := s.Get(ctx, "user-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionDelete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &storage.EditSession{
		UserID:     "user-1",
		EntryCode:  "TXN-20250314-A1B2C3",
		WaitingFor: storage.FieldAmount,
		ExpiresAt:  time.Now().Add(10 * time.Minute),
	}))
	require.NoError(t, s.Delete(ctx, "user-1"))

	_, err := s.Get(ctx, "user-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting an absent session is not an error.
	assert.NoError(t, s.Delete(ctx, "user-1"))
}
