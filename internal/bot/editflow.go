package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saldin/whatsapp-gateway/internal/intent"
	"github.com/saldin/whatsapp-gateway/internal/storage"
	"github.com/saldin/whatsapp-gateway/internal/textnorm"
)

// DefaultEditTTL bounds how long an abandoned edit dialogue stays open.
const DefaultEditTTL = 10 * time.Minute

// EditFlow is the per-account edit conversation state machine. State
// lives in the session store, not in memory: consecutive messages may be
// handled by different process instances, and concurrent messages from
// the same account resolve by last write wins on the session row.
type EditFlow struct {
	sessions storage.SessionStore
	fin      Finance
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewEditFlow creates the state machine. ttl <= 0 uses DefaultEditTTL.
func NewEditFlow(sessions storage.SessionStore, fin Finance, ttl time.Duration, log zerolog.Logger) *EditFlow {
	if ttl <= 0 {
		ttl = DefaultEditTTL
	}
	return &EditFlow{sessions: sessions, fin: fin, ttl: ttl, log: log, now: time.Now}
}

// Start opens an edit session for the entry referenced by code,
// overriding any session already in flight for this user. The reply
// prompts for the first field.
func (f *EditFlow) Start(ctx context.Context, userID, code string) (string, error) {
	entry, err := f.fin.FindByCode(ctx, userID, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return MsgNotFound, nil
		}
		return "", fmt.Errorf("edit start: %w", err)
	}

	session := &storage.EditSession{
		UserID:     userID,
		EntryCode:  entry.TransactionCode,
		Direction:  entry.Direction,
		WaitingFor: storage.FieldAmount,
		ExpiresAt:  f.now().Add(f.ttl),
	}
	if err := f.sessions.Put(ctx, session); err != nil {
		return "", fmt.Errorf("edit start: save session: %w", err)
	}
	return PromptAmount(entry.TransactionCode), nil
}

// Continue consumes text as the next field value of an open session.
// handled is false when the user has no session, in which case the
// message belongs to the normal command path.
func (f *EditFlow) Continue(ctx context.Context, userID, text string) (reply string, handled bool, err error) {
	session, err := f.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("edit continue: load session: %w", err)
	}

	if textnorm.Fold(strings.TrimSpace(text)) == "cancelar" {
		if err := f.sessions.Delete(ctx, userID); err != nil {
			return "", false, fmt.Errorf("edit continue: clear session: %w", err)
		}
		return MsgEditCancelled, true, nil
	}

	switch session.WaitingFor {
	case storage.FieldAmount:
		amount, perr := intent.ParseAmount(text)
		if perr != nil {
			return MsgInvalidAmount, true, nil
		}
		session.Amount = &amount
		session.WaitingFor = storage.FieldDescription
		session.ExpiresAt = f.now().Add(f.ttl)
		if err := f.sessions.Put(ctx, session); err != nil {
			return "", false, fmt.Errorf("edit continue: save session: %w", err)
		}
		return PromptDescription(), true, nil

	case storage.FieldDescription:
		desc := strings.TrimSpace(text)
		if desc == "" {
			return PromptDescription(), true, nil
		}
		session.Description = &desc
		session.WaitingFor = storage.FieldCategory
		session.ExpiresAt = f.now().Add(f.ttl)
		if err := f.sessions.Put(ctx, session); err != nil {
			return "", false, fmt.Errorf("edit continue: save session: %w", err)
		}
		return PromptCategory(), true, nil

	case storage.FieldCategory:
		if session.Amount == nil || session.Description == nil {
			break // corrupt row, handled below
		}
		// Final field: persist the supersede and clear the session even
		// when the target vanished underneath the dialogue.
		defer func() {
			if derr := f.sessions.Delete(ctx, userID); derr != nil {
				f.log.Warn().Err(derr).Str("user_id", userID).Msg("Failed to clear edit session")
			}
		}()

		conf, aerr := f.fin.ApplyEdit(ctx, userID, session.EntryCode, *session.Amount, *session.Description, strings.TrimSpace(text))
		if aerr != nil {
			if errors.Is(aerr, storage.ErrNotFound) {
				return MsgNotFound, true, nil
			}
			return "", false, fmt.Errorf("edit continue: apply: %w", aerr)
		}
		return EditedMessage(conf), true, nil
	}

	// Unknown waiting_for value means a corrupt session row; drop it.
	f.log.Error().Str("user_id", userID).Str("waiting_for", string(session.WaitingFor)).Msg("Corrupt edit session")
	if err := f.sessions.Delete(ctx, userID); err != nil {
		return "", false, fmt.Errorf("edit continue: clear corrupt session: %w", err)
	}
	return "", false, nil
}
