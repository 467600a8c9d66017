// Package postgres implements the storage contracts on PostgreSQL via
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/saldin/whatsapp-gateway/internal/storage"
)

// Store implements every storage interface over one *sql.DB. The schema
// is owned by the surrounding web application; see schema.sql for the
// slice this service relies on.
type Store struct {
	db *sql.DB
}

// New creates a Store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// MessageLog

func (s *Store) Insert(ctx context.Context, msg *storage.InboundMessage) error {
	const query = `INSERT INTO whatsapp_messages (id, message_id, phone, kind, payload, processed, received_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)`

	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.MessageID, msg.Phone, string(msg.Kind), msg.Payload, msg.ReceivedAt)
	if isUniqueViolation(err) {
		return storage.ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) MarkProcessed(ctx context.Context, id, result string) error {
	const query = `UPDATE whatsapp_messages SET processed = true, result = $2 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, result); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id, cause string) error {
	const query = `UPDATE whatsapp_messages SET processed = true, error_message = $2 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, cause); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// AccountDirectory

func (s *Store) FindVerified(ctx context.Context, phones []string) (string, error) {
	// linked_at ordering keeps the pick deterministic should a number
	// ever be linked to more than one account.
	const query = `SELECT user_id FROM whatsapp_users
		WHERE phone_number = ANY($1) AND verified
		ORDER BY linked_at LIMIT 1`

	var userID string
	err := s.db.QueryRowContext(ctx, query, pq.Array(phones)).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find verified account: %w", err)
	}
	return userID, nil
}

// CategoryStore

func (s *Store) FindByName(ctx context.Context, userID, name string, dir storage.Direction) (*storage.Category, error) {
	const query = `SELECT id, name FROM categories
		WHERE user_id = $1 AND type = $2 AND lower(name) = lower($3) LIMIT 1`

	var cat storage.Category
	err := s.db.QueryRowContext(ctx, query, userID, string(dir), name).Scan(&cat.ID, &cat.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &cat, nil
}

func (s *Store) Fallback(ctx context.Context, userID string, dir storage.Direction) (*storage.Category, error) {
	const query = `SELECT id, name FROM categories
		WHERE user_id = $1 AND type = $2 AND name ILIKE '%outros%' LIMIT 1`

	var cat storage.Category
	err := s.db.QueryRowContext(ctx, query, userID, string(dir)).Scan(&cat.ID, &cat.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fallback category: %w", err)
	}
	return &cat, nil
}

// LedgerStore

func tableFor(dir storage.Direction) string {
	if dir == storage.Income {
		return "incomes"
	}
	return "expenses"
}

func (s *Store) InsertEntry(ctx context.Context, e *storage.LedgerEntry) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(id, user_id, amount, description, category_id, bank_account_id, source, status, transaction_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, tableFor(e.Direction))

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Amount.StringFixed(2), e.Description,
		e.CategoryID, e.BankAccountID, e.Source, e.Status, e.TransactionCode, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert %s entry: %w", e.Direction, err)
	}
	return nil
}

const entryColumns = `id, user_id, amount, description, category_id, bank_account_id, source, status, transaction_code, created_at`

func (s *Store) FindByCode(ctx context.Context, userID, code string) (*storage.LedgerEntry, error) {
	for _, dir := range []storage.Direction{storage.Expense, storage.Income} {
		query := fmt.Sprintf(`SELECT %s FROM %s
			WHERE user_id = $1 AND transaction_code = $2
			  AND status <> 'deleted' AND deleted_at IS NULL`, entryColumns, tableFor(dir))

		entry, err := s.scanEntry(s.db.QueryRowContext(ctx, query, userID, code), dir)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find entry by code: %w", err)
		}
		return entry, nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) SoftDelete(ctx context.Context, userID, code string) error {
	for _, dir := range []storage.Direction{storage.Expense, storage.Income} {
		query := fmt.Sprintf(`UPDATE %s SET status = 'deleted', deleted_at = now()
			WHERE user_id = $1 AND transaction_code = $2
			  AND status <> 'deleted' AND deleted_at IS NULL`, tableFor(dir))

		res, err := s.db.ExecContext(ctx, query, userID, code)
		if err != nil {
			return fmt.Errorf("soft delete: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) Supersede(ctx context.Context, e *storage.LedgerEntry) error {
	query := fmt.Sprintf(`UPDATE %s SET amount = $3, description = $4, category_id = $5
		WHERE id = $1 AND user_id = $2`, tableFor(e.Direction))

	res, err := s.db.ExecContext(ctx, query, e.ID, e.UserID, e.Amount.StringFixed(2), e.Description, e.CategoryID)
	if err != nil {
		return fmt.Errorf("supersede entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) LastEntries(ctx context.Context, userID string, limit int) ([]storage.LedgerEntry, error) {
	const query = `
		SELECT ` + entryColumns + `, 'expense' AS direction FROM expenses
		WHERE user_id = $1 AND status <> 'deleted' AND deleted_at IS NULL
		UNION ALL
		SELECT ` + entryColumns + `, 'income' AS direction FROM incomes
		WHERE user_id = $1 AND status <> 'deleted' AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("last entries: %w", err)
	}
	defer rows.Close()

	var entries []storage.LedgerEntry
	for rows.Next() {
		var (
			e         storage.LedgerEntry
			amount    string
			direction string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &amount, &e.Description, &e.CategoryID,
			&e.BankAccountID, &e.Source, &e.Status, &e.TransactionCode, &e.CreatedAt, &direction); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Direction = storage.Direction(direction)
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("last entries: %w", err)
	}
	return entries, nil
}

func (s *Store) LiquidBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	const query = `SELECT calculate_liquid_balance($1)`

	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("liquid balance aggregate: %w", err)
	}
	if !raw.Valid {
		return decimal.Zero, nil
	}
	bal, err := decimal.NewFromString(raw.String)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", raw.String, err)
	}
	return bal, nil
}

func (s *Store) SumLedger(ctx context.Context, userID string) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE((SELECT SUM(amount) FROM incomes
			WHERE user_id = $1 AND status <> 'deleted' AND deleted_at IS NULL), 0)
		     - COALESCE((SELECT SUM(amount) FROM expenses
			WHERE user_id = $1 AND status <> 'deleted' AND deleted_at IS NULL), 0)`

	var raw string
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("sum ledger: %w", err)
	}
	bal, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse sum %q: %w", raw, err)
	}
	return bal, nil
}

func (s *Store) scanEntry(row *sql.Row, dir storage.Direction) (*storage.LedgerEntry, error) {
	var (
		e      storage.LedgerEntry
		amount string
	)
	err := row.Scan(&e.ID, &e.UserID, &amount, &e.Description, &e.CategoryID,
		&e.BankAccountID, &e.Source, &e.Status, &e.TransactionCode, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Direction = dir
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &e, nil
}

// SettlementResolver

func (s *Store) DefaultSettlementAccount(ctx context.Context, userID string) (*string, error) {
	const profileQuery = `SELECT wa_default_expense_account_id, wa_default_income_account_id
		FROM profiles WHERE user_id = $1`

	var expenseAcc, incomeAcc sql.NullString
	err := s.db.QueryRowContext(ctx, profileQuery, userID).Scan(&expenseAcc, &incomeAcc)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement profile: %w", err)
	}
	if expenseAcc.Valid {
		return &expenseAcc.String, nil
	}
	if incomeAcc.Valid {
		return &incomeAcc.String, nil
	}

	// Any active account, checking first.
	const accountQuery = `SELECT id FROM bank_accounts
		WHERE user_id = $1 AND active
		ORDER BY account_type LIMIT 1`

	var id string
	err = s.db.QueryRowContext(ctx, accountQuery, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settlement account: %w", err)
	}
	return &id, nil
}

// SessionStore

func (s *Store) Get(ctx context.Context, userID string) (*storage.EditSession, error) {
	const query = `SELECT user_id, entry_code, direction, waiting_for, amount, description, expires_at
		FROM edit_sessions WHERE user_id = $1 AND expires_at > now()`

	var (
		sess   storage.EditSession
		dir    string
		field  string
		amount sql.NullString
		desc   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&sess.UserID, &sess.EntryCode, &dir, &field, &amount, &desc, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get edit session: %w", err)
	}

	sess.Direction = storage.Direction(dir)
	sess.WaitingFor = storage.EditField(field)
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, fmt.Errorf("parse session amount %q: %w", amount.String, err)
		}
		sess.Amount = &d
	}
	if desc.Valid {
		sess.Description = &desc.String
	}
	return &sess, nil
}

// Put is an upsert. Concurrent messages from the same account race on
// this row and resolve by last write wins.
func (s *Store) Put(ctx context.Context, sess *storage.EditSession) error {
	const query = `INSERT INTO edit_sessions (user_id, entry_code, direction, waiting_for, amount, description, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			entry_code = EXCLUDED.entry_code,
			direction = EXCLUDED.direction,
			waiting_for = EXCLUDED.waiting_for,
			amount = EXCLUDED.amount,
			description = EXCLUDED.description,
			expires_at = EXCLUDED.expires_at`

	var amount interface{}
	if sess.Amount != nil {
		amount = sess.Amount.StringFixed(2)
	}
	_, err := s.db.ExecContext(ctx, query,
		sess.UserID, sess.EntryCode, string(sess.Direction), string(sess.WaitingFor),
		amount, sess.Description, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("put edit session: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	const query = `DELETE FROM edit_sessions WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete edit session: %w", err)
	}
	return nil
}
