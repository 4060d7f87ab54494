package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MutationResult is returned by every successful credit or debit.
type MutationResult struct {
	NewBalance int64  `json:"new_balance"`
	EntryID    string `json:"entry_id"`
}

// BalanceService is the only component allowed to write balances and
// ledger entries. Every mutation is one transaction: balance row,
// ledger append, and the points_balance mirror on users commit or roll
// back together. Per-user serialization comes from an in-process mutex
// per user id plus a FOR UPDATE re-read inside the transaction, so a
// previously read balance is never trusted for precondition checks.
type BalanceService struct {
	db     *sql.DB
	logger zerolog.Logger
	mu     sync.Map
}

func NewBalanceService(db *sql.DB, logger zerolog.Logger) *BalanceService {
	return &BalanceService{
		db:     db,
		logger: logger,
	}
}

func (s *BalanceService) getMutex(userID int) *sync.Mutex {
	mu, _ := s.mu.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// lockPair acquires both users' mutexes in canonical order (lower id
// first) so that two opposite-direction transfers between the same
// pair can never deadlock. Returns the unlock function.
func (s *BalanceService) lockPair(a, b int) func() {
	first, second := lockOrder(a, b)
	muFirst := s.getMutex(first)
	muSecond := s.getMutex(second)
	muFirst.Lock()
	muSecond.Lock()
	return func() {
		muSecond.Unlock()
		muFirst.Unlock()
	}
}

func lockOrder(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

func (s *BalanceService) GetBalance(userID int) (*models.Balance, error) {
	var balance models.Balance

	err := s.db.QueryRow(
		`SELECT user_id, balance, total_earned, total_spent, total_recharged, status, updated_at
		 FROM balances WHERE user_id = ?`,
		userID,
	).Scan(
		&balance.UserID, &balance.Balance, &balance.TotalEarned, &balance.TotalSpent,
		&balance.TotalRecharged, &balance.Status, &balance.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		_, err = s.db.Exec("INSERT INTO balances (user_id, status) VALUES (?, 'active')", userID)
		if err != nil {
			s.logger.Error().Err(err).Int("user_id", userID).Msg("Error initializing balance")
			return nil, fmt.Errorf("failed to initialize balance: %w", err)
		}
		return &models.Balance{
			UserID:    userID,
			Status:    models.AccountActive,
			UpdatedAt: time.Now(),
		}, nil
	}

	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error fetching balance")
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &balance, nil
}

// Credit adds points to a user's balance. Crediting is always allowed
// regardless of account status; it only fails when the transaction
// cannot commit or the inputs are invalid.
func (s *BalanceService) Credit(userID int, amount int64, category, description string, meta map[string]string) (*MutationResult, error) {
	if amount <= 0 || !models.ValidCategory(category) {
		return nil, ErrInvalidOperation
	}

	mu := s.getMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting credit transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := s.creditTx(tx, userID, amount, category, description, meta)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing credit")
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}

	s.logger.Info().
		Int("user_id", userID).
		Int64("amount", amount).
		Str("category", category).
		Int64("new_balance", result.NewBalance).
		Msg("Credit applied")

	return result, nil
}

// Debit removes points from a user's balance. Fails with
// ErrInsufficientBalance or ErrAccountSuspended; both checks run
// against the row re-read under FOR UPDATE, never a stale value.
func (s *BalanceService) Debit(userID int, amount int64, category, description string, meta map[string]string) (*MutationResult, error) {
	if amount <= 0 || !models.ValidCategory(category) {
		return nil, ErrInvalidOperation
	}

	mu := s.getMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting debit transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := s.debitTx(tx, userID, amount, category, description, meta)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing debit")
		return nil, fmt.Errorf("failed to commit debit: %w", err)
	}

	s.logger.Info().
		Int("user_id", userID).
		Int64("amount", amount).
		Str("category", category).
		Int64("new_balance", result.NewBalance).
		Msg("Debit applied")

	return result, nil
}

// creditTx performs the credit inside an existing transaction. Callers
// must hold the user's mutex.
func (s *BalanceService) creditTx(tx *sql.Tx, userID int, amount int64, category, description string, meta map[string]string) (*MutationResult, error) {
	before, _, err := s.rowForUpdate(tx, userID)
	if err != nil {
		return nil, err
	}

	newBalance := before + amount

	_, err = tx.Exec(
		"UPDATE balances SET balance = ?, total_earned = total_earned + ? WHERE user_id = ?",
		newBalance, amount, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	if category == models.CategoryRechargeApproved {
		_, err = tx.Exec("UPDATE balances SET total_recharged = total_recharged + ? WHERE user_id = ?", amount, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to update recharge total: %w", err)
		}
	}

	entryID, err := s.appendEntryTx(tx, userID, models.DirectionCredit, category, amount, before, newBalance, description, meta)
	if err != nil {
		return nil, err
	}

	if err := s.syncMirrorTx(tx, userID, newBalance); err != nil {
		return nil, err
	}

	return &MutationResult{NewBalance: newBalance, EntryID: entryID}, nil
}

// debitTx performs the debit inside an existing transaction. Callers
// must hold the user's mutex.
func (s *BalanceService) debitTx(tx *sql.Tx, userID int, amount int64, category, description string, meta map[string]string) (*MutationResult, error) {
	before, status, err := s.rowForUpdate(tx, userID)
	if err != nil {
		return nil, err
	}

	if status != models.AccountActive {
		return nil, ErrAccountSuspended
	}
	if before < amount {
		return nil, ErrInsufficientBalance
	}

	newBalance := before - amount

	_, err = tx.Exec(
		"UPDATE balances SET balance = ?, total_spent = total_spent + ? WHERE user_id = ?",
		newBalance, amount, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	entryID, err := s.appendEntryTx(tx, userID, models.DirectionDebit, category, amount, before, newBalance, description, meta)
	if err != nil {
		return nil, err
	}

	if err := s.syncMirrorTx(tx, userID, newBalance); err != nil {
		return nil, err
	}

	return &MutationResult{NewBalance: newBalance, EntryID: entryID}, nil
}

// rowForUpdate locks the user's balance row and returns the current
// balance and status. A missing row is created at zero so that every
// user has exactly one authoritative row.
func (s *BalanceService) rowForUpdate(tx *sql.Tx, userID int) (int64, models.AccountStatus, error) {
	var balance int64
	var status models.AccountStatus

	err := tx.QueryRow(
		"SELECT balance, status FROM balances WHERE user_id = ? FOR UPDATE",
		userID,
	).Scan(&balance, &status)

	if err == sql.ErrNoRows {
		_, err = tx.Exec("INSERT INTO balances (user_id, status) VALUES (?, 'active')", userID)
		if err != nil {
			return 0, "", fmt.Errorf("failed to initialize balance: %w", err)
		}
		return 0, models.AccountActive, nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to lock balance row: %w", err)
	}

	return balance, status, nil
}

func (s *BalanceService) appendEntryTx(tx *sql.Tx, userID int, direction models.Direction, category string, amount, before, after int64, description string, meta map[string]string) (string, error) {
	entryID := uuid.NewString()

	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO ledger_entries
		 (entry_id, user_id, direction, category, amount, balance_before, balance_after, description, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entryID, userID, string(direction), category, amount, before, after, description, metaJSON,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return entryID, nil
}

// syncMirrorTx refreshes the denormalized points_balance column on
// users. It runs inside the same transaction as the authoritative
// write; nothing else ever touches that column.
func (s *BalanceService) syncMirrorTx(tx *sql.Tx, userID int, balance int64) error {
	_, err := tx.Exec("UPDATE users SET points_balance = ? WHERE id = ?", balance, userID)
	if err != nil {
		return fmt.Errorf("failed to sync balance mirror: %w", err)
	}
	return nil
}

func (s *BalanceService) SetAccountStatus(userID int, status models.AccountStatus, adminID int) error {
	switch status {
	case models.AccountActive, models.AccountFrozen, models.AccountSuspended:
	default:
		return ErrInvalidOperation
	}

	mu := s.getMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	res, err := s.db.Exec("UPDATE balances SET status = ? WHERE user_id = ?", string(status), userID)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error updating account status")
		return fmt.Errorf("failed to update account status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecipientNotFound
	}

	s.logger.Info().
		Int("user_id", userID).
		Str("status", string(status)).
		Int("admin_id", adminID).
		Msg("Account status updated")

	return nil
}

func (s *BalanceService) GetHistory(userID int, filter models.HistoryFilter) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, entry_id, user_id, direction, category, amount, balance_before, balance_after, description, metadata, created_at
		FROM ledger_entries
		WHERE user_id = ?`
	args := []interface{}{userID}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		query += " AND created_at >= ?"
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += " AND created_at <= ?"
		args = append(args, *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error fetching ledger history")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var description sql.NullString
		var metaJSON sql.NullString

		err := rows.Scan(
			&entry.ID, &entry.EntryID, &entry.UserID, &entry.Direction, &entry.Category,
			&entry.Amount, &entry.BalanceBefore, &entry.BalanceAfter, &description, &metaJSON, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning ledger entry: %w", err)
		}

		entry.Description = description.String
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("error decoding metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// ReplayBalance recomputes the balance from the full ledger. Replaying
// from zero must reproduce the authoritative value exactly.
func (s *BalanceService) ReplayBalance(userID int) (int64, error) {
	var replayed int64

	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
		 FROM ledger_entries WHERE user_id = ?`,
		userID,
	).Scan(&replayed)

	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error replaying ledger")
		return 0, fmt.Errorf("database error: %w", err)
	}

	return replayed, nil
}

func (s *BalanceService) ReconcileBalance(userID int) error {
	current, err := s.GetBalance(userID)
	if err != nil {
		return err
	}

	replayed, err := s.ReplayBalance(userID)
	if err != nil {
		return err
	}

	if current.Balance != replayed {
		s.logger.Warn().
			Int("user_id", userID).
			Int64("current_balance", current.Balance).
			Int64("replayed_balance", replayed).
			Msg("Balance discrepancy detected")
	}

	return nil
}

func marshalMeta(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
