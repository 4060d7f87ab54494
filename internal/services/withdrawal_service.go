package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WithdrawalService runs the withdrawal request state machine:
// pending -> approved | rejected | cancelled, approved -> completed.
// The balance is never touched at request time; the debit happens at
// approval, against the balance present then.
type WithdrawalService struct {
	db       *sql.DB
	logger   zerolog.Logger
	balances *BalanceService
	notifier Notifier
}

func NewWithdrawalService(db *sql.DB, logger zerolog.Logger, balances *BalanceService, notifier Notifier) *WithdrawalService {
	return &WithdrawalService{
		db:       db,
		logger:   logger,
		balances: balances,
		notifier: notifier,
	}
}

// Create inserts a pending withdrawal request. The points are not
// checked here: balance may drift before an admin decides, so the
// sufficiency check belongs to Approve.
func (s *WithdrawalService) Create(userID int, req *models.CreateWithdrawalRequest) (*models.WithdrawalRequest, error) {
	if req.PointsToDeduct <= 0 || !req.FiatAmount.IsPositive() {
		return nil, ErrInvalidOperation
	}
	switch req.Method {
	case models.MethodPaypal, models.MethodBank, models.MethodCard, models.MethodUSDT:
	default:
		return nil, ErrInvalidOperation
	}

	mu := s.balances.getMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	var pendingCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM withdrawal_requests WHERE user_id = ? AND status = 'pending'",
		userID,
	).Scan(&pendingCount)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error checking pending withdrawals")
		return nil, fmt.Errorf("database error: %w", err)
	}
	if pendingCount > 0 {
		return nil, ErrPendingExists
	}

	requestID := uuid.NewString()

	_, err = s.db.Exec(
		`INSERT INTO withdrawal_requests
		 (request_id, user_id, fiat_amount, points_to_deduct, method, payout_details, status)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending')`,
		requestID, userID, req.FiatAmount, req.PointsToDeduct, req.Method, req.PayoutDetails,
	)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error creating withdrawal request")
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	s.logger.Info().
		Str("request_id", requestID).
		Int("user_id", userID).
		Int64("points", req.PointsToDeduct).
		Str("method", req.Method).
		Msg("Withdrawal request created")

	return s.Get(requestID)
}

func (s *WithdrawalService) Get(requestID string) (*models.WithdrawalRequest, error) {
	row := s.db.QueryRow(
		`SELECT id, request_id, user_id, fiat_amount, points_to_deduct, method, payout_details, status, metadata, notes, requested_at, decided_at
		 FROM withdrawal_requests WHERE request_id = ?`,
		requestID,
	)
	return scanWithdrawal(row)
}

func (s *WithdrawalService) ListByUser(userID int, limit, offset int) ([]*models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(
		`SELECT id, request_id, user_id, fiat_amount, points_to_deduct, method, payout_details, status, metadata, notes, requested_at, decided_at
		 FROM withdrawal_requests WHERE user_id = ?
		 ORDER BY requested_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error listing withdrawal requests")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

func (s *WithdrawalService) ListPending(limit, offset int) ([]*models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(
		`SELECT id, request_id, user_id, fiat_amount, points_to_deduct, method, payout_details, status, metadata, notes, requested_at, decided_at
		 FROM withdrawal_requests WHERE status = 'pending'
		 ORDER BY requested_at ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing pending withdrawals")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

func (s *WithdrawalService) Cancel(requestID string, userID int) (*models.WithdrawalRequest, error) {
	res, err := s.db.Exec(
		"UPDATE withdrawal_requests SET status = 'cancelled', decided_at = NOW() WHERE request_id = ? AND user_id = ? AND status = 'pending'",
		requestID, userID,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Error cancelling withdrawal")
		return nil, fmt.Errorf("failed to cancel withdrawal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.transitionFailure(requestID, userID, models.StatusPending)
	}

	s.logger.Info().Str("request_id", requestID).Int("user_id", userID).Msg("Withdrawal request cancelled")
	return s.Get(requestID)
}

func (s *WithdrawalService) Reject(requestID string, adminID int, notes string) (*models.WithdrawalRequest, error) {
	res, err := s.db.Exec(
		"UPDATE withdrawal_requests SET status = 'rejected', decided_at = NOW(), notes = ? WHERE request_id = ? AND status = 'pending'",
		notes, requestID,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Error rejecting withdrawal")
		return nil, fmt.Errorf("failed to reject withdrawal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.transitionFailure(requestID, 0, models.StatusPending)
	}

	s.logger.Info().Str("request_id", requestID).Int("admin_id", adminID).Msg("Withdrawal request rejected")

	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Publish("withdrawal_rejected", req.UserID, map[string]string{
			"request_id": requestID,
			"notes":      notes,
		})
	}
	return req, nil
}

// Approve re-checks the balance at approval time and debits it in the
// same transaction as the pending -> approved transition. Insufficient
// balance aborts the whole transaction: the request stays pending and
// the error surfaces to the admin.
func (s *WithdrawalService) Approve(requestID string, approvedBy int) (*models.WithdrawalRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}

	mu := s.balances.getMutex(req.UserID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting approval transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"UPDATE withdrawal_requests SET status = 'approved', decided_at = NOW() WHERE request_id = ? AND status = 'pending'",
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to approve withdrawal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotPending
	}

	meta := map[string]string{
		"request_id":  requestID,
		"approved_by": strconv.Itoa(approvedBy),
	}

	_, err = s.balances.debitTx(tx, req.UserID, req.PointsToDeduct, models.CategoryWithdrawalApproved,
		fmt.Sprintf("Withdrawal of %s via %s", req.FiatAmount.String(), req.Method), meta)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrAccountSuspended) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Error debiting withdrawal")
		return nil, fmt.Errorf("failed to debit withdrawal: %w", err)
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing withdrawal approval")
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	s.logger.Info().
		Str("request_id", requestID).
		Int("user_id", req.UserID).
		Int64("points", req.PointsToDeduct).
		Int("approved_by", approvedBy).
		Msg("Withdrawal request approved")

	if s.notifier != nil {
		s.notifier.Publish("withdrawal_approved", req.UserID, map[string]string{
			"request_id": requestID,
			"points":     strconv.FormatInt(req.PointsToDeduct, 10),
		})
	}

	return s.Get(requestID)
}

// Complete marks an approved withdrawal as paid out. No balance
// effect: the debit already happened at approval.
func (s *WithdrawalService) Complete(requestID string, adminID int) (*models.WithdrawalRequest, error) {
	res, err := s.db.Exec(
		"UPDATE withdrawal_requests SET status = 'completed' WHERE request_id = ? AND status = 'approved'",
		requestID,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Error completing withdrawal")
		return nil, fmt.Errorf("failed to complete withdrawal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.transitionFailure(requestID, 0, models.StatusApproved)
	}

	s.logger.Info().Str("request_id", requestID).Int("admin_id", adminID).Msg("Withdrawal completed")
	return s.Get(requestID)
}

func (s *WithdrawalService) transitionFailure(requestID string, userID int, expected models.RequestStatus) error {
	query := "SELECT status FROM withdrawal_requests WHERE request_id = ?"
	args := []interface{}{requestID}
	if userID != 0 {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	var status string
	err := s.db.QueryRow(query, args...).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if expected == models.StatusApproved {
		return ErrNotApproved
	}
	return ErrNotPending
}

func scanWithdrawal(row *sql.Row) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	var payout, metaJSON, notes sql.NullString
	var decidedAt sql.NullTime

	err := row.Scan(
		&req.ID, &req.RequestID, &req.UserID, &req.FiatAmount, &req.PointsToDeduct,
		&req.Method, &payout, &req.Status, &metaJSON, &notes,
		&req.RequestedAt, &decidedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	fillWithdrawal(&req, payout, metaJSON, notes, decidedAt)
	return &req, nil
}

func collectWithdrawals(rows *sql.Rows) ([]*models.WithdrawalRequest, error) {
	var requests []*models.WithdrawalRequest
	for rows.Next() {
		var req models.WithdrawalRequest
		var payout, metaJSON, notes sql.NullString
		var decidedAt sql.NullTime

		err := rows.Scan(
			&req.ID, &req.RequestID, &req.UserID, &req.FiatAmount, &req.PointsToDeduct,
			&req.Method, &payout, &req.Status, &metaJSON, &notes,
			&req.RequestedAt, &decidedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning withdrawal request: %w", err)
		}

		fillWithdrawal(&req, payout, metaJSON, notes, decidedAt)
		requests = append(requests, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal requests: %w", err)
	}
	return requests, nil
}

func fillWithdrawal(req *models.WithdrawalRequest, payout, metaJSON, notes sql.NullString, decidedAt sql.NullTime) {
	req.PayoutDetails = payout.String
	req.Notes = notes.String
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &req.Metadata)
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
}
