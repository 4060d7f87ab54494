package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RechargeService runs the recharge request state machine:
// pending -> approved | rejected | cancelled | failed | expired.
// Terminal states are final; the points credit happens exactly once,
// inside the same transaction as the pending -> approved transition.
type RechargeService struct {
	db         *sql.DB
	logger     zerolog.Logger
	balances   *BalanceService
	notifier   Notifier
	usdtExpiry time.Duration
}

func NewRechargeService(db *sql.DB, logger zerolog.Logger, balances *BalanceService, notifier Notifier, usdtExpiry time.Duration) *RechargeService {
	return &RechargeService{
		db:         db,
		logger:     logger,
		balances:   balances,
		notifier:   notifier,
		usdtExpiry: usdtExpiry,
	}
}

// Create inserts a pending recharge request. At most one pending
// request per user: the check-then-insert runs under the user's
// mutex so concurrent requests from the same user are serialized.
func (s *RechargeService) Create(userID int, req *models.CreateRechargeRequest) (*models.RechargeRequest, error) {
	if req.PointsToAdd <= 0 || !req.FiatAmount.IsPositive() {
		return nil, ErrInvalidOperation
	}
	switch req.Method {
	case models.MethodBank, models.MethodCard, models.MethodUSDT:
	default:
		return nil, ErrInvalidOperation
	}

	mu := s.balances.getMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	var pendingCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM recharge_requests WHERE user_id = ? AND status = 'pending'",
		userID,
	).Scan(&pendingCount)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error checking pending recharges")
		return nil, fmt.Errorf("database error: %w", err)
	}
	if pendingCount > 0 {
		return nil, ErrPendingExists
	}

	requestID := uuid.NewString()
	rate := req.FiatAmount.Div(decimal.NewFromInt(req.PointsToAdd))
	meta := map[string]string{
		"exchange_rate": rate.String(),
	}

	var expiresAt *time.Time
	if req.Method == models.MethodUSDT {
		t := time.Now().Add(s.usdtExpiry)
		expiresAt = &t
	}

	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO recharge_requests
		 (request_id, user_id, fiat_amount, points_to_add, method, status, details, metadata, expires_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', ?, ?, ?)`,
		requestID, userID, req.FiatAmount, req.PointsToAdd, req.Method, req.Details, metaJSON, expiresAt,
	)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error creating recharge request")
		return nil, fmt.Errorf("failed to create recharge request: %w", err)
	}

	s.logger.Info().
		Str("request_id", requestID).
		Int("user_id", userID).
		Int64("points", req.PointsToAdd).
		Str("method", req.Method).
		Msg("Recharge request created")

	return s.Get(requestID)
}

func (s *RechargeService) Get(requestID string) (*models.RechargeRequest, error) {
	row := s.db.QueryRow(
		`SELECT id, request_id, user_id, fiat_amount, points_to_add, method, status, details, metadata, notes, requested_at, decided_at, expires_at
		 FROM recharge_requests WHERE request_id = ?`,
		requestID,
	)
	return scanRecharge(row)
}

func (s *RechargeService) ListByUser(userID int, limit, offset int) ([]*models.RechargeRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(
		`SELECT id, request_id, user_id, fiat_amount, points_to_add, method, status, details, metadata, notes, requested_at, decided_at, expires_at
		 FROM recharge_requests WHERE user_id = ?
		 ORDER BY requested_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error listing recharge requests")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	return collectRecharges(rows)
}

func (s *RechargeService) ListPending(limit, offset int) ([]*models.RechargeRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(
		`SELECT id, request_id, user_id, fiat_amount, points_to_add, method, status, details, metadata, notes, requested_at, decided_at, expires_at
		 FROM recharge_requests WHERE status = 'pending'
		 ORDER BY requested_at ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing pending recharges")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	return collectRecharges(rows)
}

// Cancel is a user action on their own pending request. No balance
// effect: nothing was credited at request time.
func (s *RechargeService) Cancel(requestID string, userID int) (*models.RechargeRequest, error) {
	res, err := s.db.Exec(
		"UPDATE recharge_requests SET status = 'cancelled', decided_at = NOW() WHERE request_id = ? AND user_id = ? AND status = 'pending'",
		requestID, userID,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Error cancelling recharge")
		return nil, fmt.Errorf("failed to cancel recharge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.transitionFailure(requestID, userID)
	}

	s.logger.Info().Str("request_id", requestID).Int("user_id", userID).Msg("Recharge request cancelled")
	return s.Get(requestID)
}

// Reject is an admin action on a pending request. No balance effect.
func (s *RechargeService) Reject(requestID string, adminID int, notes string) (*models.RechargeRequest, error) {
	res, err := s.db.Exec(
		"UPDATE recharge_requests SET status = 'rejected', decided_at = NOW(), notes = ? WHERE request_id = ? AND status = 'pending'",
		notes, requestID,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Error rejecting recharge")
		return nil, fmt.Errorf("failed to reject recharge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.transitionFailure(requestID, 0)
	}

	s.logger.Info().Str("request_id", requestID).Int("admin_id", adminID).Msg("Recharge request rejected")

	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Publish("recharge_rejected", req.UserID, map[string]string{
			"request_id": requestID,
			"notes":      notes,
		})
	}
	return req, nil
}

// Approve transitions pending -> approved and credits the points in
// the same transaction. The guarded UPDATE (status = 'pending') makes
// re-approval a no-op that surfaces ErrNotPending: the credit can
// never be applied twice for one request.
func (s *RechargeService) Approve(requestID string, approvedBy int, proof map[string]string) (*models.RechargeRequest, error) {
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
		"UPDATE recharge_requests SET status = 'approved', decided_at = NOW() WHERE request_id = ? AND status = 'pending'",
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to approve recharge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotPending
	}

	meta := map[string]string{
		"request_id":  requestID,
		"approved_by": strconv.Itoa(approvedBy),
	}
	for k, v := range proof {
		meta[k] = v
	}

	_, err = s.balances.creditTx(tx, req.UserID, req.PointsToAdd, models.CategoryRechargeApproved,
		fmt.Sprintf("Recharge of %s via %s", req.FiatAmount.String(), req.Method), meta)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("Error crediting recharge")
		return nil, fmt.Errorf("failed to credit recharge: %w", err)
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing recharge approval")
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	s.logger.Info().
		Str("request_id", requestID).
		Int("user_id", req.UserID).
		Int64("points", req.PointsToAdd).
		Int("approved_by", approvedBy).
		Msg("Recharge request approved")

	if s.notifier != nil {
		s.notifier.Publish("recharge_approved", req.UserID, map[string]string{
			"request_id": requestID,
			"points":     strconv.FormatInt(req.PointsToAdd, 10),
		})
	}

	return s.Get(requestID)
}

// CheckStatus returns the request, first expiring a USDT request whose
// deadline has passed. Expiry is a time-based transition taken on the
// next status check, not a cancellation of anything in flight.
func (s *RechargeService) CheckStatus(requestID string) (*models.RechargeRequest, error) {
	req, err := s.Get(requestID)
	if err != nil {
		return nil, err
	}

	if req.Method == models.MethodUSDT && req.Status == models.StatusPending &&
		req.ExpiresAt != nil && time.Now().After(*req.ExpiresAt) {
		res, err := s.db.Exec(
			"UPDATE recharge_requests SET status = 'expired', decided_at = NOW() WHERE request_id = ? AND status = 'pending'",
			requestID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to expire recharge: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Info().Str("request_id", requestID).Msg("Recharge request expired")
		}
		return s.Get(requestID)
	}

	return req, nil
}

// transitionFailure distinguishes "no such request" from "request is
// no longer pending" after a guarded update matched zero rows.
func (s *RechargeService) transitionFailure(requestID string, userID int) error {
	query := "SELECT status FROM recharge_requests WHERE request_id = ?"
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
	return ErrNotPending
}

func scanRecharge(row *sql.Row) (*models.RechargeRequest, error) {
	var req models.RechargeRequest
	var details, metaJSON, notes sql.NullString
	var decidedAt, expiresAt sql.NullTime

	err := row.Scan(
		&req.ID, &req.RequestID, &req.UserID, &req.FiatAmount, &req.PointsToAdd,
		&req.Method, &req.Status, &details, &metaJSON, &notes,
		&req.RequestedAt, &decidedAt, &expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	fillRecharge(&req, details, metaJSON, notes, decidedAt, expiresAt)
	return &req, nil
}

func collectRecharges(rows *sql.Rows) ([]*models.RechargeRequest, error) {
	var requests []*models.RechargeRequest
	for rows.Next() {
		var req models.RechargeRequest
		var details, metaJSON, notes sql.NullString
		var decidedAt, expiresAt sql.NullTime

		err := rows.Scan(
			&req.ID, &req.RequestID, &req.UserID, &req.FiatAmount, &req.PointsToAdd,
			&req.Method, &req.Status, &details, &metaJSON, &notes,
			&req.RequestedAt, &decidedAt, &expiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning recharge request: %w", err)
		}

		fillRecharge(&req, details, metaJSON, notes, decidedAt, expiresAt)
		requests = append(requests, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recharge requests: %w", err)
	}
	return requests, nil
}

func fillRecharge(req *models.RechargeRequest, details, metaJSON, notes sql.NullString, decidedAt, expiresAt sql.NullTime) {
	req.Details = details.String
	req.Notes = notes.String
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &req.Metadata)
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		req.ExpiresAt = &t
	}
}
