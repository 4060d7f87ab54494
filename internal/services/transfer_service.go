package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier delivers best-effort events. Failures are logged by the
// implementation and never affect a committed ledger change.
type Notifier interface {
	Publish(eventType string, userID int, data map[string]string)
}

type TransferService struct {
	db       *sql.DB
	logger   zerolog.Logger
	balances *BalanceService
	notifier Notifier
}

func NewTransferService(db *sql.DB, logger zerolog.Logger, balances *BalanceService, notifier Notifier) *TransferService {
	return &TransferService{
		db:       db,
		logger:   logger,
		balances: balances,
		notifier: notifier,
	}
}

// Transfer moves points from sender to recipient as one atomic unit:
// either both ledger entries and both balance writes commit, or none
// do. The two entries share a transfer id and cross-reference the
// counterparty in metadata.
func (s *TransferService) Transfer(fromUserID, toUserID int, amount int64, message string) (*models.TransferResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidOperation
	}
	if fromUserID == toUserID {
		return nil, ErrInvalidOperation
	}

	var recipientID int
	err := s.db.QueryRow("SELECT id FROM users WHERE id = ?", toUserID).Scan(&recipientID)
	if err == sql.ErrNoRows {
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Int("to_user_id", toUserID).Msg("Error looking up recipient")
		return nil, fmt.Errorf("database error: %w", err)
	}

	unlock := s.balances.lockPair(fromUserID, toUserID)
	defer unlock()

	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting transfer transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	transferID := uuid.NewString()

	debitMeta := map[string]string{
		"transfer_id":  transferID,
		"counterparty": strconv.Itoa(toUserID),
	}
	creditMeta := map[string]string{
		"transfer_id":  transferID,
		"counterparty": strconv.Itoa(fromUserID),
	}
	if message != "" {
		debitMeta["message"] = message
		creditMeta["message"] = message
	}

	debitResult, err := s.balances.debitTx(tx, fromUserID, amount, models.CategoryTransferOut,
		fmt.Sprintf("Transfer to user %d", toUserID), debitMeta)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrAccountSuspended) {
			return nil, err
		}
		s.logger.Error().Err(err).Int("from_user_id", fromUserID).Msg("Error debiting sender")
		return nil, fmt.Errorf("failed to debit sender: %w", err)
	}

	_, err = s.balances.creditTx(tx, toUserID, amount, models.CategoryTransferIn,
		fmt.Sprintf("Transfer from user %d", fromUserID), creditMeta)
	if err != nil {
		s.logger.Error().Err(err).Int("to_user_id", toUserID).Msg("Error crediting recipient")
		return nil, fmt.Errorf("failed to credit recipient: %w", err)
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing transfer")
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	s.logger.Info().
		Str("transfer_id", transferID).
		Int("from_user_id", fromUserID).
		Int("to_user_id", toUserID).
		Int64("amount", amount).
		Msg("Transfer completed")

	// Notifications are outside the atomic boundary: a delivery
	// failure must not undo the committed transfer.
	if s.notifier != nil {
		s.notifier.Publish("transfer_sent", fromUserID, map[string]string{
			"transfer_id":  transferID,
			"counterparty": strconv.Itoa(toUserID),
			"amount":       strconv.FormatInt(amount, 10),
			"message":      message,
		})
		s.notifier.Publish("transfer_received", toUserID, map[string]string{
			"transfer_id":  transferID,
			"counterparty": strconv.Itoa(fromUserID),
			"amount":       strconv.FormatInt(amount, 10),
			"message":      message,
		})
	}

	return &models.TransferResult{
		TransferID:       transferID,
		SenderNewBalance: debitResult.NewBalance,
	}, nil
}
