package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
	StatusFailed    RequestStatus = "failed"
	StatusExpired   RequestStatus = "expired"
	StatusCompleted RequestStatus = "completed"
)

// Terminal reports whether a request status admits no further
// transitions. Approved is terminal for recharges; for withdrawals it
// can still move to completed once the payout is executed.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusFailed, StatusExpired, StatusCompleted:
		return true
	}
	return false
}

const (
	MethodBank   = "bank"
	MethodCard   = "card"
	MethodUSDT   = "usdt"
	MethodPaypal = "paypal"
)

// RechargeRequest converts an external payment into points once an
// admin (or the payment confirmation adapter) approves it.
type RechargeRequest struct {
	ID          int               `json:"id"`
	RequestID   string            `json:"request_id"`
	UserID      int               `json:"user_id"`
	FiatAmount  decimal.Decimal   `json:"fiat_amount"`
	PointsToAdd int64             `json:"points_to_add"`
	Method      string            `json:"method"`
	Status      RequestStatus     `json:"status"`
	Details     string            `json:"details,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	RequestedAt time.Time         `json:"requested_at"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// WithdrawalRequest converts points into an external payout. The debit
// happens at approval time, never at request time.
type WithdrawalRequest struct {
	ID             int               `json:"id"`
	RequestID      string            `json:"request_id"`
	UserID         int               `json:"user_id"`
	FiatAmount     decimal.Decimal   `json:"fiat_amount"`
	PointsToDeduct int64             `json:"points_to_deduct"`
	Method         string            `json:"method"`
	PayoutDetails  string            `json:"payout_details,omitempty"`
	Status         RequestStatus     `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	RequestedAt    time.Time         `json:"requested_at"`
	DecidedAt      *time.Time        `json:"decided_at,omitempty"`
}

type CreateRechargeRequest struct {
	FiatAmount  decimal.Decimal `json:"fiat_amount" validate:"required"`
	PointsToAdd int64           `json:"points_to_add" validate:"required,gt=0"`
	Method      string          `json:"method" validate:"required,oneof=bank card usdt"`
	Details     string          `json:"details" validate:"max=1024"`
}

type CreateWithdrawalRequest struct {
	FiatAmount     decimal.Decimal `json:"fiat_amount" validate:"required"`
	PointsToDeduct int64           `json:"points_to_deduct" validate:"required,gt=0"`
	Method         string          `json:"method" validate:"required,oneof=paypal bank card usdt"`
	PayoutDetails  string          `json:"payout_details" validate:"required,max=1024"`
}

type DecideRequest struct {
	Notes string `json:"notes" validate:"max=512"`
}
