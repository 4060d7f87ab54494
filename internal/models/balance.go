package models

import "time"

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountFrozen    AccountStatus = "frozen"
	AccountSuspended AccountStatus = "suspended"
)

// Balance is the authoritative record of a user's spendable points.
// The points_balance column on users is a read-optimization mirror and
// is only ever written inside the same transaction as this row.
type Balance struct {
	UserID         int           `json:"user_id"`
	Balance        int64         `json:"balance"`
	TotalEarned    int64         `json:"total_earned"`
	TotalSpent     int64         `json:"total_spent"`
	TotalRecharged int64         `json:"total_recharged"`
	Status         AccountStatus `json:"status"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type SpendRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Category    string `json:"category" validate:"required"`
	Description string `json:"description" validate:"max=255"`
}

type TransferRequest struct {
	ToUserID int    `json:"to_user_id" validate:"required,gt=0"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Message  string `json:"message" validate:"max=255"`
}

type TransferResult struct {
	TransferID       string `json:"transfer_id"`
	SenderNewBalance int64  `json:"sender_new_balance"`
}

type AdjustBalanceRequest struct {
	Direction   string `json:"direction" validate:"required,oneof=credit debit"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=255"`
}

type SetAccountStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active frozen suspended"`
}
