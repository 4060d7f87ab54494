package models

import "time"

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Ledger entry categories. Every balance mutation carries exactly one.
const (
	CategoryRechargeApproved   = "recharge_approved"
	CategoryGift               = "gift"
	CategoryTransferIn         = "transfer_in"
	CategoryTransferOut        = "transfer_out"
	CategoryWithdrawalApproved = "withdrawal_approved"
	CategoryRefund             = "refund"
	CategoryBonus              = "bonus"
	CategoryAdminAdjustment    = "admin_adjustment"
)

// SpendCategories are the categories a user may debit against directly
// through the spend endpoint. Workflow categories (recharge, transfer,
// withdrawal, admin) are reserved for their services.
var SpendCategories = map[string]bool{
	CategoryGift: true,
}

func ValidCategory(category string) bool {
	switch category {
	case CategoryRechargeApproved, CategoryGift, CategoryTransferIn,
		CategoryTransferOut, CategoryWithdrawalApproved, CategoryRefund,
		CategoryBonus, CategoryAdminAdjustment:
		return true
	}
	return false
}

// LedgerEntry is an immutable audit record of one balance mutation.
// Entries are append-only: never updated, never deleted.
type LedgerEntry struct {
	ID            int               `json:"id"`
	EntryID       string            `json:"entry_id"`
	UserID        int               `json:"user_id"`
	Direction     Direction         `json:"direction"`
	Category      string            `json:"category"`
	Amount        int64             `json:"amount"`
	BalanceBefore int64             `json:"balance_before"`
	BalanceAfter  int64             `json:"balance_after"`
	Description   string            `json:"description"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type HistoryFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
