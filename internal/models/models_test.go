package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTerminalStatuses(t *testing.T) {
	terminal := []RequestStatus{StatusRejected, StatusCancelled, StatusFailed, StatusExpired, StatusCompleted}
	for _, s := range terminal {
		require.True(t, s.Terminal(), "%s should be terminal", s)
	}

	require.False(t, StatusPending.Terminal())
	require.False(t, StatusApproved.Terminal())
}

func TestValidCategory(t *testing.T) {
	for _, c := range []string{
		CategoryRechargeApproved, CategoryGift, CategoryTransferIn, CategoryTransferOut,
		CategoryWithdrawalApproved, CategoryRefund, CategoryBonus, CategoryAdminAdjustment,
	} {
		require.True(t, ValidCategory(c), "%s should be valid", c)
	}

	require.False(t, ValidCategory(""))
	require.False(t, ValidCategory("video_upload"))
}

func TestSpendCategoriesAreValidCategories(t *testing.T) {
	for c := range SpendCategories {
		require.True(t, ValidCategory(c))
	}
	require.False(t, SpendCategories[CategoryTransferOut])
	require.False(t, SpendCategories[CategoryWithdrawalApproved])
}
