package services_test

import (
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/db"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"
	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/services"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Integration tests run against a real MySQL instance. Set TEST_DB_URL
// to a DSN with parseTime=true (e.g. "user:pass@/wallet_test?parseTime=true")
// or the tests are skipped.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL is not set")
	}

	database, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	require.NoError(t, database.Ping())
	t.Cleanup(func() { database.Close() })

	db.RunMigrations(database)

	for _, table := range []string{"ledger_entries", "recharge_requests", "withdrawal_requests", "balances", "users"} {
		_, err := database.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}

	return database
}

func seedUser(t *testing.T, database *sql.DB, username string, balance int64) int {
	t.Helper()

	res, err := database.Exec(
		"INSERT INTO users (username, email, password_hash, role, points_balance) VALUES (?, ?, '', 'user', ?)",
		username, username+"@test.local", balance,
	)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = database.Exec(
		"INSERT INTO balances (user_id, balance, total_earned, status) VALUES (?, ?, ?, 'active')",
		id, balance, balance,
	)
	require.NoError(t, err)

	return int(id)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestDebitWritesLedgerEntry(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())

	userID := seedUser(t, database, "alice", 100)

	result, err := balances.Debit(userID, 30, models.CategoryGift, "gift for a stream", nil)
	require.NoError(t, err)
	require.Equal(t, int64(70), result.NewBalance)
	require.NotEmpty(t, result.EntryID)

	entries, err := balances.GetHistory(userID, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.DirectionDebit, entries[0].Direction)
	require.Equal(t, int64(100), entries[0].BalanceBefore)
	require.Equal(t, int64(70), entries[0].BalanceAfter)

	// Mirror follows the authoritative balance.
	var mirror int64
	require.NoError(t, database.QueryRow("SELECT points_balance FROM users WHERE id = ?", userID).Scan(&mirror))
	require.Equal(t, int64(70), mirror)
}

func TestDebitInsufficientBalance(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())

	userID := seedUser(t, database, "bob", 10)

	_, err := balances.Debit(userID, 50, models.CategoryGift, "", nil)
	require.ErrorIs(t, err, services.ErrInsufficientBalance)

	balance, err := balances.GetBalance(userID)
	require.NoError(t, err)
	require.Equal(t, int64(10), balance.Balance)

	// Failed debits leave no audit trace.
	entries, err := balances.GetHistory(userID, models.HistoryFilter{})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDebitSuspendedAccount(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())

	userID := seedUser(t, database, "carol", 100)
	require.NoError(t, balances.SetAccountStatus(userID, models.AccountSuspended, 0))

	_, err := balances.Debit(userID, 10, models.CategoryGift, "", nil)
	require.ErrorIs(t, err, services.ErrAccountSuspended)

	// Credits are still allowed on a suspended account.
	result, err := balances.Credit(userID, 5, models.CategoryBonus, "", nil)
	require.NoError(t, err)
	require.Equal(t, int64(105), result.NewBalance)
}

func TestInvalidAmountAndCategory(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())

	userID := seedUser(t, database, "dave", 100)

	_, err := balances.Debit(userID, 0, models.CategoryGift, "", nil)
	require.ErrorIs(t, err, services.ErrInvalidOperation)

	_, err = balances.Credit(userID, -5, models.CategoryBonus, "", nil)
	require.ErrorIs(t, err, services.ErrInvalidOperation)

	_, err = balances.Debit(userID, 10, "no_such_category", "", nil)
	require.ErrorIs(t, err, services.ErrInvalidOperation)
}

func TestConcurrentDebitsNeverGoNegative(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())

	userID := seedUser(t, database, "erin", 100)

	const workers = 10
	const amount = 20

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := balances.Debit(userID, amount, models.CategoryGift, "", nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, services.ErrInsufficientBalance)
			failed++
		}
	}

	// Exactly enough debits succeed to exhaust the balance.
	require.Equal(t, 5, succeeded)
	require.Equal(t, 5, failed)

	balance, err := balances.GetBalance(userID)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance.Balance)

	require.Equal(t, int64(100), balance.TotalSpent)

	entries, err := balances.GetHistory(userID, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 5)
}

func TestTransferConservation(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())
	transfers := services.NewTransferService(database, testLogger(), balances, nil)

	fromID := seedUser(t, database, "frank", 100)
	toID := seedUser(t, database, "grace", 0)

	result, err := transfers.Transfer(fromID, toID, 20, "enjoy")
	require.NoError(t, err)
	require.NotEmpty(t, result.TransferID)
	require.Equal(t, int64(80), result.SenderNewBalance)

	toBalance, err := balances.GetBalance(toID)
	require.NoError(t, err)
	require.Equal(t, int64(20), toBalance.Balance)

	fromEntries, err := balances.GetHistory(fromID, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, fromEntries, 1)
	toEntries, err := balances.GetHistory(toID, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, toEntries, 1)

	// Both entries share one transfer id and conserve the amount.
	require.Equal(t, result.TransferID, fromEntries[0].Metadata["transfer_id"])
	require.Equal(t, result.TransferID, toEntries[0].Metadata["transfer_id"])
	require.Equal(t, fromEntries[0].BalanceBefore-fromEntries[0].BalanceAfter,
		toEntries[0].BalanceAfter-toEntries[0].BalanceBefore)
	require.Equal(t, models.CategoryTransferOut, fromEntries[0].Category)
	require.Equal(t, models.CategoryTransferIn, toEntries[0].Category)
}

func TestTransferRejections(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())
	transfers := services.NewTransferService(database, testLogger(), balances, nil)

	fromID := seedUser(t, database, "heidi", 100)

	_, err := transfers.Transfer(fromID, fromID, 10, "")
	require.ErrorIs(t, err, services.ErrInvalidOperation)

	_, err = transfers.Transfer(fromID, 999999, 10, "")
	require.ErrorIs(t, err, services.ErrRecipientNotFound)

	toID := seedUser(t, database, "ivan", 0)
	_, err = transfers.Transfer(fromID, toID, 500, "")
	require.ErrorIs(t, err, services.ErrInsufficientBalance)

	balance, err := balances.GetBalance(fromID)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Balance)
}

func TestRechargeApproveIsIdempotent(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())
	recharges := services.NewRechargeService(database, testLogger(), balances, nil, 0)

	userID := seedUser(t, database, "judy", 50)

	created, err := recharges.Create(userID, &models.CreateRechargeRequest{
		FiatAmount:  decimal.NewFromInt(5),
		PointsToAdd: 500,
		Method:      models.MethodBank,
		Details:     "wire ref 123",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, created.Status)

	approved, err := recharges.Approve(created.RequestID, 1, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, approved.Status)

	balance, err := balances.GetBalance(userID)
	require.NoError(t, err)
	require.Equal(t, int64(550), balance.Balance)
	require.Equal(t, int64(500), balance.TotalRecharged)

	// Second approval is a no-op conflict; the credit happened once.
	_, err = recharges.Approve(created.RequestID, 1, nil)
	require.ErrorIs(t, err, services.ErrNotPending)

	balance, err = balances.GetBalance(userID)
	require.NoError(t, err)
	require.Equal(t, int64(550), balance.Balance)

	entries, err := balances.GetHistory(userID, models.HistoryFilter{Category: models.CategoryRechargeApproved})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRechargePendingLimitAndCancel(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())
	recharges := services.NewRechargeService(database, testLogger(), balances, nil, 0)

	userID := seedUser(t, database, "kate", 0)

	first, err := recharges.Create(userID, &models.CreateRechargeRequest{
		FiatAmount:  decimal.NewFromInt(10),
		PointsToAdd: 1000,
		Method:      models.MethodCard,
	})
	require.NoError(t, err)

	_, err = recharges.Create(userID, &models.CreateRechargeRequest{
		FiatAmount:  decimal.NewFromInt(10),
		PointsToAdd: 1000,
		Method:      models.MethodCard,
	})
	require.ErrorIs(t, err, services.ErrPendingExists)

	cancelled, err := recharges.Cancel(first.RequestID, userID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, cancelled.Status)

	// Terminal states are final.
	_, err = recharges.Approve(first.RequestID, 1, nil)
	require.ErrorIs(t, err, services.ErrNotPending)
	_, err = recharges.Cancel(first.RequestID, userID)
	require.ErrorIs(t, err, services.ErrNotPending)

	balance, err := balances.GetBalance(userID)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance.Balance)
}

func TestWithdrawalApproveRechecksBalance(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())
	withdrawals := services.NewWithdrawalService(database, testLogger(), balances, nil)

	userID := seedUser(t, database, "mallory", 150)

	// Request accepted as pending even though the balance is short.
	created, err := withdrawals.Create(userID, &models.CreateWithdrawalRequest{
		FiatAmount:     decimal.NewFromInt(2),
		PointsToDeduct: 200,
		Method:         models.MethodPaypal,
		PayoutDetails:  "mallory@pay.example",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, created.Status)

	_, err = withdrawals.Approve(created.RequestID, 1)
	require.ErrorIs(t, err, services.ErrInsufficientBalance)

	// Approval failure leaves the request pending and the balance whole.
	after, err := withdrawals.Get(created.RequestID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, after.Status)

	balance, err := balances.GetBalance(userID)
	require.NoError(t, err)
	require.Equal(t, int64(150), balance.Balance)

	// Once enough points arrive, the same request approves cleanly.
	_, err = balances.Credit(userID, 100, models.CategoryBonus, "", nil)
	require.NoError(t, err)

	approved, err := withdrawals.Approve(created.RequestID, 1)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, approved.Status)

	balance, err = balances.GetBalance(userID)
	require.NoError(t, err)
	require.Equal(t, int64(50), balance.Balance)

	completed, err := withdrawals.Complete(created.RequestID, 1)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, completed.Status)

	_, err = withdrawals.Complete(created.RequestID, 1)
	require.ErrorIs(t, err, services.ErrNotApproved)
}

func TestReplayReproducesBalance(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())

	userID := seedUser(t, database, "oscar", 0)

	_, err := balances.Credit(userID, 100, models.CategoryBonus, "", nil)
	require.NoError(t, err)
	_, err = balances.Debit(userID, 30, models.CategoryGift, "", nil)
	require.NoError(t, err)
	_, err = balances.Credit(userID, 7, models.CategoryRefund, "", nil)
	require.NoError(t, err)

	balance, err := balances.GetBalance(userID)
	require.NoError(t, err)

	replayed, err := balances.ReplayBalance(userID)
	require.NoError(t, err)
	require.Equal(t, balance.Balance, replayed)
}

func TestRequestNotFound(t *testing.T) {
	database := setupDB(t)
	balances := services.NewBalanceService(database, testLogger())
	recharges := services.NewRechargeService(database, testLogger(), balances, nil, 0)
	withdrawals := services.NewWithdrawalService(database, testLogger(), balances, nil)

	_, err := recharges.Get("4b4ee1ad-0000-0000-0000-000000000000")
	require.True(t, errors.Is(err, services.ErrRequestNotFound))

	_, err = withdrawals.Cancel("4b4ee1ad-0000-0000-0000-000000000000", 1)
	require.True(t, errors.Is(err, services.ErrRequestNotFound))
}
