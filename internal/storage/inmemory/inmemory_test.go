package inmemory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/ledger"
	"github.com/andymarkow/hostmart/internal/domain/orders"
	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/domain/users"
	"github.com/andymarkow/hostmart/internal/storage"
)

func newTestStorage(t *testing.T, login string) *Storage {
	t.Helper()

	store := NewStorage()

	user, err := users.CreateUser(login, "password")
	require.NoError(t, err)

	require.NoError(t, store.CreateUser(context.Background(), user))

	return store
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	user, err := users.CreateUser("alice", "password")
	require.NoError(t, err)

	err = store.CreateUser(ctx, user)
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}

func TestPostLedgerEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	entry, err := ledger.CreateEntry("alice", 5000, ledger.CauseDepositApproved, "dep-1", "admin")
	require.NoError(t, err)

	applied, err := store.PostLedgerEntry(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), applied.Balance())

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)
}

func TestPostLedgerEntry_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	entry, err := ledger.CreateEntry("alice", 5000, ledger.CauseDepositApproved, "dep-1", "admin")
	require.NoError(t, err)

	first, err := store.PostLedgerEntry(ctx, entry)
	require.NoError(t, err)

	replay, err := ledger.CreateEntry("alice", 5000, ledger.CauseDepositApproved, "dep-1", "admin")
	require.NoError(t, err)

	second, err := store.PostLedgerEntry(ctx, replay)
	require.NoError(t, err)

	// The stored entry wins and the balance is applied exactly once.
	assert.Equal(t, first.ID(), second.ID())

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)

	entries, err := store.GetLedgerEntries(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPostLedgerEntry_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	entry, err := ledger.CreateEntry("alice", -100, ledger.CauseAdminAdjustment, "adj-1", "admin")
	require.NoError(t, err)

	_, err = store.PostLedgerEntry(ctx, entry)
	assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	entries, err := store.GetLedgerEntries(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPostLedgerEntry_AccountNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	entry, err := ledger.CreateEntry("ghost", 100, ledger.CauseAdminAdjustment, "adj-1", "admin")
	require.NoError(t, err)

	_, err = store.PostLedgerEntry(ctx, entry)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestApproveDeposit(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	dep, err := deposits.CreateDeposit("alice", 15000, payment.MethodBankTransfer)
	require.NoError(t, err)
	require.NoError(t, store.CreateDeposit(ctx, dep))

	_, err = store.AttachDepositProof(ctx, dep.ID(), "receipt-1")
	require.NoError(t, err)

	approved, entry, err := store.ApproveDeposit(ctx, dep.ID(), "admin", "checked")
	require.NoError(t, err)
	assert.Equal(t, deposits.StatusApproved, approved.Status())
	assert.Equal(t, int64(15000), entry.Amount())
	assert.Equal(t, int64(15000), entry.Balance())

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), balance)

	// A second approval attempt must not credit the wallet again.
	_, _, err = store.ApproveDeposit(ctx, dep.ID(), "admin", "checked")
	assert.ErrorIs(t, err, storage.ErrAlreadyProcessed)

	balance, err = store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), balance)
}

func TestApproveDeposit_PendingWithoutProof(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	dep, err := deposits.CreateDeposit("alice", 15000, payment.MethodQRIS)
	require.NoError(t, err)
	require.NoError(t, store.CreateDeposit(ctx, dep))

	_, _, err = store.ApproveDeposit(ctx, dep.ID(), "admin", "")
	assert.ErrorIs(t, err, storage.ErrInvalidState)
}

func TestRejectDeposit(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	dep, err := deposits.CreateDeposit("alice", 15000, payment.MethodEwallet)
	require.NoError(t, err)
	require.NoError(t, store.CreateDeposit(ctx, dep))

	_, err = store.AttachDepositProof(ctx, dep.ID(), "receipt-1")
	require.NoError(t, err)

	rejected, err := store.RejectDeposit(ctx, dep.ID(), "admin", "blurry receipt")
	require.NoError(t, err)
	assert.Equal(t, deposits.StatusRejected, rejected.Status())

	// Rejection never touches the wallet.
	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	_, err = store.RejectDeposit(ctx, dep.ID(), "admin", "")
	assert.ErrorIs(t, err, storage.ErrAlreadyProcessed)
}

func TestCreateOrderWithDebit(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	fund(t, store, "alice", 20000)

	ord, err := orders.CreateOrder("alice", "item-1", 12000, payment.MethodWallet)
	require.NoError(t, err)

	entry, err := store.CreateOrderWithDebit(ctx, ord)
	require.NoError(t, err)
	assert.Equal(t, int64(-12000), entry.Amount())
	assert.Equal(t, int64(8000), entry.Balance())
	assert.Equal(t, orders.StatusCompleted, ord.Status())

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(8000), balance)
}

func TestCreateOrderWithDebit_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	fund(t, store, "alice", 5000)

	ord, err := orders.CreateOrder("alice", "item-1", 12000, payment.MethodWallet)
	require.NoError(t, err)

	_, err = store.CreateOrderWithDebit(ctx, ord)
	assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

	// No order row survives a failed debit.
	_, err = store.GetOrder(ctx, ord.ID())
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)
}

func TestRefundOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	fund(t, store, "alice", 20000)

	ord, err := orders.CreateOrder("alice", "item-1", 12000, payment.MethodWallet)
	require.NoError(t, err)

	_, err = store.CreateOrderWithDebit(ctx, ord)
	require.NoError(t, err)

	refunded, entry, err := store.RefundOrder(ctx, ord.ID(), "admin", "customer request")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusRefunded, refunded.Status())
	assert.Equal(t, int64(12000), entry.Amount())

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), balance)

	_, _, err = store.RefundOrder(ctx, ord.ID(), "admin", "")
	assert.ErrorIs(t, err, storage.ErrAlreadyProcessed)
}

func TestRefundOrder_ProofBasedRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	ord, err := orders.CreateOrder("alice", "item-1", 12000, payment.MethodBankTransfer)
	require.NoError(t, err)
	require.NoError(t, store.CreateOrder(ctx, ord))

	_, err = store.AttachOrderProof(ctx, ord.ID(), "receipt-1")
	require.NoError(t, err)

	_, err = store.CompleteOrder(ctx, ord.ID(), "ok")
	require.NoError(t, err)

	// Proof-based orders never debited the wallet, so nothing to refund.
	_, _, err = store.RefundOrder(ctx, ord.ID(), "admin", "")
	assert.ErrorIs(t, err, storage.ErrInvalidState)
}

// TestLedgerReconciliation drives a mixed workload and checks that the final
// balance equals the sum of all entries and the last snapshot.
func TestLedgerReconciliation(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	fund(t, store, "alice", 50000)

	for i, amount := range []int64{-12000, -8000, 3000} {
		refID := fmt.Sprintf("adj-%d", i)

		entry, err := ledger.CreateEntry("alice", amount, ledger.CauseAdminAdjustment, refID, "admin")
		require.NoError(t, err)

		_, err = store.PostLedgerEntry(ctx, entry)
		require.NoError(t, err)
	}

	entries, err := store.GetLedgerEntries(ctx, "alice", 0)
	require.NoError(t, err)

	var sum int64
	for _, entry := range entries {
		sum += entry.Amount()
	}

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sum, balance)

	// Entries come back newest first; the head snapshot is the balance.
	require.NotEmpty(t, entries)
	assert.Equal(t, balance, entries[0].Balance())
}

func fund(t *testing.T, store *Storage, login string, amount int64) {
	t.Helper()

	dep, err := deposits.CreateDeposit(login, amount, payment.MethodBankTransfer)
	require.NoError(t, err)
	require.NoError(t, store.CreateDeposit(context.Background(), dep))

	_, err = store.AttachDepositProof(context.Background(), dep.ID(), "receipt")
	require.NoError(t, err)

	_, _, err = store.ApproveDeposit(context.Background(), dep.ID(), "admin", "")
	require.NoError(t, err)
}

func TestAttachDepositProof_ReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")

	dep, err := deposits.CreateDeposit("alice", 15000, payment.MethodBankTransfer)
	require.NoError(t, err)
	require.NoError(t, store.CreateDeposit(ctx, dep))

	attached, err := store.AttachDepositProof(ctx, dep.ID(), "receipt-1")
	require.NoError(t, err)

	// A later admin decision must not mutate the deposit handed back to the
	// proof-attaching caller.
	_, _, err = store.ApproveDeposit(ctx, dep.ID(), "admin", "")
	require.NoError(t, err)

	assert.Equal(t, deposits.StatusValidating, attached.Status())

	stored, err := store.GetDeposit(ctx, dep.ID())
	require.NoError(t, err)
	assert.Equal(t, deposits.StatusApproved, stored.Status())
}

func TestCreateOrderWithDebit_ReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t, "alice")
	fund(t, store, "alice", 30000)

	ord, err := orders.CreateOrder("alice", "vps-small", 25000, payment.MethodWallet)
	require.NoError(t, err)

	_, err = store.CreateOrderWithDebit(ctx, ord)
	require.NoError(t, err)
	require.Equal(t, orders.StatusCompleted, ord.Status())

	_, _, err = store.RefundOrder(ctx, ord.ID(), "admin", "chargeback")
	require.NoError(t, err)

	// The creating caller's order stays COMPLETED; only the stored one moves.
	assert.Equal(t, orders.StatusCompleted, ord.Status())

	stored, err := store.GetOrder(ctx, ord.ID())
	require.NoError(t, err)
	assert.Equal(t, orders.StatusRefunded, stored.Status())
}
