package deposit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/domain/users"
	"github.com/andymarkow/hostmart/internal/storage"
	"github.com/andymarkow/hostmart/internal/storage/inmemory"
)

func newTestService(t *testing.T) (*Service, *inmemory.Storage) {
	t.Helper()

	store := inmemory.NewStorage()

	user, err := users.CreateUser("alice", "password")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), user))

	return New(store), store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	dep, err := svc.Create(ctx, "alice", 15000, payment.MethodBankTransfer)
	require.NoError(t, err)
	assert.Equal(t, deposits.StatusPending, dep.Status())
	assert.Equal(t, int64(15000), dep.Amount())

	stored, err := store.GetDeposit(ctx, dep.ID())
	require.NoError(t, err)
	assert.Equal(t, dep.ID(), stored.ID())

	// Creation alone must not touch the wallet.
	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestCreate_BelowMinimum(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, "alice", 9999, payment.MethodEwallet)
	assert.ErrorIs(t, err, ErrAmountBelowMinimum)
}

func TestCreate_CustomMinimum(t *testing.T) {
	ctx := context.Background()
	_, store := newTestService(t)

	svc := New(store, WithMinAmount(500))

	_, err := svc.Create(ctx, "alice", 500, payment.MethodQRIS)
	assert.NoError(t, err)

	_, err = svc.Create(ctx, "alice", 499, payment.MethodQRIS)
	assert.ErrorIs(t, err, ErrAmountBelowMinimum)
}

func TestAttachProof(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	dep, err := svc.Create(ctx, "alice", 15000, payment.MethodBankTransfer)
	require.NoError(t, err)

	attached, err := svc.AttachProof(ctx, "alice", dep.ID(), "receipt-1")
	require.NoError(t, err)
	assert.Equal(t, deposits.StatusValidating, attached.Status())
	assert.Equal(t, "receipt-1", attached.ProofRef())

	// Only PENDING deposits accept a proof.
	_, err = svc.AttachProof(ctx, "alice", dep.ID(), "receipt-2")
	assert.ErrorIs(t, err, storage.ErrInvalidState)
}

func TestAttachProof_ForeignDepositHidden(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	user, err := users.CreateUser("bob", "password")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, user))

	dep, err := svc.Create(ctx, "alice", 15000, payment.MethodBankTransfer)
	require.NoError(t, err)

	_, err = svc.AttachProof(ctx, "bob", dep.ID(), "receipt-1")
	assert.ErrorIs(t, err, storage.ErrDepositNotFound)
}

func TestListByStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, "alice", 15000, payment.MethodBankTransfer)
	require.NoError(t, err)

	validating, err := svc.Create(ctx, "alice", 20000, payment.MethodQRIS)
	require.NoError(t, err)

	_, err = svc.AttachProof(ctx, "alice", validating.ID(), "receipt-1")
	require.NoError(t, err)

	queue, err := svc.ListByStatus(ctx, deposits.StatusValidating)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, validating.ID(), queue[0].ID())

	all, err := svc.ListByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
