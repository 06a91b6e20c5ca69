package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andymarkow/hostmart/internal/catalog/catclient"
	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/orders"
	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/domain/users"
	"github.com/andymarkow/hostmart/internal/storage"
	"github.com/andymarkow/hostmart/internal/storage/inmemory"
)

// fakeCatalog serves fixed prices keyed by item id.
type fakeCatalog struct {
	prices map[string]int64
}

func (c *fakeCatalog) GetItemPrice(_ context.Context, itemID string) (int64, error) {
	price, ok := c.prices[itemID]
	if !ok {
		return 0, catclient.ErrItemNotFound
	}

	return price, nil
}

func newTestService(t *testing.T) (*Service, *inmemory.Storage) {
	t.Helper()

	store := inmemory.NewStorage()

	user, err := users.CreateUser("alice", "password")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(context.Background(), user))

	catalog := &fakeCatalog{prices: map[string]int64{
		"vps-small": 25000,
		"vps-large": 90000,
	}}

	return New(store, catalog), store
}

func fund(t *testing.T, store *inmemory.Storage, login string, amount int64) {
	t.Helper()

	ctx := context.Background()

	dep, err := deposits.CreateDeposit(login, amount, payment.MethodBankTransfer)
	require.NoError(t, err)
	require.NoError(t, store.CreateDeposit(ctx, dep))

	_, err = store.AttachDepositProof(ctx, dep.ID(), "receipt")
	require.NoError(t, err)

	_, _, err = store.ApproveDeposit(ctx, dep.ID(), "admin", "")
	require.NoError(t, err)
}

func TestCreate_WalletOrder(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	fund(t, store, "alice", 30000)

	ord, entry, err := svc.Create(ctx, "alice", "vps-small", payment.MethodWallet)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, ord.Status())
	assert.Equal(t, int64(25000), ord.Amount())

	require.NotNil(t, entry)
	assert.Equal(t, int64(-25000), entry.Amount())
	assert.Equal(t, int64(5000), entry.Balance())

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)
}

func TestCreate_WalletOrderInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	fund(t, store, "alice", 30000)

	_, _, err := svc.Create(ctx, "alice", "vps-large", payment.MethodWallet)
	assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

	// The failed purchase leaves no order and no ledger movement.
	ords, err := svc.ListByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ords)

	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), balance)
}

func TestCreate_ProofBasedOrder(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	ord, entry, err := svc.Create(ctx, "alice", "vps-small", payment.MethodBankTransfer)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, ord.Status())
	assert.Nil(t, entry)

	// No wallet involvement for proof-based payments.
	balance, err := store.GetAccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestCreate_ItemNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, _, err := svc.Create(ctx, "alice", "no-such-item", payment.MethodWallet)
	assert.ErrorIs(t, err, catclient.ErrItemNotFound)
}

func TestAttachProof(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	ord, _, err := svc.Create(ctx, "alice", "vps-small", payment.MethodQRIS)
	require.NoError(t, err)

	attached, err := svc.AttachProof(ctx, "alice", ord.ID(), "receipt-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusValidating, attached.Status())

	_, err = svc.AttachProof(ctx, "alice", ord.ID(), "receipt-2")
	assert.ErrorIs(t, err, storage.ErrInvalidState)
}

func TestAttachProof_ForeignOrderHidden(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	user, err := users.CreateUser("bob", "password")
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, user))

	ord, _, err := svc.Create(ctx, "alice", "vps-small", payment.MethodQRIS)
	require.NoError(t, err)

	_, err = svc.AttachProof(ctx, "bob", ord.ID(), "receipt-1")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}
