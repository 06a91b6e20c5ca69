package storage

import (
	"context"
	"errors"

	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/ledger"
	"github.com/andymarkow/hostmart/internal/domain/orders"
	"github.com/andymarkow/hostmart/internal/domain/users"
)

var (
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientFunds    = errors.New("account balance not enough funds")
	ErrDepositNotFound      = errors.New("deposit not found")
	ErrDepositAlreadyExists = errors.New("deposit already exists")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderAlreadyExists   = errors.New("order already exists")
	ErrAlreadyProcessed     = errors.New("entity already in a terminal state")
	ErrInvalidState         = errors.New("entity is not in the required state")
)

type UserStorage interface {
	GetUser(ctx context.Context, login string) (*users.User, error)
	CreateUser(ctx context.Context, usr *users.User) error
}

// LedgerStorage is the wallet ledger contract. PostLedgerEntry applies the
// signed amount to the account balance and persists the entry atomically,
// serialized per account. Entries are idempotent on (referenceID, cause):
// reposting the same key returns the stored entry without reapplying it.
type LedgerStorage interface {
	GetAccountBalance(ctx context.Context, login string) (int64, error)
	GetLedgerEntries(ctx context.Context, login string, limit int) ([]*ledger.Entry, error)
	PostLedgerEntry(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error)
}

// DepositStorage persists deposit requests. ApproveDeposit posts the
// DEPOSIT_APPROVED entry and advances the status in one transaction; a
// failure at the ledger step leaves the status untouched.
type DepositStorage interface {
	CreateDeposit(ctx context.Context, dep *deposits.Deposit) error
	GetDeposit(ctx context.Context, depositID string) (*deposits.Deposit, error)
	GetDepositsByLogin(ctx context.Context, login string) ([]*deposits.Deposit, error)
	GetDepositsByStatus(ctx context.Context, statuses ...deposits.Status) ([]*deposits.Deposit, error)
	AttachDepositProof(ctx context.Context, depositID, proofRef string) (*deposits.Deposit, error)
	ApproveDeposit(ctx context.Context, depositID, adminID, notes string) (*deposits.Deposit, *ledger.Entry, error)
	RejectDeposit(ctx context.Context, depositID, adminID, notes string) (*deposits.Deposit, error)
}

// OrderStorage persists store orders. CreateOrderWithDebit spans the
// ORDER_DEBIT entry and the order row in a single transaction: an
// insufficient-funds failure rolls back order creation entirely.
type OrderStorage interface {
	CreateOrder(ctx context.Context, ord *orders.Order) error
	CreateOrderWithDebit(ctx context.Context, ord *orders.Order) (*ledger.Entry, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	GetOrdersByLogin(ctx context.Context, login string) ([]*orders.Order, error)
	GetOrdersByStatus(ctx context.Context, statuses ...orders.Status) ([]*orders.Order, error)
	AttachOrderProof(ctx context.Context, orderID, proofRef string) (*orders.Order, error)
	CompleteOrder(ctx context.Context, orderID, notes string) (*orders.Order, error)
	CancelOrder(ctx context.Context, orderID, notes string) (*orders.Order, error)
	RefundOrder(ctx context.Context, orderID, actor, notes string) (*orders.Order, *ledger.Entry, error)
}

type Storage interface {
	UserStorage
	LedgerStorage
	DepositStorage
	OrderStorage
	Close() error
	Ping(ctx context.Context) error
}

func NewStorage(store Storage) Storage {
	return store
}
