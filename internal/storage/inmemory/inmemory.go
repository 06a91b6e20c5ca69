package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/ledger"
	"github.com/andymarkow/hostmart/internal/domain/orders"
	"github.com/andymarkow/hostmart/internal/domain/users"
	"github.com/andymarkow/hostmart/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

type UserStore struct {
	users map[string]*users.User
	mu    sync.Mutex
}

type AccountStore struct {
	balances map[string]int64
	mu       sync.Mutex
}

type LedgerStore struct {
	entries map[string][]*ledger.Entry
	byKey   map[string]*ledger.Entry
	mu      sync.Mutex
}

type DepositStore struct {
	deposits map[string]*deposits.Deposit
	mu       sync.Mutex
}

type OrderStore struct {
	orders map[string]*orders.Order
	mu     sync.Mutex
}

// Storage is the in-process reference implementation. Stores are locked in a
// fixed order (accounts, ledger, deposits, orders) to avoid lock inversion.
type Storage struct {
	UserStore    UserStore
	AccountStore AccountStore
	LedgerStore  LedgerStore
	DepositStore DepositStore
	OrderStore   OrderStore
}

func NewStorage() *Storage {
	return &Storage{
		UserStore: UserStore{
			users: make(map[string]*users.User),
		},
		AccountStore: AccountStore{
			balances: make(map[string]int64),
		},
		LedgerStore: LedgerStore{
			entries: make(map[string][]*ledger.Entry),
			byKey:   make(map[string]*ledger.Entry),
		},
		DepositStore: DepositStore{
			deposits: make(map[string]*deposits.Deposit),
		},
		OrderStore: OrderStore{
			orders: make(map[string]*orders.Order),
		},
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) CreateUser(_ context.Context, usr *users.User) error {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	if _, ok := s.UserStore.users[usr.Login()]; ok {
		return storage.ErrUserAlreadyExists
	}

	s.UserStore.users[usr.Login()] = usr

	if _, ok := s.AccountStore.balances[usr.Login()]; ok {
		return storage.ErrAccountAlreadyExists
	}

	// Wallet account starts at zero and changes only through ledger entries.
	s.AccountStore.balances[usr.Login()] = 0

	return nil
}

func (s *Storage) GetUser(_ context.Context, login string) (*users.User, error) {
	s.UserStore.mu.Lock()
	defer s.UserStore.mu.Unlock()

	user, ok := s.UserStore.users[login]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return user, nil
}

func (s *Storage) GetAccountBalance(_ context.Context, login string) (int64, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	balance, ok := s.AccountStore.balances[login]
	if !ok {
		return 0, storage.ErrAccountNotFound
	}

	return balance, nil
}

func (s *Storage) GetLedgerEntries(_ context.Context, login string, limit int) ([]*ledger.Entry, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	if _, ok := s.AccountStore.balances[login]; !ok {
		return nil, storage.ErrAccountNotFound
	}

	entries := s.LedgerStore.entries[login]

	result := make([]*ledger.Entry, len(entries))
	copy(result, entries)

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt().After(result[j].CreatedAt())
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// postEntryLocked applies an entry to the account balance. The caller must
// hold the account and ledger locks. Returns the applied entry, or the stored
// one when the idempotency key has been posted before.
func (s *Storage) postEntryLocked(entry *ledger.Entry) (*ledger.Entry, bool, error) {
	if existing, ok := s.LedgerStore.byKey[entry.Key()]; ok {
		return existing, false, nil
	}

	balance, ok := s.AccountStore.balances[entry.AccountLogin()]
	if !ok {
		return nil, false, storage.ErrAccountNotFound
	}

	newBalance := balance + entry.Amount()
	if newBalance < 0 {
		return nil, false, storage.ErrInsufficientFunds
	}

	entry.SetBalance(newBalance)

	s.AccountStore.balances[entry.AccountLogin()] = newBalance
	s.LedgerStore.entries[entry.AccountLogin()] = append(s.LedgerStore.entries[entry.AccountLogin()], entry)
	s.LedgerStore.byKey[entry.Key()] = entry

	return entry, true, nil
}

func (s *Storage) PostLedgerEntry(_ context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	applied, _, err := s.postEntryLocked(entry)
	if err != nil {
		return nil, err
	}

	return applied, nil
}

func (s *Storage) CreateDeposit(_ context.Context, dep *deposits.Deposit) error {
	s.DepositStore.mu.Lock()
	defer s.DepositStore.mu.Unlock()

	if _, ok := s.DepositStore.deposits[dep.ID()]; ok {
		return storage.ErrDepositAlreadyExists
	}

	// Store a private copy; later decisions must not mutate the struct the
	// creating caller still holds.
	depCopy := *dep
	s.DepositStore.deposits[dep.ID()] = &depCopy

	return nil
}

func (s *Storage) GetDeposit(_ context.Context, depositID string) (*deposits.Deposit, error) {
	s.DepositStore.mu.Lock()
	defer s.DepositStore.mu.Unlock()

	dep, ok := s.DepositStore.deposits[depositID]
	if !ok {
		return nil, storage.ErrDepositNotFound
	}

	// Copy so callers never observe mutations made under the store lock.
	depCopy := *dep

	return &depCopy, nil
}

func (s *Storage) GetDepositsByLogin(_ context.Context, login string) ([]*deposits.Deposit, error) {
	s.DepositStore.mu.Lock()
	defer s.DepositStore.mu.Unlock()

	var deps []*deposits.Deposit
	for _, dep := range s.DepositStore.deposits {
		if dep.AccountLogin() == login {
			deps = append(deps, dep)
		}
	}

	sort.Slice(deps, func(i, j int) bool {
		return deps[i].CreatedAt().After(deps[j].CreatedAt())
	})

	return deps, nil
}

func (s *Storage) GetDepositsByStatus(_ context.Context, statuses ...deposits.Status) ([]*deposits.Deposit, error) {
	s.DepositStore.mu.Lock()
	defer s.DepositStore.mu.Unlock()

	var deps []*deposits.Deposit
	for _, dep := range s.DepositStore.deposits {
		if len(statuses) == 0 {
			deps = append(deps, dep)

			continue
		}

		for _, status := range statuses {
			if dep.Status() == status {
				deps = append(deps, dep)

				break
			}
		}
	}

	sort.Slice(deps, func(i, j int) bool {
		return deps[i].CreatedAt().After(deps[j].CreatedAt())
	})

	return deps, nil
}

func (s *Storage) AttachDepositProof(_ context.Context, depositID, proofRef string) (*deposits.Deposit, error) {
	s.DepositStore.mu.Lock()
	defer s.DepositStore.mu.Unlock()

	dep, ok := s.DepositStore.deposits[depositID]
	if !ok {
		return nil, storage.ErrDepositNotFound
	}

	if err := dep.AttachProof(proofRef); err != nil {
		if errors.Is(err, deposits.ErrInvalidTransition) {
			return nil, storage.ErrInvalidState
		}

		return nil, fmt.Errorf("deposit.AttachProof: %w", err)
	}

	// Copy so callers never observe mutations made under the store lock.
	depCopy := *dep

	return &depCopy, nil
}

func (s *Storage) ApproveDeposit(_ context.Context, depositID, adminID, notes string) (*deposits.Deposit, *ledger.Entry, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	s.DepositStore.mu.Lock()
	defer s.DepositStore.mu.Unlock()

	dep, ok := s.DepositStore.deposits[depositID]
	if !ok {
		return nil, nil, storage.ErrDepositNotFound
	}

	if dep.Status().Terminal() {
		return nil, nil, storage.ErrAlreadyProcessed
	}

	if !dep.Status().CanTransition(deposits.StatusApproved) {
		return nil, nil, storage.ErrInvalidState
	}

	entry, err := ledger.CreateEntry(
		dep.AccountLogin(), dep.Amount(), ledger.CauseDepositApproved, dep.ID(), adminID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger.CreateEntry: %w", err)
	}

	applied, _, err := s.postEntryLocked(entry)
	if err != nil {
		return nil, nil, err
	}

	if err := dep.Approve(adminID, notes, time.Now().UTC()); err != nil {
		return nil, nil, fmt.Errorf("deposit.Approve: %w", err)
	}

	depCopy := *dep

	return &depCopy, applied, nil
}

func (s *Storage) RejectDeposit(_ context.Context, depositID, adminID, notes string) (*deposits.Deposit, error) {
	s.DepositStore.mu.Lock()
	defer s.DepositStore.mu.Unlock()

	dep, ok := s.DepositStore.deposits[depositID]
	if !ok {
		return nil, storage.ErrDepositNotFound
	}

	if dep.Status().Terminal() {
		return nil, storage.ErrAlreadyProcessed
	}

	if err := dep.Reject(adminID, notes, time.Now().UTC()); err != nil {
		return nil, storage.ErrInvalidState
	}

	depCopy := *dep

	return &depCopy, nil
}

func (s *Storage) CreateOrder(_ context.Context, ord *orders.Order) error {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	if _, ok := s.OrderStore.orders[ord.ID()]; ok {
		return storage.ErrOrderAlreadyExists
	}

	ordCopy := *ord
	s.OrderStore.orders[ord.ID()] = &ordCopy

	return nil
}

func (s *Storage) CreateOrderWithDebit(_ context.Context, ord *orders.Order) (*ledger.Entry, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	if _, ok := s.OrderStore.orders[ord.ID()]; ok {
		return nil, storage.ErrOrderAlreadyExists
	}

	entry, err := ledger.CreateEntry(
		ord.AccountLogin(), -ord.Amount(), ledger.CauseOrderDebit, ord.ID(), ledger.ActorSystem,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger.CreateEntry: %w", err)
	}

	// Debit first: the order must never exist without its debit applied.
	applied, _, err := s.postEntryLocked(entry)
	if err != nil {
		return nil, err
	}

	if err := ord.Complete(""); err != nil {
		return nil, fmt.Errorf("order.Complete: %w", err)
	}

	// Store a private copy; the caller keeps its own completed order.
	ordCopy := *ord
	s.OrderStore.orders[ord.ID()] = &ordCopy

	return applied, nil
}

func (s *Storage) GetOrder(_ context.Context, orderID string) (*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}

	// Copy so callers never observe mutations made under the store lock.
	ordCopy := *ord

	return &ordCopy, nil
}

func (s *Storage) GetOrdersByLogin(_ context.Context, login string) ([]*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	var ords []*orders.Order
	for _, ord := range s.OrderStore.orders {
		if ord.AccountLogin() == login {
			ords = append(ords, ord)
		}
	}

	sort.Slice(ords, func(i, j int) bool {
		return ords[i].CreatedAt().After(ords[j].CreatedAt())
	})

	return ords, nil
}

func (s *Storage) GetOrdersByStatus(_ context.Context, statuses ...orders.Status) ([]*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	var ords []*orders.Order
	for _, ord := range s.OrderStore.orders {
		if len(statuses) == 0 {
			ords = append(ords, ord)

			continue
		}

		for _, status := range statuses {
			if ord.Status() == status {
				ords = append(ords, ord)

				break
			}
		}
	}

	sort.Slice(ords, func(i, j int) bool {
		return ords[i].CreatedAt().After(ords[j].CreatedAt())
	})

	return ords, nil
}

func (s *Storage) AttachOrderProof(_ context.Context, orderID, proofRef string) (*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}

	if err := ord.AttachProof(proofRef); err != nil {
		if errors.Is(err, orders.ErrInvalidTransition) {
			return nil, storage.ErrInvalidState
		}

		return nil, fmt.Errorf("order.AttachProof: %w", err)
	}

	ordCopy := *ord

	return &ordCopy, nil
}

func (s *Storage) CompleteOrder(_ context.Context, orderID, notes string) (*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}

	if ord.Status().Terminal() {
		return nil, storage.ErrAlreadyProcessed
	}

	if ord.Status() != orders.StatusValidating {
		return nil, storage.ErrInvalidState
	}

	if err := ord.Complete(notes); err != nil {
		return nil, storage.ErrInvalidState
	}

	ordCopy := *ord

	return &ordCopy, nil
}

func (s *Storage) CancelOrder(_ context.Context, orderID, notes string) (*orders.Order, error) {
	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}

	if ord.Status() == orders.StatusCancelled || ord.Status() == orders.StatusRefunded {
		return nil, storage.ErrAlreadyProcessed
	}

	if err := ord.Cancel(notes); err != nil {
		return nil, storage.ErrInvalidState
	}

	ordCopy := *ord

	return &ordCopy, nil
}

func (s *Storage) RefundOrder(_ context.Context, orderID, actor, notes string) (*orders.Order, *ledger.Entry, error) {
	s.AccountStore.mu.Lock()
	defer s.AccountStore.mu.Unlock()

	s.LedgerStore.mu.Lock()
	defer s.LedgerStore.mu.Unlock()

	s.OrderStore.mu.Lock()
	defer s.OrderStore.mu.Unlock()

	ord, ok := s.OrderStore.orders[orderID]
	if !ok {
		return nil, nil, storage.ErrOrderNotFound
	}

	if ord.Status() == orders.StatusCancelled || ord.Status() == orders.StatusRefunded {
		return nil, nil, storage.ErrAlreadyProcessed
	}

	if ord.Status() != orders.StatusCompleted || ord.PaymentMethod().ProofBased() {
		return nil, nil, storage.ErrInvalidState
	}

	entry, err := ledger.CreateEntry(
		ord.AccountLogin(), ord.Amount(), ledger.CauseOrderRefund, ord.ID(), actor,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger.CreateEntry: %w", err)
	}

	applied, _, err := s.postEntryLocked(entry)
	if err != nil {
		return nil, nil, err
	}

	if err := ord.Refund(notes); err != nil {
		return nil, nil, fmt.Errorf("order.Refund: %w", err)
	}

	ordCopy := *ord

	return &ordCopy, applied, nil
}
