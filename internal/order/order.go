package order

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/andymarkow/hostmart/internal/domain/ledger"
	"github.com/andymarkow/hostmart/internal/domain/orders"
	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/notifier"
	"github.com/andymarkow/hostmart/internal/storage"
)

// Catalog supplies the current store item price in minor currency units.
type Catalog interface {
	GetItemPrice(ctx context.Context, itemID string) (int64, error)
}

// Service is the order workflow. Wallet orders debit the wallet and complete
// in a single transaction at creation time; proof-based orders start PENDING
// and settle through the approval gateway.
type Service struct {
	log      *slog.Logger
	storage  storage.Storage
	catalog  Catalog
	notifier *notifier.Notifier
}

func New(store storage.Storage, catalog Catalog, opts ...Option) *Service {
	svc := &Service{
		log:     slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		storage: store,
		catalog: catalog,
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.notifier == nil {
		svc.notifier = notifier.New(notifier.WithLogger(svc.log))
	}

	return svc
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.log = logger
	}
}

func WithNotifier(n *notifier.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// Create places an order for a store item, debiting the item price at
// purchase time. For wallet payments the returned entry is the ORDER_DEBIT;
// an InsufficientFunds failure leaves no order behind.
func (s *Service) Create(ctx context.Context, login, itemID string, method payment.Method) (*orders.Order, *ledger.Entry, error) {
	price, err := s.catalog.GetItemPrice(ctx, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog.GetItemPrice: %w", err)
	}

	ord, err := orders.CreateOrder(login, itemID, price, method)
	if err != nil {
		return nil, nil, fmt.Errorf("orders.CreateOrder: %w", err)
	}

	var entry *ledger.Entry

	if method.ProofBased() {
		if err := s.storage.CreateOrder(ctx, ord); err != nil {
			return nil, nil, fmt.Errorf("storage.CreateOrder: %w", err)
		}
	} else {
		entry, err = s.storage.CreateOrderWithDebit(ctx, ord)
		if err != nil {
			return nil, nil, fmt.Errorf("storage.CreateOrderWithDebit: %w", err)
		}
	}

	s.notifier.Notify(notifier.Event{
		Type:         notifier.EventOrderCreated,
		EntityID:     ord.ID(),
		AccountLogin: ord.AccountLogin(),
		Status:       ord.Status().String(),
		Amount:       ord.Amount(),
	})

	return ord, entry, nil
}

// AttachProof moves the user's own PENDING proof-based order to VALIDATING.
func (s *Service) AttachProof(ctx context.Context, login, orderID, proofRef string) (*orders.Order, error) {
	ord, err := s.storage.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetOrder: %w", err)
	}

	// Orders of other users are not disclosed.
	if ord.AccountLogin() != login {
		return nil, fmt.Errorf("storage.GetOrder: %w", storage.ErrOrderNotFound)
	}

	ord, err = s.storage.AttachOrderProof(ctx, orderID, proofRef)
	if err != nil {
		return nil, fmt.Errorf("storage.AttachOrderProof: %w", err)
	}

	s.notifier.Notify(notifier.Event{
		Type:         notifier.EventOrderProofAttached,
		EntityID:     ord.ID(),
		AccountLogin: ord.AccountLogin(),
		Status:       ord.Status().String(),
		Amount:       ord.Amount(),
	})

	return ord, nil
}

func (s *Service) ListByLogin(ctx context.Context, login string) ([]*orders.Order, error) {
	ords, err := s.storage.GetOrdersByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("storage.GetOrdersByLogin: %w", err)
	}

	return ords, nil
}

func (s *Service) ListByStatus(ctx context.Context, statuses ...orders.Status) ([]*orders.Order, error) {
	ords, err := s.storage.GetOrdersByStatus(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("storage.GetOrdersByStatus: %w", err)
	}

	return ords, nil
}
