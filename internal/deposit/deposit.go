package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/notifier"
	"github.com/andymarkow/hostmart/internal/storage"
)

var ErrAmountBelowMinimum = errors.New("deposit amount is below minimum")

// DefaultMinAmount is the minimal accepted top-up in minor currency units.
const DefaultMinAmount int64 = 10000

// Service is the deposit workflow: users create top-up requests and attach
// payment proofs. Approval and rejection go through the approval gateway.
type Service struct {
	log       *slog.Logger
	storage   storage.Storage
	notifier  *notifier.Notifier
	minAmount int64
}

func New(store storage.Storage, opts ...Option) *Service {
	svc := &Service{
		log:       slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		storage:   store,
		minAmount: DefaultMinAmount,
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

func WithMinAmount(amount int64) Option {
	return func(s *Service) {
		s.minAmount = amount
	}
}

// Create registers a PENDING deposit request. No ledger effect.
func (s *Service) Create(ctx context.Context, login string, amount int64, method payment.Method) (*deposits.Deposit, error) {
	if amount < s.minAmount {
		return nil, ErrAmountBelowMinimum
	}

	dep, err := deposits.CreateDeposit(login, amount, method)
	if err != nil {
		return nil, fmt.Errorf("deposits.CreateDeposit: %w", err)
	}

	if err := s.storage.CreateDeposit(ctx, dep); err != nil {
		return nil, fmt.Errorf("storage.CreateDeposit: %w", err)
	}

	s.notifier.Notify(notifier.Event{
		Type:         notifier.EventDepositCreated,
		EntityID:     dep.ID(),
		AccountLogin: dep.AccountLogin(),
		Status:       dep.Status().String(),
		Amount:       dep.Amount(),
	})

	return dep, nil
}

// AttachProof moves the user's own PENDING deposit to VALIDATING and puts it
// on the admin review queue.
func (s *Service) AttachProof(ctx context.Context, login, depositID, proofRef string) (*deposits.Deposit, error) {
	dep, err := s.storage.GetDeposit(ctx, depositID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetDeposit: %w", err)
	}

	// Deposits of other users are not disclosed.
	if dep.AccountLogin() != login {
		return nil, fmt.Errorf("storage.GetDeposit: %w", storage.ErrDepositNotFound)
	}

	dep, err = s.storage.AttachDepositProof(ctx, depositID, proofRef)
	if err != nil {
		return nil, fmt.Errorf("storage.AttachDepositProof: %w", err)
	}

	s.notifier.Notify(notifier.Event{
		Type:         notifier.EventDepositProofAttached,
		EntityID:     dep.ID(),
		AccountLogin: dep.AccountLogin(),
		Status:       dep.Status().String(),
		Amount:       dep.Amount(),
	})

	return dep, nil
}

func (s *Service) ListByLogin(ctx context.Context, login string) ([]*deposits.Deposit, error) {
	deps, err := s.storage.GetDepositsByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("storage.GetDepositsByLogin: %w", err)
	}

	return deps, nil
}

func (s *Service) ListByStatus(ctx context.Context, statuses ...deposits.Status) ([]*deposits.Deposit, error) {
	deps, err := s.storage.GetDepositsByStatus(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("storage.GetDepositsByStatus: %w", err)
	}

	return deps, nil
}
