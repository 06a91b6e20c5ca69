// Package approval is the single entry point for administrative decisions on
// deposits and orders. Centralizing decisions here keeps the
// status-plus-ledger atomicity guarantee in one place: a decision either
// commits with its ledger effect or not at all, and replays converge to the
// stored terminal state.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/ledger"
	"github.com/andymarkow/hostmart/internal/domain/orders"
	"github.com/andymarkow/hostmart/internal/notifier"
	"github.com/andymarkow/hostmart/internal/storage"
)

// ErrConflictingDecision is returned when a decision replay requests the
// opposite outcome of the stored terminal state. Unlike a plain replay, which
// is an idempotent no-op, this needs manual reconciliation.
var ErrConflictingDecision = errors.New("decision conflicts with the stored terminal state")

// Decision is an administrative verdict on a pending entity.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

func (d Decision) String() string {
	return string(d)
}

func ParseDecision(decision string) (Decision, error) {
	switch decision {
	case "APPROVE":
		return DecisionApprove, nil
	case "REJECT":
		return DecisionReject, nil
	default:
		return "", fmt.Errorf("unknown decision: %s", decision)
	}
}

type Gateway struct {
	log      *slog.Logger
	storage  storage.Storage
	notifier *notifier.Notifier
}

func New(store storage.Storage, opts ...Option) *Gateway {
	gw := &Gateway{
		log:     slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		storage: store,
	}

	for _, opt := range opts {
		opt(gw)
	}

	if gw.notifier == nil {
		gw.notifier = notifier.New(notifier.WithLogger(gw.log))
	}

	return gw
}

type Option func(g *Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.log = logger
	}
}

func WithNotifier(n *notifier.Notifier) Option {
	return func(g *Gateway) {
		g.notifier = n
	}
}

// DecideDeposit applies an admin decision to a deposit request. Approval
// posts the DEPOSIT_APPROVED credit and advances the status in one storage
// transaction; rejection advances the status only. Replaying the same
// decision on a terminal deposit is a no-op returning the stored state.
func (g *Gateway) DecideDeposit(ctx context.Context, depositID string, decision Decision, adminID, notes string) (*deposits.Deposit, *ledger.Entry, error) {
	dep, err := g.storage.GetDeposit(ctx, depositID)
	if err != nil {
		return nil, nil, fmt.Errorf("storage.GetDeposit: %w", err)
	}

	if dep.Status().Terminal() {
		return g.replayDeposit(dep, decision)
	}

	var entry *ledger.Entry

	switch decision {
	case DecisionApprove:
		dep, entry, err = g.storage.ApproveDeposit(ctx, depositID, adminID, notes)
	case DecisionReject:
		dep, err = g.storage.RejectDeposit(ctx, depositID, adminID, notes)
	default:
		return nil, nil, fmt.Errorf("unknown decision: %s", decision)
	}

	if err != nil {
		// Lost the race against a concurrent decision: converge on the
		// committed terminal state instead of failing the retry.
		if errors.Is(err, storage.ErrAlreadyProcessed) {
			dep, err = g.storage.GetDeposit(ctx, depositID)
			if err != nil {
				return nil, nil, fmt.Errorf("storage.GetDeposit: %w", err)
			}

			return g.replayDeposit(dep, decision)
		}

		return nil, nil, fmt.Errorf("storage deposit decision: %w", err)
	}

	g.notifier.Notify(notifier.Event{
		Type:         notifier.EventDepositDecided,
		EntityID:     dep.ID(),
		AccountLogin: dep.AccountLogin(),
		Status:       dep.Status().String(),
		Amount:       dep.Amount(),
	})

	return dep, entry, nil
}

func (g *Gateway) replayDeposit(dep *deposits.Deposit, decision Decision) (*deposits.Deposit, *ledger.Entry, error) {
	if (dep.Status() == deposits.StatusApproved && decision == DecisionApprove) ||
		(dep.Status() == deposits.StatusRejected && decision == DecisionReject) {
		return dep, nil, nil
	}

	return nil, nil, ErrConflictingDecision
}

// DecideOrder applies an admin decision to a proof-based order under review.
// Neither outcome moves the ledger: the funds settled outside the wallet.
func (g *Gateway) DecideOrder(ctx context.Context, orderID string, decision Decision, adminID, notes string) (*orders.Order, error) {
	ord, err := g.storage.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetOrder: %w", err)
	}

	if ord.Status().Terminal() {
		return g.replayOrder(ord, decision)
	}

	switch decision {
	case DecisionApprove:
		ord, err = g.storage.CompleteOrder(ctx, orderID, notes)
	case DecisionReject:
		ord, err = g.storage.CancelOrder(ctx, orderID, notes)
	default:
		return nil, fmt.Errorf("unknown decision: %s", decision)
	}

	if err != nil {
		if errors.Is(err, storage.ErrAlreadyProcessed) {
			ord, err = g.storage.GetOrder(ctx, orderID)
			if err != nil {
				return nil, fmt.Errorf("storage.GetOrder: %w", err)
			}

			return g.replayOrder(ord, decision)
		}

		return nil, fmt.Errorf("storage order decision: %w", err)
	}

	g.notifier.Notify(notifier.Event{
		Type:         notifier.EventOrderDecided,
		EntityID:     ord.ID(),
		AccountLogin: ord.AccountLogin(),
		Status:       ord.Status().String(),
		Amount:       ord.Amount(),
	})

	return ord, nil
}

func (g *Gateway) replayOrder(ord *orders.Order, decision Decision) (*orders.Order, error) {
	if (ord.Status() == orders.StatusCompleted && decision == DecisionApprove) ||
		(ord.Status() == orders.StatusCancelled && decision == DecisionReject) {
		return ord, nil
	}

	return nil, ErrConflictingDecision
}

// CancelOrder reverses an order. A completed wallet order gets its
// compensating ORDER_REFUND credit posted atomically with the status change;
// orders that never debited the wallet are just marked CANCELLED. Cancelling
// an already cancelled or refunded order is an idempotent no-op.
func (g *Gateway) CancelOrder(ctx context.Context, orderID, adminID, notes string) (*orders.Order, *ledger.Entry, error) {
	ord, err := g.storage.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("storage.GetOrder: %w", err)
	}

	if ord.Status() == orders.StatusCancelled || ord.Status() == orders.StatusRefunded {
		return ord, nil, nil
	}

	var entry *ledger.Entry

	if ord.Status() == orders.StatusCompleted && !ord.PaymentMethod().ProofBased() {
		ord, entry, err = g.storage.RefundOrder(ctx, orderID, adminID, notes)
	} else {
		ord, err = g.storage.CancelOrder(ctx, orderID, notes)
	}

	if err != nil {
		if errors.Is(err, storage.ErrAlreadyProcessed) {
			ord, err = g.storage.GetOrder(ctx, orderID)
			if err != nil {
				return nil, nil, fmt.Errorf("storage.GetOrder: %w", err)
			}

			if ord.Status() == orders.StatusCancelled || ord.Status() == orders.StatusRefunded {
				return ord, nil, nil
			}

			return nil, nil, ErrConflictingDecision
		}

		return nil, nil, fmt.Errorf("storage order cancellation: %w", err)
	}

	g.notifier.Notify(notifier.Event{
		Type:         notifier.EventOrderCancelled,
		EntityID:     ord.ID(),
		AccountLogin: ord.AccountLogin(),
		Status:       ord.Status().String(),
		Amount:       ord.Amount(),
	})

	return ord, entry, nil
}

// Adjust posts a manual ADMIN_ADJUSTMENT ledger entry. Debits that would
// drive the balance negative are rejected by the ledger store.
func (g *Gateway) Adjust(ctx context.Context, login string, amount int64, adminID string) (*ledger.Entry, error) {
	entry, err := ledger.CreateEntry(login, amount, ledger.CauseAdminAdjustment, uuid.NewString(), adminID)
	if err != nil {
		return nil, fmt.Errorf("ledger.CreateEntry: %w", err)
	}

	applied, err := g.storage.PostLedgerEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("storage.PostLedgerEntry: %w", err)
	}

	g.notifier.Notify(notifier.Event{
		Type:         notifier.EventAdjustmentPosted,
		EntityID:     applied.ID(),
		AccountLogin: applied.AccountLogin(),
		Amount:       applied.Amount(),
	})

	return applied, nil
}
