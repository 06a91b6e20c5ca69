//nolint:wrapcheck
package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/domain/users"
)

var (
	ErrStoreItemEmpty    = errors.New("order store item id is empty")
	ErrAmountNotPositive = errors.New("order amount is not positive")
	ErrProofRefEmpty     = errors.New("order proof reference is empty")
	ErrInvalidTransition = errors.New("order status transition is not allowed")
)

// Status of a store order. COMPLETED, CANCELLED and REFUNDED are terminal.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusValidating Status = "VALIDATING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// transitions is the closed transition table. Wallet orders complete directly
// from PENDING once the debit succeeds; proof-based orders pass VALIDATING.
// COMPLETED -> REFUNDED is the wallet cancellation path, which posts a
// compensating credit; COMPLETED -> CANCELLED is the proof-based one, where
// no wallet funds ever moved.
var transitions = map[Status][]Status{
	StatusPending:    {StatusValidating, StatusCompleted, StatusCancelled},
	StatusValidating: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusCancelled, StatusRefunded},
}

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether the order left the review pipeline. COMPLETED
// still permits the cancellation/refund reversal, all other transitions
// out of a terminal status are illegal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// CanTransition reports whether moving to next is a legal transition.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}

	return false
}

func ParseStatus(status string) (Status, error) {
	switch status {
	case "PENDING":
		return StatusPending, nil
	case "VALIDATING":
		return StatusValidating, nil
	case "COMPLETED":
		return StatusCompleted, nil
	case "CANCELLED":
		return StatusCancelled, nil
	case "REFUNDED":
		return StatusRefunded, nil
	default:
		return "", fmt.Errorf("unknown order status: %s", status)
	}
}

// Order is a store purchase. The amount is the item price at purchase time,
// in integer minor currency units.
type Order struct {
	id            string
	accountLogin  string
	storeItemID   string
	amount        int64
	status        Status
	paymentMethod payment.Method
	proofRef      string
	adminNotes    string
	createdAt     time.Time
	updatedAt     time.Time
}

// CreateOrder builds a fresh PENDING order. Wallet orders are completed by
// the storage layer in the same transaction as their ORDER_DEBIT entry.
func CreateOrder(accountLogin, storeItemID string, amount int64, method payment.Method) (*Order, error) {
	if err := users.ValidateLogin(accountLogin); err != nil {
		return nil, err
	}

	if storeItemID == "" {
		return nil, ErrStoreItemEmpty
	}

	if amount <= 0 {
		return nil, ErrAmountNotPositive
	}

	if _, err := payment.ParseMethod(method.String()); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Order{
		id:            uuid.NewString(),
		accountLogin:  accountLogin,
		storeItemID:   storeItemID,
		amount:        amount,
		status:        StatusPending,
		paymentMethod: method,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// NewOrder restores an order from persisted state.
func NewOrder(
	id, accountLogin, storeItemID string, amount int64, status Status,
	method payment.Method, proofRef, adminNotes string, createdAt, updatedAt time.Time,
) (*Order, error) {
	if err := users.ValidateLogin(accountLogin); err != nil {
		return nil, err
	}

	if _, err := ParseStatus(status.String()); err != nil {
		return nil, err
	}

	return &Order{
		id:            id,
		accountLogin:  accountLogin,
		storeItemID:   storeItemID,
		amount:        amount,
		status:        status,
		paymentMethod: method,
		proofRef:      proofRef,
		adminNotes:    adminNotes,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}, nil
}

func (o *Order) ID() string {
	return o.id
}

func (o *Order) AccountLogin() string {
	return o.accountLogin
}

func (o *Order) StoreItemID() string {
	return o.storeItemID
}

func (o *Order) Amount() int64 {
	return o.amount
}

func (o *Order) Status() Status {
	return o.status
}

func (o *Order) PaymentMethod() payment.Method {
	return o.paymentMethod
}

func (o *Order) ProofRef() string {
	return o.proofRef
}

func (o *Order) AdminNotes() string {
	return o.adminNotes
}

func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

func (o *Order) UpdatedAt() time.Time {
	return o.updatedAt
}

// AttachProof moves the order to VALIDATING. Allowed only from PENDING for
// proof-based payment methods.
func (o *Order) AttachProof(proofRef string) error {
	if proofRef == "" {
		return ErrProofRefEmpty
	}

	if !o.paymentMethod.ProofBased() || o.status != StatusPending {
		return ErrInvalidTransition
	}

	o.status = StatusValidating
	o.proofRef = proofRef
	o.updatedAt = time.Now().UTC()

	return nil
}

// Complete marks the order COMPLETED.
func (o *Order) Complete(notes string) error {
	if !o.status.CanTransition(StatusCompleted) {
		return ErrInvalidTransition
	}

	o.status = StatusCompleted
	o.adminNotes = notes
	o.updatedAt = time.Now().UTC()

	return nil
}

// Cancel marks the order CANCELLED without a ledger effect. Wallet orders
// that already debited the wallet must go through Refund instead.
func (o *Order) Cancel(notes string) error {
	if !o.status.CanTransition(StatusCancelled) {
		return ErrInvalidTransition
	}

	if o.status == StatusCompleted && !o.paymentMethod.ProofBased() {
		return ErrInvalidTransition
	}

	o.status = StatusCancelled
	o.adminNotes = notes
	o.updatedAt = time.Now().UTC()

	return nil
}

// Refund marks a completed wallet order REFUNDED. The caller posts the
// compensating ORDER_REFUND entry in the same transaction.
func (o *Order) Refund(notes string) error {
	if o.paymentMethod.ProofBased() || !o.status.CanTransition(StatusRefunded) {
		return ErrInvalidTransition
	}

	o.status = StatusRefunded
	o.adminNotes = notes
	o.updatedAt = time.Now().UTC()

	return nil
}
