//nolint:wrapcheck
package deposits

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/domain/users"
)

var (
	ErrAmountNotPositive = errors.New("deposit amount is not positive")
	ErrProofRefEmpty     = errors.New("deposit proof reference is empty")
	ErrInvalidTransition = errors.New("deposit status transition is not allowed")
)

// Status of a deposit request. Statuses move monotonically along
// PENDING -> VALIDATING -> {APPROVED, REJECTED}; terminal statuses never
// transition again.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusValidating Status = "VALIDATING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
)

// transitions is the closed transition table. Rejection is allowed before
// proof upload so admins can clear out stale requests.
var transitions = map[Status][]Status{
	StatusPending:    {StatusValidating, StatusRejected},
	StatusValidating: {StatusApproved, StatusRejected},
}

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
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
	case "APPROVED":
		return StatusApproved, nil
	case "REJECTED":
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown deposit status: %s", status)
	}
}

// Deposit is a user-submitted wallet top-up request. It credits the wallet
// at most once, and only through an admin approval decision.
type Deposit struct {
	id            string
	accountLogin  string
	amount        int64
	paymentMethod payment.Method
	status        Status
	proofRef      string
	adminNotes    string
	processedBy   string
	processedAt   time.Time
	createdAt     time.Time
}

// CreateDeposit builds a fresh PENDING deposit request. It has no ledger
// effect until approved.
func CreateDeposit(accountLogin string, amount int64, method payment.Method) (*Deposit, error) {
	if err := users.ValidateLogin(accountLogin); err != nil {
		return nil, err
	}

	if amount <= 0 {
		return nil, ErrAmountNotPositive
	}

	if _, err := payment.ParseProofMethod(method.String()); err != nil {
		return nil, err
	}

	return &Deposit{
		id:            uuid.NewString(),
		accountLogin:  accountLogin,
		amount:        amount,
		paymentMethod: method,
		status:        StatusPending,
		createdAt:     time.Now().UTC(),
	}, nil
}

// NewDeposit restores a deposit from persisted state.
func NewDeposit(
	id, accountLogin string, amount int64, method payment.Method, status Status,
	proofRef, adminNotes, processedBy string, processedAt, createdAt time.Time,
) (*Deposit, error) {
	if err := users.ValidateLogin(accountLogin); err != nil {
		return nil, err
	}

	if _, err := ParseStatus(status.String()); err != nil {
		return nil, err
	}

	return &Deposit{
		id:            id,
		accountLogin:  accountLogin,
		amount:        amount,
		paymentMethod: method,
		status:        status,
		proofRef:      proofRef,
		adminNotes:    adminNotes,
		processedBy:   processedBy,
		processedAt:   processedAt,
		createdAt:     createdAt,
	}, nil
}

func (d *Deposit) ID() string {
	return d.id
}

func (d *Deposit) AccountLogin() string {
	return d.accountLogin
}

func (d *Deposit) Amount() int64 {
	return d.amount
}

func (d *Deposit) PaymentMethod() payment.Method {
	return d.paymentMethod
}

func (d *Deposit) Status() Status {
	return d.status
}

func (d *Deposit) ProofRef() string {
	return d.proofRef
}

func (d *Deposit) AdminNotes() string {
	return d.adminNotes
}

func (d *Deposit) ProcessedBy() string {
	return d.processedBy
}

func (d *Deposit) ProcessedAt() time.Time {
	return d.processedAt
}

func (d *Deposit) CreatedAt() time.Time {
	return d.createdAt
}

// AttachProof moves the deposit to VALIDATING. Allowed only from PENDING.
func (d *Deposit) AttachProof(proofRef string) error {
	if proofRef == "" {
		return ErrProofRefEmpty
	}

	if !d.status.CanTransition(StatusValidating) {
		return ErrInvalidTransition
	}

	d.status = StatusValidating
	d.proofRef = proofRef

	return nil
}

// Approve marks the deposit APPROVED. The caller posts the matching
// DEPOSIT_APPROVED ledger entry in the same transaction.
func (d *Deposit) Approve(adminID, notes string, at time.Time) error {
	if !d.status.CanTransition(StatusApproved) {
		return ErrInvalidTransition
	}

	d.status = StatusApproved
	d.adminNotes = notes
	d.processedBy = adminID
	d.processedAt = at

	return nil
}

// Reject marks the deposit REJECTED with no ledger effect.
func (d *Deposit) Reject(adminID, notes string, at time.Time) error {
	if !d.status.CanTransition(StatusRejected) {
		return ErrInvalidTransition
	}

	d.status = StatusRejected
	d.adminNotes = notes
	d.processedBy = adminID
	d.processedAt = at

	return nil
}
