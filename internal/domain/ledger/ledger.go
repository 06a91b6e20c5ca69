//nolint:wrapcheck
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountLoginEmpty = errors.New("ledger entry account login is empty")
	ErrAmountZero        = errors.New("ledger entry amount is zero")
	ErrReferenceEmpty    = errors.New("ledger entry reference is empty")
	ErrActorEmpty        = errors.New("ledger entry actor is empty")
)

// ActorSystem marks entries posted by the system itself rather than an admin,
// such as the debit at wallet order creation.
const ActorSystem = "system"

// Cause classifies why a ledger entry was posted.
type Cause string

const (
	CauseDepositApproved Cause = "DEPOSIT_APPROVED"
	CauseOrderDebit      Cause = "ORDER_DEBIT"
	CauseOrderRefund     Cause = "ORDER_REFUND"
	CauseAdminAdjustment Cause = "ADMIN_ADJUSTMENT"
)

func (c Cause) String() string {
	return string(c)
}

func ParseCause(cause string) (Cause, error) {
	switch cause {
	case "DEPOSIT_APPROVED":
		return CauseDepositApproved, nil
	case "ORDER_DEBIT":
		return CauseOrderDebit, nil
	case "ORDER_REFUND":
		return CauseOrderRefund, nil
	case "ADMIN_ADJUSTMENT":
		return CauseAdminAdjustment, nil
	default:
		return "", fmt.Errorf("unknown ledger cause: %s", cause)
	}
}

// Entry is an immutable signed record of one wallet balance change.
// Amounts are integer minor currency units, credits positive, debits negative.
type Entry struct {
	id           string
	accountLogin string
	amount       int64
	cause        Cause
	referenceID  string
	balance      int64
	actor        string
	createdAt    time.Time
}

// CreateEntry builds a fresh entry for posting. The balance snapshot is
// assigned by the storage layer inside the posting transaction.
func CreateEntry(accountLogin string, amount int64, cause Cause, referenceID, actor string) (*Entry, error) {
	if accountLogin == "" {
		return nil, ErrAccountLoginEmpty
	}

	if amount == 0 {
		return nil, ErrAmountZero
	}

	if referenceID == "" {
		return nil, ErrReferenceEmpty
	}

	if actor == "" {
		return nil, ErrActorEmpty
	}

	if _, err := ParseCause(cause.String()); err != nil {
		return nil, err
	}

	return &Entry{
		id:           uuid.NewString(),
		accountLogin: accountLogin,
		amount:       amount,
		cause:        cause,
		referenceID:  referenceID,
		actor:        actor,
		createdAt:    time.Now().UTC(),
	}, nil
}

// NewEntry restores an entry from persisted state.
func NewEntry(
	id, accountLogin string, amount int64, cause Cause, referenceID string,
	balance int64, actor string, createdAt time.Time,
) (*Entry, error) {
	if id == "" {
		return nil, ErrReferenceEmpty
	}

	if _, err := ParseCause(cause.String()); err != nil {
		return nil, err
	}

	return &Entry{
		id:           id,
		accountLogin: accountLogin,
		amount:       amount,
		cause:        cause,
		referenceID:  referenceID,
		balance:      balance,
		actor:        actor,
		createdAt:    createdAt,
	}, nil
}

func (e *Entry) ID() string {
	return e.id
}

func (e *Entry) AccountLogin() string {
	return e.accountLogin
}

func (e *Entry) Amount() int64 {
	return e.amount
}

func (e *Entry) Cause() Cause {
	return e.cause
}

func (e *Entry) ReferenceID() string {
	return e.referenceID
}

func (e *Entry) Balance() int64 {
	return e.balance
}

func (e *Entry) Actor() string {
	return e.actor
}

func (e *Entry) CreatedAt() time.Time {
	return e.createdAt
}

// SetBalance records the resulting account balance snapshot. Called by the
// storage layer at apply time, never after the entry is persisted.
func (e *Entry) SetBalance(balance int64) {
	e.balance = balance
}

// Key returns the idempotency key of the entry. Posting two entries with the
// same key applies the amount once; the second post returns the first entry.
func (e *Entry) Key() string {
	return e.referenceID + ":" + e.cause.String()
}
