//nolint:wrapcheck
package accounts

import (
	"errors"

	"github.com/andymarkow/hostmart/internal/domain/users"
)

var ErrBalanceNegative = errors.New("account balance is negative")

// Account is the wallet balance record owned by one user. The balance is only
// ever rewritten inside the same transaction as its authoritative ledger entry.
type Account struct {
	login   string
	balance int64
}

func NewAccount(login string, balance int64) (*Account, error) {
	if err := users.ValidateLogin(login); err != nil {
		return nil, err
	}

	if balance < 0 {
		return nil, ErrBalanceNegative
	}

	return &Account{
		login:   login,
		balance: balance,
	}, nil
}

func (a *Account) Login() string {
	return a.login
}

func (a *Account) Balance() int64 {
	return a.balance
}
