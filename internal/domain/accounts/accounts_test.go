package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	account, err := NewAccount("alice", 5000)
	require.NoError(t, err)

	assert.Equal(t, "alice", account.Login())
	assert.Equal(t, int64(5000), account.Balance())
}

func TestNewAccount_Validation(t *testing.T) {
	_, err := NewAccount("", 5000)
	assert.Error(t, err)

	_, err = NewAccount("alice", -1)
	assert.ErrorIs(t, err, ErrBalanceNegative)
}
