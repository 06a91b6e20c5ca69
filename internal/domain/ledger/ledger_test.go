package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntry(t *testing.T) {
	entry, err := CreateEntry("alice", -2500, CauseOrderDebit, "ord-1", ActorSystem)
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID())
	assert.Equal(t, "alice", entry.AccountLogin())
	assert.Equal(t, int64(-2500), entry.Amount())
	assert.Equal(t, CauseOrderDebit, entry.Cause())
	assert.Equal(t, "ord-1", entry.ReferenceID())
	assert.Equal(t, ActorSystem, entry.Actor())
	assert.False(t, entry.CreatedAt().IsZero())
}

func TestCreateEntry_Validation(t *testing.T) {
	_, err := CreateEntry("", 100, CauseAdminAdjustment, "ref", "admin")
	assert.ErrorIs(t, err, ErrAccountLoginEmpty)

	_, err = CreateEntry("alice", 0, CauseAdminAdjustment, "ref", "admin")
	assert.ErrorIs(t, err, ErrAmountZero)

	_, err = CreateEntry("alice", 100, CauseAdminAdjustment, "", "admin")
	assert.ErrorIs(t, err, ErrReferenceEmpty)

	_, err = CreateEntry("alice", 100, CauseAdminAdjustment, "ref", "")
	assert.ErrorIs(t, err, ErrActorEmpty)

	_, err = CreateEntry("alice", 100, Cause("GIFT"), "ref", "admin")
	assert.Error(t, err)
}

func TestEntryKey(t *testing.T) {
	first, err := CreateEntry("alice", 100, CauseDepositApproved, "dep-1", "admin")
	require.NoError(t, err)

	second, err := CreateEntry("bob", 999, CauseDepositApproved, "dep-1", "admin")
	require.NoError(t, err)

	// The key depends only on reference and cause: the same business event
	// maps to the same key no matter who retries it.
	assert.Equal(t, first.Key(), second.Key())

	refund, err := CreateEntry("alice", 100, CauseOrderRefund, "dep-1", "admin")
	require.NoError(t, err)

	assert.NotEqual(t, first.Key(), refund.Key())
}

func TestParseCause(t *testing.T) {
	for _, cause := range []Cause{
		CauseDepositApproved, CauseOrderDebit, CauseOrderRefund, CauseAdminAdjustment,
	} {
		parsed, err := ParseCause(cause.String())
		require.NoError(t, err)
		assert.Equal(t, cause, parsed)
	}

	_, err := ParseCause("GIFT")
	assert.Error(t, err)
}
