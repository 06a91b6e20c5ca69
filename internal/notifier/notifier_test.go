package notifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_SinkDisabled(t *testing.T) {
	// A notifier built with nothing but defaults must swallow events, not
	// crash the calling workflow.
	n := New()

	n.Notify(Event{Type: EventDepositCreated, EntityID: "dep-1"})
}

func TestNotify_DeliversEvent(t *testing.T) {
	received := make(chan Event, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))

		received <- event
	}))
	t.Cleanup(srv.Close)

	n := New(WithWebhookURI(srv.URL))

	n.Notify(Event{
		Type:         EventDepositDecided,
		EntityID:     "dep-1",
		AccountLogin: "alice",
		Status:       "APPROVED",
		Amount:       15000,
	})

	select {
	case event := <-received:
		assert.Equal(t, EventDepositDecided, event.Type)
		assert.Equal(t, "dep-1", event.EntityID)
		assert.Equal(t, "alice", event.AccountLogin)
		assert.False(t, event.OccurredAt.IsZero())
	case <-time.After(3 * time.Second):
		t.Fatal("event was not delivered")
	}
}
