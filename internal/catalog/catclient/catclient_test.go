package catclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andymarkow/hostmart/internal/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *CatalogClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(WithClient(httpclient.New(
		httpclient.WithBaseURL(srv.URL),
		httpclient.WithRetryCount(0),
	)))
}

func TestGetItemPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items/vps-small", r.URL.Path)

		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"id":"vps-small","name":"VPS Small","price":25000}`)) //nolint:errcheck
	})

	price, err := client.GetItemPrice(context.Background(), "vps-small")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), price)
}

func TestGetItemPrice_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetItemPrice(context.Background(), "no-such-item")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestGetItemPrice_TooManyRequests(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetItemPrice(context.Background(), "vps-small")
	assert.ErrorIs(t, err, ErrTooManyRequests)
}

func TestGetItemPrice_FractionalPriceRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"id":"vps-small","name":"VPS Small","price":25000.50}`)) //nolint:errcheck
	})

	_, err := client.GetItemPrice(context.Background(), "vps-small")
	assert.ErrorIs(t, err, ErrPriceFormatInvalid)
}

func TestGetItemPrice_NonPositivePriceRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"id":"vps-small","name":"VPS Small","price":0}`)) //nolint:errcheck
	})

	_, err := client.GetItemPrice(context.Background(), "vps-small")
	assert.ErrorIs(t, err, ErrPriceFormatInvalid)
}
