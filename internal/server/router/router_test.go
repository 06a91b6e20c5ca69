package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andymarkow/hostmart/internal/auth"
	"github.com/andymarkow/hostmart/internal/catalog/catclient"
	"github.com/andymarkow/hostmart/internal/domain/users"
	"github.com/andymarkow/hostmart/internal/order"
	"github.com/andymarkow/hostmart/internal/server/models"
	"github.com/andymarkow/hostmart/internal/storage/inmemory"
)

var testSecret = []byte("test-secret")

func decimalFromInt(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}

// fakeCatalog serves fixed prices keyed by item id.
type fakeCatalog struct {
	prices map[string]int64
}

func (c *fakeCatalog) GetItemPrice(_ context.Context, itemID string) (int64, error) {
	price, ok := c.prices[itemID]
	if !ok {
		return 0, catclient.ErrItemNotFound
	}

	return price, nil
}

func newTestRouter(t *testing.T) (chi.Router, *inmemory.Storage) {
	t.Helper()

	store := inmemory.NewStorage()

	catalog := &fakeCatalog{prices: map[string]int64{
		"vps-small": 25000,
	}}

	r := NewRouter(store,
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithSecret(testSecret),
		WithOrderService(order.New(store, catalog)),
	)

	return r, store
}

func registerUser(t *testing.T, r chi.Router, login string) string {
	t.Helper()

	body, err := json.Marshal(models.UserRequest{Login: login, Password: "password"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	return rec.Body.String()
}

func adminToken(t *testing.T) string {
	t.Helper()

	token, err := auth.NewJWTAuth(testSecret).CreateJWTString("boss", users.RoleAdmin)
	require.NoError(t, err)

	return token
}

func doJSON(t *testing.T, r chi.Router, method, target, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer

	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, target, &body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func TestPing(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	r, _ := newTestRouter(t)

	token := registerUser(t, r, "alice")
	assert.NotEmpty(t, token)

	rec := doJSON(t, r, http.MethodPost, "/api/user/login", "",
		models.UserRequest{Login: "alice", Password: "password"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/api/user/login", "",
		models.UserRequest{Login: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/user/wallet/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoleRequired(t *testing.T) {
	r, _ := newTestRouter(t)

	userToken := registerUser(t, r, "alice")

	rec := doJSON(t, r, http.MethodGet, "/api/admin/deposits", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin role required")

	rec = doJSON(t, r, http.MethodGet, "/api/admin/deposits", adminToken(t), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// TestDepositApprovalFlow walks the full top-up path: create, attach proof,
// admin approval, credited balance.
func TestDepositApprovalFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	userToken := registerUser(t, r, "alice")

	rec := doJSON(t, r, http.MethodPost, "/api/user/deposits", userToken,
		models.DepositCreateRequest{Amount: decimalFromInt(15000), PaymentMethod: "BANK_TRANSFER"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var dep models.DepositResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dep))
	assert.Equal(t, "PENDING", dep.Status)

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/user/deposits/%s/proof", dep.ID), userToken,
		models.ProofRequest{ProofRef: "receipt-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/admin/deposits", adminToken(t),
		models.DecisionRequest{ID: dep.ID, Decision: "APPROVE", Notes: "verified"})
	require.Equal(t, http.StatusOK, rec.Code)

	var decided models.DepositResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decided))
	assert.Equal(t, "APPROVED", decided.Status)
	assert.Equal(t, "boss", decided.ProcessedBy)

	rec = doJSON(t, r, http.MethodGet, "/api/user/wallet/balance", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var balance models.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, int64(15000), balance.Balance)

	// Replaying the decision keeps the stored outcome, the opposite one
	// conflicts.
	rec = doJSON(t, r, http.MethodPut, "/api/admin/deposits", adminToken(t),
		models.DecisionRequest{ID: dep.ID, Decision: "APPROVE"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/admin/deposits", adminToken(t),
		models.DecisionRequest{ID: dep.ID, Decision: "REJECT"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWalletOrderFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	userToken := registerUser(t, r, "alice")
	fundWallet(t, r, userToken, 30000)

	rec := doJSON(t, r, http.MethodPost, "/api/user/orders", userToken,
		models.OrderCreateRequest{StoreItemID: "vps-small", PaymentMethod: "WALLET"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var ord models.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ord))
	assert.Equal(t, "COMPLETED", ord.Status)
	assert.Equal(t, int64(25000), ord.Amount)

	rec = doJSON(t, r, http.MethodGet, "/api/user/wallet/balance", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var balance models.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, int64(5000), balance.Balance)

	// A second wallet order exceeds the remaining balance.
	rec = doJSON(t, r, http.MethodPost, "/api/user/orders", userToken,
		models.OrderCreateRequest{StoreItemID: "vps-small", PaymentMethod: "WALLET"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	// Admin cancellation refunds the wallet order.
	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/admin/orders/%s/cancel", ord.ID), adminToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cancelled models.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, "REFUNDED", cancelled.Status)

	rec = doJSON(t, r, http.MethodGet, "/api/user/wallet/balance", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, int64(30000), balance.Balance)
}

func TestWalletHistory(t *testing.T) {
	r, _ := newTestRouter(t)

	userToken := registerUser(t, r, "alice")

	rec := doJSON(t, r, http.MethodGet, "/api/user/wallet/history", userToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	fundWallet(t, r, userToken, 15000)

	rec = doJSON(t, r, http.MethodGet, "/api/user/wallet/history", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []models.LedgerEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "DEPOSIT_APPROVED", entries[0].Cause)
	assert.Equal(t, int64(15000), entries[0].Balance)
}

func TestAdminAdjustment(t *testing.T) {
	r, _ := newTestRouter(t)

	userToken := registerUser(t, r, "alice")

	rec := doJSON(t, r, http.MethodPost, "/api/admin/adjustments", adminToken(t),
		models.AdjustmentRequest{Login: "alice", Amount: decimalFromInt(5000)})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Overdraft adjustments are refused.
	rec = doJSON(t, r, http.MethodPost, "/api/admin/adjustments", adminToken(t),
		models.AdjustmentRequest{Login: "alice", Amount: decimalFromInt(-6000)})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/user/wallet/balance", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var balance models.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, int64(5000), balance.Balance)
}

func fundWallet(t *testing.T, r chi.Router, userToken string, amount int64) {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/api/user/deposits", userToken,
		models.DepositCreateRequest{Amount: decimalFromInt(amount), PaymentMethod: "BANK_TRANSFER"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var dep models.DepositResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dep))

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/user/deposits/%s/proof", dep.ID), userToken,
		models.ProofRequest{ProofRef: "receipt"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/api/admin/deposits", adminToken(t),
		models.DecisionRequest{ID: dep.ID, Decision: "APPROVE"})
	require.Equal(t, http.StatusOK, rec.Code)
}
