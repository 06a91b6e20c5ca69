package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/andymarkow/hostmart/internal/approval"
	"github.com/andymarkow/hostmart/internal/auth"
	"github.com/andymarkow/hostmart/internal/catalog/catclient"
	"github.com/andymarkow/hostmart/internal/deposit"
	"github.com/andymarkow/hostmart/internal/domain/accounts"
	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/ledger"
	"github.com/andymarkow/hostmart/internal/domain/orders"
	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/domain/users"
	"github.com/andymarkow/hostmart/internal/errmsg"
	"github.com/andymarkow/hostmart/internal/order"
	"github.com/andymarkow/hostmart/internal/server/models"
	"github.com/andymarkow/hostmart/internal/storage"
)

type Handlers struct {
	storage    storage.Storage
	depositSvc *deposit.Service
	orderSvc   *order.Service
	gateway    *approval.Gateway
	log        *slog.Logger
	auth       *auth.JWTAuth
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(store storage.Storage, depositSvc *deposit.Service, orderSvc *order.Service, gateway *approval.Gateway, opts ...Option) *Handlers {
	handlers := &Handlers{
		storage:    store,
		depositSvc: depositSvc,
		orderSvc:   orderSvc,
		gateway:    gateway,
		log:        slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		auth:       auth.NewJWTAuth([]byte("")),
	}

	// Apply options
	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger
	}
}

func WithAuth(auth *auth.JWTAuth) Option {
	return func(h *Handlers) {
		h.auth = auth
	}
}

type JSONResponse struct {
	Message any `json:"message,omitempty"`
	Error   any `json:"error,omitempty"`
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	resp := &JSONResponse{
		Error: err.Error(),
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(err.Code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func depositResponse(dep *deposits.Deposit) models.DepositResponse {
	resp := models.DepositResponse{
		ID:            dep.ID(),
		AccountLogin:  dep.AccountLogin(),
		Amount:        dep.Amount(),
		PaymentMethod: dep.PaymentMethod().String(),
		Status:        dep.Status().String(),
		ProofRef:      dep.ProofRef(),
		AdminNotes:    dep.AdminNotes(),
		ProcessedBy:   dep.ProcessedBy(),
		CreatedAt:     dep.CreatedAt().Format(time.RFC3339),
	}

	if !dep.ProcessedAt().IsZero() {
		resp.ProcessedAt = dep.ProcessedAt().Format(time.RFC3339)
	}

	return resp
}

func orderResponse(ord *orders.Order) models.OrderResponse {
	return models.OrderResponse{
		ID:            ord.ID(),
		AccountLogin:  ord.AccountLogin(),
		StoreItemID:   ord.StoreItemID(),
		Amount:        ord.Amount(),
		PaymentMethod: ord.PaymentMethod().String(),
		Status:        ord.Status().String(),
		ProofRef:      ord.ProofRef(),
		AdminNotes:    ord.AdminNotes(),
		CreatedAt:     ord.CreatedAt().Format(time.RFC3339),
		UpdatedAt:     ord.UpdatedAt().Format(time.RFC3339),
	}
}

func entryResponse(entry *ledger.Entry) models.LedgerEntryResponse {
	return models.LedgerEntryResponse{
		ID:          entry.ID(),
		Amount:      entry.Amount(),
		Cause:       entry.Cause().String(),
		ReferenceID: entry.ReferenceID(),
		Balance:     entry.Balance(),
		Actor:       entry.Actor(),
		CreatedAt:   entry.CreatedAt().Format(time.RFC3339),
	}
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) UserRegister(w http.ResponseWriter, r *http.Request) {
	var userPayload models.UserRequest

	if err := json.NewDecoder(r.Body).Decode(&userPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	defer r.Body.Close()

	user, err := users.CreateUser(userPayload.Login, userPayload.Password)
	if err != nil {
		h.log.Error("users.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.log.Error("storage.CreateUser()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserAlreadyExists)

			return
		}

		h.log.Error("storage.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	token, err := h.auth.CreateJWTString(user.Login(), user.Role())
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token)) //nolint:errcheck
}

func (h *Handlers) UserLogin(w http.ResponseWriter, r *http.Request) {
	var userPayload models.UserRequest

	if err := json.NewDecoder(r.Body).Decode(&userPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	user, err := h.storage.GetUser(r.Context(), userPayload.Login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.log.Error("storage.GetUser()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserNotFound)

			return
		}

		h.log.Error("storage.GetUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(userPayload.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			h.log.Error("bcrypt.CompareHashAndPassword()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserCredentialsInvalid)

			return
		}

		h.log.Error("bcrypt.CompareHashAndPassword()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	token, err := h.auth.CreateJWTString(user.Login(), user.Role())
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token)) //nolint:errcheck
}

func (h *Handlers) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	// Set user login from JWT sub claim field
	userLogin := token.Subject()

	balance, err := h.storage.GetAccountBalance(r.Context(), userLogin)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.log.Error("storage.GetAccountBalance()", slog.Any("error", err))
			handleError(w, errmsg.ErrAccountNotFound)

			return
		}

		h.log.Error("storage.GetAccountBalance()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	// A negative stored balance means the ledger invariant is broken; fail
	// loudly instead of reporting it.
	account, err := accounts.NewAccount(userLogin, balance)
	if err != nil {
		h.log.Error("accounts.NewAccount()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.BalanceResponse{
		Login:   account.Login(),
		Balance: account.Balance(),
	})
}

func (h *Handlers) GetWalletHistory(w http.ResponseWriter, r *http.Request) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	userLogin := token.Subject()

	limit := 0

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err = strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			handleError(w, errmsg.ErrRequestPayloadInvalid)

			return
		}
	}

	entries, err := h.storage.GetLedgerEntries(r.Context(), userLogin, limit)
	if err != nil {
		h.log.Error("storage.GetLedgerEntries()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if len(entries) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.LedgerEntryResponse{})

		return
	}

	entriesResp := make([]models.LedgerEntryResponse, len(entries))
	for i, entry := range entries {
		entriesResp[i] = entryResponse(entry)
	}

	handleJSONResponse(w, http.StatusOK, entriesResp)
}

func (h *Handlers) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var depositPayload models.DepositCreateRequest

	if err := json.NewDecoder(r.Body).Decode(&depositPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	userLogin := token.Subject()

	if !depositPayload.Amount.IsInteger() || depositPayload.Amount.Sign() <= 0 {
		handleError(w, errmsg.ErrAmountInvalid)

		return
	}

	method, err := payment.ParseMethod(depositPayload.PaymentMethod)
	if err != nil {
		h.log.Error("payment.ParseMethod()", slog.Any("error", err))
		handleError(w, errmsg.ErrPaymentMethodInvalid)

		return
	}

	dep, err := h.depositSvc.Create(r.Context(), userLogin, depositPayload.Amount.IntPart(), method)
	if err != nil {
		if errors.Is(err, deposit.ErrAmountBelowMinimum) {
			h.log.Error("depositSvc.Create()", slog.Any("error", err))
			handleError(w, errmsg.ErrDepositAmountBelowMinimum)

			return
		}

		h.log.Error("depositSvc.Create()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, depositResponse(dep))
}

func (h *Handlers) GetUserDeposits(w http.ResponseWriter, r *http.Request) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	userLogin := token.Subject()

	userDeposits, err := h.depositSvc.ListByLogin(r.Context(), userLogin)
	if err != nil {
		h.log.Error("depositSvc.ListByLogin()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if len(userDeposits) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.DepositResponse{})

		return
	}

	depositsResp := make([]models.DepositResponse, len(userDeposits))
	for i, dep := range userDeposits {
		depositsResp[i] = depositResponse(dep)
	}

	handleJSONResponse(w, http.StatusOK, depositsResp)
}

func (h *Handlers) AttachDepositProof(w http.ResponseWriter, r *http.Request) {
	var proofPayload models.ProofRequest

	if err := json.NewDecoder(r.Body).Decode(&proofPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	if proofPayload.ProofRef == "" {
		handleError(w, errmsg.ErrProofReferenceEmpty)

		return
	}

	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	userLogin := token.Subject()
	depositID := chi.URLParam(r, "depositID")

	dep, err := h.depositSvc.AttachProof(r.Context(), userLogin, depositID, proofPayload.ProofRef)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDepositNotFound):
			h.log.Error("depositSvc.AttachProof()", slog.Any("error", err))
			handleError(w, errmsg.ErrDepositNotFound)

		case errors.Is(err, deposits.ErrInvalidTransition), errors.Is(err, storage.ErrInvalidState):
			h.log.Error("depositSvc.AttachProof()", slog.Any("error", err))
			handleError(w, errmsg.ErrEntityInvalidState)

		default:
			h.log.Error("depositSvc.AttachProof()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, depositResponse(dep))
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var orderPayload models.OrderCreateRequest

	if err := json.NewDecoder(r.Body).Decode(&orderPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	userLogin := token.Subject()

	method, err := payment.ParseMethod(orderPayload.PaymentMethod)
	if err != nil {
		h.log.Error("payment.ParseMethod()", slog.Any("error", err))
		handleError(w, errmsg.ErrPaymentMethodInvalid)

		return
	}

	ord, _, err := h.orderSvc.Create(r.Context(), userLogin, orderPayload.StoreItemID, method)
	if err != nil {
		switch {
		case errors.Is(err, catclient.ErrItemNotFound):
			h.log.Error("orderSvc.Create()", slog.Any("error", err))
			handleError(w, errmsg.ErrStoreItemNotFound)

		case errors.Is(err, storage.ErrInsufficientFunds):
			h.log.Error("orderSvc.Create()", slog.Any("error", err))
			handleError(w, errmsg.ErrInsufficientFunds)

		case errors.Is(err, orders.ErrStoreItemEmpty):
			h.log.Error("orderSvc.Create()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadInvalid)

		default:
			h.log.Error("orderSvc.Create()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusCreated, orderResponse(ord))
}

func (h *Handlers) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	userLogin := token.Subject()

	userOrders, err := h.orderSvc.ListByLogin(r.Context(), userLogin)
	if err != nil {
		h.log.Error("orderSvc.ListByLogin()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if len(userOrders) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.OrderResponse{})

		return
	}

	ordersResp := make([]models.OrderResponse, len(userOrders))
	for i, ord := range userOrders {
		ordersResp[i] = orderResponse(ord)
	}

	handleJSONResponse(w, http.StatusOK, ordersResp)
}

func (h *Handlers) AttachOrderProof(w http.ResponseWriter, r *http.Request) {
	var proofPayload models.ProofRequest

	if err := json.NewDecoder(r.Body).Decode(&proofPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	if proofPayload.ProofRef == "" {
		handleError(w, errmsg.ErrProofReferenceEmpty)

		return
	}

	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	userLogin := token.Subject()
	orderID := chi.URLParam(r, "orderID")

	ord, err := h.orderSvc.AttachProof(r.Context(), userLogin, orderID, proofPayload.ProofRef)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			h.log.Error("orderSvc.AttachProof()", slog.Any("error", err))
			handleError(w, errmsg.ErrOrderNotFound)

		case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, storage.ErrInvalidState):
			h.log.Error("orderSvc.AttachProof()", slog.Any("error", err))
			handleError(w, errmsg.ErrEntityInvalidState)

		default:
			h.log.Error("orderSvc.AttachProof()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, orderResponse(ord))
}

func (h *Handlers) AdminListDeposits(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseDepositStatuses(r.URL.Query()["status"])
	if err != nil {
		h.log.Error("parseDepositStatuses()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	queueDeposits, err := h.depositSvc.ListByStatus(r.Context(), statuses...)
	if err != nil {
		h.log.Error("depositSvc.ListByStatus()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if len(queueDeposits) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.DepositResponse{})

		return
	}

	depositsResp := make([]models.DepositResponse, len(queueDeposits))
	for i, dep := range queueDeposits {
		depositsResp[i] = depositResponse(dep)
	}

	handleJSONResponse(w, http.StatusOK, depositsResp)
}

func (h *Handlers) AdminDecideDeposit(w http.ResponseWriter, r *http.Request) {
	var decisionPayload models.DecisionRequest

	if err := json.NewDecoder(r.Body).Decode(&decisionPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	decision, err := approval.ParseDecision(decisionPayload.Decision)
	if err != nil {
		h.log.Error("approval.ParseDecision()", slog.Any("error", err))
		handleError(w, errmsg.ErrDecisionInvalid)

		return
	}

	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	adminLogin := token.Subject()

	dep, _, err := h.gateway.DecideDeposit(r.Context(), decisionPayload.ID, decision, adminLogin, decisionPayload.Notes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDepositNotFound):
			h.log.Error("gateway.DecideDeposit()", slog.Any("error", err))
			handleError(w, errmsg.ErrDepositNotFound)

		case errors.Is(err, approval.ErrConflictingDecision):
			h.log.Error("gateway.DecideDeposit()", slog.Any("error", err))
			handleError(w, errmsg.ErrConflictingDecision)

		case errors.Is(err, deposits.ErrInvalidTransition), errors.Is(err, storage.ErrInvalidState):
			h.log.Error("gateway.DecideDeposit()", slog.Any("error", err))
			handleError(w, errmsg.ErrEntityInvalidState)

		default:
			h.log.Error("gateway.DecideDeposit()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, depositResponse(dep))
}

func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseOrderStatuses(r.URL.Query()["status"])
	if err != nil {
		h.log.Error("parseOrderStatuses()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	queueOrders, err := h.orderSvc.ListByStatus(r.Context(), statuses...)
	if err != nil {
		h.log.Error("orderSvc.ListByStatus()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if len(queueOrders) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.OrderResponse{})

		return
	}

	ordersResp := make([]models.OrderResponse, len(queueOrders))
	for i, ord := range queueOrders {
		ordersResp[i] = orderResponse(ord)
	}

	handleJSONResponse(w, http.StatusOK, ordersResp)
}

func (h *Handlers) AdminDecideOrder(w http.ResponseWriter, r *http.Request) {
	var decisionPayload models.DecisionRequest

	if err := json.NewDecoder(r.Body).Decode(&decisionPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	decision, err := approval.ParseDecision(decisionPayload.Decision)
	if err != nil {
		h.log.Error("approval.ParseDecision()", slog.Any("error", err))
		handleError(w, errmsg.ErrDecisionInvalid)

		return
	}

	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	adminLogin := token.Subject()

	ord, err := h.gateway.DecideOrder(r.Context(), decisionPayload.ID, decision, adminLogin, decisionPayload.Notes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			h.log.Error("gateway.DecideOrder()", slog.Any("error", err))
			handleError(w, errmsg.ErrOrderNotFound)

		case errors.Is(err, approval.ErrConflictingDecision):
			h.log.Error("gateway.DecideOrder()", slog.Any("error", err))
			handleError(w, errmsg.ErrConflictingDecision)

		case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, storage.ErrInvalidState):
			h.log.Error("gateway.DecideOrder()", slog.Any("error", err))
			handleError(w, errmsg.ErrEntityInvalidState)

		default:
			h.log.Error("gateway.DecideOrder()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, orderResponse(ord))
}

func (h *Handlers) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	var cancelPayload models.CancelRequest

	if err := json.NewDecoder(r.Body).Decode(&cancelPayload); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	adminLogin := token.Subject()
	orderID := chi.URLParam(r, "orderID")

	ord, _, err := h.gateway.CancelOrder(r.Context(), orderID, adminLogin, cancelPayload.Notes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			h.log.Error("gateway.CancelOrder()", slog.Any("error", err))
			handleError(w, errmsg.ErrOrderNotFound)

		case errors.Is(err, approval.ErrConflictingDecision):
			h.log.Error("gateway.CancelOrder()", slog.Any("error", err))
			handleError(w, errmsg.ErrConflictingDecision)

		case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, storage.ErrInvalidState):
			h.log.Error("gateway.CancelOrder()", slog.Any("error", err))
			handleError(w, errmsg.ErrEntityInvalidState)

		default:
			h.log.Error("gateway.CancelOrder()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusOK, orderResponse(ord))
}

func (h *Handlers) AdminCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var adjustmentPayload models.AdjustmentRequest

	if err := json.NewDecoder(r.Body).Decode(&adjustmentPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	if !adjustmentPayload.Amount.IsInteger() || adjustmentPayload.Amount.IsZero() {
		handleError(w, errmsg.ErrAmountInvalid)

		return
	}

	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.log.Error("jwtauth.FromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	adminLogin := token.Subject()

	entry, err := h.gateway.Adjust(r.Context(), adjustmentPayload.Login, adjustmentPayload.Amount.IntPart(), adminLogin)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			h.log.Error("gateway.Adjust()", slog.Any("error", err))
			handleError(w, errmsg.ErrAccountNotFound)

		case errors.Is(err, storage.ErrInsufficientFunds):
			h.log.Error("gateway.Adjust()", slog.Any("error", err))
			handleError(w, errmsg.ErrInsufficientFunds)

		default:
			h.log.Error("gateway.Adjust()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	handleJSONResponse(w, http.StatusCreated, entryResponse(entry))
}

func parseDepositStatuses(params []string) ([]deposits.Status, error) {
	statuses := make([]deposits.Status, 0, len(params))

	for _, param := range params {
		status, err := deposits.ParseStatus(param)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

func parseOrderStatuses(params []string) ([]orders.Status, error) {
	statuses := make([]orders.Status, 0, len(params))

	for _, param := range params {
		status, err := orders.ParseStatus(param)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}
