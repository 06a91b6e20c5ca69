package errmsg

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)
)

var (
	ErrUserAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("user already exists"),
	)

	ErrUserNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("user not found"),
	)

	ErrUserCredentialsInvalid = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("user credentials invalid"),
	)

	ErrAdminRoleRequired = NewHTTPError(
		http.StatusForbidden,
		errors.New("admin role required"),
	)

	ErrAccountNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("account not found"),
	)

	ErrInsufficientFunds = NewHTTPError(
		http.StatusPaymentRequired,
		errors.New("account balance not enough funds"),
	)
)

var (
	ErrAmountInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("amount is invalid"),
	)

	ErrDepositAmountBelowMinimum = NewHTTPError(
		http.StatusBadRequest,
		errors.New("deposit amount is below the configured minimum"),
	)

	ErrPaymentMethodInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("payment method is invalid"),
	)

	ErrProofReferenceEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("proof reference is empty"),
	)

	ErrDepositNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("deposit not found"),
	)

	ErrOrderNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("order not found"),
	)

	ErrStoreItemNotFound = NewHTTPError(
		http.StatusUnprocessableEntity,
		errors.New("store item not found"),
	)

	ErrEntityInvalidState = NewHTTPError(
		http.StatusConflict,
		errors.New("entity is not in the required state"),
	)

	ErrDecisionInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("decision is invalid"),
	)

	ErrConflictingDecision = NewHTTPError(
		http.StatusConflict,
		errors.New("decision conflicts with the stored terminal state"),
	)
)
