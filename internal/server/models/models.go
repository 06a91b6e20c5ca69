package models

import (
	"github.com/shopspring/decimal"
)

type UserRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// DepositCreateRequest accepts the amount as a decimal for wire
// compatibility, but only whole minor-unit values are accepted.
type DepositCreateRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

type ProofRequest struct {
	ProofRef string `json:"proof_ref"`
}

type OrderCreateRequest struct {
	StoreItemID   string `json:"store_item_id"`
	PaymentMethod string `json:"payment_method"`
}

type DecisionRequest struct {
	ID       string `json:"id"`
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

type CancelRequest struct {
	Notes string `json:"notes,omitempty"`
}

type AdjustmentRequest struct {
	Login  string          `json:"login"`
	Amount decimal.Decimal `json:"amount"`
}

type BalanceResponse struct {
	Login   string `json:"login"`
	Balance int64  `json:"balance"`
}

type LedgerEntryResponse struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Cause       string `json:"cause"`
	ReferenceID string `json:"reference_id"`
	Balance     int64  `json:"balance"`
	Actor       string `json:"actor"`
	CreatedAt   string `json:"created_at"`
}

type DepositResponse struct {
	ID            string `json:"id"`
	AccountLogin  string `json:"account_login"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	ProofRef      string `json:"proof_ref,omitempty"`
	AdminNotes    string `json:"admin_notes,omitempty"`
	ProcessedBy   string `json:"processed_by,omitempty"`
	ProcessedAt   string `json:"processed_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type OrderResponse struct {
	ID            string `json:"id"`
	AccountLogin  string `json:"account_login"`
	StoreItemID   string `json:"store_item_id"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	ProofRef      string `json:"proof_ref,omitempty"`
	AdminNotes    string `json:"admin_notes,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
