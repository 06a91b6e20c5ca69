package dbmodels

import (
	"database/sql"
	"time"
)

type User struct {
	Login        string
	PasswordHash string
	Role         string
}

type Account struct {
	Login   string
	Balance int64
}

type LedgerEntry struct {
	ID           string
	AccountLogin string
	Amount       int64
	Cause        string
	ReferenceID  string
	Balance      int64
	Actor        string
	CreatedAt    time.Time
}

type Deposit struct {
	ID            string
	AccountLogin  string
	Amount        int64
	PaymentMethod string
	Status        string
	ProofRef      string
	AdminNotes    string
	ProcessedBy   string
	ProcessedAt   sql.NullTime
	CreatedAt     time.Time
}

type Order struct {
	ID            string
	AccountLogin  string
	StoreItemID   string
	Amount        int64
	Status        string
	PaymentMethod string
	ProofRef      string
	AdminNotes    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
