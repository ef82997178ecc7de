package model

import (
	"time"

	"github.com/amitsahu629/bankingapp/money"
)

// AccountType enumerates the supported account products.
type AccountType string

const (
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeCredit   AccountType = "CREDIT"
)

// AllowsNegativeBalance reports whether this account type may be debited
// below zero. Only CREDIT accounts may carry a negative balance.
func (t AccountType) AllowsNegativeBalance() bool {
	return t == AccountTypeCredit
}

// Account is the ledger's view of an account. Balance and Version always
// change together: every balance mutation increments the version, which is
// the optimistic-concurrency token for AdjustBalance.
type Account struct {
	ID            int64       `json:"id"`
	AccountNumber string      `json:"account_number"`
	AccountType   AccountType `json:"account_type"`
	Balance       money.Money `json:"balance"`
	Version       int64       `json:"version"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
