package model

import (
	"time"

	"github.com/amitsahu629/bankingapp/money"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// IsTerminal reports whether the status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction is an immutable movement record. TransactionID is the globally
// unique identifier used for idempotency; FromAccountID is nil for deposits
// and ToAccountID is nil for withdrawals.
type Transaction struct {
	ID            int64             `json:"id"`
	TransactionID string            `json:"transaction_id"`
	FromAccountID *int64            `json:"from_account_id,omitempty"`
	ToAccountID   *int64            `json:"to_account_id,omitempty"`
	Type          TransactionType   `json:"type"`
	Amount        money.Money       `json:"amount"`
	Description   string            `json:"description,omitempty"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// BalanceChange is the audit event emitted after every successful balance
// adjustment. It is observational only; ledger correctness never depends on it.
type BalanceChange struct {
	ID            int64       `json:"id"`
	AccountID     int64       `json:"account_id"`
	TransactionID string      `json:"transaction_id"`
	Delta         money.Money `json:"delta"`
	NewBalance    money.Money `json:"new_balance"`
	NewVersion    int64       `json:"new_version"`
	RecordedAt    time.Time   `json:"recorded_at"`
}

// AccountStatistics aggregates an account's transaction history for the
// reporting collaborator.
type AccountStatistics struct {
	AccountID         int64       `json:"account_id"`
	TotalCount        int64       `json:"total_count"`
	CompletedCount    int64       `json:"completed_count"`
	PendingCount      int64       `json:"pending_count"`
	FailedCount       int64       `json:"failed_count"`
	TotalDeposits     money.Money `json:"total_deposits"`
	TotalWithdrawals  money.Money `json:"total_withdrawals"`
	TotalTransfersIn  money.Money `json:"total_transfers_in"`
	TotalTransfersOut money.Money `json:"total_transfers_out"`
}
