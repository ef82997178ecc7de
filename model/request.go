// file: model/request.go

package model

// DepositRequest defines the payload for depositing funds into an account.
// Amount is a decimal string so no float ever enters the pipeline.
type DepositRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=255"`
}

// WithdrawRequest defines the payload for withdrawing funds from an account.
type WithdrawRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=255"`
}

// TransferRequest defines the payload for moving funds between two accounts.
type TransferRequest struct {
	FromAccountID int64  `json:"from_account_id" validate:"required"`
	ToAccountID   int64  `json:"to_account_id" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	Description   string `json:"description" validate:"max=255"`
}
