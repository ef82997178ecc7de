package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/amitsahu629/bankingapp/common"
	"github.com/amitsahu629/bankingapp/model"
	"github.com/amitsahu629/bankingapp/money"
	"github.com/amitsahu629/bankingapp/service"
)

// TransactionHandler holds dependencies for transaction-related handlers.
type TransactionHandler struct {
	service *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler with its dependencies.
func NewTransactionHandler(s *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

// mapEngineError translates engine errors onto HTTP status codes.
func mapEngineError(err error) *common.AppError {
	switch err {
	case service.ErrAccountNotFound:
		return common.NewAppError(http.StatusNotFound, err.Error(), err)
	case service.ErrTransactionNotFound:
		return common.NewAppError(http.StatusNotFound, err.Error(), err)
	case service.ErrInvalidAmount, service.ErrSameAccountTransfer, service.ErrAccountInactive:
		return common.NewAppError(http.StatusBadRequest, err.Error(), err)
	case service.ErrInsufficientFunds:
		return common.NewAppError(http.StatusUnprocessableEntity, err.Error(), err)
	case service.ErrTransactionInFlight, service.ErrConcurrencyExhausted:
		return common.NewAppError(http.StatusConflict, err.Error(), err)
	case service.ErrCompensationFailed:
		return common.NewAppError(http.StatusInternalServerError, err.Error(), err)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Could not process transaction", err)
	}
}

func parseAccountID(r *http.Request) (int64, *common.AppError) {
	accountID, err := strconv.ParseInt(r.PathValue("accountId"), 10, 64)
	if err != nil {
		return 0, common.NewAppError(http.StatusBadRequest, "Invalid account ID in URL path", err)
	}
	return accountID, nil
}

func parseAmount(raw string) (money.Money, *common.AppError) {
	amount, err := money.FromString(raw)
	if err != nil {
		return money.Zero, common.NewAppError(http.StatusBadRequest, err.Error(), err)
	}
	return amount, nil
}

// transactionStatusCode picks 201 for a newly created record and 200 for an
// idempotent replay of a prior one.
func transactionStatusCode(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// Deposit godoc
// @Summary      Deposit funds into an account
// @Description  Credits the given amount to the account and records a DEPOSIT transaction. Retried requests carrying the same Idempotency-Key header are applied at most once.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        accountId path int true "The ID of the account to deposit into"
// @Param        Idempotency-Key header string false "Client-supplied idempotency key"
// @Param        deposit body model.DepositRequest true "Deposit details"
// @Success      201  {object}  model.Transaction
// @Success      200  {object}  model.Transaction "Idempotent replay of a prior request"
// @Failure      400  {object}  common.AppError "Invalid amount or inactive account"
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      409  {object}  common.AppError "Concurrent update budget exhausted or identifier in flight"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/accounts/{accountId}/deposit [post]
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, appErr := parseAccountID(r)
	if appErr != nil {
		return appErr
	}

	var req model.DepositRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}
	amount, appErr := parseAmount(req.Amount)
	if appErr != nil {
		return appErr
	}

	txn, replayed, err := h.service.Deposit(r.Context(), accountID, amount, req.Description, r.Header.Get("Idempotency-Key"))
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, transactionStatusCode(replayed), txn)
	return nil
}

// Withdraw godoc
// @Summary      Withdraw funds from an account
// @Description  Debits the given amount from the account and records a WITHDRAWAL transaction. Fails when funds are insufficient; the balance is never overdrawn.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        accountId path int true "The ID of the account to withdraw from"
// @Param        Idempotency-Key header string false "Client-supplied idempotency key"
// @Param        withdrawal body model.WithdrawRequest true "Withdrawal details"
// @Success      201  {object}  model.Transaction
// @Success      200  {object}  model.Transaction "Idempotent replay of a prior request"
// @Failure      400  {object}  common.AppError "Invalid amount or inactive account"
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      422  {object}  common.AppError "Insufficient funds"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/accounts/{accountId}/withdraw [post]
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, appErr := parseAccountID(r)
	if appErr != nil {
		return appErr
	}

	var req model.WithdrawRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}
	amount, appErr := parseAmount(req.Amount)
	if appErr != nil {
		return appErr
	}

	txn, replayed, err := h.service.Withdraw(r.Context(), accountID, amount, req.Description, r.Header.Get("Idempotency-Key"))
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, transactionStatusCode(replayed), txn)
	return nil
}

// CreateTransfer godoc
// @Summary      Transfer money between accounts
// @Description  Moves the given amount from one account to another as a single all-or-nothing TRANSFER transaction.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client-supplied idempotency key"
// @Param        transfer body model.TransferRequest true "Details of the financial transfer"
// @Success      201  {object}  model.Transaction
// @Success      200  {object}  model.Transaction "Idempotent replay of a prior request"
// @Failure      400  {object}  common.AppError "Bad Request (e.g., self transfer, invalid amount, inactive account)"
// @Failure      404  {object}  common.AppError "Source or destination account not found"
// @Failure      422  {object}  common.AppError "Insufficient funds"
// @Failure      500  {object}  common.AppError "Internal server error while processing transfer"
// @Router       /api/transfers [post]
func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.TransferRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}
	amount, appErr := parseAmount(req.Amount)
	if appErr != nil {
		return appErr
	}

	txn, replayed, err := h.service.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, amount, req.Description, r.Header.Get("Idempotency-Key"))
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, transactionStatusCode(replayed), txn)
	return nil
}

// GetTransaction godoc
// @Summary      Get a transaction
// @Description  Retrieves a transaction by its globally unique identifier.
// @Tags         transactions
// @Produce      json
// @Param        transactionId path string true "The transaction identifier"
// @Success      200  {object}  model.Transaction
// @Failure      404  {object}  common.AppError "Transaction not found"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/transactions/{transactionId} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) *common.AppError {
	transactionID := r.PathValue("transactionId")
	if transactionID == "" {
		return common.NewAppError(http.StatusBadRequest, "Missing transaction ID in URL path", nil)
	}

	txn, err := h.service.GetTransaction(r.Context(), transactionID)
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, http.StatusOK, txn)
	return nil
}
