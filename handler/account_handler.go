package handler

import (
	"net/http"
	"strconv"

	"github.com/amitsahu629/bankingapp/common"
	"github.com/amitsahu629/bankingapp/service"
)

type AccountHandler struct {
	service *service.AccountService
}

func NewAccountHandler(service *service.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// GetAccount godoc
// @Summary      Get an account
// @Description  Retrieves the full account record by its ID.
// @Tags         accounts
// @Produce      json
// @Param        accountId path int true "The ID of the account"
// @Success      200  {object}  model.Account
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/accounts/{accountId} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, appErr := parseAccountID(r)
	if appErr != nil {
		return appErr
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, http.StatusOK, account)
	return nil
}

// GetAccountByNumber godoc
// @Summary      Look up an account by number
// @Description  Retrieves the full account record by its externally visible account number.
// @Tags         accounts
// @Produce      json
// @Param        number query string true "The account number"
// @Success      200  {object}  model.Account
// @Failure      400  {object}  common.AppError "Missing number query parameter"
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/accounts [get]
func (h *AccountHandler) GetAccountByNumber(w http.ResponseWriter, r *http.Request) *common.AppError {
	number := r.URL.Query().Get("number")
	if number == "" {
		return common.NewAppError(http.StatusBadRequest, "Missing number query parameter", nil)
	}

	account, err := h.service.GetAccountByNumber(r.Context(), number)
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, http.StatusOK, account)
	return nil
}

// GetBalance godoc
// @Summary      Get account balance
// @Description  Returns the account's current balance together with the version token that produced it.
// @Tags         accounts
// @Produce      json
// @Param        accountId path int true "The ID of the account"
// @Success      200  {object}  service.AccountBalance
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/accounts/{accountId}/balance [get]
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, appErr := parseAccountID(r)
	if appErr != nil {
		return appErr
	}

	balance, err := h.service.GetAccountBalance(r.Context(), accountID)
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, http.StatusOK, balance)
	return nil
}

// ListTransactions godoc
// @Summary      List account transaction history
// @Description  Retrieves a page of transactions touching the account, newest first by default.
// @Tags         accounts
// @Produce      json
// @Param        accountId path int true "The ID of the account"
// @Param        page query int false "Zero-based page number"
// @Param        size query int false "Page size (default 20)"
// @Param        sort query string false "Sort direction: asc or desc"
// @Success      200  {array}   model.Transaction
// @Failure      400  {object}  common.AppError "Invalid account ID in URL path"
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/accounts/{accountId}/transactions [get]
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, appErr := parseAccountID(r)
	if appErr != nil {
		return appErr
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	sortDir := r.URL.Query().Get("sort")

	transactions, err := h.service.ListTransactionsForAccount(r.Context(), accountID, page, size, sortDir)
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, http.StatusOK, transactions)
	return nil
}

// ListBalanceHistory godoc
// @Summary      List account balance history
// @Description  Retrieves the account's most recent balance-change audit rows, newest first.
// @Tags         accounts
// @Produce      json
// @Param        accountId path int true "The ID of the account"
// @Param        limit query int false "Maximum number of rows (default 50)"
// @Success      200  {array}   model.BalanceChange
// @Failure      400  {object}  common.AppError "Invalid account ID in URL path"
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/accounts/{accountId}/history [get]
func (h *AccountHandler) ListBalanceHistory(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, appErr := parseAccountID(r)
	if appErr != nil {
		return appErr
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.service.ListBalanceHistory(r.Context(), accountID, limit)
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, http.StatusOK, history)
	return nil
}

// GetStatistics godoc
// @Summary      Get account transaction statistics
// @Description  Aggregates the account's history: counts by status and completed sums by movement direction.
// @Tags         accounts
// @Produce      json
// @Param        accountId path int true "The ID of the account"
// @Success      200  {object}  model.AccountStatistics
// @Failure      404  {object}  common.AppError "Account not found"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/accounts/{accountId}/statistics [get]
func (h *AccountHandler) GetStatistics(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, appErr := parseAccountID(r)
	if appErr != nil {
		return appErr
	}

	stats, err := h.service.GetAccountStatistics(r.Context(), accountID)
	if err != nil {
		return mapEngineError(err)
	}

	writeJSON(w, http.StatusOK, stats)
	return nil
}
