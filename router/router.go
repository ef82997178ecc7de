package router

import (
	"net/http"

	"github.com/amitsahu629/bankingapp/handler"
)

func NewRouter(transactionHandler *handler.TransactionHandler, accountHandler *handler.AccountHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)

	if transactionHandler != nil {
		mux.Handle("POST /api/accounts/{accountId}/deposit", handler.ErrorHandlingMiddleware(transactionHandler.Deposit))
		mux.Handle("POST /api/accounts/{accountId}/withdraw", handler.ErrorHandlingMiddleware(transactionHandler.Withdraw))
		mux.Handle("POST /api/transfers", handler.ErrorHandlingMiddleware(transactionHandler.CreateTransfer))
		mux.Handle("GET /api/transactions/{transactionId}", handler.ErrorHandlingMiddleware(transactionHandler.GetTransaction))
	}

	if accountHandler != nil {
		mux.Handle("GET /api/accounts", handler.ErrorHandlingMiddleware(accountHandler.GetAccountByNumber))
		mux.Handle("GET /api/accounts/{accountId}", handler.ErrorHandlingMiddleware(accountHandler.GetAccount))
		mux.Handle("GET /api/accounts/{accountId}/balance", handler.ErrorHandlingMiddleware(accountHandler.GetBalance))
		mux.Handle("GET /api/accounts/{accountId}/transactions", handler.ErrorHandlingMiddleware(accountHandler.ListTransactions))
		mux.Handle("GET /api/accounts/{accountId}/history", handler.ErrorHandlingMiddleware(accountHandler.ListBalanceHistory))
		mux.Handle("GET /api/accounts/{accountId}/statistics", handler.ErrorHandlingMiddleware(accountHandler.GetStatistics))
	}

	return mux
}
