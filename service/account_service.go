// file: service/account_service.go

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amitsahu629/bankingapp/logger"
	"github.com/amitsahu629/bankingapp/model"
	"github.com/amitsahu629/bankingapp/money"
	"github.com/amitsahu629/bankingapp/repository"

	"github.com/redis/go-redis/v9"
)

// AccountBalance is the read-side view returned to callers: the balance and
// the version token that produced it.
type AccountBalance struct {
	AccountID int64       `json:"account_id"`
	Balance   money.Money `json:"balance"`
	Version   int64       `json:"version"`
}

// AccountService serves the ledger's read side: balances, transaction and
// balance-change history, and the predicates the external account-management
// collaborator consults before deactivation. Balance reads use a cache-aside
// strategy over Redis.
type AccountService struct {
	accountRepo     repository.IAccountRepository
	transactionRepo repository.ITransactionRepository
	historyRepo     repository.IBalanceHistoryRepository
	redisClient     *redis.Client
}

func NewAccountService(accountRepo repository.IAccountRepository, transactionRepo repository.ITransactionRepository, historyRepo repository.IBalanceHistoryRepository, redisClient *redis.Client) *AccountService {
	return &AccountService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		historyRepo:     historyRepo,
		redisClient:     redisClient,
	}
}

func balanceCacheKey(accountID int64) string {
	return fmt.Sprintf("balance:%d", accountID)
}

// GetAccountBalance returns the account's balance and version. Cached values
// are served for up to a minute; every committed mutation invalidates the key.
func (s *AccountService) GetAccountBalance(ctx context.Context, accountID int64) (*AccountBalance, error) {
	cacheKey := balanceCacheKey(accountID)

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var balance AccountBalance
			if err := json.Unmarshal([]byte(cached), &balance); err == nil {
				return &balance, nil
			}
		}
	}

	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err == repository.ErrNotFound {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	balance := &AccountBalance{
		AccountID: account.ID,
		Balance:   account.Balance,
		Version:   account.Version,
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(balance); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, time.Minute)
		}
	}
	return balance, nil
}

// Publish implements ITransactionNotifier: committed movements invalidate the
// cached balance of every touched account.
func (s *AccountService) Publish(event TransactionEvent) {
	if s.redisClient == nil {
		return
	}
	ctx := context.Background()
	for _, change := range event.BalanceChanges {
		if err := s.redisClient.Del(ctx, balanceCacheKey(change.AccountID)).Err(); err != nil {
			logger.Log.WithField("account_id", change.AccountID).WithError(err).Warn("Failed to invalidate balance cache")
		}
	}
}

// CanDebit reports whether the account may currently be debited by amount.
// The account-management collaborator consults this before deactivation; the
// authoritative check still lives inside the balance CAS.
func (s *AccountService) CanDebit(account *model.Account, amount money.Money) bool {
	if !account.IsActive || !amount.IsPositive() {
		return false
	}
	if account.AccountType.AllowsNegativeBalance() {
		return true
	}
	return !account.Balance.LessThan(amount)
}

// CanCredit reports whether the account may currently receive funds.
func (s *AccountService) CanCredit(account *model.Account) bool {
	return account.IsActive
}

// GetAccount retrieves the full account record.
func (s *AccountService) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err == repository.ErrNotFound {
		return nil, ErrAccountNotFound
	}
	return account, err
}

// GetAccountByNumber retrieves an account by its externally visible number.
func (s *AccountService) GetAccountByNumber(ctx context.Context, accountNumber string) (*model.Account, error) {
	account, err := s.accountRepo.GetAccountByNumber(ctx, accountNumber)
	if err == repository.ErrNotFound {
		return nil, ErrAccountNotFound
	}
	return account, err
}

// ListBalanceHistory returns the account's most recent balance-change audit
// rows, newest first.
func (s *AccountService) ListBalanceHistory(ctx context.Context, accountID int64, limit int) ([]*model.BalanceChange, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByAccount(ctx, accountID, limit)
}

// ListTransactionsForAccount returns a page of the account's history.
func (s *AccountService) ListTransactionsForAccount(ctx context.Context, accountID int64, page, size int, sortDir string) ([]*model.Transaction, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.transactionRepo.ListByAccount(ctx, accountID, page, size, sortDir)
}

// GetAccountStatistics aggregates the account's transaction history for the
// reporting collaborator.
func (s *AccountService) GetAccountStatistics(ctx context.Context, accountID int64) (*model.AccountStatistics, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.transactionRepo.GetStatistics(ctx, accountID)
}
