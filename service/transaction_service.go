package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/amitsahu629/bankingapp/logger"
	"github.com/amitsahu629/bankingapp/model"
	"github.com/amitsahu629/bankingapp/money"
	"github.com/amitsahu629/bankingapp/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount        = errors.New("transaction amount must be greater than zero")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountInactive      = errors.New("account is not active")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrSameAccountTransfer  = errors.New("cannot transfer money to the same account")
	ErrConcurrencyExhausted = errors.New("too many concurrent updates, please retry")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTransactionInFlight  = errors.New("a transaction with this identifier is still being processed")
	// ErrCompensationFailed indicates a partially applied transfer whose
	// reversal could not be persisted. It must page an operator; finalizing
	// the record as FAILED while money is missing would be factually wrong.
	ErrCompensationFailed = errors.New("transfer compensation failed, manual reconciliation required")
)

// EngineConfig carries the engine's retry knobs.
type EngineConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// TransactionService is the transaction engine. Every movement runs as:
//
//  1. validate, then commit a PENDING record on its own (the durable
//     idempotency backstop, visible to the timeout reaper);
//  2. apply all balance adjustments and the COMPLETED finalize inside one
//     database transaction.
//
// Because no balance mutation ever commits without its COMPLETED finalize, a
// dangling PENDING record always means "nothing was applied", which is the
// invariant the reaper relies on.
type TransactionService struct {
	db              *sql.DB
	accountRepo     repository.IAccountRepository
	transactionRepo repository.ITransactionRepository
	historyRepo     repository.IBalanceHistoryRepository
	notifier        ITransactionNotifier
	cfg             EngineConfig
}

func NewTransactionService(
	db *sql.DB,
	accountRepo repository.IAccountRepository,
	transactionRepo repository.ITransactionRepository,
	historyRepo repository.IBalanceHistoryRepository,
	notifier ITransactionNotifier,
	cfg EngineConfig,
) *TransactionService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 25 * time.Millisecond
	}
	return &TransactionService{
		db:              db,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		historyRepo:     historyRepo,
		notifier:        notifier,
		cfg:             cfg,
	}
}

// leg is one balance adjustment of a movement. A transfer has two legs,
// deposits and withdrawals have one.
type leg struct {
	accountID int64
	delta     money.Money
}

// Deposit credits amount to the account and records a DEPOSIT transaction.
// The bool result reports an idempotent replay: true means the returned
// record was produced by a previous call carrying the same key.
func (s *TransactionService) Deposit(ctx context.Context, accountID int64, amount money.Money, description, idempotencyKey string) (*model.Transaction, bool, error) {
	if !amount.IsPositive() {
		return nil, false, ErrInvalidAmount
	}
	if err := s.checkAccountActive(ctx, accountID); err != nil {
		return nil, false, err
	}

	txn := &model.Transaction{
		Type:        model.TransactionTypeDeposit,
		ToAccountID: &accountID,
		Amount:      amount,
		Description: description,
	}
	return s.execute(ctx, txn, idempotencyKey, []leg{{accountID: accountID, delta: amount}})
}

// Withdraw debits amount from the account and records a WITHDRAWAL
// transaction. The authoritative funds check happens inside the balance CAS,
// not up front, so a balance racing downward can never be overdrawn.
func (s *TransactionService) Withdraw(ctx context.Context, accountID int64, amount money.Money, description, idempotencyKey string) (*model.Transaction, bool, error) {
	if !amount.IsPositive() {
		return nil, false, ErrInvalidAmount
	}
	if err := s.checkAccountActive(ctx, accountID); err != nil {
		return nil, false, err
	}

	txn := &model.Transaction{
		Type:          model.TransactionTypeWithdrawal,
		FromAccountID: &accountID,
		Amount:        amount,
		Description:   description,
	}
	return s.execute(ctx, txn, idempotencyKey, []leg{{accountID: accountID, delta: amount.Neg()}})
}

// Transfer moves amount between two distinct active accounts. Legs are
// applied in ascending account-id order so that opposing concurrent transfers
// on the same pair can never deadlock.
func (s *TransactionService) Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount money.Money, description, idempotencyKey string) (*model.Transaction, bool, error) {
	if fromAccountID == toAccountID {
		return nil, false, ErrSameAccountTransfer
	}
	if !amount.IsPositive() {
		return nil, false, ErrInvalidAmount
	}
	if err := s.checkAccountActive(ctx, fromAccountID); err != nil {
		return nil, false, err
	}
	if err := s.checkAccountActive(ctx, toAccountID); err != nil {
		return nil, false, err
	}

	txn := &model.Transaction{
		Type:          model.TransactionTypeTransfer,
		FromAccountID: &fromAccountID,
		ToAccountID:   &toAccountID,
		Amount:        amount,
		Description:   description,
	}
	legs := []leg{
		{accountID: fromAccountID, delta: amount.Neg()},
		{accountID: toAccountID, delta: amount},
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].accountID < legs[j].accountID })
	return s.execute(ctx, txn, idempotencyKey, legs)
}

// GetTransaction looks up a transaction by its globally unique identifier.
func (s *TransactionService) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	txn, err := s.transactionRepo.GetByTransactionID(ctx, transactionID)
	if err == repository.ErrNotFound {
		return nil, ErrTransactionNotFound
	}
	return txn, err
}

func (s *TransactionService) checkAccountActive(ctx context.Context, accountID int64) error {
	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err == repository.ErrNotFound {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if !account.IsActive {
		return ErrAccountInactive
	}
	return nil
}

// execute runs the shared movement pipeline: idempotency check, durable
// PENDING record, then the retried apply-and-finalize unit of work. The bool
// result is true when a previously stored record was replayed instead of a
// new one being created.
func (s *TransactionService) execute(ctx context.Context, txn *model.Transaction, idempotencyKey string, legs []leg) (*model.Transaction, bool, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"type":   txn.Type,
		"amount": txn.Amount.String(),
	})

	if idempotencyKey != "" {
		prior, err := s.replay(ctx, idempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if prior != nil {
			log.WithField("transaction_id", idempotencyKey).Info("Idempotent replay, returning prior result")
			return prior, true, nil
		}
		txn.TransactionID = idempotencyKey
	} else {
		txn.TransactionID = uuid.NewString()
	}
	txn.Status = model.TransactionStatusPending
	log = log.WithField("transaction_id", txn.TransactionID)

	if err := s.createPending(ctx, txn); err != nil {
		if err == repository.ErrDuplicateTransaction {
			// Lost a creation race against a concurrent retry of the same key.
			prior, replayErr := s.replay(ctx, txn.TransactionID)
			if replayErr != nil {
				return nil, false, replayErr
			}
			if prior != nil {
				return prior, true, nil
			}
			return nil, false, ErrTransactionInFlight
		}
		return nil, false, err
	}

	changes, err := s.applyWithRetry(ctx, txn, legs)
	if err != nil {
		if err != ErrCompensationFailed {
			s.finalizeFailed(ctx, txn)
		}
		log.WithError(err).Warn("Transaction failed")
		return nil, false, err
	}

	now := time.Now().UTC()
	txn.Status = model.TransactionStatusCompleted
	txn.CompletedAt = &now
	log.Info("Transaction completed successfully")

	s.afterCommit(ctx, txn, changes)
	return txn, false, nil
}

// replay resolves a previously seen transaction identifier. Terminal records
// are returned as-is; a still-PENDING record from a prior attempt fails
// closed until the reaper or the original caller resolves it.
func (s *TransactionService) replay(ctx context.Context, transactionID string) (*model.Transaction, error) {
	prior, err := s.transactionRepo.GetByTransactionID(ctx, transactionID)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if prior.Status == model.TransactionStatusPending {
		return nil, ErrTransactionInFlight
	}
	return prior, nil
}

// createPending durably records the PENDING transaction in its own short
// database transaction, before any balance is touched.
func (s *TransactionService) createPending(ctx context.Context, txn *model.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.transactionRepo.Create(ctx, tx, txn); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit pending record: %w", err)
	}
	return nil
}

// applyWithRetry drives the apply unit of work, retrying the whole
// read-adjust cycle with exponential backoff while it loses optimistic
// version races.
func (s *TransactionService) applyWithRetry(ctx context.Context, txn *model.Transaction, legs []leg) ([]model.BalanceChange, error) {
	backoff := s.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		changes, err := s.applyOnce(ctx, txn, legs)
		if err == nil {
			return changes, nil
		}
		if err != repository.ErrVersionMismatch {
			return nil, err
		}
		// Budget check comes before the wait so the final loss surfaces
		// immediately instead of after one more backoff.
		if attempt == s.cfg.MaxRetries {
			return nil, ErrConcurrencyExhausted
		}

		logger.Log.WithFields(logrus.Fields{
			"transaction_id": txn.TransactionID,
			"attempt":        attempt + 1,
		}).Debug("Version mismatch, retrying balance adjustment")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// applyOnce performs every balance leg and the COMPLETED finalize inside a
// single database transaction. A version race aborts the whole unit (the
// caller retries); any other leg failure reverses already-applied legs before
// the unit is rolled back, so no partial movement can ever commit.
func (s *TransactionService) applyOnce(ctx context.Context, txn *model.Transaction, legs []leg) ([]model.BalanceChange, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	changes := make([]model.BalanceChange, 0, len(legs))
	for _, l := range legs {
		change, err := s.applyLeg(ctx, tx, txn, l)
		if err != nil {
			if err == repository.ErrVersionMismatch {
				return nil, err
			}
			if compErr := s.compensate(ctx, tx, txn, changes); compErr != nil {
				return nil, compErr
			}
			return nil, s.mapLegError(err)
		}
		changes = append(changes, change)
	}

	now := time.Now().UTC()
	if err := s.transactionRepo.Finalize(ctx, tx, txn.TransactionID, model.TransactionStatusCompleted, now); err != nil {
		return nil, fmt.Errorf("could not finalize transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}
	return changes, nil
}

func (s *TransactionService) applyLeg(ctx context.Context, tx *sql.Tx, txn *model.Transaction, l leg) (model.BalanceChange, error) {
	account, err := s.accountRepo.GetAccountTx(ctx, tx, l.accountID)
	if err != nil {
		return model.BalanceChange{}, err
	}
	if !account.IsActive {
		return model.BalanceChange{}, ErrAccountInactive
	}

	newBalance, newVersion, err := s.accountRepo.AdjustBalance(ctx, tx, l.accountID, l.delta, account.Version)
	if err != nil {
		return model.BalanceChange{}, err
	}
	return model.BalanceChange{
		AccountID:     l.accountID,
		TransactionID: txn.TransactionID,
		Delta:         l.delta,
		NewBalance:    newBalance,
		NewVersion:    newVersion,
	}, nil
}

// compensate reverses already-applied legs, newest first, then finalizes the
// record as FAILED inside the same unit of work. The reversal may not be
// skipped: committing with a leg applied and its counterpart missing would
// destroy money. If the reversal cannot be persisted the whole unit rolls
// back and ErrCompensationFailed escalates to the operator.
func (s *TransactionService) compensate(ctx context.Context, tx *sql.Tx, txn *model.Transaction, applied []model.BalanceChange) error {
	for i := len(applied) - 1; i >= 0; i-- {
		change := applied[i]
		_, _, err := s.accountRepo.AdjustBalance(ctx, tx, change.AccountID, change.Delta.Neg(), change.NewVersion)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"transaction_id": txn.TransactionID,
				"account_id":     change.AccountID,
				"delta":          change.Delta.String(),
				"alert":          "operator",
			}).WithError(err).Error("Compensating adjustment failed, manual reconciliation required")
			return ErrCompensationFailed
		}
	}

	now := time.Now().UTC()
	if err := s.transactionRepo.Finalize(ctx, tx, txn.TransactionID, model.TransactionStatusFailed, now); err != nil {
		return fmt.Errorf("could not finalize failed transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit failed transaction: %w", err)
	}
	txn.Status = model.TransactionStatusFailed
	txn.CompletedAt = &now
	return nil
}

func (s *TransactionService) mapLegError(err error) error {
	switch err {
	case repository.ErrNotFound:
		return ErrAccountNotFound
	case repository.ErrInsufficientFunds:
		return ErrInsufficientFunds
	default:
		return err
	}
}

// finalizeFailed marks the record FAILED after an error that left no balance
// applied. It runs detached from the caller's deadline: an expired context
// must not leave the record ambiguously PENDING when we can still resolve it.
func (s *TransactionService) finalizeFailed(ctx context.Context, txn *model.Transaction) {
	if txn.Status.IsTerminal() {
		return
	}
	detached := context.WithoutCancel(ctx)

	tx, err := s.db.BeginTx(detached, nil)
	if err != nil {
		logger.Log.WithField("transaction_id", txn.TransactionID).WithError(err).Error("Could not open transaction to finalize FAILED record")
		return
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	err = s.transactionRepo.Finalize(detached, tx, txn.TransactionID, model.TransactionStatusFailed, now)
	if err != nil && err != repository.ErrAlreadyFinalized {
		logger.Log.WithField("transaction_id", txn.TransactionID).WithError(err).Error("Could not finalize FAILED record")
		return
	}
	if err := tx.Commit(); err != nil {
		logger.Log.WithField("transaction_id", txn.TransactionID).WithError(err).Error("Could not commit FAILED finalize")
		return
	}
	txn.Status = model.TransactionStatusFailed
	txn.CompletedAt = &now
}

// afterCommit runs the fire-and-forget collaborators: the audit trail and the
// notification hook. Neither outcome can affect the committed transaction.
func (s *TransactionService) afterCommit(ctx context.Context, txn *model.Transaction, changes []model.BalanceChange) {
	detached := context.WithoutCancel(ctx)

	if s.historyRepo != nil {
		for i := range changes {
			// Errors are logged inside the repository; history is observational.
			_ = s.historyRepo.Record(detached, &changes[i])
		}
	}
	if s.notifier != nil {
		s.notifier.Publish(TransactionEvent{
			Event:          string(txn.Type) + "_COMPLETED",
			Transaction:    txn,
			BalanceChanges: changes,
		})
	}
}
