package repository

import (
	"context"
	"database/sql"

	"github.com/amitsahu629/bankingapp/logger"
	"github.com/amitsahu629/bankingapp/model"
	"github.com/amitsahu629/bankingapp/money"

	"github.com/sirupsen/logrus"
)

// IAccountRepository defines the contract for account storage. AdjustBalance
// is the single mutation primitive: every balance change in the system goes
// through its version-checked compare-and-swap.
type IAccountRepository interface {
	GetAccount(ctx context.Context, accountID int64) (*model.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*model.Account, error)
	GetAccountTx(ctx context.Context, tx *sql.Tx, accountID int64) (*model.Account, error)
	AdjustBalance(ctx context.Context, tx *sql.Tx, accountID int64, delta money.Money, expectedVersion int64) (money.Money, int64, error)
}

type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

const accountColumns = `id, account_number, account_type, balance, version, is_active, created_at, updated_at`

func scanAccount(row *sql.Row) (*model.Account, error) {
	account := &model.Account{}
	err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.AccountType,
		&account.Balance,
		&account.Version,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount retrieves an account by its identifier.
func (r *AccountRepository) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.DB.QueryRowContext(ctx, query, accountID))
	if err != nil && err != ErrNotFound {
		logger.Log.WithField("account_id", accountID).WithError(err).Error("Failed to execute get account query")
	}
	return account, err
}

// GetAccountByNumber retrieves an account by its externally visible number.
func (r *AccountRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	account, err := scanAccount(r.DB.QueryRowContext(ctx, query, accountNumber))
	if err != nil && err != ErrNotFound {
		logger.Log.WithField("account_number", accountNumber).WithError(err).Error("Failed to execute get account by number query")
	}
	return account, err
}

// GetAccountTx reads an account inside an open transaction. The engine uses
// this to pick the expected version for the subsequent AdjustBalance.
func (r *AccountRepository) GetAccountTx(ctx context.Context, tx *sql.Tx, accountID int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(tx.QueryRowContext(ctx, query, accountID))
}

// AdjustBalance applies balance += delta iff the stored version equals
// expectedVersion and the resulting balance would not violate the
// non-negative invariant for debit-type accounts. The version counter
// increments with every successful adjustment; a zero-row update is
// classified by re-reading the row so callers can tell a stale version
// apart from missing funds.
func (r *AccountRepository) AdjustBalance(ctx context.Context, tx *sql.Tx, accountID int64, delta money.Money, expectedVersion int64) (money.Money, int64, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id":       accountID,
		"delta":            delta.String(),
		"expected_version": expectedVersion,
	})

	query := `
		UPDATE accounts
		SET balance = balance + $1::numeric, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		  AND (account_type = 'CREDIT' OR balance + $1::numeric >= 0)
		RETURNING balance, version`

	var newBalance money.Money
	var newVersion int64
	err := tx.QueryRowContext(ctx, query, delta, accountID, expectedVersion).Scan(&newBalance, &newVersion)
	if err == nil {
		return newBalance, newVersion, nil
	}
	if err != sql.ErrNoRows {
		log.WithError(err).Error("Failed to execute adjust balance query")
		return money.Zero, 0, err
	}

	// The CAS matched nothing; find out why.
	var version int64
	probe := `SELECT version FROM accounts WHERE id = $1`
	err = tx.QueryRowContext(ctx, probe, accountID).Scan(&version)
	if err == sql.ErrNoRows {
		return money.Zero, 0, ErrNotFound
	}
	if err != nil {
		log.WithError(err).Error("Failed to classify rejected balance adjustment")
		return money.Zero, 0, err
	}
	if version != expectedVersion {
		return money.Zero, 0, ErrVersionMismatch
	}
	return money.Zero, 0, ErrInsufficientFunds
}
