package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/amitsahu629/bankingapp/logger"
	"github.com/amitsahu629/bankingapp/model"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ITransactionRepository defines the contract for transaction record storage.
// Records are created PENDING and finalized exactly once; Finalize refuses to
// touch a record that already reached a terminal status.
type ITransactionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, txn *model.Transaction) error
	Finalize(ctx context.Context, tx *sql.Tx, transactionID string, status model.TransactionStatus, completedAt time.Time) error
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, page, size int, sortDir string) ([]*model.Transaction, error)
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
	GetStatistics(ctx context.Context, accountID int64) (*model.AccountStatistics, error)
}

type TransactionRepository struct {
	DB *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

// Create inserts a new PENDING record. A transaction_id collision reports
// ErrDuplicateTransaction, which is the storage-level idempotency backstop.
func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, txn *model.Transaction) error {
	log := logger.Log.WithFields(logrus.Fields{
		"transaction_id": txn.TransactionID,
		"type":           txn.Type,
		"amount":         txn.Amount.String(),
	})
	log.Info("Executing query to create a new transaction record")

	query := `
		INSERT INTO transactions (transaction_id, from_account_id, to_account_id, type, amount, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := tx.QueryRowContext(ctx, query,
		txn.TransactionID,
		nullableID(txn.FromAccountID),
		nullableID(txn.ToAccountID),
		txn.Type,
		txn.Amount,
		txn.Description,
		txn.Status,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateTransaction
		}
		log.WithError(err).Error("Failed to execute create transaction query")
		return err
	}
	return nil
}

// Finalize moves a PENDING record to its terminal status. The status guard in
// the WHERE clause is what makes finalization single-use: a record that is
// already COMPLETED or FAILED reports ErrAlreadyFinalized instead of mutating.
func (r *TransactionRepository) Finalize(ctx context.Context, tx *sql.Tx, transactionID string, status model.TransactionStatus, completedAt time.Time) error {
	log := logger.Log.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"status":         status,
	})

	query := `
		UPDATE transactions
		SET status = $1, completed_at = $2
		WHERE transaction_id = $3 AND status = 'PENDING'`
	result, err := tx.ExecContext(ctx, query, status, completedAt, transactionID)
	if err != nil {
		log.WithError(err).Error("Failed to execute finalize transaction query")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var current model.TransactionStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM transactions WHERE transaction_id = $1`, transactionID).Scan(&current)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadyFinalized
	}
	return nil
}

const transactionColumns = `id, transaction_id, from_account_id, to_account_id, type, amount, description, status, created_at, completed_at`

func scanTransaction(scan func(dest ...interface{}) error) (*model.Transaction, error) {
	txn := &model.Transaction{}
	var fromID, toID sql.NullInt64
	var completedAt sql.NullTime
	err := scan(
		&txn.ID,
		&txn.TransactionID,
		&fromID,
		&toID,
		&txn.Type,
		&txn.Amount,
		&txn.Description,
		&txn.Status,
		&txn.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if fromID.Valid {
		txn.FromAccountID = &fromID.Int64
	}
	if toID.Valid {
		txn.ToAccountID = &toID.Int64
	}
	if completedAt.Valid {
		txn.CompletedAt = &completedAt.Time
	}
	return txn, nil
}

// GetByTransactionID retrieves a record by its globally unique identifier.
func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`
	row := r.DB.QueryRowContext(ctx, query, transactionID)
	txn, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Log.WithField("transaction_id", transactionID).WithError(err).Error("Failed to execute get transaction query")
		return nil, err
	}
	return txn, nil
}

// ListByAccount retrieves a page of transactions touching the account, sorted
// by creation time. sortDir accepts "asc" or "desc"; anything else is desc.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID int64, page, size int, sortDir string) ([]*model.Transaction, error) {
	log := logger.Log.WithField("account_id", accountID)

	direction := "DESC"
	if strings.EqualFold(sortDir, "asc") {
		direction = "ASC"
	}
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at ` + direction + `
		LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, accountID, size, page*size)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for transactions by account ID")
		return nil, err
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows.Scan)
		if err != nil {
			log.WithError(err).Error("Failed to scan transaction row")
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// FindStalePending returns the identifiers of transactions that have been
// PENDING since before olderThan. Used by the timeout reaper.
func (r *TransactionRepository) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	query := `
		SELECT transaction_id
		FROM transactions
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute stale pending scan")
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetStatistics aggregates the account's history: counts by status and
// completed sums by movement direction.
func (r *TransactionRepository) GetStatistics(ctx context.Context, accountID int64) (*model.AccountStatistics, error) {
	log := logger.Log.WithField("account_id", accountID)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED' AND type = 'DEPOSIT' AND to_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED' AND type = 'WITHDRAWAL' AND from_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED' AND type = 'TRANSFER' AND to_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED' AND type = 'TRANSFER' AND from_account_id = $1), 0)
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1`

	stats := &model.AccountStatistics{AccountID: accountID}
	err := r.DB.QueryRowContext(ctx, query, accountID).Scan(
		&stats.TotalCount,
		&stats.CompletedCount,
		&stats.PendingCount,
		&stats.FailedCount,
		&stats.TotalDeposits,
		&stats.TotalWithdrawals,
		&stats.TotalTransfersIn,
		&stats.TotalTransfersOut,
	)
	if err != nil {
		log.WithError(err).Error("Failed to execute account statistics query")
		return nil, err
	}
	return stats, nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
