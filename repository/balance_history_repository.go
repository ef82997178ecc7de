package repository

import (
	"context"
	"database/sql"

	"github.com/amitsahu629/bankingapp/logger"
	"github.com/amitsahu629/bankingapp/model"
)

// IBalanceHistoryRepository is the audit collaborator's storage interface.
// Rows here are observational; the ledger never reads them to make decisions.
type IBalanceHistoryRepository interface {
	Record(ctx context.Context, change *model.BalanceChange) error
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*model.BalanceChange, error)
}

type BalanceHistoryRepository struct {
	DB *sql.DB
}

func NewBalanceHistoryRepository(db *sql.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{DB: db}
}

// Record appends a balance-change event.
func (r *BalanceHistoryRepository) Record(ctx context.Context, change *model.BalanceChange) error {
	query := `
		INSERT INTO balance_history (account_id, transaction_id, delta, new_balance, new_version)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, recorded_at`
	err := r.DB.QueryRowContext(ctx, query,
		change.AccountID,
		change.TransactionID,
		change.Delta,
		change.NewBalance,
		change.NewVersion,
	).Scan(&change.ID, &change.RecordedAt)
	if err != nil {
		logger.Log.WithField("account_id", change.AccountID).WithError(err).Error("Failed to record balance change")
		return err
	}
	return nil
}

// ListByAccount returns the most recent balance changes for an account.
func (r *BalanceHistoryRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*model.BalanceChange, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, account_id, transaction_id, delta, new_balance, new_version, recorded_at
		FROM balance_history
		WHERE account_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		logger.Log.WithField("account_id", accountID).WithError(err).Error("Failed to list balance history")
		return nil, err
	}
	defer rows.Close()

	var changes []*model.BalanceChange
	for rows.Next() {
		change := &model.BalanceChange{}
		if err := rows.Scan(
			&change.ID,
			&change.AccountID,
			&change.TransactionID,
			&change.Delta,
			&change.NewBalance,
			&change.NewVersion,
			&change.RecordedAt,
		); err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}
