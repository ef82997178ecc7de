package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/amitsahu629/bankingapp/model"
	"github.com/amitsahu629/bankingapp/money"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func pendingTransaction(transactionID string) *model.Transaction {
	amount, _ := money.FromString("100.00")
	from := int64(1)
	to := int64(2)
	return &model.Transaction{
		TransactionID: transactionID,
		FromAccountID: &from,
		ToAccountID:   &to,
		Type:          model.TransactionTypeTransfer,
		Amount:        amount,
		Description:   "test transfer",
		Status:        model.TransactionStatusPending,
	}
}

func beginTx(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *sql.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)
	return tx
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts pending record", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)
		tx := beginTx(t, db, mock)

		txn := pendingTransaction("txn-1")
		mock.ExpectQuery(`INSERT INTO transactions`).
			WithArgs("txn-1", int64(1), int64(2), "TRANSFER", "100.00", "test transfer", "PENDING").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, time.Now()))

		err = repo.Create(ctx, tx, txn)

		assert.NoError(t, err)
		assert.Equal(t, int64(42), txn.ID)
		assert.False(t, txn.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate transaction id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)
		tx := beginTx(t, db, mock)

		mock.ExpectQuery(`INSERT INTO transactions`).
			WillReturnError(&pq.Error{Code: "23505"})

		err = repo.Create(ctx, tx, pendingTransaction("txn-dup"))

		assert.Equal(t, ErrDuplicateTransaction, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deposit has no source account", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)
		tx := beginTx(t, db, mock)

		amount, _ := money.FromString("500.00")
		to := int64(1)
		txn := &model.Transaction{
			TransactionID: "txn-dep",
			ToAccountID:   &to,
			Type:          model.TransactionTypeDeposit,
			Amount:        amount,
			Status:        model.TransactionStatusPending,
		}
		mock.ExpectQuery(`INSERT INTO transactions`).
			WithArgs("txn-dep", nil, int64(1), "DEPOSIT", "500.00", "", "PENDING").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

		assert.NoError(t, repo.Create(ctx, tx, txn))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_Finalize(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("finalizes pending record", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)
		tx := beginTx(t, db, mock)

		mock.ExpectExec(`UPDATE transactions`).
			WithArgs("COMPLETED", now, "txn-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Finalize(ctx, tx, "txn-1", model.TransactionStatusCompleted, now)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal record is immutable", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)
		tx := beginTx(t, db, mock)

		mock.ExpectExec(`UPDATE transactions`).
			WithArgs("FAILED", now, "txn-done").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM transactions WHERE transaction_id = $1`)).
			WithArgs("txn-done").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("COMPLETED"))

		err = repo.Finalize(ctx, tx, "txn-done", model.TransactionStatusFailed, now)

		assert.Equal(t, ErrAlreadyFinalized, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		repo := NewTransactionRepository(db)
		tx := beginTx(t, db, mock)

		mock.ExpectExec(`UPDATE transactions`).
			WithArgs("FAILED", now, "txn-missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM transactions WHERE transaction_id = $1`)).
			WithArgs("txn-missing").
			WillReturnError(sql.ErrNoRows)

		err = repo.Finalize(ctx, tx, "txn-missing", model.TransactionStatusFailed, now)

		assert.Equal(t, ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func transactionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "transaction_id", "from_account_id", "to_account_id", "type",
		"amount", "description", "status", "created_at", "completed_at",
	})
}

func TestTransactionRepository_GetByTransactionID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	t.Run("found with nullable fields", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE transaction_id = \$1`).
			WithArgs("txn-1").
			WillReturnRows(transactionRows().AddRow(1, "txn-1", nil, 2, "DEPOSIT", "500.00", "", "COMPLETED", now, now))

		txn, err := repo.GetByTransactionID(ctx, "txn-1")

		assert.NoError(t, err)
		assert.Nil(t, txn.FromAccountID)
		assert.NotNil(t, txn.ToAccountID)
		assert.Equal(t, int64(2), *txn.ToAccountID)
		assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
		assert.NotNil(t, txn.CompletedAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM transactions WHERE transaction_id = \$1`).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByTransactionID(ctx, "nope")
		assert.Equal(t, ErrNotFound, err)
	})
}

func TestTransactionRepository_ListByAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := NewTransactionRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM transactions\s+WHERE from_account_id = \$1 OR to_account_id = \$1\s+ORDER BY created_at DESC`).
		WithArgs(int64(1), 10, 20).
		WillReturnRows(transactionRows().
			AddRow(2, "txn-2", 1, nil, "WITHDRAWAL", "25.00", "", "COMPLETED", now, now).
			AddRow(1, "txn-1", nil, 1, "DEPOSIT", "100.00", "", "COMPLETED", now, now))

	transactions, err := repo.ListByAccount(context.Background(), 1, 2, 10, "desc")

	assert.NoError(t, err)
	assert.Len(t, transactions, 2)
	assert.Equal(t, "txn-2", transactions[0].TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_FindStalePending(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := NewTransactionRepository(db)

	cutoff := time.Now().Add(-30 * time.Minute)
	mock.ExpectQuery(`SELECT transaction_id\s+FROM transactions\s+WHERE status = 'PENDING' AND created_at < \$1`).
		WithArgs(cutoff, 100).
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}).AddRow("stale-1").AddRow("stale-2"))

	ids, err := repo.FindStalePending(context.Background(), cutoff, 100)

	assert.NoError(t, err)
	assert.Equal(t, []string{"stale-1", "stale-2"}, ids)
}

func TestTransactionRepository_GetStatistics(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := NewTransactionRepository(db)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"total", "completed", "pending", "failed",
			"deposits", "withdrawals", "transfers_in", "transfers_out",
		}).AddRow(10, 8, 1, 1, "1000.00", "250.00", "300.00", "150.00"))

	stats, err := repo.GetStatistics(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalCount)
	assert.Equal(t, int64(8), stats.CompletedCount)
	assert.Equal(t, "1000.00", stats.TotalDeposits.String())
	assert.Equal(t, "150.00", stats.TotalTransfersOut.String())
}
