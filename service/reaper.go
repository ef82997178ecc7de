package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/amitsahu629/bankingapp/logger"
	"github.com/amitsahu629/bankingapp/model"
	"github.com/amitsahu629/bankingapp/repository"

	"github.com/sirupsen/logrus"
)

const reaperBatchSize = 100

// Reaper finalizes transactions stuck in PENDING past the configured timeout
// as FAILED. It never touches balances: the engine commits every balance
// mutation together with its COMPLETED finalize, so a stale PENDING record
// can only mean no mutation was applied.
type Reaper struct {
	db              *sql.DB
	transactionRepo repository.ITransactionRepository
	interval        time.Duration
	pendingTimeout  time.Duration
	done            chan struct{}
}

func NewReaper(db *sql.DB, transactionRepo repository.ITransactionRepository, interval, pendingTimeout time.Duration) *Reaper {
	return &Reaper{
		db:              db,
		transactionRepo: transactionRepo,
		interval:        interval,
		pendingTimeout:  pendingTimeout,
		done:            make(chan struct{}),
	}
}

// Start launches the sweep loop; it stops when ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		logger.Log.WithFields(logrus.Fields{
			"interval":        r.interval.String(),
			"pending_timeout": r.pendingTimeout.String(),
		}).Info("Transaction reaper started")

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Log.Info("Transaction reaper stopped")
				return
			case <-ticker.C:
				if n, err := r.Sweep(ctx); err != nil {
					logger.Log.WithError(err).Error("Reaper sweep failed")
				} else if n > 0 {
					logger.Log.WithField("reaped", n).Warn("Finalized stale pending transactions as FAILED")
				}
			}
		}
	}()
}

// Wait blocks until the sweep loop has exited.
func (r *Reaper) Wait() {
	<-r.done
}

// Sweep finds PENDING transactions older than the timeout and finalizes each
// as FAILED. Returns the number of transactions reaped.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.pendingTimeout)
	ids, err := r.transactionRepo.FindStalePending(ctx, cutoff, reaperBatchSize)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, id := range ids {
		if err := r.reapOne(ctx, id); err != nil {
			// A concurrent finalize is fine; anything else is logged and the
			// sweep moves on so one bad record cannot wedge the loop.
			if err != repository.ErrAlreadyFinalized && err != repository.ErrNotFound {
				logger.Log.WithField("transaction_id", id).WithError(err).Error("Failed to reap stale transaction")
			}
			continue
		}
		reaped++
	}
	return reaped, nil
}

func (r *Reaper) reapOne(ctx context.Context, transactionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.transactionRepo.Finalize(ctx, tx, transactionID, model.TransactionStatusFailed, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}
