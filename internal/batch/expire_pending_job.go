package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"repayment-engine/internal/domain/payment"
	"repayment-engine/internal/pkg/apperrors"

	"golang.org/x/sync/errgroup"
)

const (
	defaultPendingTTL = 15 * time.Minute
	defaultBatchSize  = 100
	maxParallelExpiry = 8
)

type StalePendingLister interface {
	ListStalePendingCodes(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
}

type Expirer interface {
	Expire(ctx context.Context, transactionCode, reason string) (*payment.Transaction, error)
}

// ExpirePendingJob fails PENDING transactions whose confirmation window has
// passed so their snapshot does not linger against a changing balance.
type ExpirePendingJob struct {
	lister    StalePendingLister
	expirer   Expirer
	ttl       time.Duration
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

func NewExpirePendingJob(lister StalePendingLister, expirer Expirer, ttl time.Duration, batchSize int, logger *slog.Logger) *ExpirePendingJob {
	if lister == nil || expirer == nil || logger == nil {
		panic("ExpirePendingJob dependencies cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &ExpirePendingJob{
		lister:    lister,
		expirer:   expirer,
		ttl:       ttl,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger.With("job", "ExpirePending"),
	}
}

// Run expires one batch of stale transactions. A transaction that was
// confirmed or cancelled between listing and expiry is skipped.
func (j *ExpirePendingJob) Run(ctx context.Context) error {
	startTime := time.Now()
	cutoff := j.now().Add(-j.ttl)
	j.logger.InfoContext(ctx, "Starting pending transaction expiry job.", slog.Time("cutoff", cutoff))

	codes, err := j.lister.ListStalePendingCodes(ctx, cutoff, j.batchSize)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list stale pending transactions, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list stale transactions: %w", err)
	}

	if len(codes) == 0 {
		j.logger.InfoContext(ctx, "No stale pending transactions found.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	var (
		g                                errgroup.Group
		expiredCount, skippedCount, errs atomic.Int32
	)
	g.SetLimit(maxParallelExpiry)

	for _, code := range codes {
		g.Go(func() error {
			logCtx := j.logger.With(slog.String("transactionCode", code))
			_, expireErr := j.expirer.Expire(ctx, code, payment.MsgExpired)
			switch {
			case expireErr == nil:
				expiredCount.Add(1)
				logCtx.InfoContext(ctx, "Transaction expired.")
			case errors.Is(expireErr, apperrors.ErrInvalidState), errors.Is(expireErr, apperrors.ErrNotFound):
				skippedCount.Add(1)
				logCtx.DebugContext(ctx, "Transaction no longer pending, skipped.", slog.Any("error", expireErr))
			default:
				errs.Add(1)
				logCtx.ErrorContext(ctx, "Failed to expire transaction", slog.Any("error", expireErr))
			}
			// Failures are counted, not returned, so one bad row does not stop the batch.
			return nil
		})
	}
	_ = g.Wait()

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("stale_found", len(codes)),
		slog.Int("expired", int(expiredCount.Load())),
		slog.Int("skipped", int(skippedCount.Load())),
		slog.Int("errors_encountered", int(errs.Load())),
	)
	if n := errs.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Pending transaction expiry job finished with errors.")
		return fmt.Errorf("job completed with %d errors", n)
	}
	summaryLog.InfoContext(ctx, "Pending transaction expiry job finished successfully.")
	return nil
}
