package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

const defaultTxTimeout = 5 * time.Second

// txRunner runs one atomic unit against the store. The transaction gets its
// own deadline detached from the caller, so a request abandoned mid-flight
// still ends in commit or rollback rather than being cut between statements.
type txRunner struct {
	store   port.Store
	timeout time.Duration
	logger  *zap.Logger
}

func newTxRunner(store port.Store, timeout time.Duration, logger *zap.Logger) txRunner {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return txRunner{store: store, timeout: timeout, logger: logger}
}

func (r txRunner) run(ctx context.Context, op string, fn func(ctx context.Context, tx port.Tx) error) error {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	err := r.store.WithinTx(txCtx, func(tx port.Tx) error {
		return fn(txCtx, tx)
	})
	if err == nil {
		return nil
	}
	if domain.IsDomain(err) {
		return err
	}

	r.logger.Error("transaction rolled back", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, domain.ErrTransactionFailure)
}
