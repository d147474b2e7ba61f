package registry

import (
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// ConfigureLockDetection sets process-wide lock diagnostics. A lock
// waited on longer than timeout, or taken out of order, is logged at
// error level; the process keeps running. Zero timeout disables the wait
// check. Call once at startup before any lock is used.
func ConfigureLockDetection(timeout time.Duration, logger *zap.Logger) {
	log := logger.Named("deadlock")
	deadlock.Opts.DeadlockTimeout = timeout
	if std, err := zap.NewStdLogAt(log, zap.ErrorLevel); err == nil {
		deadlock.Opts.LogBuf = std.Writer()
	}
	deadlock.Opts.OnPotentialDeadlock = func() {
		log.Error("potential deadlock detected", zap.Duration("lock_wait_timeout", timeout))
	}
}
