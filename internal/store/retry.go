package store

import (
	"log/slog"
	"time"

	"github.com/leaseflow/leaseflow/internal/shared"
)

const (
	maxBusyRetries = 3
	busyRetryBase  = 100 * time.Millisecond
)

// withBusyRetry runs op, retrying with exponential backoff while the error
// is a SQLite concurrency conflict (SQLITE_BUSY or "database is locked").
// Any other error, including domain sentinels, returns immediately.
func withBusyRetry(name string, op func() error) error {
	var err error
	for i := 0; i < maxBusyRetries; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxBusyRetries-1 {
			return err
		}

		delay := busyRetryBase * time.Duration(1<<i) // exponential backoff: 100ms, 200ms, 400ms
		slog.Debug("Write hit a busy database, retrying",
			"op", name,
			"attempt", i+1,
			"delay", delay)
		time.Sleep(delay)
	}
	return err
}
