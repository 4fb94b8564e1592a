package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leaseflow/leaseflow/internal/domain"
)

func TestWithBusyRetryRecovers(t *testing.T) {
	attempts := 0
	err := withBusyRetry("test op", func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("exec: database is locked (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected recovery after busy retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithBusyRetryGivesUp(t *testing.T) {
	attempts := 0
	busy := errors.New("SQLITE_BUSY: database is locked")
	err := withBusyRetry("test op", func() error {
		attempts++
		return busy
	})
	if !errors.Is(err, busy) {
		t.Fatalf("Expected the busy error after exhausting retries, got %v", err)
	}
	if attempts != maxBusyRetries {
		t.Errorf("Expected %d attempts, got %d", maxBusyRetries, attempts)
	}
}

func TestWithBusyRetryPassesThroughOtherErrors(t *testing.T) {
	attempts := 0
	err := withBusyRetry("test op", func() error {
		attempts++
		return fmt.Errorf("round 2 for negotiation 1: %w", domain.ErrDuplicateRound)
	})
	if !errors.Is(err, domain.ErrDuplicateRound) {
		t.Fatalf("Expected ErrDuplicateRound passed through, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected a single attempt for a non-busy error, got %d", attempts)
	}
}
