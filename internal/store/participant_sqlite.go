package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leaseflow/leaseflow/internal/domain"
)

// UpsertParticipant binds a user to one side of the negotiation. A role can
// be rebound (e.g. contract reassignment upstream) but never held by two
// users at once.
func (s *SQLiteStore) UpsertParticipant(ctx context.Context, negotiationID int64, userID string, role domain.Role) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if role != domain.RoleOwner && role != domain.RoleTenant {
		return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	return withBusyRetry("upsert participant", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO participants (negotiation_id, user_id, role, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(negotiation_id, role) DO UPDATE SET user_id = excluded.user_id`,
			negotiationID, userID, string(role), time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert participant: %w", err)
		}
		return nil
	})
}

// ResolveRole returns the user's role in the negotiation, or false if the
// user is not a party to it.
func (s *SQLiteStore) ResolveRole(ctx context.Context, negotiationID int64, userID string) (domain.Role, bool, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM participants WHERE negotiation_id = ? AND user_id = ?`,
		negotiationID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("scan participant row: %w", err)
	}

	parsed, ok := domain.ParseRole(role)
	if !ok {
		return "", false, fmt.Errorf("corrupt participant role %q", role)
	}
	return parsed, true, nil
}
