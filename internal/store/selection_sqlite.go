package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/leaseflow/leaseflow/internal/domain"
)

// GetOrCreateSelections returns the negotiation's selection record. A
// negotiation with no votes yet yields a record with empty maps; nothing is
// written until the first vote.
func (s *SQLiteStore) GetOrCreateSelections(ctx context.Context, negotiationID int64) (*domain.SelectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, owner_accepted, tenant_accepted
		FROM selections WHERE negotiation_id = ?`,
		negotiationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	record := domain.NewSelectionRecord(negotiationID)
	for rows.Next() {
		var ord int
		var owner, tenant sql.NullBool
		if err := rows.Scan(&ord, &owner, &tenant); err != nil {
			return nil, fmt.Errorf("scan selection row: %w", err)
		}
		if owner.Valid {
			record.OwnerSelections[ord] = owner.Bool
		}
		if tenant.Valid {
			record.TenantSelections[ord] = tenant.Bool
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selection rows: %w", err)
	}

	return record, nil
}

// SetSelection upserts exactly one entry in the caller's half of the record.
// Owner and tenant votes live in separate columns of the same row so the two
// parties' writes never contend on each other's state.
func (s *SQLiteStore) SetSelection(ctx context.Context, negotiationID int64, role domain.Role, order int, accepted bool) error {
	var query string
	switch role {
	case domain.RoleOwner:
		query = `
			INSERT INTO selections (negotiation_id, ord, owner_accepted)
			VALUES (?, ?, ?)
			ON CONFLICT(negotiation_id, ord) DO UPDATE SET owner_accepted = excluded.owner_accepted`
	case domain.RoleTenant:
		query = `
			INSERT INTO selections (negotiation_id, ord, tenant_accepted)
			VALUES (?, ?, ?)
			ON CONFLICT(negotiation_id, ord) DO UPDATE SET tenant_accepted = excluded.tenant_accepted`
	default:
		return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	return withBusyRetry("set selection", func() error {
		if _, err := s.db.ExecContext(ctx, query, negotiationID, order, accepted); err != nil {
			return fmt.Errorf("set %s selection: %w", strings.ToLower(string(role)), err)
		}
		return nil
	})
}

// ClearSelectionsForOrders removes both parties' votes at the given orders.
// Used when a new round changes clause content at those orders, so stale
// accept/reject votes never carry over silently.
func (s *SQLiteStore) ClearSelectionsForOrders(ctx context.Context, negotiationID int64, orders []int) error {
	if len(orders) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(orders))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(orders)+1)
	args = append(args, negotiationID)
	for _, ord := range orders {
		args = append(args, ord)
	}

	query := fmt.Sprintf(
		`DELETE FROM selections WHERE negotiation_id = ? AND ord IN (%s)`, placeholders)
	return withBusyRetry("clear selections", func() error {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear selections: %w", err)
		}
		return nil
	})
}
