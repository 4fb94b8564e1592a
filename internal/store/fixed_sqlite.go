package store

import (
	"context"
	"fmt"
	"time"

	"github.com/leaseflow/leaseflow/internal/domain"
)

// AppendFixed writes a fixed-clause ledger entry. INSERT OR IGNORE against
// the (negotiation_id, ord) primary key makes the terminal state idempotent:
// only the first writer inserts, and inserted tells the caller whether it
// was the one that did.
func (s *SQLiteStore) AppendFixed(ctx context.Context, fc *domain.FixedClause) (bool, error) {
	var inserted bool
	err := withBusyRetry("append fixed clause", func() error {
		var err error
		inserted, err = s.appendFixedOnce(ctx, fc)
		return err
	})
	return inserted, err
}

func (s *SQLiteStore) appendFixedOnce(ctx context.Context, fc *domain.FixedClause) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO fixed_clauses (
			negotiation_id, round, ord, title, content,
			owner_level, owner_reason, tenant_level, tenant_reason,
			is_passed, fixed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		fc.NegotiationID, fc.Round, fc.Order, fc.Clause.Title, fc.Clause.Content,
		string(fc.Clause.Assessment.Owner.Level), fc.Clause.Assessment.Owner.Reason,
		string(fc.Clause.Assessment.Tenant.Level), fc.Clause.Assessment.Tenant.Reason,
		time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("append fixed clause: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListFixed returns all ledger entries for a negotiation, ordered by clause
// order.
func (s *SQLiteStore) ListFixed(ctx context.Context, negotiationID int64) ([]domain.FixedClause, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT round, ord, title, content,
		       owner_level, owner_reason, tenant_level, tenant_reason, is_passed
		FROM fixed_clauses
		WHERE negotiation_id = ?
		ORDER BY ord ASC`,
		negotiationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query fixed clauses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fixed []domain.FixedClause
	for rows.Next() {
		fc := domain.FixedClause{NegotiationID: negotiationID}
		var ownerLevel, tenantLevel string
		if err := rows.Scan(
			&fc.Round, &fc.Order, &fc.Clause.Title, &fc.Clause.Content,
			&ownerLevel, &fc.Clause.Assessment.Owner.Reason,
			&tenantLevel, &fc.Clause.Assessment.Tenant.Reason,
			&fc.IsPassed,
		); err != nil {
			return nil, fmt.Errorf("scan fixed clause row: %w", err)
		}
		fc.Clause.Order = fc.Order
		fc.Clause.Assessment.Owner.Level = domain.RiskLevel(ownerLevel)
		fc.Clause.Assessment.Tenant.Level = domain.RiskLevel(tenantLevel)
		fixed = append(fixed, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixed clause rows: %w", err)
	}

	return fixed, nil
}
