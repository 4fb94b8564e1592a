package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leaseflow/leaseflow/internal/domain"
	"github.com/leaseflow/leaseflow/internal/shared"
)

// CreateRound inserts a round header and its clause rows in one transaction.
// The primary key on (negotiation_id, round) guarantees at most one writer
// creates a given round number. Retries on a busy database.
func (s *SQLiteStore) CreateRound(ctx context.Context, doc *domain.RoundDocument) error {
	if doc.Round < 1 {
		return fmt.Errorf("%w: round must be >= 1", domain.ErrValidation)
	}
	if len(doc.Clauses) == 0 {
		return fmt.Errorf("%w: round needs at least one clause", domain.ErrValidation)
	}

	return withBusyRetry("create round", func() error {
		return s.createRoundOnce(ctx, doc)
	})
}

func (s *SQLiteStore) createRoundOnce(ctx context.Context, doc *domain.RoundDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create round: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rounds (negotiation_id, round, total_clauses, created_at) VALUES (?, ?, ?, ?)`,
		doc.NegotiationID, doc.Round, len(doc.Clauses), time.Now().Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueError(err) {
			return fmt.Errorf("round %d for negotiation %d: %w", doc.Round, doc.NegotiationID, domain.ErrDuplicateRound)
		}
		return fmt.Errorf("insert round: %w", err)
	}

	clauseQuery := `
		INSERT INTO round_clauses (
			negotiation_id, round, ord, title, content,
			owner_level, owner_reason, tenant_level, tenant_reason, revised
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	for _, c := range doc.Clauses {
		if _, err := tx.ExecContext(ctx, clauseQuery,
			doc.NegotiationID, doc.Round, c.Order, c.Title, c.Content,
			string(c.Assessment.Owner.Level), c.Assessment.Owner.Reason,
			string(c.Assessment.Tenant.Level), c.Assessment.Tenant.Reason,
		); err != nil {
			return fmt.Errorf("insert clause %d: %w", c.Order, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create round: %w", err)
	}
	return nil
}

// GetRound retrieves the current (highest-numbered) round.
func (s *SQLiteStore) GetRound(ctx context.Context, negotiationID int64) (*domain.RoundDocument, error) {
	// MAX over zero rows yields a single NULL row, not sql.ErrNoRows.
	var round sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(round) FROM rounds WHERE negotiation_id = ?`, negotiationID,
	).Scan(&round)
	if err != nil {
		return nil, fmt.Errorf("scan max round: %w", err)
	}
	if !round.Valid {
		return nil, domain.ErrRoundNotFound
	}
	return s.GetRoundNumber(ctx, negotiationID, int(round.Int64))
}

// GetRoundNumber retrieves a specific round with its clauses ordered by ord.
func (s *SQLiteStore) GetRoundNumber(ctx context.Context, negotiationID int64, round int) (*domain.RoundDocument, error) {
	doc := &domain.RoundDocument{NegotiationID: negotiationID, Round: round}

	err := s.db.QueryRowContext(ctx,
		`SELECT total_clauses FROM rounds WHERE negotiation_id = ? AND round = ?`,
		negotiationID, round,
	).Scan(&doc.TotalClauses)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan round header: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, title, content, owner_level, owner_reason, tenant_level, tenant_reason
		FROM round_clauses
		WHERE negotiation_id = ? AND round = ?
		ORDER BY ord ASC`,
		negotiationID, round,
	)
	if err != nil {
		return nil, fmt.Errorf("query round clauses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c domain.Clause
		var ownerLevel, tenantLevel string
		if err := rows.Scan(
			&c.Order, &c.Title, &c.Content,
			&ownerLevel, &c.Assessment.Owner.Reason,
			&tenantLevel, &c.Assessment.Tenant.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan clause row: %w", err)
		}
		c.Assessment.Owner.Level = domain.RiskLevel(ownerLevel)
		c.Assessment.Tenant.Level = domain.RiskLevel(tenantLevel)
		doc.Clauses = append(doc.Clauses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clause rows: %w", err)
	}

	return doc, nil
}

// ReplaceClauseAtOrder rewrites one clause inside expectedRound. The update
// only matches a clause that has not been revised in that round yet, so two
// competing replacements for the same (negotiation, round, order) have
// exactly one winner; the loser gets false and must re-fetch.
func (s *SQLiteStore) ReplaceClauseAtOrder(ctx context.Context, negotiationID int64, expectedRound, order int, clause domain.Clause) (bool, error) {
	var replaced bool
	err := withBusyRetry("replace clause", func() error {
		var err error
		replaced, err = s.replaceClauseAtOrderOnce(ctx, negotiationID, expectedRound, order, clause)
		return err
	})
	return replaced, err
}

func (s *SQLiteStore) replaceClauseAtOrderOnce(ctx context.Context, negotiationID int64, expectedRound, order int, clause domain.Clause) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE round_clauses
		SET title = ?, content = ?,
		    owner_level = ?, owner_reason = ?,
		    tenant_level = ?, tenant_reason = ?,
		    revised = 1
		WHERE negotiation_id = ? AND round = ? AND ord = ? AND revised = 0`,
		clause.Title, clause.Content,
		string(clause.Assessment.Owner.Level), clause.Assessment.Owner.Reason,
		string(clause.Assessment.Tenant.Level), clause.Assessment.Tenant.Reason,
		negotiationID, expectedRound, order,
	)
	if err != nil {
		return false, fmt.Errorf("replace clause: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}
