// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/leaseflow/leaseflow/internal/domain"
)

// ClauseStore persists per-round snapshots of the clause set and supports
// targeted per-clause updates inside the current round under optimistic
// concurrency.
type ClauseStore interface {
	// CreateRound inserts the round named by doc.Round together with its
	// clause rows. Returns domain.ErrDuplicateRound if a concurrent writer
	// already created that round number for the negotiation.
	CreateRound(ctx context.Context, doc *domain.RoundDocument) error

	// GetRound retrieves the highest-numbered (current) round.
	// Returns domain.ErrRoundNotFound if the negotiation has no rounds.
	GetRound(ctx context.Context, negotiationID int64) (*domain.RoundDocument, error)

	// GetRoundNumber retrieves a specific round.
	GetRoundNumber(ctx context.Context, negotiationID int64, round int) (*domain.RoundDocument, error)

	// ReplaceClauseAtOrder conditionally rewrites the clause at the given
	// order inside expectedRound. The update only matches a clause that has
	// not already been revised in that round; a false return means no row
	// matched and the caller's view is stale (not an error).
	ReplaceClauseAtOrder(ctx context.Context, negotiationID int64, expectedRound, order int, clause domain.Clause) (bool, error)
}

// SelectionStore persists each party's accept/reject votes per clause order.
// It is a pure key/value store: order validity against the current round is
// the convergence engine's concern.
type SelectionStore interface {
	// GetOrCreateSelections returns the negotiation's selection record,
	// with empty maps on first access.
	GetOrCreateSelections(ctx context.Context, negotiationID int64) (*domain.SelectionRecord, error)

	// SetSelection upserts one entry in the caller's half of the record.
	// It never touches the counterpart's half.
	SetSelection(ctx context.Context, negotiationID int64, role domain.Role, order int, accepted bool) error

	// ClearSelectionsForOrders removes both parties' votes at the given
	// orders, invalidating stale votes when clause content changes.
	ClearSelectionsForOrders(ctx context.Context, negotiationID int64, orders []int) error
}

// FixedStore is the append-only ledger of clauses both parties accepted.
type FixedStore interface {
	// AppendFixed writes a ledger entry. The write is idempotent per
	// (negotiation, order); inserted reports whether this call was the one
	// that created the entry.
	AppendFixed(ctx context.Context, fc *domain.FixedClause) (inserted bool, err error)

	// ListFixed returns all ledger entries for a negotiation, ordered by
	// clause order.
	ListFixed(ctx context.Context, negotiationID int64) ([]domain.FixedClause, error)
}

// ParticipantStore binds users to their negotiation role. It backs role
// resolution for the projection and chat surfaces.
type ParticipantStore interface {
	// UpsertParticipant binds a user to one side of the negotiation.
	UpsertParticipant(ctx context.Context, negotiationID int64, userID string, role domain.Role) error

	// ResolveRole returns the user's role in the negotiation, or false if
	// the user is not a party to it.
	ResolveRole(ctx context.Context, negotiationID int64, userID string) (domain.Role, bool, error)
}
