// Package negotiation implements the round-based consensus protocol over
// the clause store: which clauses are finalized, which roll into a new
// round, and when the whole negotiation is complete.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leaseflow/leaseflow/internal/domain"
	"github.com/leaseflow/leaseflow/internal/store"
)

// maxReplaceAttempts bounds the read-modify-retry loop around lost
// conditional writes before the caller gets ErrConcurrentModification.
const maxReplaceAttempts = 3

// CompletionNotifier is told exactly once when every clause of a
// negotiation has been fixed. The external contract-status owner hangs off
// this hook; the engine itself stores no completion flag.
type CompletionNotifier interface {
	NegotiationComplete(ctx context.Context, negotiationID int64)
}

// LogNotifier is a CompletionNotifier that only logs. Used when no
// contract-status collaborator is wired in.
type LogNotifier struct{}

// NegotiationComplete logs the completion event.
func (LogNotifier) NegotiationComplete(_ context.Context, negotiationID int64) {
	slog.Info("Negotiation complete", "negotiation_id", negotiationID)
}

// Engine drives clause convergence. It is stateless: every operation runs
// synchronously on the caller's goroutine and all consistency comes from
// conditional writes in the store.
type Engine struct {
	clauses    store.ClauseStore
	selections store.SelectionStore
	fixed      store.FixedStore
	notifier   CompletionNotifier
}

// NewEngine creates an engine over the given stores. A nil notifier
// defaults to LogNotifier.
func NewEngine(clauses store.ClauseStore, selections store.SelectionStore, fixed store.FixedStore, notifier CompletionNotifier) *Engine {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Engine{
		clauses:    clauses,
		selections: selections,
		fixed:      fixed,
		notifier:   notifier,
	}
}

// Start opens round 1 from the extracted clause set. Orders are assigned
// 1-based from list position. Returns ErrDuplicateRound if the negotiation
// already has a round.
func (e *Engine) Start(ctx context.Context, negotiationID int64, clauses []domain.Clause) (*domain.RoundDocument, error) {
	if len(clauses) == 0 {
		return nil, fmt.Errorf("%w: at least one clause is required", domain.ErrValidation)
	}

	doc := &domain.RoundDocument{
		NegotiationID: negotiationID,
		Round:         1,
		TotalClauses:  len(clauses),
	}
	for i, c := range clauses {
		if c.Title == "" || c.Content == "" {
			return nil, fmt.Errorf("%w: clause %d needs a title and content", domain.ErrValidation, i+1)
		}
		if !c.Assessment.Owner.Level.Valid() || !c.Assessment.Tenant.Level.Valid() {
			return nil, fmt.Errorf("%w: clause %d has an unknown risk level", domain.ErrValidation, i+1)
		}
		c.Order = i + 1
		doc.Clauses = append(doc.Clauses, c)
	}

	if err := e.clauses.CreateRound(ctx, doc); err != nil {
		return nil, err
	}

	slog.Info("Negotiation started", "negotiation_id", negotiationID, "clauses", len(doc.Clauses))
	return doc, nil
}

// SelectionOutcome reports the state of the voted-on clause after a
// selection write, plus whether the negotiation as a whole is now complete.
type SelectionOutcome struct {
	Order    int                `json:"order"`
	State    domain.ClauseState `json:"state"`
	Complete bool               `json:"complete"`
}

// Select records one party's accept/reject vote for a clause order and
// immediately re-evaluates consensus against a fresh read of both parties'
// votes. A write that completes mutual acceptance appends the clause to the
// fixed ledger in the same call; votes for already-fixed orders are dropped
// without touching any state.
func (e *Engine) Select(ctx context.Context, negotiationID int64, role domain.Role, order int, accepted bool) (*SelectionOutcome, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: order must be >= 1", domain.ErrValidation)
	}

	fixedOrders, err := e.fixedOrders(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if fixedOrders[order] {
		// Terminal state short-circuit: nothing left to vote on.
		complete, err := e.isComplete(ctx, negotiationID, fixedOrders)
		if err != nil {
			return nil, err
		}
		return &SelectionOutcome{Order: order, State: domain.StateFixed, Complete: complete}, nil
	}

	round, err := e.clauses.GetRound(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	clause, ok := round.ClauseAt(order)
	if !ok {
		return nil, fmt.Errorf("%w: order %d is not part of round %d", domain.ErrValidation, order, round.Round)
	}

	// SetSelection is not round-conditioned: a vote validated against this
	// round can land after a concurrent counter-proposal cleared the order
	// and then count toward the edited clause. Parties vote on an order,
	// not on a content revision, so a stale accept is the voter's to retract.
	if err := e.selections.SetSelection(ctx, negotiationID, role, order, accepted); err != nil {
		return nil, err
	}

	// Consensus must be checked on every selection write, against a fresh
	// read of the counterpart's votes, or a transition can be missed when
	// the two parties race.
	record, err := e.selections.GetOrCreateSelections(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if !record.BothAccepted(order) {
		return &SelectionOutcome{Order: order, State: domain.StateAwaitingConsensus}, nil
	}

	inserted, err := e.fixed.AppendFixed(ctx, &domain.FixedClause{
		NegotiationID: negotiationID,
		Round:         round.Round,
		Order:         order,
		Clause:        clause,
		IsPassed:      true,
	})
	if err != nil {
		return nil, err
	}

	fixedOrders[order] = true
	complete, err := e.isComplete(ctx, negotiationID, fixedOrders)
	if err != nil {
		return nil, err
	}

	if inserted {
		slog.Info("Clause fixed",
			"negotiation_id", negotiationID, "round", round.Round, "order", order)
		if complete {
			// Only the writer that fixed the last order reaches this
			// branch with inserted=true, so the notification fires once.
			e.notifier.NegotiationComplete(ctx, negotiationID)
		}
	}

	return &SelectionOutcome{Order: order, State: domain.StateFixed, Complete: complete}, nil
}

// CounterPropose rolls the negotiation into a new round with edited content
// at the contested order. Unresolved orders carry forward with stable order
// numbers; fixed orders are not recreated. Both parties' votes for the
// contested order are cleared so stale acceptance never carries over.
func (e *Engine) CounterPropose(ctx context.Context, negotiationID int64, order int, title, content string, assessments *domain.ClauseAssessments) (*domain.RoundDocument, error) {
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: a counter-proposal needs a title and content", domain.ErrValidation)
	}

	for attempt := 1; attempt <= maxReplaceAttempts; attempt++ {
		doc, err := e.counterProposeOnce(ctx, negotiationID, order, title, content, assessments)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, errLostRace) {
			return nil, err
		}
		slog.Debug("Counter-proposal lost a write race, retrying",
			"negotiation_id", negotiationID, "order", order, "attempt", attempt)
	}

	return nil, fmt.Errorf("renegotiation in progress for order %d, please refresh: %w",
		order, domain.ErrConcurrentModification)
}

// errLostRace marks a conditional write that found no matching row; the
// retry loop in CounterPropose re-reads and tries again.
var errLostRace = errors.New("conditional write lost the race")

// counterProposeOnce performs one attempt at rolling the negotiation
// forward. CreateRound inserts the contested clause with revised=0, so a
// concurrent counter-proposal that lost the round-creation race can still
// replace that clause once via the degrade path; within the new round the
// later of the two racing edits is the one that sticks.
func (e *Engine) counterProposeOnce(ctx context.Context, negotiationID int64, order int, title, content string, assessments *domain.ClauseAssessments) (*domain.RoundDocument, error) {
	fixedOrders, err := e.fixedOrders(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if fixedOrders[order] {
		return nil, fmt.Errorf("%w: order %d is already fixed", domain.ErrInvalidState, order)
	}

	current, err := e.clauses.GetRound(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	prior, ok := current.ClauseAt(order)
	if !ok {
		return nil, fmt.Errorf("%w: order %d is not part of round %d", domain.ErrValidation, order, current.Round)
	}

	edited := prior
	edited.Title = title
	edited.Content = content
	if assessments != nil {
		edited.Assessment = *assessments
	}

	// The new round carries only unresolved orders forward. expectedRound
	// is the round being negotiated into; it is threaded explicitly so the
	// write path never does implicit round arithmetic.
	expectedRound := current.Round + 1
	next := &domain.RoundDocument{
		NegotiationID: negotiationID,
		Round:         expectedRound,
	}
	for _, c := range current.Clauses {
		if fixedOrders[c.Order] {
			continue
		}
		if c.Order == order {
			c = edited
		}
		next.Clauses = append(next.Clauses, c)
	}
	next.TotalClauses = len(next.Clauses)

	switch err := e.clauses.CreateRound(ctx, next); {
	case err == nil:
		// This writer opened the round; the edited clause is in place.
	case errors.Is(err, domain.ErrDuplicateRound):
		// Someone else opened the round first. Degrade to the per-clause
		// conditional replacement inside the round they created.
		replaced, rerr := e.clauses.ReplaceClauseAtOrder(ctx, negotiationID, expectedRound, order, edited)
		if rerr != nil {
			return nil, rerr
		}
		if !replaced {
			return nil, errLostRace
		}
	default:
		return nil, err
	}

	if err := e.selections.ClearSelectionsForOrders(ctx, negotiationID, []int{order}); err != nil {
		return nil, err
	}

	slog.Info("Counter-proposal opened a new round",
		"negotiation_id", negotiationID, "round", expectedRound, "order", order)

	return e.clauses.GetRoundNumber(ctx, negotiationID, expectedRound)
}

// OrderState is the negotiation state of one clause order.
type OrderState struct {
	Order int                `json:"order"`
	State domain.ClauseState `json:"state"`
}

// NegotiationState is the computed, unstored view of where the whole
// negotiation stands.
type NegotiationState struct {
	NegotiationID int64        `json:"negotiationId"`
	Round         int          `json:"round"`
	Complete      bool         `json:"complete"`
	Orders        []OrderState `json:"orders"`
}

// State computes per-order states and the negotiation-level complete flag.
// A negotiation with no rounds yet reports round 0 and no orders (every
// order is still pending extraction).
func (e *Engine) State(ctx context.Context, negotiationID int64) (*NegotiationState, error) {
	state := &NegotiationState{NegotiationID: negotiationID}

	first, err := e.clauses.GetRoundNumber(ctx, negotiationID, 1)
	if errors.Is(err, domain.ErrRoundNotFound) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}

	current, err := e.clauses.GetRound(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	state.Round = current.Round

	fixedOrders, err := e.fixedOrders(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	record, err := e.selections.GetOrCreateSelections(ctx, negotiationID)
	if err != nil {
		return nil, err
	}

	state.Complete = true
	for _, order := range first.Orders() {
		var s domain.ClauseState
		switch {
		case fixedOrders[order]:
			s = domain.StateFixed
		case record.BothAccepted(order):
			// Mutual acceptance observed before the ledger write landed.
			s = domain.StateAgreed
			state.Complete = false
		default:
			s = domain.StateAwaitingConsensus
			state.Complete = false
		}
		state.Orders = append(state.Orders, OrderState{Order: order, State: s})
	}

	return state, nil
}

// FixedClauses returns the ledger for a negotiation.
func (e *Engine) FixedClauses(ctx context.Context, negotiationID int64) ([]domain.FixedClause, error) {
	return e.fixed.ListFixed(ctx, negotiationID)
}

func (e *Engine) fixedOrders(ctx context.Context, negotiationID int64) (map[int]bool, error) {
	fixed, err := e.fixed.ListFixed(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	orders := make(map[int]bool, len(fixed))
	for _, fc := range fixed {
		orders[fc.Order] = true
	}
	return orders, nil
}

// isComplete reports whether every order from round 1 is fixed.
func (e *Engine) isComplete(ctx context.Context, negotiationID int64, fixedOrders map[int]bool) (bool, error) {
	first, err := e.clauses.GetRoundNumber(ctx, negotiationID, 1)
	if err != nil {
		return false, err
	}
	for _, order := range first.Orders() {
		if !fixedOrders[order] {
			return false, nil
		}
	}
	return true, nil
}
