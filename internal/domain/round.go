package domain

// RoundDocument is one immutable snapshot of the clause set under active
// negotiation. Rounds are numbered from 1; a new round supersedes the
// previous one and carries forward only the orders that are still
// unresolved, so Clauses is not necessarily contiguous in Order.
type RoundDocument struct {
	NegotiationID int64    `json:"negotiationId"`
	Round         int      `json:"round"`
	TotalClauses  int      `json:"totalClauses"`
	Clauses       []Clause `json:"clauses"`
}

// ClauseAt finds the clause with the given order in this round.
func (d *RoundDocument) ClauseAt(order int) (Clause, bool) {
	for _, c := range d.Clauses {
		if c.Order == order {
			return c, true
		}
	}
	return Clause{}, false
}

// Orders returns the clause orders present in this round, in list order.
func (d *RoundDocument) Orders() []int {
	orders := make([]int, 0, len(d.Clauses))
	for _, c := range d.Clauses {
		orders = append(orders, c.Order)
	}
	return orders
}

// ClauseState is the negotiation state of one (negotiation, order) pair.
type ClauseState string

const (
	// StatePending means no round exists yet for the negotiation.
	StatePending ClauseState = "PENDING"
	// StateAwaitingConsensus means the clause exists in the current round
	// and at least one party has not accepted it.
	StateAwaitingConsensus ClauseState = "AWAITING_CONSENSUS"
	// StateAgreed means both parties accepted the clause as currently written.
	StateAgreed ClauseState = "AGREED"
	// StateFixed is terminal: the clause is in the fixed-clause ledger.
	StateFixed ClauseState = "FIXED"
)

// FixedClause is an append-only ledger entry for a clause both parties have
// accepted. Entries are never mutated or deleted; they are the audit trail
// of the final contract's special terms.
type FixedClause struct {
	NegotiationID int64  `json:"negotiationId"`
	Round         int    `json:"round"`
	Order         int    `json:"order"`
	Clause        Clause `json:"clause"`
	IsPassed      bool   `json:"isPassed"`
}
