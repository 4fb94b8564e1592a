package domain

// SelectionRecord tracks each party's current accept/reject vote per clause
// order. There is one record per negotiation, not per round: a true entry
// means that party accepts the clause at that order as it stands in the
// current round. Votes for an order are cleared whenever the clause content
// at that order changes in a new round.
type SelectionRecord struct {
	NegotiationID    int64        `json:"negotiationId"`
	OwnerSelections  map[int]bool `json:"ownerSelections"`
	TenantSelections map[int]bool `json:"tenantSelections"`
}

// NewSelectionRecord returns an empty record for the negotiation.
func NewSelectionRecord(negotiationID int64) *SelectionRecord {
	return &SelectionRecord{
		NegotiationID:    negotiationID,
		OwnerSelections:  make(map[int]bool),
		TenantSelections: make(map[int]bool),
	}
}

// BothAccepted reports whether both parties currently accept the clause at
// the given order.
func (r *SelectionRecord) BothAccepted(order int) bool {
	return r.OwnerSelections[order] && r.TenantSelections[order]
}
