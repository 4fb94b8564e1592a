package negotiation

import (
	"context"

	"github.com/leaseflow/leaseflow/internal/domain"
	"github.com/leaseflow/leaseflow/internal/store"
)

// ClauseView is one clause as a single party sees it: the caller's own risk
// assessment, with the counterpart's stripped out entirely.
type ClauseView struct {
	Order   int              `json:"order"`
	Title   string           `json:"title"`
	Content string           `json:"content"`
	Level   domain.RiskLevel `json:"level"`
	Reason  string           `json:"reason"`
}

// RoundView is a party-specific rendering of the current round.
type RoundView struct {
	Round        int          `json:"round"`
	TotalClauses int          `json:"totalClauses"`
	Clauses      []ClauseView `json:"clauses"`
}

// ProjectRound renders a round document for one role. It is a pure
// function: the counterpart's level and reason never appear in the output.
func ProjectRound(doc *domain.RoundDocument, role domain.Role) *RoundView {
	view := &RoundView{
		Round:        doc.Round,
		TotalClauses: doc.TotalClauses,
		Clauses:      make([]ClauseView, 0, len(doc.Clauses)),
	}
	for _, c := range doc.Clauses {
		assessment := c.Assessment.ForRole(role)
		view.Clauses = append(view.Clauses, ClauseView{
			Order:   c.Order,
			Title:   c.Title,
			Content: c.Content,
			Level:   assessment.Level,
			Reason:  assessment.Reason,
		})
	}
	return view
}

// Projection serves role-scoped reads of the current round.
type Projection struct {
	clauses store.ClauseStore
}

// NewProjection creates a projection service over the clause store.
func NewProjection(clauses store.ClauseStore) *Projection {
	return &Projection{clauses: clauses}
}

// ViewFor returns the current round as seen by the given role. The access
// check (whether the caller actually holds that role) belongs to the layer
// that resolved the role.
func (p *Projection) ViewFor(ctx context.Context, negotiationID int64, role domain.Role) (*RoundView, error) {
	doc, err := p.clauses.GetRound(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	return ProjectRound(doc, role), nil
}
