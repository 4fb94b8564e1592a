package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/leaseflow/leaseflow/internal/domain"
)

func maskedRound() *domain.RoundDocument {
	return &domain.RoundDocument{
		NegotiationID: 1,
		Round:         1,
		TotalClauses:  2,
		Clauses: []domain.Clause{
			{
				Order: 1, Title: "deposit", Content: "two months",
				Assessment: domain.ClauseAssessments{
					Owner:  domain.Assessment{Level: domain.RiskLow, Reason: "OWNER-SECRET-1"},
					Tenant: domain.Assessment{Level: domain.RiskHigh, Reason: "TENANT-SECRET-1"},
				},
			},
			{
				Order: 2, Title: "pets", Content: "no pets",
				Assessment: domain.ClauseAssessments{
					Owner:  domain.Assessment{Level: domain.RiskMedium, Reason: "OWNER-SECRET-2"},
					Tenant: domain.Assessment{Level: domain.RiskLow, Reason: "TENANT-SECRET-2"},
				},
			},
		},
	}
}

func TestProjectRoundMasksCounterpart(t *testing.T) {
	doc := maskedRound()

	ownerView := ProjectRound(doc, domain.RoleOwner)
	tenantView := ProjectRound(doc, domain.RoleTenant)

	ownerJSON, err := json.Marshal(ownerView)
	if err != nil {
		t.Fatalf("Marshal owner view: %v", err)
	}
	if strings.Contains(string(ownerJSON), "TENANT-SECRET") {
		t.Errorf("Owner view leaks tenant reasoning: %s", ownerJSON)
	}

	tenantJSON, err := json.Marshal(tenantView)
	if err != nil {
		t.Fatalf("Marshal tenant view: %v", err)
	}
	if strings.Contains(string(tenantJSON), "OWNER-SECRET") {
		t.Errorf("Tenant view leaks owner reasoning: %s", tenantJSON)
	}

	if ownerView.Clauses[0].Level != domain.RiskLow || ownerView.Clauses[0].Reason != "OWNER-SECRET-1" {
		t.Errorf("Owner view lost its own assessment: %+v", ownerView.Clauses[0])
	}
	if tenantView.Clauses[0].Level != domain.RiskHigh || tenantView.Clauses[0].Reason != "TENANT-SECRET-1" {
		t.Errorf("Tenant view lost its own assessment: %+v", tenantView.Clauses[0])
	}

	if ownerView.Round != 1 || ownerView.TotalClauses != 2 || len(ownerView.Clauses) != 2 {
		t.Errorf("Projection dropped round metadata: %+v", ownerView)
	}
}

func TestViewForMissingRound(t *testing.T) {
	_, s, _ := newTestEngine(t)
	p := NewProjection(s)

	if _, err := p.ViewFor(context.Background(), 99, domain.RoleOwner); !errors.Is(err, domain.ErrRoundNotFound) {
		t.Errorf("Expected ErrRoundNotFound, got %v", err)
	}
}
