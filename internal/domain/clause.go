// Package domain contains core domain types for the lease negotiation backend.
package domain

import "strings"

// Role identifies which side of the negotiation a party is on.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleTenant Role = "TENANT"
)

// ParseRole normalizes a role string. Returns false for anything that is
// not OWNER or TENANT.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleTenant:
		return RoleTenant, true
	}
	return "", false
}

// RiskLevel is the upstream AI risk rating for a clause, per party.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Valid reports whether the level is one of the known ratings.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Assessment is one party's risk view of a clause. Written once when the
// clause is created and read-only afterward.
type Assessment struct {
	Level  RiskLevel `json:"level"`
	Reason string    `json:"reason"`
}

// ClauseAssessments holds both parties' assessments for a clause.
type ClauseAssessments struct {
	Owner  Assessment `json:"owner"`
	Tenant Assessment `json:"tenant"`
}

// ForRole selects the assessment belonging to the given role.
func (a ClauseAssessments) ForRole(role Role) Assessment {
	if role == RoleOwner {
		return a.Owner
	}
	return a.Tenant
}

// Clause is one special contract term under negotiation. Order is the
// 1-based position assigned in round 1; it is never reused within a round
// and stays stable for a clause that rolls into later rounds.
type Clause struct {
	Order      int               `json:"order"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Assessment ClauseAssessments `json:"assessment"`
}
