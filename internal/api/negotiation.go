package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leaseflow/leaseflow/internal/domain"
	"github.com/leaseflow/leaseflow/internal/identity"
	"github.com/leaseflow/leaseflow/internal/negotiation"
	"github.com/leaseflow/leaseflow/internal/store"
)

// NegotiationHandler handles the clause negotiation endpoints.
type NegotiationHandler struct {
	engine       *negotiation.Engine
	projection   *negotiation.Projection
	participants store.ParticipantStore
}

// NewNegotiationHandler creates a new negotiation handler.
func NewNegotiationHandler(engine *negotiation.Engine, projection *negotiation.Projection, participants store.ParticipantStore) *NegotiationHandler {
	return &NegotiationHandler{
		engine:       engine,
		projection:   projection,
		participants: participants,
	}
}

// RegisterRoutes registers negotiation routes.
func (h *NegotiationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/negotiations/{negotiationID}", func(r chi.Router) {
		r.Post("/clauses", h.StartNegotiation)
		r.Post("/participants", h.BindParticipant)
		r.Get("/view", h.View)
		r.Get("/status", h.Status)
		r.Get("/fixed", h.Fixed)
		r.Post("/selections", h.Select)
		r.Post("/counter-proposal", h.CounterPropose)
	})
}

func negotiationIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "negotiationID"), 10, 64)
	return id, err == nil
}

// resolveRole establishes the caller's role in the negotiation from the
// request identity. An unresolvable role is an access failure: the
// counterpart's risk reasoning must never leak to an outsider.
func (h *NegotiationHandler) resolveRole(r *http.Request, negotiationID int64) (domain.Role, error) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		return "", domain.ErrAccessDenied
	}
	role, ok, err := h.participants.ResolveRole(r.Context(), negotiationID, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrAccessDenied
	}
	return role, nil
}

// StartNegotiation ingests the extracted clause set and opens round 1.
func (h *NegotiationHandler) StartNegotiation(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := negotiationIDParam(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	var req struct {
		Clauses []domain.Clause `json:"clauses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.engine.Start(r.Context(), negotiationID, req.Clauses)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusCreated, doc)
}

// BindParticipant binds a user to one side of the negotiation. The binding
// itself comes from the upstream contract record; this endpoint is its
// write path into role resolution.
func (h *NegotiationHandler) BindParticipant(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := negotiationIDParam(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	var req struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		Error(w, http.StatusBadRequest, "role must be OWNER or TENANT")
		return
	}

	if err := h.participants.UpsertParticipant(r.Context(), negotiationID, req.UserID, role); err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"userId": req.UserID, "role": string(role)})
}

// View returns the current round as seen by the caller's role, with the
// counterpart's risk assessment stripped.
func (h *NegotiationHandler) View(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := negotiationIDParam(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	role, err := h.resolveRole(r, negotiationID)
	if err != nil {
		DomainError(w, err)
		return
	}

	view, err := h.projection.ViewFor(r.Context(), negotiationID, role)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// Status returns per-order negotiation states and the completion flag.
func (h *NegotiationHandler) Status(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := negotiationIDParam(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	state, err := h.engine.State(r.Context(), negotiationID)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, state)
}

// Fixed returns the append-only ledger of clauses both parties accepted.
func (h *NegotiationHandler) Fixed(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := negotiationIDParam(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	fixed, err := h.engine.FixedClauses(r.Context(), negotiationID)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"fixedClauses": fixed})
}

// Select records the caller's accept/reject vote for one clause order.
func (h *NegotiationHandler) Select(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := negotiationIDParam(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	role, err := h.resolveRole(r, negotiationID)
	if err != nil {
		DomainError(w, err)
		return
	}

	var req struct {
		Order    int  `json:"order"`
		Accepted bool `json:"accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.engine.Select(r.Context(), negotiationID, role, req.Order, req.Accepted)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, outcome)
}

// CounterPropose rolls the contested clause into a new round with edited
// content.
func (h *NegotiationHandler) CounterPropose(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := negotiationIDParam(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	if _, err := h.resolveRole(r, negotiationID); err != nil {
		DomainError(w, err)
		return
	}

	var req struct {
		Order      int                       `json:"order"`
		Title      string                    `json:"title"`
		Content    string                    `json:"content"`
		Assessment *domain.ClauseAssessments `json:"assessment,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.engine.CounterPropose(r.Context(), negotiationID, req.Order, req.Title, req.Content, req.Assessment)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusCreated, doc)
}
