package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leaseflow/leaseflow/internal/chatlog"
	"github.com/leaseflow/leaseflow/internal/domain"
	"github.com/leaseflow/leaseflow/internal/identity"
)

// ChatHandler handles contract-chat and general-chat persistence endpoints.
// Live delivery happens on a separate transport; only history lives here.
type ChatHandler struct {
	contract *chatlog.Log
	general  *chatlog.Log
}

// NewChatHandler creates a new chat handler over the two logs.
func NewChatHandler(contract, general *chatlog.Log) *ChatHandler {
	return &ChatHandler{contract: contract, general: general}
}

// RegisterRoutes registers chat routes. Flat registrations keep the message
// subtree from mounting over the negotiation subrouter.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/negotiations/{negotiationID}/messages", h.sendTo(h.contract, "negotiationID"))
	r.Get("/api/negotiations/{negotiationID}/messages", h.listFrom(h.contract, "negotiationID"))
	r.Get("/api/negotiations/{negotiationID}/messages/export", h.Export)
	r.Get("/api/negotiations/{negotiationID}/messages/{messageID}", h.FindMessage)

	r.Post("/api/rooms/{roomID}/messages", h.sendTo(h.general, "roomID"))
	r.Get("/api/rooms/{roomID}/messages", h.listFrom(h.general, "roomID"))
	r.Get("/api/rooms/{roomID}/messages/unread", h.CountUnread)
	r.Post("/api/rooms/{roomID}/messages/read", h.MarkAllRead)
}

func chatIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (h *ChatHandler) sendTo(log *chatlog.Log, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDParam(r, param)
		if !ok {
			Error(w, http.StatusBadRequest, "invalid chat id")
			return
		}

		senderID := identity.UserIDFromContext(r.Context())
		if senderID == "" {
			Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req struct {
			ReceiverID string `json:"receiverId"`
			Content    string `json:"content"`
			FileURL    string `json:"fileUrl"`
			Type       string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		stored, err := log.Append(r.Context(), &domain.ChatMessage{
			ChatID:     chatID,
			SenderID:   senderID,
			ReceiverID: req.ReceiverID,
			Content:    req.Content,
			FileURL:    req.FileURL,
			Type:       req.Type,
		})
		if err != nil {
			DomainError(w, err)
			return
		}
		JSON(w, http.StatusCreated, stored)
	}
}

func (h *ChatHandler) listFrom(log *chatlog.Log, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, ok := chatIDParam(r, param)
		if !ok {
			Error(w, http.StatusBadRequest, "invalid chat id")
			return
		}

		var msgs []domain.ChatMessage
		var err error
		if r.URL.Query().Has("page") || r.URL.Query().Has("size") {
			page, perr := strconv.Atoi(r.URL.Query().Get("page"))
			if perr != nil {
				page = 0
			}
			size, serr := strconv.Atoi(r.URL.Query().Get("size"))
			if serr != nil {
				size = 20
			}
			msgs, err = log.ListPage(r.Context(), chatID, page, size)
		} else {
			msgs, err = log.List(r.Context(), chatID)
		}
		if err != nil {
			DomainError(w, err)
			return
		}

		if msgs == nil {
			msgs = []domain.ChatMessage{}
		}
		JSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
	}
}

// Export returns contract chat between two inclusive send-time bounds.
func (h *ChatHandler) Export(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := chatIDParam(r, "negotiationID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		Error(w, http.StatusBadRequest, "start and end are required")
		return
	}

	msgs, err := h.contract.ListBetween(r.Context(), negotiationID, start, end)
	if err != nil {
		DomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// FindMessage returns one contract-chat message by id.
func (h *ChatHandler) FindMessage(w http.ResponseWriter, r *http.Request) {
	negotiationID, ok := chatIDParam(r, "negotiationID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid negotiation id")
		return
	}

	msg, err := h.contract.FindByID(r.Context(), negotiationID, chi.URLParam(r, "messageID"))
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, msg)
}

// CountUnread returns the caller's unread message count in a room.
func (h *ChatHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
	roomID, ok := chatIDParam(r, "roomID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid room id")
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.general.CountUnread(r.Context(), roomID, userID)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkAllRead flips every message addressed to the caller in the room to
// read. Only the receiver can do this.
func (h *ChatHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	roomID, ok := chatIDParam(r, "roomID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid room id")
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	updated, err := h.general.MarkAllRead(r.Context(), roomID, userID)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
