package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leaseflow/leaseflow/internal/chatlog"
	"github.com/leaseflow/leaseflow/internal/identity"
	"github.com/leaseflow/leaseflow/internal/negotiation"
	"github.com/leaseflow/leaseflow/internal/store"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	contractChat, err := chatlog.New(s.DB(), chatlog.Hash("contract_messages", 5))
	if err != nil {
		t.Fatalf("chatlog.New contract: %v", err)
	}
	generalChat, err := chatlog.New(s.DB(), chatlog.Constant("messages"))
	if err != nil {
		t.Fatalf("chatlog.New general: %v", err)
	}

	engine := negotiation.NewEngine(s, s, s, nil)
	projection := negotiation.NewProjection(s)

	r := chi.NewRouter()
	r.Use(identity.Middleware())
	NewNegotiationHandler(engine, projection, s).RegisterRoutes(r)
	NewChatHandler(contractChat, generalChat).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(identity.UserHeaderName, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedNegotiation(t *testing.T, r http.Handler) {
	t.Helper()
	for _, p := range []map[string]string{
		{"userId": "owner-1", "role": "OWNER"},
		{"userId": "tenant-1", "role": "TENANT"},
	} {
		if w := doRequest(t, r, http.MethodPost, "/api/negotiations/7/participants", "", p); w.Code != http.StatusOK {
			t.Fatalf("Bind participant: status %d body %s", w.Code, w.Body.String())
		}
	}

	clauses := map[string]interface{}{
		"clauses": []map[string]interface{}{
			{
				"title":   "deposit",
				"content": "two months deposit",
				"assessment": map[string]interface{}{
					"owner":  map[string]string{"level": "LOW", "reason": "standard"},
					"tenant": map[string]string{"level": "HIGH", "reason": "TENANT-SECRET"},
				},
			},
			{
				"title":   "pets",
				"content": "no pets allowed",
				"assessment": map[string]interface{}{
					"owner":  map[string]string{"level": "MEDIUM", "reason": "OWNER-SECRET"},
					"tenant": map[string]string{"level": "LOW", "reason": "fine"},
				},
			},
		},
	}
	if w := doRequest(t, r, http.MethodPost, "/api/negotiations/7/clauses", "", clauses); w.Code != http.StatusCreated {
		t.Fatalf("Start negotiation: status %d body %s", w.Code, w.Body.String())
	}
}

func TestViewMasksCounterpartAssessment(t *testing.T) {
	r := newTestRouter(t)
	seedNegotiation(t, r)

	w := doRequest(t, r, http.MethodGet, "/api/negotiations/7/view", "owner-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("View: status %d body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "TENANT-SECRET") {
		t.Errorf("Owner view leaked tenant reasoning: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "standard") {
		t.Errorf("Owner view missing own reasoning: %s", w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/api/negotiations/7/view", "tenant-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("View: status %d body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "OWNER-SECRET") {
		t.Errorf("Tenant view leaked owner reasoning: %s", w.Body.String())
	}
}

func TestViewRequiresParty(t *testing.T) {
	r := newTestRouter(t)
	seedNegotiation(t, r)

	if w := doRequest(t, r, http.MethodGet, "/api/negotiations/7/view", "stranger", nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for stranger, got %d", w.Code)
	}
	if w := doRequest(t, r, http.MethodGet, "/api/negotiations/7/view", "", nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without identity, got %d", w.Code)
	}
}

func TestSelectionFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	seedNegotiation(t, r)

	vote := func(userID string, order int, accepted bool) map[string]interface{} {
		w := doRequest(t, r, http.MethodPost, "/api/negotiations/7/selections", userID,
			map[string]interface{}{"order": order, "accepted": accepted})
		if w.Code != http.StatusOK {
			t.Fatalf("Select: status %d body %s", w.Code, w.Body.String())
		}
		var got map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Decode outcome: %v", err)
		}
		return got
	}

	if got := vote("owner-1", 1, true); got["state"] != "AWAITING_CONSENSUS" {
		t.Errorf("Expected AWAITING_CONSENSUS, got %v", got["state"])
	}
	if got := vote("tenant-1", 1, true); got["state"] != "FIXED" {
		t.Errorf("Expected FIXED, got %v", got["state"])
	}

	w := doRequest(t, r, http.MethodGet, "/api/negotiations/7/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status: %d", w.Code)
	}
	var status struct {
		Complete bool `json:"complete"`
		Orders   []struct {
			Order int    `json:"order"`
			State string `json:"state"`
		} `json:"orders"`
	}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Decode status: %v", err)
	}
	if status.Complete {
		t.Error("Negotiation complete with order 2 open")
	}
	if status.Orders[0].State != "FIXED" || status.Orders[1].State != "AWAITING_CONSENSUS" {
		t.Errorf("Unexpected order states: %+v", status.Orders)
	}

	// Out-of-range order is caller-fixable.
	w = doRequest(t, r, http.MethodPost, "/api/negotiations/7/selections", "owner-1",
		map[string]interface{}{"order": 99, "accepted": true})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad order, got %d", w.Code)
	}
}

func TestCounterProposalOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	seedNegotiation(t, r)

	w := doRequest(t, r, http.MethodPost, "/api/negotiations/7/counter-proposal", "tenant-1",
		map[string]interface{}{"order": 2, "title": "pets", "content": "small pets with deposit"})
	if w.Code != http.StatusCreated {
		t.Fatalf("CounterPropose: status %d body %s", w.Code, w.Body.String())
	}

	var doc struct {
		Round   int `json:"round"`
		Clauses []struct {
			Order   int    `json:"order"`
			Content string `json:"content"`
		} `json:"clauses"`
	}
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("Decode round: %v", err)
	}
	if doc.Round != 2 {
		t.Errorf("Expected round 2, got %d", doc.Round)
	}

	found := false
	for _, c := range doc.Clauses {
		if c.Order == 2 && c.Content == "small pets with deposit" {
			found = true
		}
	}
	if !found {
		t.Errorf("Edited clause missing from new round: %+v", doc.Clauses)
	}
}

func TestContractChatOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	for i := 1; i <= 3; i++ {
		w := doRequest(t, r, http.MethodPost, "/api/negotiations/7/messages", "owner-1",
			map[string]string{"receiverId": "tenant-1", "content": fmt.Sprintf("msg %d", i)})
		if w.Code != http.StatusCreated {
			t.Fatalf("Send: status %d body %s", w.Code, w.Body.String())
		}
	}

	// Unauthenticated senders are rejected.
	w := doRequest(t, r, http.MethodPost, "/api/negotiations/7/messages", "",
		map[string]string{"receiverId": "tenant-1", "content": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without identity, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/negotiations/7/messages", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("List: status %d", w.Code)
	}
	var got struct {
		Messages []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Decode messages: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got.Messages))
	}

	w = doRequest(t, r, http.MethodGet, "/api/negotiations/7/messages/"+got.Messages[0].ID, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("FindMessage: status %d", w.Code)
	}
	w = doRequest(t, r, http.MethodGet, "/api/negotiations/7/messages/does-not-exist", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing message, got %d", w.Code)
	}
}

func TestGeneralChatUnreadOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(t, r, http.MethodPost, "/api/rooms/3/messages", "alice",
		map[string]string{"receiverId": "bob", "content": "hi bob"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Send: status %d body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/api/rooms/3/messages/unread", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("CountUnread: status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"unread":1`) {
		t.Errorf("Expected 1 unread, got %s", w.Body.String())
	}

	w = doRequest(t, r, http.MethodPost, "/api/rooms/3/messages/read", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("MarkAllRead: status %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/api/rooms/3/messages/unread", "bob", nil)
	if !strings.Contains(w.Body.String(), `"unread":0`) {
		t.Errorf("Expected 0 unread, got %s", w.Body.String())
	}
}
