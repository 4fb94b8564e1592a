//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leaseflow/leaseflow/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestDomainErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrRoundNotFound, http.StatusNotFound},
		{domain.ErrMessageNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrRoundNotFound), http.StatusNotFound},
		{domain.ErrAccessDenied, http.StatusForbidden},
		{domain.ErrValidation, http.StatusBadRequest},
		{domain.ErrInvalidState, http.StatusConflict},
		{domain.ErrDuplicateRound, http.StatusConflict},
		{domain.ErrConcurrentModification, http.StatusConflict},
		{fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		DomainError(w, tc.err)
		if w.Code != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, w.Code)
		}
	}
}

func TestDomainErrorConcurrentModificationMessage(t *testing.T) {
	w := httptest.NewRecorder()
	DomainError(w, fmt.Errorf("order 2: %w", domain.ErrConcurrentModification))

	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "renegotiation in progress, please refresh" {
		t.Errorf("Expected refresh signal, got %q", got["error"])
	}
}
