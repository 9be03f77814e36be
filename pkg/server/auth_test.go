package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	env.srv.adminEmails = []string{"admin@example.com"}
	env.srv.verifier = func(ctx context.Context, token string) (identity, error) {
		switch token {
		case "admin-token":
			return identity{Email: "admin@example.com", Subject: "1"}, nil
		case "user-token":
			return identity{Email: "user@example.com", Subject: "2"}, nil
		}
		return identity{}, assert.AnError
	}
	h := env.srv.setupHandler()

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{name: "MissingHeader", code: http.StatusUnauthorized},
		{name: "NotBearer", header: "Basic abc", code: http.StatusUnauthorized},
		{name: "InvalidToken", header: "Bearer nope", code: http.StatusUnauthorized},
		{name: "NotAdmin", header: "Bearer user-token", code: http.StatusForbidden},
		{name: "Admin", header: "Bearer admin-token", code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/advise", strings.NewReader(`{"householdID":"home"}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	t.Run("GetIsOpen", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/settings", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("AnyVerifiedEmailWithoutAdmins", func(t *testing.T) {
		env.srv.adminEmails = nil
		req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"sentiment":"neutral"}`))
		req.Header.Set("Authorization", "Bearer user-token")
		w := httptest.NewRecorder()
		env.srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"userID":"user@example.com"`)
	})
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, splitList(" a@example.com, ,b@example.com "))
}
