package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/greengrid/greengrid/pkg/log"
)

// identity is what the API needs from a verified id token.
type identity struct {
	Email   string
	Subject string
}

// tokenVerifier validates a raw OIDC id token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (identity, error)

func oidcVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (identity, error) {
		idToken, err := v.Verify(ctx, rawIDToken)
		if err != nil {
			return identity{}, err
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return identity{}, fmt.Errorf("failed to parse claims: %w", err)
		}
		return identity{Email: claims.Email, Subject: idToken.Subject}, nil
	}
}

// requireAuth guards state changing endpoints. Without a configured verifier
// every request is allowed.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.WithAttrs(ctx, slog.String("reqPath", r.URL.Path))

		if s.verifier == nil {
			next(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		id, err := s.verifier(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to validate id token", slog.Any("error", err))
			writeJSONError(w, "invalid id token", http.StatusUnauthorized)
			return
		}

		if len(s.adminEmails) > 0 && !s.isAdmin(id.Email) {
			log.Ctx(ctx).WarnContext(ctx, "unauthorized email", slog.String("email", id.Email))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		log.Ctx(ctx).DebugContext(ctx, "authorized", slog.String("email", id.Email))
		ctx = context.WithValue(ctx, emailContextKey, id.Email)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) isAdmin(email string) bool {
	if email == "" {
		return false
	}
	for _, admin := range s.adminEmails {
		if subtle.ConstantTimeCompare([]byte(email), []byte(admin)) == 1 {
			return true
		}
	}
	return false
}

// requestEmail returns the authenticated email, if any.
func requestEmail(r *http.Request) string {
	email, _ := r.Context().Value(emailContextKey).(string)
	return email
}
