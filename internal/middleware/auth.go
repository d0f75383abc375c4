package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/model"
)

type userLookup interface {
	GetByID(id int64) (*model.User, error)
}

// RequireAuth validates the bearer token and populates AuthContext. The
// token may also arrive as a "token" query parameter, which browsers need
// for WebSocket upgrades.
func RequireAuth(issuer *auth.Issuer, users userLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := issuer.Parse(raw)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					unauthorized(w, "token expired")
					return
				}
				unauthorized(w, "invalid token")
				return
			}

			// Deleted accounts lose access even with an unexpired token.
			u, err := users.GetByID(claims.UserID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}
			if u == nil {
				unauthorized(w, "invalid token")
				return
			}

			ac := auth.AuthContext{
				UserID:   u.ID,
				FamilyID: u.FamilyID(),
				Role:     u.Role,
				Name:     u.Name,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent rejects callers that are not parents.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			writeError(w, http.StatusForbidden, "parent role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireChild rejects callers that are not children.
func RequireChild(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsChild(r.Context()) {
			writeError(w, http.StatusForbidden, "child role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok)
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="familypoints"`)
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
