// Package auth is the access guard for the JSON API: it mints and
// verifies HMAC bearer tokens and injects the verified identity
// (user id, role, institute code) into the request context.
//
// Workflow code trusts the identity it receives here and performs no
// further authentication of its own.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the verified caller placed in the request context.
type Identity struct {
	UserID        primitive.ObjectID
	Role          string
	InstituteCode string
}

type claims struct {
	jwt.RegisteredClaims
	Role          string `json:"role"`
	InstituteCode string `json:"institute_code"`
}

type ctxKey string

const identityKey ctxKey = "identity"

// Manager mints and verifies bearer tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager returns a token Manager. The signing key must be non-empty;
// ttl zero means 24h.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: signing key is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// Mint signs a token for the given identity.
func (m *Manager) Mint(id Identity) (string, error) {
	now := time.Now().UTC()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role:          id.Role,
		InstituteCode: id.InstituteCode,
	})
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a bearer token back into an Identity.
func (m *Manager) Verify(token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token")
	}
	uid, err := primitive.ObjectIDFromHex(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: invalid token subject")
	}
	return Identity{UserID: uid, Role: c.Role, InstituteCode: c.InstituteCode}, nil
}

// LoadIdentity injects the verified identity into the context when a
// valid bearer token is present; requests without one pass through
// anonymous and are stopped by RequireRole / RequireSignedIn.
func (m *Manager) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			if id, err := m.Verify(strings.TrimPrefix(header, "Bearer ")); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentIdentity returns the verified caller, if any.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey).(Identity)
	return id, ok
}

// RequireSignedIn rejects anonymous requests with 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); !ok {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose role is not in the allowed set.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CurrentIdentity(r)
			if !ok {
				http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if _, has := set[strings.ToLower(id.Role)]; !has {
				http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithTestIdentity injects an identity directly for handler tests,
// bypassing token verification.
func WithTestIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}
