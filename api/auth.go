/*
auth.go - Session tokens and the authentication middleware

PURPOSE:
  Issues and validates the JWT bearer tokens that carry a logged-in user's
  identity, role, and department. Every endpoint except /api/login sits
  behind the middleware; handlers read the principal from the request
  context instead of any process-wide "current user".

TOKEN SHAPE:
  HS256, subject = user id, custom claims "role" and "dept". Expiry is the
  handler's TokenTTL (default 12h).

SEE ALSO:
  - handlers.go: Login handler issuing the token
  - server.go: Where the middleware is mounted
*/
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/attendance-engine/core"
)

// Principal is the authenticated caller, as carried by the token.
type Principal struct {
	ID         core.UserID
	Role       core.Role
	Department string
}

type sessionClaims struct {
	Role       string `json:"role"`
	Department string `json:"dept,omitempty"`
	jwt.RegisteredClaims
}

type principalKey struct{}

// issueToken signs a session token for a verified user.
func issueToken(secret []byte, p Principal, ttl time.Duration, now time.Time) (string, error) {
	claims := sessionClaims{
		Role:       string(p.Role),
		Department: p.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(p.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// requireAuth parses the Bearer token and stores the Principal in the
// request context. Missing, malformed, or expired tokens get a 401.
func requireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
				return
			}

			claims := &sessionClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token", err)
				return
			}

			p := Principal{
				ID:         core.UserID(claims.Subject),
				Role:       core.Role(claims.Role),
				Department: claims.Department,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}

// principalFrom returns the authenticated caller. Only valid behind
// requireAuth.
func principalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
