// Package auth verifies bearer tokens and exposes the acting user to handlers.
package auth

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledger/internal/audit"
	"github.com/MrJamesThe3rd/ledger/internal/http/render"
)

type Claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

type userKey struct{}

// UserID returns the authenticated user set by Middleware.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userKey{}).(uuid.UUID)
	return id, ok
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// Middleware accepts HS256 tokens signed with secret whose subject is a user
// id. It also records the caller's address, agent and session so audit
// records appended during the request carry them.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	keyFunc := func(*jwt.Token) (any, error) {
		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "Missing bearer token")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "Invalid Authorization header format")
				return
			}

			var claims Claims
			if _, err := parser.ParseWithClaims(parts[1], &claims, keyFunc); err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				unauthorized(w, "Invalid token subject")
				return
			}

			ctx := WithUserID(r.Context(), userID)
			ctx = audit.WithRequestInfo(ctx, audit.RequestInfo{
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
				SessionID: claims.SessionID,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Issue signs a token for userID. The ledger does not log users in; Issue
// serves operators and tests.
func Issue(secret []byte, userID uuid.UUID, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	return token.SignedString(secret)
}

// clientIP drops the port chi's RealIP leaves on direct connections.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}

func unauthorized(w http.ResponseWriter, message string) {
	render.JSON(w, http.StatusUnauthorized, render.ErrorResponse{ErrorCode: "UNAUTHORIZED", Message: message})
}
