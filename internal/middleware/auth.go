package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/xelth-com/ecklinen/internal/scan"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ErrInvalidToken is returned for tokens that fail verification or lack the
// claims an Actor needs
var ErrInvalidToken = errors.New("invalid token")

// ParseToken verifies an HS256 token and maps its claims to an Actor.
// The user id is read from "sub", falling back to "id".
func ParseToken(tokenString, secret string) (scan.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return scan.Actor{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return scan.Actor{}, ErrInvalidToken
	}

	actor := scan.Actor{
		UserID:   claimString(claims, "sub"),
		TenantID: claimString(claims, "tenant"),
		Role:     scan.Role(claimString(claims, "role")),
	}
	if actor.UserID == "" {
		actor.UserID = claimString(claims, "id")
	}
	if actor.UserID == "" || (actor.TenantID == "" && !actor.CrossTenant()) {
		return scan.Actor{}, ErrInvalidToken
	}
	return actor, nil
}

// IssueToken signs an access token for actor
func IssueToken(actor scan.Actor, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":    actor.UserID,
		"tenant": actor.TenantID,
		"role":   string(actor.Role),
		"exp":    time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func claimString(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

// ActorFrom returns the Actor stored by Auth
func ActorFrom(ctx context.Context) (scan.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(scan.Actor)
	return actor, ok
}

// WithActor stores actor in ctx
func WithActor(ctx context.Context, actor scan.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// Auth verifies bearer tokens and stores the caller's Actor in the request
// context
func Auth(secret string, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "authorization header required")
				return
			}

			// Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization header format")
				return
			}

			actor, err := ParseToken(strings.TrimSpace(parts[1]), secret)
			if err != nil {
				log.Debugw("rejected token", "path", r.URL.Path, "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
