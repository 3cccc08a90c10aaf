package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
)

// ErrInvalidToken is returned for bearer tokens that do not verify
var ErrInvalidToken = errors.New("invalid token")

// DefaultTokenTTL is the lifetime of issued tokens
const DefaultTokenTTL = 12 * time.Hour

type actorKey struct{}

// WithActor stores actor in ctx
func WithActor(ctx context.Context, actor consent.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor of the request, consent.Anonymous if none was authenticated
func ActorFrom(ctx context.Context) consent.Actor {
	if actor, ok := ctx.Value(actorKey{}).(consent.Actor); ok {
		return actor
	}
	return consent.Anonymous
}

// Authenticator issues and verifies HS256 tokens carrying a user id and roles
type Authenticator struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthenticator creates an authenticator; an empty secret disables authentication
func NewAuthenticator(secret string, tokenTTL time.Duration) *Authenticator {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Authenticator{secret: []byte(secret), tokenTTL: tokenTTL}
}

// Enabled reports whether a secret is configured
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// GenerateToken signs a token for user with roles
func (a *Authenticator) GenerateToken(user string, roles []string) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("cannot issue tokens without server.jwt_secret")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user,
		"roles":   roles,
		"exp":     now.Add(a.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken verifies token and returns the actor it names
func (a *Authenticator) ValidateToken(token string) (consent.Actor, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return consent.Anonymous, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return consent.Anonymous, ErrInvalidToken
	}

	user, _ := claims["user_id"].(string)
	if user == "" {
		return consent.Anonymous, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	actor := consent.Actor{User: user}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, role := range roles {
			if r, ok := role.(string); ok {
				actor.Roles = append(actor.Roles, r)
			}
		}
	}
	return actor, nil
}

// Middleware puts the authenticated actor in the request context. Requests without an
// Authorization header stay anonymous; a malformed or invalid bearer token is rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !a.Enabled() || header == "" {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || token == "" {
			writeProblem(w, http.StatusUnauthorized, "unauthorized", "invalid authorization format")
			return
		}
		actor, err := a.ValidateToken(token)
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}
