// Package middleware resolves the acting user and tags requests.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kilianp07/worklog/api/render"
)

// ActorHeader carries the actor id when JWT verification is disabled.
const ActorHeader = "X-Actor-ID"

type actorKey struct{}

// WithActor returns ctx carrying actor.
func WithActor(ctx context.Context, actor int64) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by Actor.
func ActorFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey{}).(int64)
	return id, ok
}

var errNoActor = errors.New("missing actor")

// Actor identifies the caller. With a secret the request must carry an HS256
// bearer token whose "sub" claim is the numeric user id; otherwise the
// X-Actor-ID header is used. Requests without an actor get 401.
func Actor(secret, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				id  int64
				err error
			)
			if secret != "" {
				id, err = fromToken(r, []byte(secret), issuer)
			} else {
				id, err = fromHeader(r)
			}
			if err != nil {
				render.JSON(w, http.StatusUnauthorized, render.ErrorBody{Code: render.CodeUnauthorized, Message: err.Error()})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), id)))
		})
	}
}

func fromHeader(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Header.Get(ActorHeader))
	if v == "" {
		return 0, errNoActor
	}
	return parseActor(v)
}

func fromToken(r *http.Request, secret []byte, issuer string) (int64, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return 0, errors.New("missing token")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}
	return parseActor(claims.Subject)
}

func parseActor(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("actor must be a positive integer")
	}
	return id, nil
}

// IssueToken signs an HS256 token for actor. The CLI uses it to mint tokens
// for scripts.
func IssueToken(secret, issuer string, actor int64, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = strconv.FormatInt(actor, 10)
	if issuer != "" {
		claims.Issuer = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
