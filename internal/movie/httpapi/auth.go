package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCreator Role = "creator"
	RoleUser    Role = "user"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// Claims are issued by the identity service; this service only verifies
// them.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const principalKey contextKey = "principal"

type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeErrorJSON(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		p, err := a.verify(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeErrorJSON(w, http.StatusUnauthorized, "token expired")
				return
			}
			writeErrorJSON(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) verify(raw string) (Principal, error) {
	var claims Claims
	if _, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return Principal{}, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return Principal{}, errors.New("invalid subject")
	}
	switch claims.Role {
	case RoleAdmin, RoleCreator, RoleUser:
	default:
		return Principal{}, errors.New("unknown role")
	}
	return Principal{UserID: id, Role: claims.Role}, nil
}

// RequireRole lets through principals holding one of roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeErrorJSON(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(roles, p.Role) {
				writeErrorJSON(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
