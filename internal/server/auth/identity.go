// Package auth issues and verifies MegaVault session tokens and derives the
// request Identity from a session cookie or a bearer token.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/megavault/internal/common"
)

// Identity is the verified caller of a request. It is immutable for the
// request's lifetime and never persisted by the server.
type Identity struct {
	Email    string `json:"email"`
	FolderID string `json:"folderId"`
	IsActive bool   `json:"isActive"`
}

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the Identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// TokenFromRequest extracts the raw token, preferring the Authorization
// header over the session cookie. It returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(common.AuthorizationHeaderName); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if c, err := r.Cookie(common.SessionCookieName); err == nil {
		return c.Value
	}

	return ""
}

// Authenticate derives the Identity of r. A missing token yields
// common.ErrUnauthorized; a bad one wraps common.ErrInvalidToken; an
// inactive account is unauthorized too.
func Authenticate(r *http.Request, secretKey []byte) (Identity, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return Identity{}, common.ErrUnauthorized
	}

	id, err := ParseToken(token, secretKey)
	if err != nil {
		return Identity{}, err
	}

	if !id.IsActive {
		return Identity{}, common.ErrUnauthorized
	}

	return id, nil
}
