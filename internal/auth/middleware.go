package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/utilities"
)

var (
	// ErrUnknownSubject means the token is valid but names no existing user.
	ErrUnknownSubject = fmt.Errorf("%w: unknown subject", ErrAuth)
	ErrInactive       = errors.New("inactive user")
)

// UserResolver turns a raw bearer token into the active user it names.
type UserResolver interface {
	ResolveBearer(ctx context.Context, token string) (*entity.User, error)
}

type userKey struct{}

func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// CurrentUser returns the user stored by RequireUser.
func CurrentUser(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(userKey{}).(*entity.User)
	return u, ok && u != nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireUser rejects requests without a valid bearer token for an active
// user and injects that user into the request context.
func RequireUser(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}
			u, err := resolver.ResolveBearer(r.Context(), token)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
			case errors.Is(err, ErrInactive):
				utilities.WriteError(w, http.StatusForbidden, "Inactive user")
			case errors.Is(err, ErrAuth):
				unauthorized(w, "Could not validate credentials")
			default:
				utilities.WriteError(w, http.StatusInternalServerError, "internal error")
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	utilities.WriteError(w, http.StatusUnauthorized, msg)
}
