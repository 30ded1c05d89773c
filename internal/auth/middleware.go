package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/celerhost/panel/internal/domain"
)

type contextKey string

const callerKey contextKey = "auth_caller"

// IdentityResolver re-reads the identity behind verified claims so deleted
// users fail closed and role changes apply immediately.
type IdentityResolver interface {
	ResolveCaller(ctx context.Context, claims *Claims) (domain.Caller, error)
}

// WithCaller stores the caller in ctx.
func WithCaller(ctx context.Context, c domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext extracts the authenticated caller from request context.
func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	c, ok := ctx.Value(callerKey).(domain.Caller)
	return c, ok
}

// Authenticate returns middleware that validates bearer tokens and resolves the
// caller. A nil resolver trusts the claims as issued.
func Authenticate(jwtMgr *JWTManager, resolver IdentityResolver) func(http.Handler) http.Handler {
	return authenticate(jwtMgr, resolver, false)
}

// AuthenticateQuery is Authenticate that also accepts ?token= for clients
// that cannot set headers (browser WebSocket handshakes).
func AuthenticateQuery(jwtMgr *JWTManager, resolver IdentityResolver) func(http.Handler) http.Handler {
	return authenticate(jwtMgr, resolver, true)
}

// RequireRole returns middleware that admits only callers holding one of roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	roleSet := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				writeError(w, domain.ErrUnauthorized("no auth context"))
				return
			}
			if !roleSet[caller.Role] {
				writeError(w, domain.ErrForbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(jwtMgr *JWTManager, resolver IdentityResolver, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := TokenFromRequest(r, allowQuery)
			if err != nil {
				writeError(w, domain.ErrUnauthorized(err.Error()))
				return
			}
			claims, err := jwtMgr.ValidateToken(token)
			if err != nil {
				writeError(w, domain.ErrUnauthorized("invalid or expired token"))
				return
			}

			caller := claims.Caller()
			if resolver != nil {
				caller, err = resolver.ResolveCaller(r.Context(), claims)
				if err != nil {
					if appErr, ok := domain.AsAppError(err); ok && appErr.Status < 500 {
						writeError(w, appErr)
					} else {
						writeError(w, domain.ErrInternal("internal server error", nil))
					}
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// TokenFromRequest extracts a bearer token from the Authorization header, or
// from the token query parameter when allowQuery is set.
func TokenFromRequest(r *http.Request, allowQuery bool) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if allowQuery {
			if t := r.URL.Query().Get("token"); t != "" {
				return t, nil
			}
		}
		return "", fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid Authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func writeError(w http.ResponseWriter, err *domain.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": err.Code, "message": err.Message})
}
