package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
	"github.com/jay-neo/cinebase/internal/session"
)

// unexported, collision-proof context key
type identityContextKeyType struct{}

var identityKey = identityContextKeyType{}

const noUserMessage = "No user found"

// IdentityFromContext returns the identity attached by RequireAuth.
func IdentityFromContext(ctx context.Context) (auth.PrivateIdentity, bool) {
	id, ok := ctx.Value(identityKey).(auth.PrivateIdentity)
	return id, ok
}

// WithIdentity attaches id to ctx the way RequireAuth does.
func WithIdentity(ctx context.Context, id auth.PrivateIdentity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// TokenService is the subset of the token service the gate needs.
type TokenService interface {
	IssueAccessToken(auth.PrivateIdentity) (string, error)
	IssueRefreshToken(auth.PrivateIdentity) (string, error)
	VerifyAccessToken(string) (auth.PrivateIdentity, error)
	VerifyRefreshToken(string) (auth.PrivateIdentity, error)
}

// ErrorFunc renders an error the gate could not handle itself.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

type AuthMiddleware struct {
	Tokens  TokenService
	Cookie  session.CookieOptions
	OnError ErrorFunc
	Now     func() time.Time
}

func NewAuthMiddleware(tokens TokenService, cookie session.CookieOptions) *AuthMiddleware {
	return &AuthMiddleware{
		Tokens: tokens,
		Cookie: cookie,
		OnError: func(w http.ResponseWriter, _ *http.Request, err error) {
			apperr.Write(w, err)
		},
		Now: time.Now,
	}
}

// RequireAuth admits requests with a valid access token, or renews both
// tokens from a valid refresh cookie. Every admitted request gets a fresh
// access token in the Authorization response header.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := bearerToken(r.Header.Get("Authorization")); ok {
			if id, err := a.Tokens.VerifyAccessToken(raw); err == nil {
				access, err := a.Tokens.IssueAccessToken(id)
				if err != nil {
					a.fail(w, r, err)
					return
				}
				w.Header().Set("Authorization", "Bearer "+access)
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}
		}

		refresh, ok := RefreshTokenFromCookies(r.Header.Values("Cookie"))
		if !ok {
			writeJSONError(w, http.StatusNotFound, noUserMessage)
			return
		}

		id, err := a.Tokens.VerifyRefreshToken(refresh)
		if err != nil {
			a.fail(w, r, err)
			return
		}

		access, err := a.Tokens.IssueAccessToken(id)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		rotated, err := a.Tokens.IssueRefreshToken(id)
		if err != nil {
			a.fail(w, r, err)
			return
		}

		w.Header().Set("Authorization", "Bearer "+access)
		session.SetRefreshCookie(w, rotated, a.now(), a.Cookie)

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (a *AuthMiddleware) fail(w http.ResponseWriter, r *http.Request, err error) {
	if a.OnError == nil {
		apperr.Write(w, err)
		return
	}
	a.OnError(w, r, err)
}

func (a *AuthMiddleware) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// bearerToken extracts the token from "Bearer <token>". The scheme is
// case-insensitive; an empty or "null" token counts as absent.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || token == "null" {
		return "", false
	}
	return token, true
}
