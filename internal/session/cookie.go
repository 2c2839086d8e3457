package session

import (
	"net/http"
	"time"
)

const CookieName = "refreshToken"

// CookieOptions defines how the refresh cookie is issued.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	TTL      time.Duration
}

// NewCookieOptions returns the options used in the given environment.
// Production cookies are Secure and scoped to the parent domain of baseURL.
func NewCookieOptions(production bool, baseURL string, ttl time.Duration) CookieOptions {
	opts := CookieOptions{
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		TTL:      ttl,
	}
	if production {
		opts.Secure = true
		opts.Domain = ParentDomain(baseURL)
	}
	return opts
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// SetRefreshCookie issues the refresh token cookie. Expiry is computed from
// now on every call.
func SetRefreshCookie(w http.ResponseWriter, token string, now time.Time, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  now.Add(opts.TTL),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearRefreshCookie expires the refresh cookie on the client.
func ClearRefreshCookie(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
