package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
	"github.com/jay-neo/cinebase/internal/auth/provider"
	"github.com/jay-neo/cinebase/internal/auth/resolver"
	"github.com/jay-neo/cinebase/internal/logger"
	"github.com/jay-neo/cinebase/internal/middleware"
)

const (
	loginSuccessMessage = "Logged in successfully"
	endpointNotFound    = "Endpoint not found"
)

var errMissingIdentity = errors.New("auth gate attached no identity")

type Options struct {
	// ClientOrigins are the frontends allowed to start a login. The first
	// one is used when a request carries no Origin header.
	ClientOrigins []string

	// LoginRedirectURL receives users whose provider round-trip failed.
	LoginRedirectURL string

	// CallbackMiddleware runs before the callback handler, e.g. rate limiting.
	CallbackMiddleware []gin.HandlerFunc
}

type Handler struct {
	providers *provider.Registry
	resolver  resolver.Resolver
	responder *Responder
	opts      Options
	origins   map[string]struct{}
}

func NewHandler(
	registry *provider.Registry,
	resolver resolver.Resolver,
	responder *Responder,
	opts Options,
) *Handler {
	origins := make(map[string]struct{}, len(opts.ClientOrigins))
	for _, o := range opts.ClientOrigins {
		origins[o] = struct{}{}
	}
	return &Handler{
		providers: registry,
		resolver:  resolver,
		responder: responder,
		opts:      opts,
		origins:   origins,
	}
}

// RegisterRoutes mounts the auth routes under /auth. requireAuth guards
// the endpoints that need a session.
func (h *Handler) RegisterRoutes(r gin.IRouter, requireAuth gin.HandlerFunc) {
	g := r.Group("/auth")

	g.DELETE("/logout", h.logout)
	g.GET("/user", requireAuth, h.getUser)

	g.GET("/:provider", h.authURL)

	callback := append(append([]gin.HandlerFunc{}, h.opts.CallbackMiddleware...), h.callback)
	g.GET("/:provider/callback", callback...)
}

func (h *Handler) authURL(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		_ = c.Error(apperr.NotFound(endpointNotFound))
		return
	}

	origin, err := h.clientOrigin(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authUrl": p.AuthCodeURL(origin)})
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		_ = c.Error(apperr.NotFound(endpointNotFound))
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, h.opts.LoginRedirectURL)
		return
	}

	code := c.Query("code")
	if code == "" {
		_ = c.Error(apperr.BadRequest("Missing authorization code"))
		return
	}

	origin, err := h.clientOrigin(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	identity, err := p.ExchangeCode(c.Request.Context(), origin, code)
	if err != nil {
		logger.Warn("oauth code exchange failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.Redirect(http.StatusFound, h.opts.LoginRedirectURL)
		return
	}

	userID, err := h.resolver.Resolve(c.Request.Context(), p.Name(), identity)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.responder.RespondAuthenticated(c, userID, http.StatusAccepted, loginSuccessMessage); err != nil {
		_ = c.Error(err)
		return
	}

	logger.Info("login succeeded", map[string]any{
		"provider": providerName,
		"user_id":  userID,
		"ip":       c.ClientIP(),
	})
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(apperr.Internal(errMissingIdentity))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":             id.Public(),
		"isAuthByUsername": id.Username == c.Query("username"),
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.responder.Logout(c)
}

// clientOrigin picks the frontend the provider should redirect back to.
func (h *Handler) clientOrigin(c *gin.Context) (string, error) {
	origin := strings.TrimRight(c.GetHeader("Origin"), "/")
	if origin == "" {
		if len(h.opts.ClientOrigins) == 0 {
			return "", apperr.BadRequest("No client origin configured")
		}
		return h.opts.ClientOrigins[0], nil
	}
	if _, ok := h.origins[origin]; !ok {
		return "", apperr.BadRequest("Unknown client origin")
	}
	return origin, nil
}

// Providers reports which providers are mounted, for startup logs.
func (h *Handler) Providers() []auth.Provider {
	return h.providers.Names()
}
