package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jay-neo/cinebase/internal/auth/handler"
	"github.com/jay-neo/cinebase/internal/auth/provider"
	"github.com/jay-neo/cinebase/internal/auth/provider/github"
	"github.com/jay-neo/cinebase/internal/auth/provider/google"
	"github.com/jay-neo/cinebase/internal/auth/resolver"
	"github.com/jay-neo/cinebase/internal/auth/token"
	"github.com/jay-neo/cinebase/internal/config"
	"github.com/jay-neo/cinebase/internal/logger"
	"github.com/jay-neo/cinebase/internal/middleware"
	"github.com/jay-neo/cinebase/internal/ratelimit"
	"github.com/jay-neo/cinebase/internal/session"
	"github.com/jay-neo/cinebase/internal/user"
)

func setupHTTP(ctx context.Context, cfg config.Config, infra *Infra) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	providers, err := setupProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}
	registry := provider.NewRegistry(providers...)

	tokens := token.New(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	cookie := session.NewCookieOptions(cfg.IsProduction(), cfg.BaseURL, cfg.RefreshTokenTTL)

	users := user.NewStore(infra.DB)

	var callbackMiddleware []gin.HandlerFunc
	if infra.Redis != nil && cfg.RateLimitEnabled() {
		limiter := ratelimit.NewRedisLimiter(infra.Redis.Client, cfg.CallbackRateLimit, cfg.CallbackRateWindow)
		callbackMiddleware = append(callbackMiddleware, ratelimit.Middleware(limiter))
	}

	authHandler := handler.NewHandler(
		registry,
		resolver.NewDBResolver(users),
		handler.NewResponder(users, tokens, cookie),
		handler.Options{
			ClientOrigins:      cfg.ClientOrigins,
			LoginRedirectURL:   cfg.LoginRedirectURL,
			CallbackMiddleware: callbackMiddleware,
		},
	)

	authMiddleware := middleware.NewAuthMiddleware(tokens, cookie)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestLog(),
		middleware.CORS(cfg.ClientOrigins),
		middleware.ErrorHandler(),
	)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hi from cinebase"})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ----------------------------
	// API Routes
	// ----------------------------

	api := router.Group("/api/v1")
	authHandler.RegisterRoutes(api, middleware.GinRequireAuth(authMiddleware))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	for _, route := range router.Routes() {
		logger.Debug("route", map[string]any{"method": route.Method, "path": route.Path})
	}
	logger.Info("oauth providers ready", map[string]any{"providers": authHandler.Providers()})

	return router, nil
}

// setupProviders builds the adapters whose credentials are configured.
func setupProviders(ctx context.Context, cfg config.Config) ([]provider.OAuthProvider, error) {
	client := &http.Client{Timeout: cfg.ProviderTimeout}

	var providers []provider.OAuthProvider

	if cfg.GoogleEnabled() {
		g, err := google.New(ctx, cfg.GoogleIssuer, google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			HTTPClient:   client,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, g)
	}

	if cfg.GitHubEnabled() {
		gh, err := github.New(github.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			HTTPClient:   client,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, gh)
	}

	if len(providers) == 0 {
		logger.Warn("no oauth provider configured", nil)
	}
	return providers, nil
}
