package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
	"github.com/jay-neo/cinebase/internal/auth/provider"
	"github.com/jay-neo/cinebase/internal/logger"
)

const (
	DefaultIssuer = "https://accounts.google.com"
	fallbackName  = "Google User"
)

type Config struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

type Provider struct {
	clientID     string
	clientSecret string
	oidc         *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	client       *http.Client
	now          func() time.Time
}

// New discovers the issuer's endpoints and builds the adapter.
func New(ctx context.Context, issuer string, cfg Config) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}

	oidcProvider, err := oidc.NewProvider(provider.WithHTTPClient(ctx, cfg.HTTPClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	return NewWithOIDC(oidcProvider, cfg), nil
}

// NewWithOIDC builds the adapter on an already resolved OIDC provider.
func NewWithOIDC(oidcProvider *oidc.Provider, cfg Config) *Provider {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		oidc:         oidcProvider,
		verifier:     oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		client:       client,
		now:          time.Now,
	}
}

func (p *Provider) Name() auth.Provider {
	return auth.ProviderGoogle
}

func (p *Provider) oauthConfig(clientOrigin string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  provider.RedirectURI(clientOrigin, auth.ProviderGoogle),
		Endpoint:     p.oidc.Endpoint(),
		Scopes:       []string{"profile", "email"},
	}
}

// AuthCodeURL asks for offline access so Google returns a refresh token.
func (p *Provider) AuthCodeURL(clientOrigin string) string {
	return p.oauthConfig(clientOrigin).AuthCodeURL("", oauth2.AccessTypeOffline)
}

func (p *Provider) ExchangeCode(ctx context.Context, clientOrigin, code string) (*auth.CanonicalIdentity, error) {
	identity, err := p.exchange(ctx, clientOrigin, code)
	if err != nil {
		logger.Warn("google authentication failed", map[string]any{"error": err.Error()})
		return nil, apperr.ProviderAuthentication(auth.ProviderGoogle.String(), err)
	}
	return identity, nil
}

func (p *Provider) exchange(ctx context.Context, clientOrigin, code string) (*auth.CanonicalIdentity, error) {
	ctx = provider.WithHTTPClient(ctx, p.client)

	tok, err := p.oauthConfig(clientOrigin).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("no access token returned")
	}

	token := provider.NormalizeToken(tok, p.now())

	if token.IDToken != "" {
		if _, err := p.verifier.Verify(ctx, token.IDToken); err != nil {
			return nil, fmt.Errorf("id_token verification: %w", err)
		}
	}

	info, err := p.oidc.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return nil, fmt.Errorf("user info: %w", err)
	}

	var profile struct {
		Name      string `json:"name"`
		GivenName string `json:"given_name"`
		Picture   string `json:"picture"`
	}
	if err := info.Claims(&profile); err != nil {
		return nil, fmt.Errorf("user info claims: %w", err)
	}
	if info.Subject == "" || info.Email == "" {
		return nil, errors.New("user info missing sub or email")
	}

	name := profile.Name
	if name == "" {
		name = profile.GivenName
	}
	if name == "" {
		name = fallbackName
	}

	var avatar *string
	if profile.Picture != "" {
		avatar = &profile.Picture
	}

	return &auth.CanonicalIdentity{
		User: auth.ProviderUser{
			AccountID: info.Subject,
			Email:     info.Email,
			Name:      name,
			Avatar:    avatar,
		},
		Token: token,
	}, nil
}
