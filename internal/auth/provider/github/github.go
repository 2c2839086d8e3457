package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
	"github.com/jay-neo/cinebase/internal/auth/provider"
	"github.com/jay-neo/cinebase/internal/logger"
)

const (
	DefaultAPIBaseURL = "https://api.github.com"

	userAgent    = "cinebase-auth"
	acceptHeader = "application/vnd.github.v3+json"
	fallbackName = "GitHub User"
)

type Config struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client

	// Endpoint and APIBaseURL default to github.com.
	Endpoint   oauth2.Endpoint
	APIBaseURL string
}

type Provider struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	apiBaseURL   string
	client       *http.Client
	now          func() time.Time
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func New(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("github oauth config missing required fields")
	}
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = githuboauth.Endpoint
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	return &Provider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		endpoint:     cfg.Endpoint,
		apiBaseURL:   cfg.APIBaseURL,
		client:       cfg.HTTPClient,
		now:          time.Now,
	}, nil
}

func (p *Provider) Name() auth.Provider {
	return auth.ProviderGitHub
}

func (p *Provider) oauthConfig(clientOrigin string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  provider.RedirectURI(clientOrigin, auth.ProviderGitHub),
		Endpoint:     p.endpoint,
		Scopes:       []string{"user:email"},
	}
}

func (p *Provider) AuthCodeURL(clientOrigin string) string {
	return p.oauthConfig(clientOrigin).AuthCodeURL("")
}

func (p *Provider) ExchangeCode(ctx context.Context, clientOrigin, code string) (*auth.CanonicalIdentity, error) {
	identity, err := p.exchange(ctx, clientOrigin, code)
	if err != nil {
		logger.Warn("github authentication failed", map[string]any{"error": err.Error()})
		return nil, apperr.ProviderAuthentication(auth.ProviderGitHub.String(), err)
	}
	return identity, nil
}

func (p *Provider) exchange(ctx context.Context, clientOrigin, code string) (*auth.CanonicalIdentity, error) {
	ctx = provider.WithHTTPClient(ctx, p.client)
	cfg := p.oauthConfig(clientOrigin)

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	api := cfg.Client(ctx, tok)

	var u githubUser
	if err := p.get(ctx, api, "/user", &u); err != nil {
		return nil, err
	}
	if u.ID == 0 || u.Login == "" {
		return nil, errors.New("user response missing id or login")
	}

	email := u.Email
	if email == "" {
		if email, err = p.primaryEmail(ctx, api, u.Login); err != nil {
			return nil, err
		}
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	if name == "" {
		name = fallbackName
	}

	var avatar *string
	if u.AvatarURL != "" {
		avatar = &u.AvatarURL
	}

	return &auth.CanonicalIdentity{
		User: auth.ProviderUser{
			AccountID: strconv.FormatInt(u.ID, 10),
			Email:     email,
			Name:      name,
			Avatar:    avatar,
		},
		Token: provider.NormalizeToken(tok, p.now()),
	}, nil
}

// primaryEmail picks the first primary, verified address. Accounts without
// one fall back to the login's noreply address.
func (p *Provider) primaryEmail(ctx context.Context, api *http.Client, login string) (string, error) {
	var emails []githubEmail
	if err := p.get(ctx, api, "/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified && e.Email != "" {
			return e.Email, nil
		}
	}
	return login + "@users.noreply.github.com", nil
}

func (p *Provider) get(ctx context.Context, api *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := api.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
