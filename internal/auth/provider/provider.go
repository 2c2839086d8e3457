package provider

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/jay-neo/cinebase/internal/auth"
)

// OAuthProvider defines the contract every external auth provider
// must implement. Implementations return identity facts only and
// must not perform user creation, linking, or session management.
type OAuthProvider interface {
	Name() auth.Provider

	// AuthCodeURL returns the authorization URL for a client origin.
	AuthCodeURL(clientOrigin string) string

	// ExchangeCode trades the authorization code for provider tokens and
	// the user profile. The redirect URI must match the one AuthCodeURL used.
	ExchangeCode(ctx context.Context, clientOrigin, code string) (*auth.CanonicalIdentity, error)
}

// RedirectURI is the callback the client origin serves for a provider.
func RedirectURI(clientOrigin string, p auth.Provider) string {
	return clientOrigin + "/auth/" + p.String() + "/callback"
}

// NormalizeToken maps an oauth2 token response onto ProviderToken.
// ExpiresIn stays 0 when the provider reported no expiry.
func NormalizeToken(tok *oauth2.Token, now time.Time) auth.ProviderToken {
	out := auth.ProviderToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
	}
	if out.TokenType == "" {
		out.TokenType = "Bearer"
	}

	switch {
	case tok.ExpiresIn > 0:
		out.ExpiresIn = tok.ExpiresIn
	case !tok.Expiry.IsZero():
		if secs := int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second); secs > 0 {
			out.ExpiresIn = secs
		}
	}

	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = idToken
	}
	return out
}

// WithHTTPClient makes oauth2 and oidc calls on ctx use client.
func WithHTTPClient(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}
