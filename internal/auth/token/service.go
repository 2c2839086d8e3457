// Package token issues and verifies the access and refresh tokens that carry
// a user's PrivateIdentity. It holds no state beyond its configuration.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

var (
	errEmptySecret = errors.New("signing secret is empty")
	errMissingID   = errors.New("token has no subject id")
)

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Now overrides the clock for issuing and verifying. Defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// claims flattens the identity next to the registered timing claims.
type claims struct {
	auth.PrivateIdentity
	jwt.RegisteredClaims
}

func New(cfg Config) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           cfg.Now,
	}
}

func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *Service) IssueAccessToken(id auth.PrivateIdentity) (string, error) {
	return s.issue(id, s.accessSecret, s.accessTTL)
}

func (s *Service) IssueRefreshToken(id auth.PrivateIdentity) (string, error) {
	return s.issue(id, s.refreshSecret, s.refreshTTL)
}

func (s *Service) VerifyAccessToken(raw string) (auth.PrivateIdentity, error) {
	return s.verify(raw, s.accessSecret)
}

func (s *Service) VerifyRefreshToken(raw string) (auth.PrivateIdentity, error) {
	return s.verify(raw, s.refreshSecret)
}

func (s *Service) issue(id auth.PrivateIdentity, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", apperr.Signing(errEmptySecret)
	}

	now := s.now()
	c := claims{
		PrivateIdentity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", apperr.Signing(err)
	}
	return signed, nil
}

func (s *Service) verify(raw string, secret []byte) (auth.PrivateIdentity, error) {
	if len(secret) == 0 {
		return auth.PrivateIdentity{}, apperr.InvalidToken(errEmptySecret)
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return auth.PrivateIdentity{}, apperr.InvalidToken(err)
	}
	if c.PrivateIdentity.ID == "" {
		return auth.PrivateIdentity{}, apperr.InvalidToken(errMissingID)
	}

	return c.PrivateIdentity, nil
}
