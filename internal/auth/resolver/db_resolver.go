package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
	"github.com/jay-neo/cinebase/internal/logger"
	"github.com/jay-neo/cinebase/internal/user"
)

// Store is the transactional surface of user.Store.
type Store interface {
	Transact(ctx context.Context, fn func(user.Tx) error) error
}

// DBResolver links provider identities to users by email.
type DBResolver struct {
	store Store
	now   func() time.Time
}

func NewDBResolver(store Store) *DBResolver {
	return &DBResolver{store: store, now: time.Now}
}

// Resolve upserts the user and the linked account in one transaction.
// An existing user keeps its profile; the account's tokens are refreshed.
func (r *DBResolver) Resolve(ctx context.Context, provider auth.Provider, identity *auth.CanonicalIdentity) (string, error) {
	if identity == nil {
		return "", apperr.Reconciliation(errors.New("identity is nil"))
	}
	if identity.User.Email == "" || identity.User.AccountID == "" {
		return "", apperr.Reconciliation(errors.New("identity missing email or account id"))
	}

	var userID string
	err := r.store.Transact(ctx, func(tx user.Tx) error {
		id, err := tx.UpsertUser(ctx, user.UpsertUserParams{
			Email:  identity.User.Email,
			Name:   identity.User.Name,
			Avatar: identity.User.Avatar,
		})
		if err != nil {
			return err
		}

		if err := tx.UpsertAccount(ctx, r.account(id, provider, identity)); err != nil {
			return err
		}

		userID = id
		return nil
	})
	if err != nil {
		return "", apperr.Reconciliation(err)
	}

	logger.Info("identity reconciled", map[string]any{
		"provider": provider.String(),
		"user_id":  userID,
	})
	return userID, nil
}

func (r *DBResolver) account(userID string, provider auth.Provider, identity *auth.CanonicalIdentity) user.Account {
	tok := identity.Token

	var expiresAt *int64
	if tok.ExpiresIn > 0 {
		v := r.now().Unix() + tok.ExpiresIn
		expiresAt = &v
	}

	return user.Account{
		UserID:            userID,
		Type:              user.AccountTypeOAuth,
		Provider:          provider.String(),
		ProviderAccountID: identity.User.AccountID,
		AccessToken:       optional(tok.AccessToken),
		RefreshToken:      optional(tok.RefreshToken),
		ExpiresAt:         expiresAt,
		TokenType:         optional(tok.TokenType),
		Scope:             optional(tok.Scope),
		IDToken:           optional(tok.IDToken),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
