package resolver

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
	"github.com/jay-neo/cinebase/internal/db"
	"github.com/jay-neo/cinebase/internal/logger"
	"github.com/jay-neo/cinebase/internal/user"
)

func init() {
	logger.SetOutput(io.Discard)
}

func openStore(t *testing.T) *user.Store {
	t.Helper()
	database, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "resolver.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return user.NewStore(database)
}

func identity(accountID, email, accessToken string, expiresIn int64) *auth.CanonicalIdentity {
	avatar := "https://img.example.com/" + accountID
	return &auth.CanonicalIdentity{
		User: auth.ProviderUser{
			AccountID: accountID,
			Email:     email,
			Name:      "User " + accountID,
			Avatar:    &avatar,
		},
		Token: auth.ProviderToken{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
			Scope:       "profile email",
		},
	}
}

func TestResolveCreatesUserAndAccount(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r := NewDBResolver(store)
	r.now = func() time.Time { return now }

	userID, err := r.Resolve(ctx, auth.ProviderGoogle, identity("g-1", "ada@example.com", "tok-1", 3600))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	u, err := store.FindByID(ctx, userID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if u.Email != "ada@example.com" || u.Name != "User g-1" || u.IsCredentialAccount {
		t.Errorf("user = %+v", u)
	}

	a, err := store.FindAccount(ctx, "google", "g-1")
	if err != nil {
		t.Fatalf("FindAccount: %v", err)
	}
	if a.UserID != userID || a.Type != user.AccountTypeOAuth {
		t.Errorf("account = %+v", a)
	}
	if a.ExpiresAt == nil || *a.ExpiresAt != now.Unix()+3600 {
		t.Errorf("ExpiresAt = %v, want %d", a.ExpiresAt, now.Unix()+3600)
	}
	if a.Scope == nil || *a.Scope != "profile email" {
		t.Errorf("Scope = %v, want it stored on create", a.Scope)
	}
}

func TestResolveIsIdempotentAndRefreshesTokens(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	r := NewDBResolver(store)

	first, err := r.Resolve(ctx, auth.ProviderGitHub, identity("42", "octo@example.com", "tok-1", 0))
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := r.Resolve(ctx, auth.ProviderGitHub, identity("42", "octo@example.com", "tok-2", 0))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first != second {
		t.Fatalf("user ids differ: %q vs %q", first, second)
	}

	accounts, err := store.ListAccounts(ctx, first)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("len(accounts) = %d, want 1", len(accounts))
	}
	if got := accounts[0].AccessToken; got == nil || *got != "tok-2" {
		t.Errorf("AccessToken = %v, want tok-2", got)
	}
	if accounts[0].ExpiresAt != nil {
		t.Errorf("ExpiresAt = %d, want NULL without a reported expiry", *accounts[0].ExpiresAt)
	}
}

func TestResolveLinksProvidersBySharedEmail(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	r := NewDBResolver(store)

	googleUser, err := r.Resolve(ctx, auth.ProviderGoogle, identity("g-7", "same@example.com", "g-tok", 3600))
	if err != nil {
		t.Fatalf("google Resolve: %v", err)
	}
	githubUser, err := r.Resolve(ctx, auth.ProviderGitHub, identity("7", "same@example.com", "gh-tok", 0))
	if err != nil {
		t.Fatalf("github Resolve: %v", err)
	}
	if googleUser != githubUser {
		t.Fatalf("same email resolved to %q and %q", googleUser, githubUser)
	}

	u, err := store.FindByID(ctx, googleUser)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if u.Name != "User g-7" {
		t.Errorf("Name = %q, second provider must not overwrite the profile", u.Name)
	}

	accounts, err := store.ListAccounts(ctx, googleUser)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("len(accounts) = %d, want 2", len(accounts))
	}
}

// failingStore runs the real transaction but fails the account write.
type failingStore struct {
	*user.Store
}

type failingTx struct {
	user.Tx
}

func (failingTx) UpsertAccount(context.Context, user.Account) error {
	return errors.New("disk full")
}

func (s failingStore) Transact(ctx context.Context, fn func(user.Tx) error) error {
	return s.Store.Transact(ctx, func(tx user.Tx) error {
		return fn(failingTx{Tx: tx})
	})
}

func TestResolveRollsBackOnAccountFailure(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	r := NewDBResolver(failingStore{Store: store})

	_, err := r.Resolve(ctx, auth.ProviderGoogle, identity("g-9", "partial@example.com", "tok", 3600))
	if !apperr.Is(err, apperr.KindReconciliation) {
		t.Fatalf("err = %v, want ReconciliationError", err)
	}
	if apperr.StatusOf(err) != 500 {
		t.Errorf("status = %d, want 500", apperr.StatusOf(err))
	}

	if _, err := store.FindByEmail(ctx, "partial@example.com"); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("FindByEmail err = %v, want ErrNotFound after rollback", err)
	}
}

func TestResolveRejectsIncompleteIdentity(t *testing.T) {
	r := NewDBResolver(openStore(t))

	if _, err := r.Resolve(context.Background(), auth.ProviderGoogle, nil); !apperr.Is(err, apperr.KindReconciliation) {
		t.Errorf("nil identity: err = %v", err)
	}
	if _, err := r.Resolve(context.Background(), auth.ProviderGoogle, identity("g-1", "", "tok", 0)); !apperr.Is(err, apperr.KindReconciliation) {
		t.Errorf("missing email: err = %v", err)
	}
}
