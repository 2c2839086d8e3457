package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jay-neo/cinebase/internal/db"
)

const userColumns = `id, name, email, username, avatar, role, is_two_factor_enabled, is_credential_account`

const accountColumns = `id, user_id, type, provider, provider_account_id, access_token, refresh_token,
	expires_at, token_type, scope, id_token`

// Tx is the write surface available inside Store.Transact.
type Tx interface {
	UpsertUser(ctx context.Context, p UpsertUserParams) (string, error)
	UpsertAccount(ctx context.Context, a Account) error
}

type Store struct {
	db *db.DB
}

func NewStore(db *db.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user: find by id: %w", err)
	}
	return &u, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user: find by email: %w", err)
	}
	return &u, nil
}

// FindAccount looks up a linked account by its provider key.
func (s *Store) FindAccount(ctx context.Context, provider, providerAccountID string) (*Account, error) {
	var a Account
	err := s.db.GetContext(ctx, &a, s.db.Rebind(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE provider = ? AND provider_account_id = ?
	`), provider, providerAccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user: find account: %w", err)
	}
	return &a, nil
}

// ListAccounts returns every account linked to userID.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	var accounts []Account
	err := s.db.SelectContext(ctx, &accounts, s.db.Rebind(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = ?
		ORDER BY provider
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("user: list accounts: %w", err)
	}
	return accounts, nil
}

// Transact runs fn in one transaction. Any error from fn rolls everything back.
func (s *Store) Transact(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("user: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqlTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("user: commit: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

// UpsertUser creates the user for a new email. An existing user keeps its
// profile; only is_credential_account is forced false.
func (t *sqlTx) UpsertUser(ctx context.Context, p UpsertUserParams) (string, error) {
	if p.Email == "" {
		return "", errors.New("user: upsert requires an email")
	}

	var id string
	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(`
		INSERT INTO users (id, email, name, avatar, role, is_credential_account)
		VALUES (?, ?, ?, ?, ?, FALSE)
		ON CONFLICT (email) DO UPDATE
		SET is_credential_account = FALSE,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`), uuid.NewString(), p.Email, p.Name, p.Avatar, DefaultRole).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("user: upsert user: %w", err)
	}
	return id, nil
}

// UpsertAccount inserts the account or refreshes its token fields. The
// provider key and owning user never change on update.
func (t *sqlTx) UpsertAccount(ctx context.Context, a Account) error {
	if a.Provider == "" || a.ProviderAccountID == "" || a.UserID == "" {
		return errors.New("user: upsert account requires user, provider and provider account id")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Type == "" {
		a.Type = AccountTypeOAuth
	}

	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		INSERT INTO accounts (id, user_id, type, provider, provider_account_id,
			access_token, refresh_token, expires_at, token_type, scope, id_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_account_id) DO UPDATE
		SET access_token = excluded.access_token,
		    refresh_token = excluded.refresh_token,
		    expires_at = excluded.expires_at,
		    token_type = excluded.token_type,
		    scope = excluded.scope,
		    id_token = excluded.id_token,
		    updated_at = CURRENT_TIMESTAMP
	`),
		a.ID, a.UserID, a.Type, a.Provider, a.ProviderAccountID,
		a.AccessToken, a.RefreshToken, a.ExpiresAt, a.TokenType, a.Scope, a.IDToken,
	)
	if err != nil {
		return fmt.Errorf("user: upsert account: %w", err)
	}
	return nil
}
