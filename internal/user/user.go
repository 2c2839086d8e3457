package user

import "errors"

var ErrNotFound = errors.New("user not found")

const (
	DefaultRole      = "user"
	AccountTypeOAuth = "oauth"
)

// User is the canonical local identity.
type User struct {
	ID                  string  `db:"id"`
	Name                string  `db:"name"`
	Email               string  `db:"email"`
	Username            *string `db:"username"`
	Avatar              *string `db:"avatar"`
	Role                string  `db:"role"`
	IsTwoFactorEnabled  bool    `db:"is_two_factor_enabled"`
	IsCredentialAccount bool    `db:"is_credential_account"`
}

// Account links a provider identity to a User. Provider and
// ProviderAccountID form its immutable key.
type Account struct {
	ID                string  `db:"id"`
	UserID            string  `db:"user_id"`
	Type              string  `db:"type"`
	Provider          string  `db:"provider"`
	ProviderAccountID string  `db:"provider_account_id"`
	AccessToken       *string `db:"access_token"`
	RefreshToken      *string `db:"refresh_token"`
	ExpiresAt         *int64  `db:"expires_at"`
	TokenType         *string `db:"token_type"`
	Scope             *string `db:"scope"`
	IDToken           *string `db:"id_token"`
}

// UpsertUserParams holds the fields written when the email is new.
type UpsertUserParams struct {
	Email  string
	Name   string
	Avatar *string
}
