package auth

import "github.com/jay-neo/cinebase/internal/user"

// PublicIdentity is the user view returned to clients.
type PublicIdentity struct {
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	Username            string  `json:"username"`
	Avatar              *string `json:"avatar"`
	Role                string  `json:"role"`
	IsTwoFactorEnabled  bool    `json:"isTwoFactorEnabled"`
	IsCredentialAccount bool    `json:"isCredentialAccount"`
}

// PrivateIdentity is the claim set embedded in access and refresh tokens.
type PrivateIdentity struct {
	ID string `json:"id"`
	PublicIdentity
}

func NewPrivateIdentity(u *user.User) PrivateIdentity {
	return PrivateIdentity{
		ID:             u.ID,
		PublicIdentity: NewPublicIdentity(u),
	}
}

func NewPublicIdentity(u *user.User) PublicIdentity {
	username := ""
	if u.Username != nil {
		username = *u.Username
	}
	return PublicIdentity{
		Name:                u.Name,
		Email:               u.Email,
		Username:            username,
		Avatar:              u.Avatar,
		Role:                u.Role,
		IsTwoFactorEnabled:  u.IsTwoFactorEnabled,
		IsCredentialAccount: u.IsCredentialAccount,
	}
}

// Public drops the internal id.
func (p PrivateIdentity) Public() PublicIdentity {
	return p.PublicIdentity
}
