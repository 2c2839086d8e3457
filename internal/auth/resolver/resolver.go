package resolver

import (
	"context"

	"github.com/jay-neo/cinebase/internal/auth"
)

// Resolver determines which internal user an external identity belongs to.
// It is the only place where identity-to-user mapping logic lives.
type Resolver interface {
	Resolve(ctx context.Context, provider auth.Provider, identity *auth.CanonicalIdentity) (userID string, err error)
}
