package auth

// Provider is the closed set of account providers.
type Provider string

const (
	ProviderGoogle      Provider = "google"
	ProviderGitHub      Provider = "github"
	ProviderCredentials Provider = "credentials"
)

// ParseOAuthProvider accepts only providers that support the OAuth flow.
func ParseOAuthProvider(name string) (Provider, bool) {
	switch p := Provider(name); p {
	case ProviderGoogle, ProviderGitHub:
		return p, true
	}
	return "", false
}

func (p Provider) String() string {
	return string(p)
}

// CanonicalIdentity is the provider-neutral result of a code exchange.
// It carries facts only; reconciliation decides what they mean locally.
type CanonicalIdentity struct {
	User  ProviderUser
	Token ProviderToken
}

type ProviderUser struct {
	AccountID string
	Email     string
	Name      string
	Avatar    *string
}

type ProviderToken struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64 // seconds; 0 when the provider reported no expiry
	RefreshToken string
	Scope        string
	IDToken      string
}
