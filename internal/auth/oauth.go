package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/storage"
)

// OAuthConfig holds the client registration for one provider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether a client id is set.
func (c OAuthConfig) Configured() bool {
	return c.ClientID != ""
}

// OAuth builds provider authorization URLs. Completing the code exchange is
// left to the redirect target.
type OAuth struct {
	providers map[string]*oauth2.Config
}

// NewOAuth registers the configured providers. Unconfigured ones are skipped.
func NewOAuth(googleCfg OAuthConfig) *OAuth {
	o := &OAuth{providers: map[string]*oauth2.Config{}}
	if googleCfg.Configured() {
		o.providers[constants.OAuthProviderGoogle] = &oauth2.Config{
			ClientID:     googleCfg.ClientID,
			ClientSecret: googleCfg.ClientSecret,
			RedirectURL:  googleCfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}
	return o
}

// AuthURL returns the authorization URL for provider. A non-empty redirectTo
// overrides the configured redirect URL.
func (o *OAuth) AuthURL(provider, redirectTo string) (string, error) {
	var cfg *oauth2.Config
	if o != nil {
		cfg = o.providers[provider]
	}
	if cfg == nil {
		return "", storage.NewError(storage.KindInvalid,
			fmt.Sprintf("Unsupported provider: provider %s is not enabled", provider), nil)
	}

	state, err := newState()
	if err != nil {
		return "", storage.NewError(storage.KindInternal, "failed to start OAuth flow", err)
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if redirectTo != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectTo))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
