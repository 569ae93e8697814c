package authn

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/oauth2"

	"github.com/cedadev/authgate/internal/httpx"
	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/session"
)

const providerCacheTTL = 5 * time.Minute

// OIDC is the callback leg of the interactive login flow. As a pipeline
// strategy it only applies mid-handshake: without provider state in the
// session the request is not part of an active login and the strategy steps
// aside.
type OIDC struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Keys         ClaimKeys

	// Client, when set, is used for discovery, token exchange and userinfo.
	Client *http.Client

	providers *ttlcache.Cache[string, *oidc.Provider]
}

func NewOIDC(issuer, clientID, clientSecret, redirectURL string, scopes []string, keys ClaimKeys) *OIDC {
	return &OIDC{
		Issuer:       issuer,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Keys:         keys,
		providers: ttlcache.New[string, *oidc.Provider](
			ttlcache.WithTTL[string, *oidc.Provider](providerCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, *oidc.Provider]()),
	}
}

func (o *OIDC) Name() string { return "oidc" }

// BeginLogin stores fresh handshake state in the session and returns the
// provider authorization URL to redirect the browser to.
func (o *OIDC) BeginLogin(r *http.Request, sess session.Session) (string, error) {
	provider, err := o.provider(r.Context())
	if err != nil {
		return "", fmt.Errorf("discover oidc provider: %w", err)
	}

	st := session.OIDCState{State: randToken(), Nonce: randToken()}
	sess.SetOIDCState(st)

	cfg := o.oauthConfig(provider, o.redirectURL(r))
	return cfg.AuthCodeURL(st.State, oidc.Nonce(st.Nonce)), nil
}

// Authenticate completes the handshake on the callback request. A state
// mismatch is a normal "login did not complete" outcome, reported as an
// error for the pipeline to log and degrade.
func (o *OIDC) Authenticate(r *http.Request, sess session.Session) (*identity.Identity, error) {
	st, ok := sess.OIDCState()
	if !ok {
		return nil, nil
	}
	q := r.URL.Query()
	if q.Get("code") == "" {
		// Handshake pending but this request is not the callback.
		return nil, nil
	}
	// One-shot state: consumed whether or not the exchange succeeds.
	defer sess.ClearOIDCState()

	if q.Get("state") != st.State {
		return nil, fmt.Errorf("oidc state mismatch")
	}

	ctx := r.Context()
	if o.Client != nil {
		ctx = oidc.ClientContext(ctx, o.Client)
	}

	provider, err := o.provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	cfg := o.oauthConfig(provider, o.redirectURL(r))
	token, err := cfg.Exchange(ctx, q.Get("code"))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	userInfo, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}

	var claims map[string]any
	if err := userInfo.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode userinfo claims: %w", err)
	}
	return identityFromClaims(claims, o.Keys)
}

// provider returns the discovered provider handle, cached by issuer so the
// discovery document is not refetched on every login.
func (o *OIDC) provider(ctx context.Context) (*oidc.Provider, error) {
	if item := o.providers.Get(o.Issuer); item != nil {
		return item.Value(), nil
	}
	if o.Client != nil {
		ctx = oidc.ClientContext(ctx, o.Client)
	}
	provider, err := oidc.NewProvider(ctx, o.Issuer)
	if err != nil {
		return nil, err
	}
	o.providers.Set(o.Issuer, provider, ttlcache.DefaultTTL)
	return provider, nil
}

func (o *OIDC) oauthConfig(provider *oidc.Provider, redirectURL string) oauth2.Config {
	scopes := o.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile"}
	}
	return oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}
}

// redirectURL is the configured callback, or one derived from the inbound
// request so single-host deployments need no explicit setting. Both legs of
// the handshake hit the same host, so the derived value is stable.
func (o *OIDC) redirectURL(r *http.Request) string {
	if o.RedirectURL != "" {
		return o.RedirectURL
	}
	return httpx.BaseURL(r) + "/login/callback"
}

func randToken() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
