package authn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cedadev/authgate/internal/httpx"
	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/session"
)

// Bearer validates `Authorization: Bearer` tokens against a remote OAuth2
// token-introspection endpoint. Tokens are opaque to the gateway; the
// introspection response is the only source of truth.
type Bearer struct {
	IntrospectURL string
	ClientID      string
	ClientSecret  string
	Keys          ClaimKeys

	// Client makes the introspection call; timeout policy belongs to it.
	Client *http.Client
}

func (b *Bearer) Name() string { return "bearer" }

func (b *Bearer) Authenticate(r *http.Request, _ session.Session) (*identity.Identity, error) {
	token, ok := httpx.ExtractBearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, nil
	}

	claims, err := b.introspect(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return identityFromClaims(claims, b.Keys)
}

// introspect posts the token to the introspection endpoint. A single
// attempt, no retry: failure surfaces immediately to the pipeline.
func (b *Bearer) introspect(ctx context.Context, token string) (map[string]any, error) {
	form := url.Values{
		"client_id":     {b.ClientID},
		"client_secret": {b.ClientSecret},
		"token":         {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.IntrospectURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := b.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("introspection request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("introspection endpoint returned %d", resp.StatusCode)
	}

	var claims map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decode introspection response: %w", err)
	}
	if active, _ := claims["active"].(bool); !active {
		return nil, fmt.Errorf("token is not active")
	}
	return claims, nil
}

func (b *Bearer) httpClient() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}
