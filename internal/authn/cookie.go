package authn

import (
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"

	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/session"
)

// accountTicket is the decrypted payload of the account cookie.
type accountTicket struct {
	Username string `json:"username"`
	OpenID   string `json:"openid,omitempty"`
}

// Cookie authenticates requests carrying the encrypted account cookie, with
// an optional separate openid cookie, both verified under the process-wide
// shared secret. A tampered or stale cookie degrades to "unauthenticated",
// it never crashes the pipeline.
type Cookie struct {
	AccountCookie string
	OpenIDCookie  string

	codec *securecookie.SecureCookie
}

func NewCookie(accountCookie, openidCookie string, secret []byte) *Cookie {
	hashKey, blockKey := session.DeriveKeys(secret)
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Cookie{
		AccountCookie: accountCookie,
		OpenIDCookie:  openidCookie,
		codec:         codec,
	}
}

func (c *Cookie) Name() string { return "cookie" }

func (c *Cookie) Authenticate(r *http.Request, _ session.Session) (*identity.Identity, error) {
	raw, err := r.Cookie(c.AccountCookie)
	if err != nil {
		return nil, nil
	}

	var ticket accountTicket
	if err := c.codec.Decode(c.AccountCookie, raw.Value, &ticket); err != nil {
		return nil, fmt.Errorf("decode account cookie: %w", err)
	}
	if ticket.Username == "" {
		return nil, fmt.Errorf("account cookie carries no username")
	}

	id := identity.Identity{Username: ticket.Username, OpenID: ticket.OpenID}

	if c.OpenIDCookie != "" {
		if raw, err := r.Cookie(c.OpenIDCookie); err == nil {
			var openid string
			if err := c.codec.Decode(c.OpenIDCookie, raw.Value, &openid); err != nil {
				return nil, fmt.Errorf("decode openid cookie: %w", err)
			}
			id.OpenID = openid
		}
	}
	return &id, nil
}
