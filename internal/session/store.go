package session

import (
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"

	"github.com/cedadev/authgate/internal/identity"
)

// DeriveKeys expands the process-wide shared secret into the hash and block
// keys used for cookie signing and encryption.
func DeriveKeys(secret []byte) (hashKey, blockKey []byte) {
	h := sha256.Sum256(append([]byte("authgate-hash:"), secret...))
	b := sha256.Sum256(append([]byte("authgate-block:"), secret...))
	return h[:], b[:]
}

// Store loads and saves encrypted cookie sessions. The whole session value
// travels in the cookie, so no cross-request state lives in memory.
type Store struct {
	name   string
	codec  *securecookie.SecureCookie
	maxAge int
	secure bool
}

func NewStore(name string, secret []byte, maxAge int, secure bool) *Store {
	hashKey, blockKey := DeriveKeys(secret)
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(maxAge)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Store{name: name, codec: codec, maxAge: maxAge, secure: secure}
}

type payload struct {
	Identity        *identity.Identity `json:"identity,omitempty"`
	PendingResource string             `json:"pending_resource,omitempty"`
	OIDC            *OIDCState         `json:"oidc,omitempty"`
}

// Load decodes the request's session cookie. A missing, tampered or stale
// cookie degrades to a fresh empty session.
func (s *Store) Load(r *http.Request) *Cookie {
	sess := &Cookie{store: s}
	c, err := r.Cookie(s.name)
	if err != nil {
		return sess
	}
	if err := s.codec.Decode(s.name, c.Value, &sess.data); err != nil {
		slog.Warn("discarding undecodable session cookie", "err", err)
		sess.data = payload{}
	}
	return sess
}

// Cookie is the securecookie-backed Session implementation.
type Cookie struct {
	store *Store
	data  payload
	dirty bool
}

var _ Session = (*Cookie)(nil)

func (c *Cookie) Identity() (identity.Identity, bool) {
	if c.data.Identity == nil {
		return identity.Identity{}, false
	}
	return *c.data.Identity, true
}

// SetIdentity overwrites (never merges) the stored identity. Identities
// without a username are never stored.
func (c *Cookie) SetIdentity(id identity.Identity) {
	if !id.Valid() {
		return
	}
	c.data.Identity = &id
	c.dirty = true
}

func (c *Cookie) ClearIdentity() {
	if c.data.Identity == nil {
		return
	}
	c.data.Identity = nil
	c.dirty = true
}

func (c *Cookie) PendingResource() string { return c.data.PendingResource }

func (c *Cookie) SetPendingResource(uri string) {
	if c.data.PendingResource == uri {
		return
	}
	c.data.PendingResource = uri
	c.dirty = true
}

func (c *Cookie) OIDCState() (OIDCState, bool) {
	if c.data.OIDC == nil {
		return OIDCState{}, false
	}
	return *c.data.OIDC, true
}

func (c *Cookie) SetOIDCState(st OIDCState) {
	c.data.OIDC = &st
	c.dirty = true
}

func (c *Cookie) ClearOIDCState() {
	if c.data.OIDC == nil {
		return
	}
	c.data.OIDC = nil
	c.dirty = true
}

func (c *Cookie) Save(w http.ResponseWriter) error {
	if !c.dirty {
		return nil
	}
	value, err := c.store.codec.Encode(c.store.name, &c.data)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.store.name,
		Value:    value,
		Path:     "/",
		MaxAge:   c.store.maxAge,
		HttpOnly: true,
		Secure:   c.store.secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.dirty = false
	return nil
}
