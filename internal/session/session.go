// Package session models the per-request session bag behind a narrow
// capability interface so the core never depends on a concrete cookie
// implementation.
package session

import (
	"context"
	"net/http"

	"github.com/cedadev/authgate/internal/identity"
)

// OIDCState is the transient handshake state stashed between the login
// redirect and the provider callback.
type OIDCState struct {
	State string `json:"state"`
	Nonce string `json:"nonce"`
}

// Session holds at most one Identity and at most one pending resource URI.
// The pending resource is cleared or overwritten, never accumulated.
type Session interface {
	Identity() (identity.Identity, bool)
	SetIdentity(identity.Identity)
	ClearIdentity()

	PendingResource() string
	SetPendingResource(uri string)

	OIDCState() (OIDCState, bool)
	SetOIDCState(OIDCState)
	ClearOIDCState()

	// Save writes the session back to the response. Saving an unmodified
	// session is a no-op.
	Save(w http.ResponseWriter) error
}

type ctxKey struct{}

// NewContext attaches a session to the request context.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by the session middleware.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
