package session

import (
	"net/http"

	"github.com/cedadev/authgate/internal/identity"
)

// Fake is an in-memory Session for tests.
type Fake struct {
	ID        *identity.Identity
	Pending   string
	OIDC      *OIDCState
	SaveCount int
}

var _ Session = (*Fake)(nil)

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Identity() (identity.Identity, bool) {
	if f.ID == nil {
		return identity.Identity{}, false
	}
	return *f.ID, true
}

func (f *Fake) SetIdentity(id identity.Identity) {
	if !id.Valid() {
		return
	}
	f.ID = &id
}

func (f *Fake) ClearIdentity() { f.ID = nil }

func (f *Fake) PendingResource() string       { return f.Pending }
func (f *Fake) SetPendingResource(uri string) { f.Pending = uri }

func (f *Fake) OIDCState() (OIDCState, bool) {
	if f.OIDC == nil {
		return OIDCState{}, false
	}
	return *f.OIDC, true
}

func (f *Fake) SetOIDCState(st OIDCState) { f.OIDC = &st }
func (f *Fake) ClearOIDCState()           { f.OIDC = nil }

func (f *Fake) Save(http.ResponseWriter) error {
	f.SaveCount++
	return nil
}
