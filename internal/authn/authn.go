// Package authn resolves a caller identity from raw request credentials.
// Strategies run in configured order; the pipeline never rejects a request,
// it only decides who (if anyone) is asking.
package authn

import (
	"log/slog"
	"net/http"

	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/session"
)

// Strategy attempts to extract an identity from a request.
//
// Contract:
//   - (id, nil)  -> credential accepted, stop the chain
//   - (nil, nil) -> no credential of this kind present, try the next one
//   - (nil, err) -> credential present but malformed; the pipeline logs it
//     and treats it exactly like an absent credential
type Strategy interface {
	Name() string
	Authenticate(r *http.Request, sess session.Session) (*identity.Identity, error)
}

// Pipeline runs a statically declared ordered list of strategies.
type Pipeline struct {
	strategies []Strategy
}

func NewPipeline(strategies ...Strategy) *Pipeline {
	return &Pipeline{strategies: strategies}
}

// Run resolves the caller identity for the request. If the session already
// holds an identity, it is returned without invoking any strategy, so no
// redundant introspection or cookie decryption happens. The first strategy
// to produce an identity wins and its result overwrites the session.
func (p *Pipeline) Run(r *http.Request, sess session.Session) (identity.Identity, bool) {
	if id, ok := sess.Identity(); ok {
		return id, true
	}

	for _, s := range p.strategies {
		id, err := s.Authenticate(r, sess)
		if err != nil {
			slog.Warn("credential rejected", "strategy", s.Name(), "err", err)
			continue
		}
		if id == nil {
			continue
		}
		if !id.Valid() {
			slog.Warn("strategy produced identity without username", "strategy", s.Name())
			continue
		}
		sess.SetIdentity(*id)
		return *id, true
	}
	return identity.Identity{}, false
}
