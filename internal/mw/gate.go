package mw

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cedadev/authgate/internal/authz"
	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/resource"
	"github.com/cedadev/authgate/internal/session"
)

// GateOpts configures the authorization gate.
type GateOpts struct {
	Resolver   *resource.Resolver
	Authorizer authz.Authorizer

	// ExemptPaths pass through with no resolution or decision query.
	ExemptPaths []string

	// Exempt, when set, is an additional exemption predicate.
	Exempt func(*http.Request) bool
}

// Gate is the per-request authorization orchestrator. Outcomes:
//
//	exempt route          -> pass through, nothing checked
//	no resource resolved  -> pass through, nothing gate-worthy asked for
//	decision permit       -> pass through
//	decision deny         -> 403 when an identity exists, else 401
//	decision service down -> 502, never mistaken for a business deny
func Gate(opts GateOpts) func(http.Handler) http.Handler {
	exempt := map[string]struct{}{}
	for _, p := range opts.ExemptPaths {
		exempt[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if opts.Exempt != nil && opts.Exempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := session.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			res, ok := opts.Resolver.Resolve(r, sess)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			// Stash for a potential interactive-login round trip.
			opts.Resolver.Stash(sess, res.URI)
			if err := sess.Save(w); err != nil {
				slog.Error("save session", "err", err)
			}

			var id *identity.Identity
			stored, authenticated := sess.Identity()
			if authenticated {
				id = &stored
			}

			allowed, err := opts.Authorizer.Authorize(r.Context(), id, res)
			if err != nil {
				slog.Error("decision query failed", "resource", res.URI, "err", err)
				if errors.Is(err, authz.ErrDecisionService) {
					http.Error(w, "Authorization service unavailable", http.StatusBadGateway)
				} else {
					http.Error(w, "Internal error", http.StatusInternalServerError)
				}
				return
			}

			if !allowed {
				// The distinction is identity presence, not the decision value.
				if authenticated {
					http.Error(w, "Forbidden", http.StatusForbidden)
				} else {
					http.Error(w, "Unauthenticated", http.StatusUnauthorized)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
