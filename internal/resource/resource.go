// Package resource derives the canonical URI of the originally requested
// resource from proxy-supplied request material. Values are attacker
// influenced and validated only for well-formedness.
package resource

import (
	"net/http"
	"strings"

	"github.com/cedadev/authgate/internal/session"
)

// Action is the access mode requested for a resource.
type Action string

const (
	ActionRead  Action = "Read"
	ActionWrite Action = "Write"
)

// ActionFor maps an HTTP method to an Action. Anything that can mutate is a
// Write; everything else, including unknown methods, reads.
func ActionFor(method string) Action {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return ActionWrite
	}
	return ActionRead
}

// Descriptor identifies the protected resource being requested. Built fresh
// per request, never stored.
type Descriptor struct {
	URI    string
	Action Action
}

// Resolver derives resource descriptors in a fixed priority order: the
// configured query key, then the proxy-injected header, then a value stashed
// in the session by a prior call.
type Resolver struct {
	QueryKey  string
	HeaderKey string

	// ServerURI is the public base of the resource server; header values
	// carry only the upstream path and are joined beneath it.
	ServerURI string
}

// Resolve returns the first non-empty match, or ok=false when nothing
// gate-worthy was asked for. Resolution does not modify the request or the
// session, so repeated calls yield the same result.
func (rs *Resolver) Resolve(r *http.Request, sess session.Session) (Descriptor, bool) {
	action := ActionFor(r.Method)
	if uri := r.URL.Query().Get(rs.QueryKey); uri != "" {
		return Descriptor{URI: uri, Action: action}, true
	}
	if origin := r.Header.Get(rs.HeaderKey); origin != "" {
		return Descriptor{URI: rs.join(origin), Action: action}, true
	}
	if uri := sess.PendingResource(); uri != "" {
		return Descriptor{URI: uri, Action: action}, true
	}
	return Descriptor{}, false
}

// Stash unconditionally overwrites the session-stashed resource URI so the
// post-login leg can recover the original target.
func (rs *Resolver) Stash(sess session.Session, uri string) {
	sess.SetPendingResource(uri)
}

func (rs *Resolver) join(origin string) string {
	base := strings.TrimRight(rs.ServerURI, "/")
	return base + "/" + strings.TrimLeft(origin, "/")
}
