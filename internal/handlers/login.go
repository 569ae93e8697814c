package handlers

import (
	"log/slog"
	"net/http"

	ua "github.com/mileusna/useragent"

	"github.com/cedadev/authgate/internal/authn"
	"github.com/cedadev/authgate/internal/resource"
	"github.com/cedadev/authgate/internal/session"
)

// LoginHandler drives the two-step interactive OIDC flow: the authorization
// redirect and the provider callback. The callback-side token exchange
// itself happens in the authentication pipeline's OIDC strategy; by the time
// Callback runs the session either holds an identity or it does not.
type LoginHandler struct {
	OIDC     *authn.OIDC
	Resolver *resource.Resolver
}

func NewLoginHandler(oidc *authn.OIDC, resolver *resource.Resolver) *LoginHandler {
	return &LoginHandler{OIDC: oidc, Resolver: resolver}
}

// Login starts the flow. Already-authenticated callers go straight to the
// resolved resource. The redirect dance needs a real browser, so anything
// unrecognisable as one is turned away.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	next := "/"
	if res, ok := h.Resolver.Resolve(r, sess); ok {
		next = res.URI
	}

	if _, authenticated := sess.Identity(); authenticated {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	agent := ua.Parse(r.UserAgent())
	if agent.Name == "" || agent.Bot {
		http.Error(w, "Browser not supported", http.StatusUnauthorized)
		return
	}

	h.Resolver.Stash(sess, next)
	authURL, err := h.OIDC.BeginLogin(r, sess)
	if err != nil {
		slog.Error("begin oidc login", "err", err)
		http.Error(w, "Identity provider unavailable", http.StatusBadGateway)
		return
	}
	if err := sess.Save(w); err != nil {
		slog.Error("save session", "err", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback finishes the flow. A provider state mismatch already degraded to
// "no identity" inside the pipeline, so the only signal needed here is
// whether the session came out authenticated.
func (h *LoginHandler) Callback(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	next := sess.PendingResource()
	if next == "" {
		next = "/"
	}

	if _, authenticated := sess.Identity(); authenticated {
		sess.SetPendingResource("")
		if err := sess.Save(w); err != nil {
			slog.Error("save session", "err", err)
		}
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	http.Error(w, "Failed to authenticate", http.StatusUnauthorized)
}
