package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cedadev/authgate/internal/session"
)

// Auth reports only the authentication state of the session, with no
// authorization query. Used by proxies that gate on "logged in at all".
func Auth(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		if _, authenticated := sess.Identity(); authenticated {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("Authorized"))
			return
		}
	}
	http.Error(w, "Unauthenticated", http.StatusUnauthorized)
}

// Logout drops the session identity and sends the browser back where it
// came from.
func Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		sess.ClearIdentity()
		if err := sess.Save(w); err != nil {
			slog.Error("save session", "err", err)
		}
	}
	next := r.URL.Query().Get("next")
	if next == "" {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// Home confirms the server is running.
func Home(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("The auth service is running"))
}
