package mw

import (
	"net/http"

	"github.com/cedadev/authgate/internal/session"
)

// WithSession loads the encrypted cookie session and attaches it to the
// request context. The session is scoped to this request/response cycle;
// nothing is cached across requests.
func WithSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := store.Load(r)
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		})
	}
}
