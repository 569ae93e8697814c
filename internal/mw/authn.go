package mw

import (
	"log/slog"
	"net/http"

	"github.com/cedadev/authgate/internal/authn"
	"github.com/cedadev/authgate/internal/session"
)

// Authenticate runs the authentication pipeline for every request and
// persists any newly established identity before the response body starts.
// It never rejects: deciding access is the gate's job.
func Authenticate(p *authn.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			p.Run(r, sess)

			if err := sess.Save(w); err != nil {
				slog.Error("save session", "err", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}
