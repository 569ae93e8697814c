package handlers

import (
	"net/http"

	"github.com/cedadev/authgate/internal/session"
)

// VerifyHandler answers the reverse proxy's auth subrequest. Reaching it at
// all means the request passed every configured authorization check; the
// remaining job is to report the identity back to the proxy.
type VerifyHandler struct {
	RemoteUserHeader string
}

func NewVerifyHandler(remoteUserHeader string) *VerifyHandler {
	if remoteUserHeader == "" {
		remoteUserHeader = "X-Remote-User"
	}
	return &VerifyHandler{RemoteUserHeader: remoteUserHeader}
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		if id, ok := sess.Identity(); ok {
			w.Header().Set(h.RemoteUserHeader, id.Username)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Authorized"))
}
