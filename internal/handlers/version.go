package handlers

import (
	"net/http"

	"github.com/cedadev/authgate/internal/httpx"
	"github.com/cedadev/authgate/internal/version"
)

func Version(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, version.Get())
}
