package httpx

import "strings"

// ExtractBearerToken pulls the opaque token out of an RFC 6750 Authorization
// header value. Missing or non-Bearer headers report ok=false.
func ExtractBearerToken(authz string) (string, bool) {
	const prefix = "Bearer "
	if authz == "" || !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	token := strings.TrimSpace(authz[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
