package identity

// Identity is the resolved caller identity produced by an authentication
// strategy. It is a value type: copied between pipeline stages, never shared.
type Identity struct {
	Username string   `json:"username"`
	Groups   []string `json:"groups,omitempty"`
	OpenID   string   `json:"openid,omitempty"`
}

// Subject returns the stable subject identifier used in decision queries.
// Falls back to the username when the authentication source supplied no
// separate subject id.
func (id Identity) Subject() string {
	if id.OpenID != "" {
		return id.OpenID
	}
	return id.Username
}

// Valid reports whether the identity may be stored as authenticated. An
// identity without a username never counts as authenticated.
func (id Identity) Valid() bool { return id.Username != "" }
