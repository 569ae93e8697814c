package authn

import (
	"fmt"

	"github.com/cedadev/authgate/internal/identity"
)

// ClaimKeys names the fields an introspection or userinfo document stores
// identity claims under. Deployments override these per provider.
type ClaimKeys struct {
	Username string
	Groups   string
	OpenID   string
}

func (k ClaimKeys) withDefaults() ClaimKeys {
	if k.Username == "" {
		k.Username = "preferred_username"
	}
	if k.Groups == "" {
		k.Groups = "groups"
	}
	if k.OpenID == "" {
		k.OpenID = "openid"
	}
	return k
}

// identityFromClaims extracts the three identity fields from a claims
// document. The subject id defaults to the username when the source supplies
// none.
func identityFromClaims(claims map[string]any, keys ClaimKeys) (*identity.Identity, error) {
	keys = keys.withDefaults()

	username, _ := claims[keys.Username].(string)
	if username == "" {
		return nil, fmt.Errorf("claim %q missing or empty", keys.Username)
	}

	var groups []string
	if raw, ok := claims[keys.Groups].([]any); ok {
		for _, g := range raw {
			if s, ok := g.(string); ok {
				groups = append(groups, s)
			}
		}
	}

	openid, _ := claims[keys.OpenID].(string)
	if openid == "" {
		openid = username
	}

	return &identity.Identity{Username: username, Groups: groups, OpenID: openid}, nil
}
