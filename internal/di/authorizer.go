package di

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cedadev/authgate/internal/authz"
	"github.com/cedadev/authgate/internal/config"
)

// decisionClient reaches the external decision service. Timeout policy for
// the single-attempt calls lives here, not in the backends.
var decisionClient = &http.Client{Timeout: 15 * time.Second}

// ProvideAuthorizer builds the decision backend selected by configuration.
func ProvideAuthorizer(cfg *config.Config) (authz.Authorizer, error) {
	switch cfg.Authz.Backend {
	case "saml":
		return &authz.SAML{
			ServiceURL: cfg.Authz.SAML.ServiceURL,
			Issuer:     cfg.Authz.SAML.Issuer,
			Client:     decisionClient,
		}, nil
	case "opa":
		return &authz.OPA{
			URL:         cfg.Authz.OPA.URL,
			PackagePath: cfg.Authz.OPA.PackagePath,
			Rule:        cfg.Authz.OPA.Rule,
			Client:      decisionClient,
		}, nil
	case "fga":
		return authz.NewOpenFGA(authz.OpenFGAConfig{
			APIURL:   cfg.Authz.FGA.APIURL,
			StoreID:  cfg.Authz.FGA.StoreID,
			APIToken: cfg.Authz.FGA.APIToken,
			ModelID:  cfg.Authz.FGA.ModelID,
		})
	case "mock":
		return &authz.Mock{Allow: cfg.Authz.MockAllow}, nil
	default:
		return nil, fmt.Errorf("unknown authz backend %q", cfg.Authz.Backend)
	}
}
