package authz

import (
	"context"
	"fmt"
	"strings"

	fga "github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"

	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/resource"
)

// OpenFGA answers decision queries from an OpenFGA store. The resource URI
// becomes the object, the action the relation.
type OpenFGA struct {
	c *fga.OpenFgaClient
}

type OpenFGAConfig struct {
	APIURL   string
	StoreID  string
	APIToken string // optional
	ModelID  string // optional but recommended in prod
}

func NewOpenFGA(cfg OpenFGAConfig) (*OpenFGA, error) {
	conf := &fga.ClientConfiguration{
		ApiUrl:  cfg.APIURL,
		StoreId: cfg.StoreID,
	}
	if cfg.ModelID != "" {
		conf.AuthorizationModelId = cfg.ModelID
	}
	if cfg.APIToken != "" {
		conf.Credentials = &credentials.Credentials{
			Method: credentials.CredentialsMethodApiToken,
			Config: &credentials.Config{ApiToken: cfg.APIToken},
		}
	}

	client, err := fga.NewSdkClient(conf)
	if err != nil {
		return nil, fmt.Errorf("openfga_client_init: %w", err)
	}
	return &OpenFGA{c: client}, nil
}

func (o *OpenFGA) Authorize(ctx context.Context, id *identity.Identity, res resource.Descriptor) (bool, error) {
	user := "user:anonymous"
	if id != nil {
		user = "user:" + id.Subject()
	}

	checkReq := fga.ClientCheckRequest{
		User:     user,
		Relation: strings.ToLower(string(res.Action)), // "read" or "write"
		Object:   "resource:" + res.URI,
	}

	resp, err := o.c.Check(ctx).Body(checkReq).Execute()
	if err != nil {
		return false, fmt.Errorf("%w: fga check: %v", ErrDecisionService, err)
	}
	return resp.Allowed != nil && *resp.Allowed, nil
}
