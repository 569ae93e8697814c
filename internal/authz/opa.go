package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/resource"
)

// OPA queries an Open Policy Agent data API rule. The rule receives
// {input: {resource, subject, action}} and answers {result: bool}; a
// missing result field denies.
type OPA struct {
	URL         string
	PackagePath string
	Rule        string

	Client *http.Client
}

type opaSubject struct {
	User   string   `json:"user"`
	Groups []string `json:"groups"`
}

type opaInput struct {
	Resource string      `json:"resource"`
	Subject  *opaSubject `json:"subject"`
	Action   string      `json:"action"`
}

type opaQuery struct {
	Input opaInput `json:"input"`
}

func (o *OPA) Authorize(ctx context.Context, id *identity.Identity, res resource.Descriptor) (bool, error) {
	query := opaQuery{
		Input: opaInput{
			Resource: res.URI,
			Action:   string(res.Action),
		},
	}
	if id != nil {
		query.Input.Subject = &opaSubject{User: id.Username, Groups: id.Groups}
	}

	body, err := json.Marshal(query)
	if err != nil {
		return false, fmt.Errorf("%w: encode query: %v", ErrDecisionService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.ruleURL(), bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: build request: %v", ErrDecisionService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient().Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: query %s: %v", ErrDecisionService, o.ruleURL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: policy endpoint returned %d", ErrDecisionService, resp.StatusCode)
	}

	var verdict struct {
		Result *bool `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("%w: decode verdict: %v", ErrDecisionService, err)
	}
	if verdict.Result == nil {
		// Undefined rule result defaults to deny.
		return false, nil
	}
	return *verdict.Result, nil
}

// ruleURL composes the data API path for the configured package and rule,
// e.g. package "authgate.authz" rule "allow" -> /v1/data/authgate/authz/allow.
func (o *OPA) ruleURL() string {
	pkg := strings.Trim(strings.ReplaceAll(o.PackagePath, ".", "/"), "/")
	return strings.TrimRight(o.URL, "/") + "/v1/data/" + pkg + "/" + o.Rule
}

func (o *OPA) httpClient() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}
