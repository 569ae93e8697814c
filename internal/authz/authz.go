// Package authz queries an external decision service for allow/deny
// verdicts. Backends are stateless per call and decisions are never cached:
// a resource's authorization can change between requests.
package authz

import (
	"context"
	"errors"

	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/resource"
)

// Decision is a verdict code returned by a decision service.
type Decision string

const (
	Permit        Decision = "Permit"
	Deny          Decision = "Deny"
	Indeterminate Decision = "Indeterminate"
)

// ErrDecisionService marks faults of the decision service itself: transport
// or protocol failures and indeterminate verdicts. Callers must keep these
// distinct from a legitimate deny; conflating them would hide a broken
// decision service behind 403s.
var ErrDecisionService = errors.New("decision service error")

// Authorizer answers whether an identity may access a resource. A nil
// identity means the caller is unauthenticated; backends query with an
// anonymous subject in that case rather than denying outright.
type Authorizer interface {
	Authorize(ctx context.Context, id *identity.Identity, res resource.Descriptor) (bool, error)
}
