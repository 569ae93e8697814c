package authz

import (
	"context"

	"github.com/cedadev/authgate/internal/identity"
	"github.com/cedadev/authgate/internal/resource"
)

// Mock is a fixed-answer authorizer for development and tests.
type Mock struct {
	Allow bool
	Err   error

	Calls        int
	LastSubject  *identity.Identity
	LastResource resource.Descriptor
}

func (m *Mock) Authorize(ctx context.Context, id *identity.Identity, res resource.Descriptor) (bool, error) {
	m.Calls++
	m.LastSubject = id
	m.LastResource = res
	if m.Err != nil {
		return false, m.Err
	}
	return m.Allow, nil
}
