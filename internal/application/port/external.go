package port

import (
	"context"

	"github.com/northdocs/docflow/internal/domain/entity"
)

// AuthResolver turns an opaque bearer token into an authenticated identity.
// Token issuance and the user directory are external; this service only
// consumes verification.
type AuthResolver interface {
	Resolve(ctx context.Context, token string) (*entity.Identity, error)
}
