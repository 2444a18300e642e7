package session

import (
	"context"

	"drawboard/internal/models"
)

// Collaborator contracts the session layer consumes, defined here in
// the consumer package. The auth package implements both.

// TokenVerifier is the external identity collaborator.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// RoleResolver is the external permission collaborator. The resolved
// role is attached to the presence entry at join time as opaque data.
type RoleResolver interface {
	Resolve(ctx context.Context, identity *models.Identity, canvasID string) (models.Role, error)
}
