package auth

import (
	"context"

	"drawboard/internal/models"
)

// ClaimsRoleResolver is the permission collaborator: it attaches a
// role to a presence entry at join time. Roles come from the "role"
// claim of the verified identity (or a per-canvas "roles" claim map);
// the engine never computes or enforces them.
type ClaimsRoleResolver struct {
	Default models.Role
}

// NewClaimsRoleResolver defaults unmapped users to editor.
func NewClaimsRoleResolver() *ClaimsRoleResolver {
	return &ClaimsRoleResolver{Default: models.RoleEditor}
}

// Resolve returns the role for a user on a canvas.
func (r *ClaimsRoleResolver) Resolve(ctx context.Context, identity *models.Identity, canvasID string) (models.Role, error) {
	if identity != nil {
		// Per-canvas override: {"roles": {"<canvasID>": "owner"}}
		if perCanvas, ok := identity.Claims["roles"].(map[string]any); ok {
			if role, ok := perCanvas[canvasID].(string); ok && role != "" {
				return models.Role(role), nil
			}
		}
		if role, ok := identity.Claims["role"].(string); ok && role != "" {
			return models.Role(role), nil
		}
	}
	return r.Default, nil
}
