package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"drawboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret)
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":  "user-alice",
			"name": "Alice",
		})

		identity, err := v.Verify(ctx, token)
		if err != nil {
			t.Fatalf("Verify error: %v", err)
		}
		if identity.UserID != "user-alice" {
			t.Errorf("UserID = %q, want user-alice", identity.UserID)
		}
		if identity.Name != "Alice" {
			t.Errorf("Name = %q, want Alice", identity.Name)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "some-other-secret", jwt.MapClaims{"sub": "user-alice"})

		if _, err := v.Verify(ctx, token); !errors.Is(err, ErrAuthFailure) {
			t.Errorf("error = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-alice",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		if _, err := v.Verify(ctx, token); !errors.Is(err, ErrAuthFailure) {
			t.Errorf("error = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{"name": "Nobody"})

		if _, err := v.Verify(ctx, token); !errors.Is(err, ErrAuthFailure) {
			t.Errorf("error = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := v.Verify(ctx, "not-a-jwt"); !errors.Is(err, ErrAuthFailure) {
			t.Errorf("error = %v, want ErrAuthFailure", err)
		}
	})
}

func TestClaimsRoleResolver(t *testing.T) {
	r := NewClaimsRoleResolver()
	ctx := context.Background()

	t.Run("default", func(t *testing.T) {
		role, err := r.Resolve(ctx, &models.Identity{UserID: "u"}, "canvas-1")
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		if role != models.RoleEditor {
			t.Errorf("role = %q, want editor", role)
		}
	})

	t.Run("role claim", func(t *testing.T) {
		identity := &models.Identity{
			UserID: "u",
			Claims: map[string]any{"role": "viewer"},
		}
		role, _ := r.Resolve(ctx, identity, "canvas-1")
		if role != models.RoleViewer {
			t.Errorf("role = %q, want viewer", role)
		}
	})

	t.Run("per-canvas override", func(t *testing.T) {
		identity := &models.Identity{
			UserID: "u",
			Claims: map[string]any{
				"role":  "viewer",
				"roles": map[string]any{"canvas-1": "owner"},
			},
		}

		role, _ := r.Resolve(ctx, identity, "canvas-1")
		if role != models.RoleOwner {
			t.Errorf("overridden role = %q, want owner", role)
		}
		role, _ = r.Resolve(ctx, identity, "canvas-2")
		if role != models.RoleViewer {
			t.Errorf("fallback role = %q, want viewer", role)
		}
	})
}
