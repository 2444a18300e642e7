package auth

import (
	"context"
	"errors"
	"fmt"

	"drawboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthFailure covers every invalid/expired identity token. The
// session layer fails authenticate and join attempts on it without
// creating partial state.
var ErrAuthFailure = errors.New("authentication failed")

// Verifier validates opaque identity tokens issued by the external
// identity provider. Tokens are HS256 JWTs whose subject is the user
// id; any further claims are carried through as opaque data.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier with the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the token and returns the resolved identity.
func (v *Verifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrAuthFailure)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrAuthFailure)
	}

	identity := &models.Identity{
		UserID: sub,
		Claims: map[string]any(claims),
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}
