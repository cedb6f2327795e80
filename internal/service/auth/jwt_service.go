// Package auth verifies the bearer tokens that identify the reviewing user.
// Tokens are issued by the identity service and signed with a shared HMAC secret.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and verifies access tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for userID.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken verifies tokenString and extracts its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the verified content of an access token.
type Claims struct {
	UserID    uuid.UUID
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
