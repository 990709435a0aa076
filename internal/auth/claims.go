package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const TokenTypeAccess TokenType = "access"

// Claims are the only supported JWT claims shape for this service.
// ActorID identifies the operator (or service account) calling the API.
// Authorization is decided server-side from Role by internal/rbac.
type Claims struct {
	jwt.RegisteredClaims

	ActorID   string    `json:"actor_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
