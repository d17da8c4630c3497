package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the claims the portal reads from identity service tokens
type SessionClaims struct {
	jwt.RegisteredClaims
}
