package tokenizer

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/ports"
)

// JWTTokenizer implements the Tokenizer interface for JWT session tokens.
// The portal never holds the identity service keys, so tokens are decoded
// without signature verification and only used to size cookie lifetimes.
type JWTTokenizer struct {
	parser *jwt.Parser
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer() ports.Tokenizer {
	return &JWTTokenizer{parser: jwt.NewParser()}
}

// ExpiresAt returns the exp claim of a JWT
func (j *JWTTokenizer) ExpiresAt(tokenStr string) (time.Time, error) {
	claims := &SessionClaims{}
	if _, _, err := j.parser.ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", core.ErrInvalidToken)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiry: %w", core.ErrInvalidToken)
	}

	return exp.Time, nil
}
