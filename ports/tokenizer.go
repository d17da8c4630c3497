package ports

import "time"

// Tokenizer reads metadata out of tokens issued by the identity service
type Tokenizer interface {
	// ExpiresAt returns the expiry carried by the token itself
	ExpiresAt(token string) (time.Time, error)
}
