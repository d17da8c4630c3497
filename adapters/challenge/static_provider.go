package challenge

import (
	"context"

	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/ports"
)

// StaticProvider hands out a fixed token. It is meant for local development
// against an identity service with challenge checks disabled.
type StaticProvider struct {
	Token string
}

// NewStaticProvider creates a provider returning token for every action
func NewStaticProvider(token string) ports.ChallengeProvider {
	return &StaticProvider{Token: token}
}

// Execute returns the configured token prefixed with the action name.
func (p *StaticProvider) Execute(ctx context.Context, action core.ChallengeAction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(action) + ":" + p.Token, nil
}
