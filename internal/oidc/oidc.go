// Package oidc verifies bearer tokens issued by the configured identity
// provider so that authors can be identified by their "sub" claim.
package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/secureblog/secureblog/backend/go-services/pkg/middleware"
)

// Verifier adapts an OIDC ID token verifier to middleware.Verifier.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers issuer and returns a verifier for tokens minted for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider %s: %w", issuer, err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewStaticVerifier verifies tokens against a fixed key set. It is used when
// discovery is unavailable, for example in tests.
func NewStaticVerifier(issuer, clientID string, keys oidc.KeySet) *Verifier {
	return &Verifier{verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID})}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return tok, nil
}
