package provider

import (
	"context"
	"time"
)

// Credential is a cached upstream access token for one provider.
type Credential struct {
	// Provider identifies the upstream account/environment this token
	// belongs to. Tokens are never shared across providers.
	Provider string

	// Token is the opaque bearer value passed on business calls.
	Token string

	// ExpiresAt is the absolute instant after which the token must not be
	// trusted. A zero value means the refresher supplied no expiry and the
	// cache applies its default TTL.
	ExpiresAt time.Time

	// Nonce and Signature are the request material the token was issued
	// against. Kept for diagnostics only; a fresh pair is generated on
	// every refresh.
	Nonce     string
	Signature string

	// IssuedAt is when the refresh completed, per the cache clock.
	IssuedAt time.Time
}

// RefreshFunc obtains a brand-new credential from the provider's identity
// endpoint. Implementations must not consult or mutate the cache.
type RefreshFunc func(ctx context.Context) (*Credential, error)
