package provider

import "context"

// CallWithAuth runs do with a cached token for the provider. If do fails and
// isUnauthorized classifies the failure as an authorization failure, the
// cached token is invalidated, refreshed, and do runs exactly once more;
// that second outcome is returned as-is. Every other failure propagates
// untouched. The retry is capped at one so a misbehaving upstream cannot
// trap callers in a loop and non-idempotent calls run at most twice.
func CallWithAuth[T any](
	ctx context.Context,
	cache *TokenCache,
	provider string,
	refresh RefreshFunc,
	isUnauthorized func(error) bool,
	do func(ctx context.Context, token string) (T, error),
) (T, error) {
	var zero T

	token, err := cache.Token(ctx, provider, refresh)
	if err != nil {
		return zero, err
	}

	result, err := do(ctx, token)
	if err == nil {
		return result, nil
	}
	if isUnauthorized == nil || !isUnauthorized(err) {
		return zero, err
	}

	cache.Invalidate(provider)
	token, err = cache.Token(ctx, provider, refresh)
	if err != nil {
		return zero, err
	}
	return do(ctx, token)
}
