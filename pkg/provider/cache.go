package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brightstay/membership-api/pkg/logger"
)

const (
	// DefaultExpirySkew is subtracted from a credential's advertised expiry
	// before trusting it, covering clock drift and network latency.
	DefaultExpirySkew = 2 * time.Minute

	// DefaultTTL applies when a refresh result carries no expiry at all.
	DefaultTTL = 15 * time.Minute
)

// TokenCache holds the current credential per provider and guarantees
// single-flight refresh semantics: while a refresh for a provider is in
// flight, every other caller for that provider waits on the same outcome
// instead of issuing its own upstream request.
type TokenCache struct {
	mu      sync.Mutex
	entries map[string]*entry

	skew       time.Duration
	defaultTTL time.Duration
	now        func() time.Time
	log        logger.LogManager
	metrics    *Metrics
}

type entry struct {
	cred     *Credential
	inFlight *refreshCall
}

// refreshCall is the shared handle joiners wait on. done is closed exactly
// once, after cred/err are set.
type refreshCall struct {
	done chan struct{}
	cred *Credential
	err  error
}

// CacheOption configures a TokenCache.
type CacheOption func(*TokenCache)

// WithExpirySkew overrides the validity safety margin.
func WithExpirySkew(d time.Duration) CacheOption {
	return func(tc *TokenCache) {
		if d > 0 {
			tc.skew = d
		}
	}
}

// WithDefaultTTL overrides the TTL applied to credentials without an expiry.
func WithDefaultTTL(d time.Duration) CacheOption {
	return func(tc *TokenCache) {
		if d > 0 {
			tc.defaultTTL = d
		}
	}
}

// WithClock injects the time source. Tests use this to pin expiry checks.
func WithClock(now func() time.Time) CacheOption {
	return func(tc *TokenCache) {
		if now != nil {
			tc.now = now
		}
	}
}

// WithCacheLogger sets a logger for cache lifecycle events.
func WithCacheLogger(l logger.LogManager) CacheOption {
	return func(tc *TokenCache) { tc.log = l }
}

// WithMetrics records refresh outcomes on the given collector.
func WithMetrics(m *Metrics) CacheOption {
	return func(tc *TokenCache) { tc.metrics = m }
}

// NewTokenCache creates an empty cache.
func NewTokenCache(opts ...CacheOption) *TokenCache {
	tc := &TokenCache{
		entries:    make(map[string]*entry),
		skew:       DefaultExpirySkew,
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

func (tc *TokenCache) getEntry(provider string) *entry {
	e, ok := tc.entries[provider]
	if !ok {
		e = &entry{}
		tc.entries[provider] = e
	}
	return e
}

// valid reports whether the entry's credential can still be trusted:
// now < expiresAt - skew.
func (tc *TokenCache) valid(e *entry) bool {
	return e.cred != nil && e.cred.Token != "" && tc.now().Before(e.cred.ExpiresAt.Add(-tc.skew))
}

func (tc *TokenCache) logEvent(event, provider string) {
	if tc.log != nil {
		tc.log.DebugF("token cache %s provider=%s", event, provider)
	}
}

// Credential returns a valid cached credential for the provider, refreshing
// through refresh if needed. Concurrent callers during a refresh all receive
// the same credential or the same error; the refresh function runs at most
// once per miss across the whole process.
func (tc *TokenCache) Credential(ctx context.Context, provider string, refresh RefreshFunc) (*Credential, error) {
	tc.mu.Lock()
	e := tc.getEntry(provider)

	if tc.valid(e) {
		cred := e.cred
		tc.mu.Unlock()
		tc.logEvent("cache_hit", provider)
		return cred, nil
	}

	if e.inFlight != nil {
		call := e.inFlight
		tc.mu.Unlock()
		tc.logEvent("refresh_join", provider)
		if tc.metrics != nil {
			tc.metrics.joins.WithLabelValues(provider).Inc()
		}
		<-call.done
		return call.cred, call.err
	}

	call := &refreshCall{done: make(chan struct{})}
	e.inFlight = call
	tc.mu.Unlock()
	tc.logEvent("refresh_start", provider)

	return tc.refreshAndPublish(ctx, provider, e, call, refresh)
}

// refreshAndPublish runs the refresh and publishes the outcome to joiners.
// The publish step is deferred so it runs even when the refresh function
// panics: the marker is cleared, done is closed, and the panic surfaces to
// the original caller and every joiner as an error. Without this a panic
// would leave the flight open forever and block all later callers for the
// provider.
func (tc *TokenCache) refreshAndPublish(ctx context.Context, provider string, e *entry, call *refreshCall, refresh RefreshFunc) (cred *Credential, err error) {
	defer func() {
		if r := recover(); r != nil {
			cred, err = nil, fmt.Errorf("provider %s: refresh panic: %v", provider, r)
		}
		tc.mu.Lock()
		call.cred, call.err = cred, err
		if err == nil {
			e.cred = cred
		} else {
			// Leave the cache empty so the next caller starts a fresh refresh
			// instead of reusing a failed result.
			e.cred = nil
		}
		e.inFlight = nil
		tc.mu.Unlock()
		close(call.done)
	}()

	return tc.runRefresh(ctx, provider, refresh)
}

// Token is Credential reduced to the bearer value.
func (tc *TokenCache) Token(ctx context.Context, provider string, refresh RefreshFunc) (string, error) {
	cred, err := tc.Credential(ctx, provider, refresh)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// runRefresh invokes the refresh function and normalizes its result.
func (tc *TokenCache) runRefresh(ctx context.Context, provider string, refresh RefreshFunc) (*Credential, error) {
	cred, err := refresh(ctx)
	if tc.metrics != nil {
		tc.metrics.observeRefresh(provider, err)
	}
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.Token == "" {
		return nil, fmt.Errorf("provider %s: %w", provider, ErrNoToken)
	}

	normalized := *cred
	normalized.Provider = provider
	normalized.IssuedAt = tc.now()
	if normalized.ExpiresAt.IsZero() {
		normalized.ExpiresAt = normalized.IssuedAt.Add(tc.defaultTTL)
	}
	return &normalized, nil
}

// Invalidate forces the next Credential call for the provider to refresh,
// regardless of apparent remaining validity. An in-flight refresh is not
// interrupted; its joiners still receive its outcome.
func (tc *TokenCache) Invalidate(provider string) {
	tc.mu.Lock()
	e := tc.getEntry(provider)
	e.cred = nil
	tc.mu.Unlock()
	tc.logEvent("invalidated", provider)
	if tc.metrics != nil {
		tc.metrics.invalidations.WithLabelValues(provider).Inc()
	}
}
