package metasphere

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brightstay/membership-api/pkg/provider"
)

// ErrUpstreamUnavailable marks a failed credential exchange: the identity
// endpoint was unreachable, answered non-2xx, or returned no usable token.
var ErrUpstreamUnavailable = errors.New("metasphere identity endpoint unavailable")

const (
	nonceDigits       = 32
	defaultTokenTTL   = 7200 * time.Second
	tokenFetchTimeout = 15 * time.Second
)

// Refresher obtains access tokens from a Metasphere identity endpoint by
// submitting a signed, single-use credential request.
type Refresher struct {
	provider   string
	tokenURL   string
	appKey     string
	appSecret  string
	httpClient *http.Client
	timeout    time.Duration
}

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	Provider  string
	TokenURL  string
	AppKey    string
	AppSecret string

	// HTTPClient lets callers share transport settings (TLS, proxies) with
	// the business-call client. Defaults to a dedicated client.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewRefresher creates a Refresher for one provider environment.
func NewRefresher(cfg RefresherConfig) *Refresher {
	r := &Refresher{
		provider:   cfg.Provider,
		tokenURL:   cfg.TokenURL,
		appKey:     cfg.AppKey,
		appSecret:  cfg.AppSecret,
		httpClient: cfg.HTTPClient,
		timeout:    cfg.Timeout,
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{}
	}
	if r.timeout <= 0 {
		r.timeout = tokenFetchTimeout
	}
	return r
}

// RefreshFunc adapts the Refresher to the token cache contract.
func (r *Refresher) RefreshFunc() provider.RefreshFunc {
	return r.Refresh
}

// Refresh issues one signed credential request. Every call generates a fresh
// nonce/signature pair; these are single-use and never reusable.
func (r *Refresher) Refresh(ctx context.Context) (*provider.Credential, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sign := Sign(r.appKey, nonce, r.appSecret)

	form := url.Values{}
	form.Set("appKey", r.appKey)
	form.Set("random", nonce)
	form.Set("sign", sign)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: token endpoint returned status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", ErrUpstreamUnavailable, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", ErrUpstreamUnavailable)
	}

	return &provider.Credential{
		Provider:  r.provider,
		Token:     tr.AccessToken,
		ExpiresAt: tr.expiresAt(time.Now()),
		Nonce:     nonce,
		Signature: sign,
	}, nil
}

// Sign computes the request signature: base64(SHA-256(secret || key || nonce)).
func Sign(appKey, nonce, appSecret string) string {
	sum := sha256.Sum256([]byte(appSecret + appKey + nonce))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// generateNonce returns a fixed-length decimal string from a CSPRNG.
func generateNonce() (string, error) {
	buf := make([]byte, nonceDigits)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	digits := make([]byte, nonceDigits)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}

// tokenResponse is the identity endpoint's reply. expireIn (TTL seconds) and
// expireTime (absolute epoch milliseconds) arrive as numbers or numeric
// strings depending on environment.
type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	ExpireIn     any    `json:"expireIn"`
	ExpireTime   any    `json:"expireTime"`
	GenerateTime string `json:"generateTime"`
}

// expiresAt resolves the credential expiry: absolute expireTime when present,
// else now + expireIn seconds, else now + the default TTL.
func (tr tokenResponse) expiresAt(now time.Time) time.Time {
	if ms := asNumber(tr.ExpireTime); ms > 0 {
		return time.UnixMilli(int64(ms))
	}
	if sec := asNumber(tr.ExpireIn); sec > 0 {
		return now.Add(time.Duration(sec) * time.Second)
	}
	return now.Add(defaultTokenTTL)
}

func asNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
