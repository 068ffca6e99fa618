package metasphere

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightstay/membership-api/pkg/availability"
	"github.com/brightstay/membership-api/pkg/logger"
	"github.com/brightstay/membership-api/pkg/provider"
)

const defaultCallTimeout = 30 * time.Second

// Client calls Metasphere business endpoints with automatic token handling:
// every call goes through the shared token cache and is retried exactly once
// after invalidation when the upstream reports an authorization failure.
type Client struct {
	baseURL     string
	providerKey string
	httpClient  *http.Client
	tokens      *provider.TokenCache
	refresh     provider.RefreshFunc
	breaker     *gobreaker.CircuitBreaker[*Envelope]
	tracer      trace.Tracer
	log         logger.LogManager
	timeout     time.Duration
}

// ClientConfig configures a Client for one provider environment.
type ClientConfig struct {
	BaseURL  string
	Provider string
	Tokens   *provider.TokenCache
	Refresh  provider.RefreshFunc
	Logger   logger.LogManager

	// Timeout bounds each business call, token exchange excluded.
	Timeout time.Duration

	// HTTPClient is the transport for business calls, usually shared with
	// the Refresher. Defaults to NewHTTPClient(InsecureSkipVerify).
	HTTPClient *http.Client

	// InsecureSkipVerify disables upstream certificate verification. The
	// hosted Metasphere environments serve an incomplete chain, so
	// non-production deployments need this.
	InsecureSkipVerify bool
}

// NewHTTPClient builds the HTTP transport shared by the Client and the
// Refresher.
func NewHTTPClient(insecureSkipVerify bool) *http.Client {
	transport := &http.Transport{}
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Transport: transport}
}

// NewClient builds a Client. The circuit breaker opens after consecutive
// transport failures; authorization failures are excluded from its counts
// since they are recovered by the token retry, not by load shedding.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.InsecureSkipVerify)
	}

	breaker := gobreaker.NewCircuitBreaker[*Envelope](gobreaker.Settings{
		Name:        "metasphere-" + cfg.Provider,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || provider.IsUnauthorized(err)
		},
	})

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		providerKey: cfg.Provider,
		httpClient:  httpClient,
		tokens:      cfg.Tokens,
		refresh:     cfg.Refresh,
		breaker:     breaker,
		tracer:      otel.Tracer("metasphere"),
		log:         cfg.Logger,
		timeout:     timeout,
	}
}

// HTTPClient returns the transport the client sends business calls through.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// RateAndStatus fetches per-day status/price rows for a hotel over one
// window of at most 90 days.
func (c *Client) RateAndStatus(ctx context.Context, hotelID, startTime, endTime string) ([]availability.Row, error) {
	params := url.Values{}
	params.Set("hotelId", hotelID)
	params.Set("startTime", startTime)
	params.Set("endTime", endTime)

	// Endpoint name spelling is the upstream's.
	env, err := c.post(ctx, "GetRateAndStatus_Moblie", params)
	if err != nil {
		return nil, err
	}
	return c.rowsFromEnvelope(ctx, env)
}

// RateQuery parameterizes a guest-qualified rate lookup.
type RateQuery struct {
	HotelID   string
	StartDate string
	EndDate   string
	Adults    int
	Children  int
	Infants   int
	Pet       string // "yes" or "no"
	Currency  string
}

// RateAndAvailability fetches guest-qualified nightly rates per room type,
// including the booking-level fee amounts.
func (c *Client) RateAndAvailability(ctx context.Context, q RateQuery) ([]QuoteRow, error) {
	params := url.Values{}
	params.Set("hotelId", q.HotelID)
	params.Set("startDate", q.StartDate)
	params.Set("endDate", q.EndDate)
	params.Set("startTime", q.StartDate)
	params.Set("endTime", q.EndDate)
	params.Set("adults", fmt.Sprint(q.Adults))
	params.Set("children", fmt.Sprint(q.Children))
	params.Set("infaut", fmt.Sprint(q.Infants)) // upstream key spelling
	params.Set("pet", q.Pet)
	params.Set("currency", q.Currency)

	env, err := c.post(ctx, "GetRateAndAvailability_Moblie", params)
	if err != nil {
		return nil, err
	}
	if !env.Success() {
		return nil, &UpstreamError{Flag: string(env.Flag), Result: string(env.Result), Message: env.message()}
	}
	rows, err := DecodeQuoteRows(env.Data)
	if err != nil {
		if c.log != nil {
			c.log.WarnFCtx(ctx, "metasphere payload decode failed: %v", err)
		}
		return nil, err
	}
	return rows, nil
}

func (c *Client) rowsFromEnvelope(ctx context.Context, env *Envelope) ([]availability.Row, error) {
	if !env.Success() {
		return nil, &UpstreamError{Flag: string(env.Flag), Result: string(env.Result), Message: env.message()}
	}
	rows, err := DecodeRows(env.Data)
	if err != nil {
		if c.log != nil {
			c.log.WarnFCtx(ctx, "metasphere payload decode failed: %v", err)
		}
		return nil, err
	}
	return rows, nil
}

// post runs one authenticated call: token from the cache, request through
// the breaker, and a single invalidate-refresh-retry on auth failures.
func (c *Client) post(ctx context.Context, endpoint string, params url.Values) (*Envelope, error) {
	ctx = context.WithValue(ctx, logger.ProviderKey, c.providerKey)
	env, err := provider.CallWithAuth(ctx, c.tokens, c.providerKey, c.refresh, provider.IsUnauthorized,
		func(ctx context.Context, token string) (*Envelope, error) {
			return c.breaker.Execute(func() (*Envelope, error) {
				return c.doPost(ctx, endpoint, params, token)
			})
		})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return env, err
}

func (c *Client) doPost(ctx context.Context, endpoint string, params url.Values, token string) (*Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "metasphere."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("metasphere.provider", c.providerKey),
			attribute.String("metasphere.endpoint", endpoint),
		))
	defer span.End()

	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("token", token)

	reqURL := c.baseURL + "/" + endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("metasphere %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := &provider.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return nil, statusErr
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("metasphere %s: decode response: %w", endpoint, err)
	}

	// A 200 body can still say the token is bad; surface that as the same
	// auth failure a 401 would be.
	if unauth := env.Unauthorized(); unauth != nil {
		span.SetStatus(codes.Error, unauth.Error())
		return nil, unauth
	}

	span.SetAttributes(attribute.String("metasphere.flag", string(env.Flag)))
	return &env, nil
}

// UpstreamError is a business-level rejection: transport succeeded but the
// envelope reported failure. Never retried by the token layer.
type UpstreamError struct {
	Flag    string
	Result  string
	Message string
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request rejected"
	}
	return fmt.Sprintf("metasphere call failed (flag=%s result=%s): %s", e.Flag, e.Result, msg)
}

func (e *Envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	if e.MessageAlt != "" {
		return e.MessageAlt
	}
	return e.Response
}
