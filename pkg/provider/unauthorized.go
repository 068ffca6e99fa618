package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoToken is returned when a refresh completes without a usable token.
var ErrNoToken = errors.New("token refresh did not return a token")

// UnauthorizedError marks a failure as an authorization failure, making it
// eligible for the single invalidate-and-retry cycle in CallWithAuth. It is
// synthesized either from a transport-level 401 or from a 200 response whose
// body encodes token invalidity.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "provider token unauthorized"
	}
	return e.Message
}

// StatusError is a non-2xx upstream response, kept with enough body text for
// classification and route-level diagnostics.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// The upstream CRM signals auth failures inconsistently: sometimes a 401,
// sometimes a 200 whose body carries one of these phrases. The literal
// keyword sets are preserved from observed upstream behavior; swap the
// matching strategy here, not at call sites.
var errorPatterns = []string{
	"unauthorized",
	"invalid token",
	"token invalid",
	"token expired",
	"expire token",
	"access token",
}

// bodyPatterns is the narrower set applied to successful-response bodies.
// "access token" is excluded there: business responses legitimately echo the
// parameter name in validation messages.
var bodyPatterns = []string{
	"unauthorized",
	"invalid token",
	"token invalid",
	"token expired",
	"expire token",
}

func matchesAny(text string, patterns []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsUnauthorized reports whether err represents an upstream authorization
// failure: a 401 status, the internal UnauthorizedError marker, or error text
// matching the token-invalidity keyword set.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}

	var unauth *UnauthorizedError
	if errors.As(err, &unauth) {
		return true
	}

	var status *StatusError
	if errors.As(err, &status) {
		if status.StatusCode == http.StatusUnauthorized {
			return true
		}
		if matchesAny(status.Body, errorPatterns) {
			return true
		}
	}

	return matchesAny(err.Error(), errorPatterns)
}

// UnauthorizedFromBody inspects the message-bearing fields of a successful
// response body and returns an UnauthorizedError if they encode token
// invalidity, or nil otherwise. Callers must run this on every 200 response
// before trusting its data, so a "200 OK but semantically unauthorized"
// response is handled exactly like a transport-level 401.
func UnauthorizedFromBody(fields ...string) *UnauthorizedError {
	joined := strings.Join(fields, " ")
	if !matchesAny(joined, bodyPatterns) {
		return nil
	}
	for _, f := range fields {
		if strings.TrimSpace(f) != "" && matchesAny(f, bodyPatterns) {
			return &UnauthorizedError{Message: f}
		}
	}
	return &UnauthorizedError{}
}
