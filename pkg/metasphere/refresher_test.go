package metasphere

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresherSubmitsSignedRequest(t *testing.T) {
	const (
		appKey    = "key-123"
		appSecret = "secret-456"
	)

	var seen struct {
		appKey string
		nonce  string
		sign   string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		seen.appKey = r.PostFormValue("appKey")
		seen.nonce = r.PostFormValue("random")
		seen.sign = r.PostFormValue("sign")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accessToken":"tok-xyz","expireIn":7200}`))
	}))
	defer srv.Close()

	r := NewRefresher(RefresherConfig{
		Provider:  "prod",
		TokenURL:  srv.URL,
		AppKey:    appKey,
		AppSecret: appSecret,
	})

	before := time.Now()
	cred, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, appKey, seen.appKey)
	require.Len(t, seen.nonce, 32)
	for _, c := range seen.nonce {
		assert.True(t, c >= '0' && c <= '9', "nonce must be decimal digits, got %q", seen.nonce)
	}

	sum := sha256.Sum256([]byte(appSecret + appKey + seen.nonce))
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), seen.sign)

	assert.Equal(t, "tok-xyz", cred.Token)
	assert.Equal(t, "prod", cred.Provider)
	assert.Equal(t, seen.nonce, cred.Nonce)
	assert.WithinDuration(t, before.Add(7200*time.Second), cred.ExpiresAt, 5*time.Second)
}

func TestRefresherNoncesAreSingleUse(t *testing.T) {
	var nonces []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		nonces = append(nonces, r.PostFormValue("random"))
		w.Write([]byte(`{"accessToken":"tok"}`))
	}))
	defer srv.Close()

	r := NewRefresher(RefresherConfig{TokenURL: srv.URL, AppKey: "k", AppSecret: "s"})
	for i := 0; i < 2; i++ {
		_, err := r.Refresh(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, nonces, 2)
	assert.NotEqual(t, nonces[0], nonces[1], "each refresh must generate a fresh nonce")
}

func TestRefresherPrefersAbsoluteExpiry(t *testing.T) {
	expireAt := time.Now().Add(3 * time.Hour).Truncate(time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accessToken":"tok","expireIn":60,"expireTime":"` +
			timeToMillis(expireAt) + `"}`))
	}))
	defer srv.Close()

	r := NewRefresher(RefresherConfig{TokenURL: srv.URL, AppKey: "k", AppSecret: "s"})
	cred, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expireAt.UnixMilli(), cred.ExpiresAt.UnixMilli())
}

func TestRefresherDefaultTTLWhenNoExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accessToken":"tok"}`))
	}))
	defer srv.Close()

	r := NewRefresher(RefresherConfig{TokenURL: srv.URL, AppKey: "k", AppSecret: "s"})
	before := time.Now()
	cred, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(7200*time.Second), cred.ExpiresAt, 5*time.Second)
}

func TestRefresherErrorPaths(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer srv.Close()

		r := NewRefresher(RefresherConfig{TokenURL: srv.URL, AppKey: "k", AppSecret: "s"})
		_, err := r.Refresh(context.Background())
		require.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("missing token in body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"expireIn":7200}`))
		}))
		defer srv.Close()

		r := NewRefresher(RefresherConfig{TokenURL: srv.URL, AppKey: "k", AppSecret: "s"})
		_, err := r.Refresh(context.Background())
		require.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		r := NewRefresher(RefresherConfig{TokenURL: "http://127.0.0.1:1", AppKey: "k", AppSecret: "s"})
		_, err := r.Refresh(context.Background())
		require.ErrorIs(t, err, ErrUpstreamUnavailable)
	})
}

func TestSignIsDeterministic(t *testing.T) {
	a := Sign("key", "1234", "secret")
	b := Sign("key", "1234", "secret")
	c := Sign("key", "5678", "secret")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func timeToMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
