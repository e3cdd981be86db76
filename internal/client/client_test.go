package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/orderforge/spapi-fulfill/internal/errors"
)

type stubTokenSource struct {
	token string
	err   error
}

func (s *stubTokenSource) AccessToken(ctx context.Context) (string, error) {
	return s.token, s.err
}

// newTestClient points a client with fixed credentials at the test server,
// downgrading the scheme so httptest's plain-HTTP listener is reachable.
func newTestClient(t *testing.T, server *httptest.Server, opts Options) *Client {
	t.Helper()
	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)

	if opts.AccessKeyID == "" {
		opts.AccessKeyID = "AKID"
	}
	if opts.SecretAccessKey == "" {
		opts.SecretAccessKey = "SECRET"
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	opts.Endpoint = parsed.Host

	c := New(opts, &stubTokenSource{token: "test-token"}, server.Client())
	c.scheme = "http"
	c.now = func() time.Time { return time.Date(2023, 1, 15, 8, 0, 0, 0, time.UTC) }
	return c
}

func TestDoSignedHeaders(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	_, err := c.Do(context.Background(), http.MethodPost, "/orders", nil, map[string]string{"id": "o-1"})
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "test-token", captured.Header.Get("X-Amz-Access-Token"))
	assert.Equal(t, "20230115T080000Z", captured.Header.Get("X-Amz-Date"))
	assert.Equal(t, "application/json; charset=utf-8", captured.Header.Get("Content-Type"))
	assert.Equal(t, DefaultUserAgent, captured.Header.Get("User-Agent"))
	assert.Empty(t, captured.Header.Get("X-Amz-Security-Token"))

	authPattern := regexp.MustCompile(
		`^AWS4-HMAC-SHA256 Credential=AKID/20230115/us-east-1/execute-api/aws4_request, ` +
			`SignedHeaders=content-type;host;user-agent;x-amz-access-token;x-amz-date, ` +
			`Signature=[0-9a-f]{64}$`,
	)
	assert.Regexp(t, authPattern, captured.Header.Get("Authorization"))
}

func TestDoGetOmitsContentType(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	_, err := c.Do(context.Background(), http.MethodGet, "/orders/o-1", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Empty(t, captured.Header.Get("Content-Type"))
	assert.NotContains(t, captured.Header.Get("Authorization"), "content-type")
}

func TestDoSessionTokenIsSigned(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{SessionToken: "session-token"})
	_, err := c.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "session-token", captured.Header.Get("X-Amz-Security-Token"))
	assert.Contains(t, captured.Header.Get("Authorization"),
		"SignedHeaders=host;user-agent;x-amz-access-token;x-amz-date;x-amz-security-token,")
}

func TestDoCanonicalQueryOnWire(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	_, err := c.Do(context.Background(), http.MethodGet, "/orders", map[string]any{
		"b": "2",
		"a": []string{"y", "x"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a=x&a=y&b=2", rawQuery)
}

func TestDoPathNormalization(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	_, err := c.Do(context.Background(), http.MethodGet, "orders", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/orders", path)

	_, err = c.Do(context.Background(), http.MethodGet, "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/", path)
}

func TestDoAPIErrorWithStructuredBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Unauthorized"}]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	_, err := c.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindAPI, appErr.Kind)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode)
	assert.Equal(t, "HTTP 403: Unauthorized", appErr.Message)
}

func TestDoAPIErrorWithUnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>internal error</html>`))
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	_, err := c.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.Equal(t, "HTTP 500", appErr.Message)
}

func TestDoSuccessWithUnparseableBodyDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	resp, err := c.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.NoError(t, err)

	assert.False(t, resp.HasJSON)
	assert.Equal(t, []byte(`not-json`), resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDoParsesJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payload":{"status":"Complete"}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	resp, err := c.Do(context.Background(), http.MethodGet, "/orders/o-1", nil, nil)
	require.NoError(t, err)

	require.True(t, resp.HasJSON)
	assert.Equal(t, "Complete", resp.JSON.Get("payload.status").String())
	assert.Equal(t, "application/json", resp.Headers["content-type"])
}

func TestDoPropagatesTokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the server when token acquisition fails")
	}))
	defer server.Close()

	c := newTestClient(t, server, Options{})
	c.tokens = &stubTokenSource{err: apperrors.NewAuth("refresh token revoked")}

	_, err := c.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuth))
}

func TestDoTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, server, Options{})
	server.Close()

	_, err := c.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransport), "expected transport error, got %v", err)
}

func TestSerializeBody(t *testing.T) {
	payload, err := serializeBody(map[string]string{"path": "a/b"})
	require.NoError(t, err)
	// Forward slashes stay unescaped.
	assert.Equal(t, `{"path":"a/b"}`, payload)

	payload, err = serializeBody(nil)
	require.NoError(t, err)
	assert.Equal(t, "", payload)

	_, err = serializeBody(func() {})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindEncoding))
}

func TestTransmitHeaderName(t *testing.T) {
	assert.Equal(t, "X-Amz-Date", TransmitHeaderName("x-amz-date"))
	assert.Equal(t, "Authorization", TransmitHeaderName("authorization"))
	assert.Equal(t, "Content-Type", TransmitHeaderName("content-type"))
	assert.Equal(t, "X-Amz-Access-Token", TransmitHeaderName("x-amz-access-token"))
}
