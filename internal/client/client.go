// Package client provides the SigV4-signed HTTP client for the fulfillment
// API. It serializes the body, acquires a bearer token, canonicalizes and
// signs the request, executes exactly one transport attempt, and translates
// the response into a structured result or a typed error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	apperrors "github.com/orderforge/spapi-fulfill/internal/errors"
	"github.com/orderforge/spapi-fulfill/internal/sigv4"
)

const (
	// ServiceName is the SigV4 signing service for API Gateway fronted
	// endpoints.
	ServiceName = "execute-api"

	// DefaultTimeout bounds each transport attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies this client when the configuration does
	// not override it.
	DefaultUserAgent = "spapi-fulfill/1.0 (Language=Go)"
)

// TokenSource supplies bearer tokens for outbound requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Options configure a Client. AccessKeyID, SecretAccessKey, Region, and
// Endpoint are required; SessionToken and UserAgent are optional.
type Options struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	// Endpoint is the API host without scheme.
	Endpoint  string
	UserAgent string
}

// Response is the outcome of a successful signed API call.
type Response struct {
	// StatusCode is the HTTP status returned by the server.
	StatusCode int
	// Headers maps lower-cased header names to their first value.
	Headers map[string]string
	// Body is the raw response body, kept regardless of parseability.
	Body []byte
	// JSON is the parsed body. Valid only when HasJSON is true; a body that
	// fails to parse degrades to HasJSON=false, never to an error.
	JSON    gjson.Result
	HasJSON bool
}

// Client issues SigV4-signed requests with a bearer token from its
// TokenSource. The credentials are immutable for the client's lifetime, so
// a single instance is safe for concurrent use.
type Client struct {
	creds      sigv4.Credentials
	signer     *sigv4.Signer
	tokens     TokenSource
	httpClient *http.Client
	userAgent  string
	scheme     string
	now        func() time.Time
}

// New creates a Client. A nil httpClient falls back to a default client with
// the fixed 30-second timeout.
func New(opts Options, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	creds := sigv4.Credentials{
		AccessKeyID:     opts.AccessKeyID,
		SecretAccessKey: opts.SecretAccessKey,
		SessionToken:    opts.SessionToken,
		Region:          opts.Region,
		Service:         ServiceName,
		Host:            opts.Endpoint,
	}
	return &Client{
		creds:      creds,
		signer:     sigv4.NewSigner(creds),
		tokens:     tokens,
		httpClient: httpClient,
		userAgent:  userAgent,
		scheme:     "https",
		now:        time.Now,
	}
}

// Do performs one signed request. Query values may be strings, numbers,
// booleans, nil, or lists thereof; list values expand to one pair per
// element. A nil body sends an empty payload. Exactly one attempt is made;
// all failures surface immediately as typed errors.
func (c *Client) Do(ctx context.Context, method, path string, query map[string]any, body any) (*Response, error) {
	payload, err := serializeBody(body)
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	headers := map[string]string{
		"host":               c.creds.Host,
		"x-amz-date":         sigv4.FormatAmzDate(now),
		"x-amz-access-token": token,
		"user-agent":         c.userAgent,
	}
	// GET with no payload carries no content-type, on the wire or in the
	// canonical request.
	if !(method == http.MethodGet && payload == "") {
		headers["content-type"] = "application/json; charset=utf-8"
	}
	if c.creds.SessionToken != "" {
		headers["x-amz-security-token"] = c.creds.SessionToken
	}

	normalizedPath := sigv4.NormalizePath(path)
	signed := c.signer.Sign(sigv4.Input{
		Method:  method,
		Path:    normalizedPath,
		Query:   query,
		Headers: headers,
		Payload: payload,
		Time:    now,
	})
	// Added after signing; never part of the canonical request.
	headers["authorization"] = signed.Authorization

	endpoint := c.scheme + "://" + c.creds.Host + normalizedPath
	if signed.CanonicalQuery != "" {
		endpoint += "?" + signed.CanonicalQuery
	}

	var reqBody io.Reader
	if method != http.MethodGet && payload != "" {
		reqBody = strings.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, apperrors.NewTransport("failed to create request", err)
	}
	req.Host = c.creds.Host
	for name, value := range headers {
		if name == "host" {
			continue
		}
		// Direct map assignment keeps the segment-capitalized rendering
		// (x-amz-date -> X-Amz-Date) instead of net/http's canonical form.
		req.Header[TransmitHeaderName(name)] = []string{value}
	}

	log.Debugf("client: %s %s", method, endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransport(err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransport("failed to read response body", err)
	}

	headerMap := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headerMap[strings.ToLower(name)] = values[0]
		}
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    headerMap,
		Body:       raw,
	}
	if len(raw) > 0 && gjson.ValidBytes(raw) {
		response.JSON = gjson.ParseBytes(raw)
		response.HasJSON = true
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if response.HasJSON {
			if detail := response.JSON.Get("errors.0.message").String(); detail != "" {
				message += ": " + detail
			}
		}
		return nil, apperrors.NewAPI(resp.StatusCode, message)
	}

	return response, nil
}

// serializeBody renders the request body as JSON with forward slashes left
// unescaped. A nil body yields the empty string.
func serializeBody(body any) (string, error) {
	if body == nil {
		return "", nil
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(body); err != nil {
		return "", apperrors.NewEncoding("failed to serialize request body", err)
	}
	payload := strings.TrimSuffix(buf.String(), "\n")
	if payload == "" {
		return "", apperrors.NewEncoding("request body serialized to an empty string", nil)
	}
	return payload, nil
}

// TransmitHeaderName renders a lower-cased header name with each
// hyphen-delimited segment capitalized. Cosmetic only; canonicalization
// always uses the lower-cased names.
func TransmitHeaderName(name string) string {
	parts := strings.Split(name, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, "-")
}
