// Package sigv4 implements AWS Signature Version 4 request signing: the
// canonical request representation, the chained HMAC-SHA256 key derivation,
// and the Authorization header assembly. The output is byte-exact; the
// remote server recomputes the same canonicalization and rejects any
// mismatch.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	// SigningAlgorithm identifies the SigV4 HMAC-SHA256 scheme.
	SigningAlgorithm = "AWS4-HMAC-SHA256"

	// EmptyStringSHA256 is the hex SHA-256 digest of the empty string, used
	// as the payload hash for bodiless requests.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	amzDateFormat   = "20060102T150405Z"
	dateStampFormat = "20060102"
	requestSuffix   = "aws4_request"
)

// Credentials hold the immutable SigV4 signing inputs. They require no
// synchronization for the lifetime of the client.
type Credentials struct {
	// AccessKeyID identifies the signing key pair in the credential scope.
	AccessKeyID string
	// SecretAccessKey seeds the HMAC key derivation chain.
	SecretAccessKey string
	// SessionToken is set when temporary credentials are in use (optional).
	SessionToken string
	// Region is the AWS region in the credential scope.
	Region string
	// Service is the signing service name (execute-api for API Gateway
	// fronted endpoints).
	Service string
	// Host is the endpoint host the requests are addressed to.
	Host string
}

// Input collects everything that participates in one signature.
type Input struct {
	Method string
	// Path must already be normalized (see NormalizePath).
	Path string
	Query map[string]any
	// Headers are the lower-cased headers included in the canonical request.
	// The signed-header list enumerates exactly these names.
	Headers map[string]string
	// Payload is the serialized request body ("" when absent).
	Payload string
	Time    time.Time
}

// Result carries the signature outcome plus the canonical derivations the
// transport layer reuses.
type Result struct {
	Authorization  string
	CanonicalQuery string
	SignedHeaders  string
	AmzDate        string
}

// Signer computes SigV4 authorization headers for a fixed credential set.
// It is safe for concurrent use.
type Signer struct {
	creds Credentials
}

// NewSigner creates a Signer for the given credentials.
func NewSigner(creds Credentials) *Signer {
	return &Signer{creds: creds}
}

// Sign builds the canonical request, derives the signing key, and returns
// the Authorization header value for the input.
func (s *Signer) Sign(in Input) Result {
	amzDate := FormatAmzDate(in.Time)
	dateStamp := FormatDateStamp(in.Time)

	canonicalQuery := CanonicalQueryString(in.Query)
	canonicalHeaders, signedHeaders := BuildCanonicalHeaders(in.Headers)
	payloadHash := HashSHA256Hex(in.Payload)

	canonicalRequest := BuildCanonicalRequest(
		in.Method,
		in.Path,
		canonicalQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	)

	scope := BuildCredentialScope(dateStamp, s.creds.Region, s.creds.Service)
	stringToSign := BuildStringToSign(amzDate, scope, canonicalRequest)
	signingKey := DeriveSigningKey(s.creds.SecretAccessKey, dateStamp, s.creds.Region, s.creds.Service)
	signature := BuildSignature(signingKey, stringToSign)

	return Result{
		Authorization:  BuildAuthorizationHeader(s.creds.AccessKeyID, scope, signedHeaders, signature),
		CanonicalQuery: canonicalQuery,
		SignedHeaders:  signedHeaders,
		AmzDate:        amzDate,
	}
}

// FormatAmzDate renders t in UTC as YYYYMMDD'T'HHMMSS'Z'.
func FormatAmzDate(t time.Time) string {
	return t.UTC().Format(amzDateFormat)
}

// FormatDateStamp renders t in UTC as YYYYMMDD. Both timestamps of a
// signature must come from the same instant.
func FormatDateStamp(t time.Time) string {
	return t.UTC().Format(dateStampFormat)
}

// HashSHA256Hex returns the lowercase hex SHA-256 digest of data.
func HashSHA256Hex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// HMACSHA256 computes HMAC-SHA256 of data with the given key.
func HMACSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// DeriveSigningKey performs the SigV4 key derivation chain. Each
// intermediate key is the binary HMAC output, never its hex encoding:
//
//	kDate    = HMAC("AWS4"+secret, dateStamp)
//	kRegion  = HMAC(kDate, region)
//	kService = HMAC(kRegion, service)
//	kSigning = HMAC(kService, "aws4_request")
func DeriveSigningKey(secret, dateStamp, region, service string) []byte {
	kDate := HMACSHA256([]byte("AWS4"+secret), []byte(dateStamp))
	kRegion := HMACSHA256(kDate, []byte(region))
	kService := HMACSHA256(kRegion, []byte(service))
	return HMACSHA256(kService, []byte(requestSuffix))
}

// BuildCredentialScope builds the date/region/service/aws4_request scope
// binding a signature to a specific day, region, and service.
func BuildCredentialScope(dateStamp, region, service string) string {
	return strings.Join([]string{dateStamp, region, service, requestSuffix}, "/")
}

// BuildCanonicalRequest joins the canonical request components with "\n".
// canonicalHeaders already ends in "\n", which yields the required blank
// line before the signed headers list.
func BuildCanonicalRequest(method, path, query, canonicalHeaders, signedHeaders, payloadHash string) string {
	return strings.Join([]string{
		method,
		path,
		query,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")
}

// BuildStringToSign builds the final signing input from the canonical
// request digest and the credential scope.
func BuildStringToSign(amzDate, credentialScope, canonicalRequest string) string {
	return strings.Join([]string{
		SigningAlgorithm,
		amzDate,
		credentialScope,
		HashSHA256Hex(canonicalRequest),
	}, "\n")
}

// BuildSignature computes the lowercase hex signature of stringToSign.
func BuildSignature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(HMACSHA256(signingKey, []byte(stringToSign)))
}

// BuildAuthorizationHeader assembles the Authorization header value. The
// header is added to the request after signing; it is never part of the
// canonical request itself.
func BuildAuthorizationHeader(accessKeyID, credentialScope, signedHeaders, signature string) string {
	var b strings.Builder
	b.WriteString(SigningAlgorithm)
	b.WriteString(" Credential=")
	b.WriteString(accessKeyID)
	b.WriteByte('/')
	b.WriteString(credentialScope)
	b.WriteString(", SignedHeaders=")
	b.WriteString(signedHeaders)
	b.WriteString(", Signature=")
	b.WriteString(signature)
	return b.String()
}
