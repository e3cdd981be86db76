package sigv4

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NormalizePath ensures the request path begins with "/", defaulting to "/"
// when empty.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// EncodeRFC3986 percent-encodes every byte except the RFC 3986 unreserved
// characters (ALPHA / DIGIT / "-" / "." / "_" / "~").
func EncodeRFC3986(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// FormatQueryValue renders a query parameter value for canonicalization.
// Booleans encode as true/false, nil as the empty string, and floating
// values with up to 8 decimal digits, trailing zeros and trailing decimal
// point stripped.
func FormatQueryValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// CanonicalQueryString builds the SigV4 canonical query string. List values
// expand to one encoded pair per element; all pairs are percent-encoded,
// then the fully-encoded "key=value" strings are sorted lexicographically as
// whole strings and joined with "&". Sorting the encoded pairs (rather than
// the decoded keys) matches the server's verification rule and must not be
// changed.
func CanonicalQueryString(query map[string]any) string {
	if len(query) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(query))
	for key, value := range query {
		encodedKey := EncodeRFC3986(key)
		switch list := value.(type) {
		case []string:
			for _, item := range list {
				pairs = append(pairs, encodedKey+"="+EncodeRFC3986(item))
			}
		case []any:
			for _, item := range list {
				pairs = append(pairs, encodedKey+"="+EncodeRFC3986(FormatQueryValue(item)))
			}
		default:
			pairs = append(pairs, encodedKey+"="+EncodeRFC3986(FormatQueryValue(value)))
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// BuildCanonicalHeaders builds the canonical headers block and the signed
// headers list from a header map. Names are lower-cased, sorted
// lexicographically, and emitted as "name:trimmedValue\n"; the signed
// headers list is the same names joined by ";".
func BuildCanonicalHeaders(headers map[string]string) (canonicalHeaders, signedHeaders string) {
	lowered := make(map[string]string, len(headers))
	names := make([]string, 0, len(headers))
	for name, value := range headers {
		lower := strings.ToLower(name)
		names = append(names, lower)
		lowered[lower] = value
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(lowered[name]))
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}
