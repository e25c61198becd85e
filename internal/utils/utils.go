package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/idna"
)

// Errors returned by NormalizeURL.
var (
	ErrEmptyURL    = errors.New("empty url")
	ErrMissingHost = errors.New("missing host")
)

// NormalizeURL returns a deterministic canonical form of raw or an error.
// Schemeless input is assumed https. The host is lowercased and IDN hosts are
// punycode-encoded, default ports and fragments are dropped, the path is
// cleaned without its trailing slash, and query params are sorted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", raw, err)
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)

	// Lowercase host and convert IDN -> punycode
	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	// Preserve non-default port only
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") || port == "" {
		u.Host = host
	} else {
		u.Host = net.JoinHostPort(host, port)
	}

	// Drop userinfo (credentials)
	u.User = nil

	cleanPath := path.Clean(u.Path)
	if cleanPath == "." {
		cleanPath = "/"
	}
	if len(cleanPath) > 1 {
		cleanPath = strings.TrimRight(cleanPath, "/")
	}
	u.Path = cleanPath

	u.Fragment = ""

	// Sort query keys and values for deterministic encoding
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	return u.String(), nil
}

// Hostname extracts the lowercased host from raw, without a leading "www.".
// Returns "" when raw is not parseable as a URL.
func Hostname(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// DomainBase returns the first label of host ("falabella" for
// "falabella.com").
func DomainBase(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	base, _, _ := strings.Cut(host, ".")
	return base
}

// VisibleText renders the text content of an HTML fragment, skipping script,
// style and noscript subtrees and collapsing runs of whitespace. When max > 0
// the result is truncated to max runes.
func VisibleText(fragment string, max int) string {
	tok := html.NewTokenizer(strings.NewReader(fragment))
	var parts []string
	skipDepth := 0
	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			out := strings.Join(parts, " ")
			out = strings.Join(strings.Fields(out), " ")
			if max > 0 {
				out = TruncateRunes(out, max)
			}
			return out
		case html.StartTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				if t := strings.TrimSpace(string(tok.Text())); t != "" {
					parts = append(parts, t)
				}
			}
		}
	}
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// FormatThousands renders n with dot thousands separators and no decimals,
// the way Chilean prices are written ("1.234.567").
func FormatThousands(n float64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%.0f", n)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
		if len(s) > lead {
			b.WriteByte('.')
		}
	}
	for i := lead; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte('.')
		}
	}
	return b.String()
}
