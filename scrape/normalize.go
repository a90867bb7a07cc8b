package scrape

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL trims raw and, when it carries no http:// or https:// prefix,
// assumes https. The result must parse as an absolute URL with a host.
// NormalizeURL is idempotent: normalizing its output returns it unchanged.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(s, "://") {
			return "", fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidURL, s)
		}
		s = "https://" + s
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", fmt.Errorf("%w: whitespace in %q", ErrInvalidURL, s)
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, s)
	}
	return s, nil
}

// HostTitle derives a display name from a URL: its host without a leading
// "www.". Unparseable input is returned as is.
func HostTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
