// package endpoint normalizes free-form site input into a canonical https base URL.
package endpoint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/senseilabs/harmonyctl/internal/shared"
)

// DefaultSuffix is the shorthand domain appended to bare site names.
const DefaultSuffix = "senseilabs.com"

var (
	// Zero-width and directional characters that pasted codes tend to carry.
	zeroWidth = strings.NewReplacer(
		"\u200B", "", "\u200C", "", "\u200D", "",
		"\u200E", "", "\u200F", "", "\uFEFF", "",
	)
	httpURL = regexp.MustCompile(`(?i)^(https?)://([^/?#]+)(.*)$`)
	scheme  = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://`)
)

// Sanitize strips zero-width characters and surrounding whitespace from raw input.
func Sanitize(raw string) string {
	return strings.TrimSpace(zeroWidth.Replace(raw))
}

// Normalize turns free-form user or QR input into a canonical `https://host[/path]`
// base endpoint using [DefaultSuffix] for bare site names.
func Normalize(raw string) (string, error) {
	return NormalizeWithSuffix(raw, DefaultSuffix)
}

// NormalizeWithSuffix is [Normalize] with a configurable shorthand suffix.
//
// Accepted forms:
//   - full URL ("https://Example.com/Foo/"): host lower-cased, trailing slash trimmed
//   - bare host ("example.com/anything"): path discarded, https assumed
//   - bare label ("acme"): expanded to "https://acme.<suffix>"
//
// Any scheme other than http or https is rejected. The result never ends in a slash.
func NormalizeWithSuffix(raw, suffix string) (string, error) {
	value := Sanitize(raw)
	if value == "" {
		return "", fmt.Errorf("%w: empty input", shared.ErrInvalidEndpoint)
	}

	if m := httpURL.FindStringSubmatch(value); m != nil {
		host := strings.ToLower(strings.TrimSpace(m[2]))
		if host == "" {
			return "", fmt.Errorf("%w: missing host in %q", shared.ErrInvalidEndpoint, raw)
		}
		path := strings.TrimRight(m[3], "/")
		return "https://" + host + path, nil
	}

	if scheme.MatchString(value) {
		return "", fmt.Errorf("%w: unsupported scheme in %q", shared.ErrInvalidEndpoint, raw)
	}

	host := strings.ToLower(value)
	if idx := strings.IndexAny(host, "/?#"); idx >= 0 {
		host = host[:idx]
	}
	host = strings.Join(strings.Fields(host), "")
	if host == "" {
		return "", fmt.Errorf("%w: missing host in %q", shared.ErrInvalidEndpoint, raw)
	}

	if suffix != "" && !strings.Contains(host, ".") {
		host = host + "." + suffix
	}

	return "https://" + host, nil
}

// SiteFromURL extracts the shorthand site name from an endpoint for display,
// the inverse of the bare-label expansion in [NormalizeWithSuffix].
func SiteFromURL(value, suffix string) string {
	normalized, err := NormalizeWithSuffix(value, suffix)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(normalized, "https://")
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	if suffix != "" && strings.HasSuffix(host, "."+suffix) {
		return strings.TrimSuffix(host, "."+suffix)
	}
	return host
}
