package common

import (
	"net/url"
	"strings"
)

// NormalizeProfileURL canonicalizes a profile URL so that redundant
// submissions of the same profile compare equal: query parameters and
// fragments are stripped, the scheme and host are lowercased, and any
// trailing slash is removed. Invalid or empty input returns "".
func NormalizeProfileURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ""
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	return parsed.String()
}
