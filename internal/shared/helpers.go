// Package shared provides helpers used by more than one adapter.
package shared

import (
	"fmt"
	"net/url"
	"strings"
)

const maxErrorBody = 512

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
// The endpoint is redacted and the body is truncated.
func HTTPStatusError(status int, endpoint string, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return fmt.Errorf("status=%d url=%s", status, RedactURL(endpoint))
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Errorf("status=%d url=%s response=%s", status, RedactURL(endpoint), body)
}

// RedactURL drops credentials, path and query from an endpoint. RPC
// providers commonly embed API keys in any of them.
func RedactURL(endpoint string) string {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || parsed.Host == "" {
		return "<redacted>"
	}
	redacted := parsed.Scheme + "://" + parsed.Host
	if (parsed.Path != "" && parsed.Path != "/") || parsed.RawQuery != "" || parsed.User != nil {
		redacted += "/***"
	}
	return redacted
}
