package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// DecodeRedirect unwraps redirect-wrapper URLs such as l.facebook.com/l.php?u=...
// The target is taken from the "u" query parameter; URLs without it, and
// strings that do not parse, are returned unchanged.
func DecodeRedirect(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return raw
	}
	// Query().Get already percent-decodes the value
	if target := parsed.Query().Get("u"); target != "" {
		return target
	}
	return raw
}

// SearchURL builds the Ad Library search URL for a query and country
func SearchURL(base, country, query string) string {
	return fmt.Sprintf("%s/ads/library/?active_status=all&ad_type=all&country=%s&q=%s",
		strings.TrimRight(base, "/"), url.QueryEscape(country), url.QueryEscape(query))
}

// AdLibraryURL returns the public Ad Library permalink of an ad id
func AdLibraryURL(base, id string) string {
	return fmt.Sprintf("%s/ads/library/?id=%s", strings.TrimRight(base, "/"), url.QueryEscape(id))
}
