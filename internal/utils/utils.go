// internal/utils/utils.go
package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// NormalizeURL canonicalizes a URL for deduplication: lowercased host,
// default ports stripped, query sorted, trailing slash and fragment removed.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	u.Host = strings.ToLower(u.Host)

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = strings.TrimSuffix(u.Host, ":80")
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""

	return u.String(), nil
}

// Hostname extracts the lowercased host (without port) from a URL
func Hostname(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL has no host: %s", rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

// IsValidURL checks if a string is an absolute HTTP(S)-style URL
func IsValidURL(str string) bool {
	u, err := url.Parse(str)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// CleanFileName removes invalid characters from a filename
func CleanFileName(name string) string {
	re := regexp.MustCompile(`[<>:"/\\|?*]`)
	cleaned := re.ReplaceAllString(name, "_")

	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, ".")

	if len(cleaned) > 200 {
		cleaned = cleaned[:200]
	}
	if cleaned == "" {
		cleaned = "output"
	}

	return cleaned
}

// GenerateOutputFileName derives a filename from the target host and a timestamp
func GenerateOutputFileName(rawURL string, extension string) string {
	host, err := Hostname(rawURL)
	if err != nil || host == "" {
		host = "output"
	}
	host = CleanFileName(host)

	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s%s", host, timestamp, extension)
}

// TruncateString truncates a string to a maximum byte length, appending an
// ellipsis when the cut happened
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// ParseContentType extracts the media type from a Content-Type header value
func ParseContentType(contentType string) string {
	parts := strings.Split(contentType, ";")
	if len(parts) > 0 {
		return strings.TrimSpace(parts[0])
	}
	return contentType
}

// IsTextContent checks if a content type carries parseable text
func IsTextContent(contentType string) bool {
	textTypes := []string{
		"text/html",
		"text/plain",
		"text/xml",
		"application/xml",
		"application/xhtml+xml",
		"application/json",
	}

	ct := ParseContentType(contentType)
	for _, textType := range textTypes {
		if ct == textType {
			return true
		}
	}

	return strings.HasPrefix(ct, "text/")
}

// SanitizeSelector collapses whitespace inside a CSS selector expression.
// Model-proposed selectors regularly arrive padded or line-wrapped.
func SanitizeSelector(selector string) string {
	selector = strings.TrimSpace(selector)
	selector = regexp.MustCompile(`\s+`).ReplaceAllString(selector, " ")
	return selector
}
