// internal/normalize/normalize.go

// Package normalize holds the pure text and URL cleanup helpers shared by
// every extraction layer. Nothing here touches the network or the DOM; all
// functions are deterministic string-in, string-out transforms.
package normalize

import (
	"net/url"
	"strings"
)

// CleanText collapses whitespace runs (including non-breaking spaces) to
// single spaces, drops zero-width characters, and trims the result.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// TruncateAtWord shortens s to at most max runes, cutting at the last word
// boundary inside the window and appending an ellipsis. Strings already
// within the limit come back unchanged apart from whitespace cleanup.
func TruncateAtWord(s string, max int) string {
	s = CleanText(s)
	if max <= 0 || s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := runes[:max]
	if i := lastSpaceIndex(cut); i > 0 {
		cut = cut[:i]
	}
	out := strings.TrimRight(string(cut), " .,;:-")
	if out == "" {
		out = strings.TrimSpace(string(runes[:max]))
	}
	return out + "..."
}

func lastSpaceIndex(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

// ResolveURL resolves ref against base and returns an absolute http(s) URL
// with its fragment dropped, or "" when either part is malformed or the
// result is not web-addressable (javascript:, mailto:, data: and friends).
// Protocol-relative references ("//cdn/a.jpg") inherit the base scheme.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := b.ResolveReference(r)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if resolved.Host == "" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}
