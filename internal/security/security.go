// Package security validates externally supplied target URLs and output
// file names before the rest of the system acts on them.
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Config controls URL validation.
type Config struct {
	// AllowPrivateHosts permits loopback and RFC 1918 targets. Keep this
	// off when URLs come from API clients to prevent server-side request
	// forgery against internal services.
	AllowPrivateHosts bool     `yaml:"allow_private_hosts" json:"allow_private_hosts"`
	BlockedHosts      []string `yaml:"blocked_hosts,omitempty" json:"blocked_hosts,omitempty"`
	MaxURLLength      int      `yaml:"max_url_length" json:"max_url_length"`
}

// DefaultConfig returns validation settings suitable for server mode.
func DefaultConfig() Config {
	return Config{
		AllowPrivateHosts: false,
		MaxURLLength:      2048,
	}
}

// Validator checks target URLs against the configured policy.
type Validator struct {
	config  Config
	blocked map[string]bool
}

// NewValidator creates a validator from configuration.
func NewValidator(cfg Config) *Validator {
	if cfg.MaxURLLength <= 0 {
		cfg.MaxURLLength = DefaultConfig().MaxURLLength
	}
	blocked := make(map[string]bool, len(cfg.BlockedHosts))
	for _, host := range cfg.BlockedHosts {
		blocked[strings.ToLower(strings.TrimSpace(host))] = true
	}
	return &Validator{config: cfg, blocked: blocked}
}

// ValidateTargetURL rejects URLs that must not be fetched: non-HTTP
// schemes, embedded credentials, blocked hosts, and private or loopback
// addresses unless explicitly allowed.
func (v *Validator) ValidateTargetURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if len(raw) > v.config.MaxURLLength {
		return fmt.Errorf("url exceeds maximum length of %d", v.config.MaxURLLength)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	switch parsed.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported scheme %q, only http and https are allowed", parsed.Scheme)
	}

	if parsed.User != nil {
		return fmt.Errorf("urls with embedded credentials are not allowed")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("url has no host")
	}
	if v.blocked[host] {
		return fmt.Errorf("host %q is blocked", host)
	}

	if !v.config.AllowPrivateHosts {
		if err := rejectPrivateHost(host); err != nil {
			return err
		}
	}

	return nil
}

// rejectPrivateHost refuses hosts that resolve trivially to internal
// address space. Only literal addresses and well-known names are checked;
// DNS resolution is intentionally not performed here.
func rejectPrivateHost(host string) error {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("host %q points at internal address space", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("ip %q points at internal address space", host)
	}
	return nil
}

// SanitizeFileName strips path separators and traversal sequences from an
// output file name supplied by a caller. The result is safe to join under
// the output directory.
func SanitizeFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("file name cannot be empty")
	}

	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", "\x00", "")
	cleaned := replacer.Replace(name)
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return "", fmt.Errorf("file name %q has no usable characters", name)
	}
	return cleaned, nil
}
