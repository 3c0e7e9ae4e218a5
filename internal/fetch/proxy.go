// internal/fetch/proxy.go
package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// proxyRotator hands out configured proxies round-robin, one per request
type proxyRotator struct {
	proxies []*url.URL
	index   int
	mu      sync.Mutex
}

func newProxyRotator(raw []string) (*proxyRotator, error) {
	proxies := make([]*url.URL, 0, len(raw))
	for _, entry := range raw {
		parsed, err := url.Parse(entry)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL %q", entry)
		}
		switch parsed.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q in %q", parsed.Scheme, entry)
		}
		proxies = append(proxies, parsed)
	}
	if len(proxies) == 0 {
		return nil, fmt.Errorf("proxy list is empty")
	}
	return &proxyRotator{proxies: proxies}, nil
}

// proxyFunc satisfies http.Transport.Proxy
func (r *proxyRotator) proxyFunc(_ *http.Request) (*url.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	proxy := r.proxies[r.index]
	r.index = (r.index + 1) % len(r.proxies)
	return proxy, nil
}
