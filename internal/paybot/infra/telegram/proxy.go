package telegram

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ProxyConfig describes an outbound proxy. Every field is optional; a config
// without URL disables proxying. Values are used as given.
type ProxyConfig struct {
	URL  string `yaml:"url"`
	Port int    `yaml:"port"`
	Type string `yaml:"type"` // http, https, socks5 or socks5h
	Auth string `yaml:"auth"` // user:pass
}

// ProxyURL assembles the proxy URL. It returns nil when no proxy is configured.
func (p *ProxyConfig) ProxyURL() (*url.URL, error) {
	if p == nil || p.URL == "" {
		return nil, nil
	}

	raw := p.URL
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url %q: %w", p.URL, err)
	}

	if p.Type != "" {
		u.Scheme = strings.ToLower(p.Type)
	}
	if p.Port != 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(p.Port))
	}
	if p.Auth != "" {
		if user, pass, found := strings.Cut(p.Auth, ":"); found {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}

	return u, nil
}

// NewHTTPClient builds the HTTP client used for Bot API calls. Peer
// certificates are not verified. A proxy that cannot be parsed is reported by
// every request made through the client rather than here.
func NewHTTPClient(proxy *ProxyConfig) *http.Client {
	transport := &http.Transport{
		Proxy: nil,
		// Certificate verification is off for every Bot API request.
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: true}, // #nosec G402
		ForceAttemptHTTP2: true,
	}

	proxyURL, err := proxy.ProxyURL()
	switch {
	case err != nil:
		transport.Proxy = func(*http.Request) (*url.URL, error) { return nil, err }
	case proxyURL != nil:
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{Transport: transport}
}
