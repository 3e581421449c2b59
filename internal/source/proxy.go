package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"

	"github.com/jmylchreest/streamrepair/internal/config"
)

// ErrUnsupportedProxyType is returned when a ProxyConfig names a scheme this
// package does not know how to dial.
var ErrUnsupportedProxyType = errors.New("source: unsupported proxy type")

// buildTransport returns an *http.Transport wired for cfg's proxy policy:
// "" leaves Proxy nil, "system" honors HTTP_PROXY/HTTPS_PROXY/NO_PROXY via
// http.ProxyFromEnvironment, "http"/"https" dial an explicit CONNECT proxy,
// and "socks5" dials an explicit SOCKS5 proxy via golang.org/x/net/proxy.
func buildTransport(cfg config.ProxyConfig) (*http.Transport, error) {
	transport := &http.Transport{}

	switch cfg.Type {
	case "":
		// No proxy.
	case "system":
		transport.Proxy = http.ProxyFromEnvironment
	case "http", "https":
		proxyURL, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("source: invalid proxy URL %q: %w", cfg.URL, err)
		}
		if cfg.Username != "" {
			proxyURL.User = url.UserPassword(cfg.Username, cfg.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	case "socks5":
		dialer, err := socks5Dialer(cfg)
		if err != nil {
			return nil, err
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
				return ctxDialer.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxyType, cfg.Type)
	}

	return transport, nil
}

func socks5Dialer(cfg config.ProxyConfig) (proxy.Dialer, error) {
	var auth *proxy.Auth
	if cfg.Username != "" {
		auth = &proxy.Auth{User: cfg.Username, Password: cfg.Password}
	}
	dialer, err := proxy.SOCKS5("tcp", cfg.URL, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("source: building socks5 dialer: %w", err)
	}
	return dialer, nil
}
