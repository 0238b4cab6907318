package kkdai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	youtube "github.com/kkdai/youtube/v2"
	"golang.org/x/net/proxy"
)

// headerTimeout bounds the wait for response headers. Bodies are audio
// streams, so the client itself has no overall timeout.
const headerTimeout = 15 * time.Second

// NewClient returns a YouTube client, optionally routed through an http,
// https or socks5 proxy.
func NewClient(proxyURL string) (*youtube.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: headerTimeout,
	}
	httpClient := &http.Client{Transport: transport}
	if proxyURL == "" {
		return &youtube.Client{HTTPClient: httpClient}, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", proxyURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5":
		dialer, err := proxy.FromURL(u, &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 10 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return &youtube.Client{HTTPClient: httpClient}, nil
}
