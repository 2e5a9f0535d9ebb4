package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout is the request timeout used when none is configured.
	DefaultTimeout = 30 * time.Second

	// MaxRedirects is the number of redirects followed before the last
	// response is returned as is.
	MaxRedirects = 10

	// checkProxyTimeout bounds the reachability check of the proxy.
	checkProxyTimeout = 2 * time.Second
)

type clientOptions struct {
	timeout time.Duration
	proxy   string
	cookie  string
	headers map[string]string
	host    string
}

// ClientOption configures NewHTTPClient.
type ClientOption func(*clientOptions)

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithProxy routes all connections through a SOCKS5 proxy.
// The address is "socks5://host:port" or plain "host:port".
func WithProxy(address string) ClientOption {
	return func(o *clientOptions) {
		o.proxy = strings.TrimSpace(address)
	}
}

// WithSiteHost sets the host ("host" or "host:port") whose requests receive
// the cookie and headers. Requests to any other host, including redirect
// targets, are sent without them.
func WithSiteHost(host string) ClientOption {
	return func(o *clientOptions) {
		o.host = strings.TrimSpace(host)
	}
}

// WithCookie adds a raw cookie string (e.g. "session=abc") to requests to the site host.
func WithCookie(cookie string) ClientOption {
	return func(o *clientOptions) {
		o.cookie = cookie
	}
}

// WithHeaders sets extra headers on requests to the site host.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) {
		o.headers = headers
	}
}

// NewHTTPClient creates the HTTP client for fetching pages.
func NewHTTPClient(opts ...ClientOption) (*http.Client, error) {
	o := &clientOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}

	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if o.proxy != "" {
		dialer, err := socksDialer(o.proxy)
		if err != nil {
			return nil, err
		}
		base.Proxy = nil
		base.DialContext = dialContext(dialer)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rt http.RoundTripper = base
	if o.cookie != "" || len(o.headers) > 0 {
		if o.host == "" {
			return nil, ErrNoSiteHost
		}
		rt = &headerInjectingTransport{
			base:    base,
			host:    o.host,
			cookie:  o.cookie,
			headers: o.headers,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   o.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// ProxyAddress normalizes a proxy setting to "host:port".
func ProxyAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if strings.Contains(address, "://") {
		u, err := url.Parse(address)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidProxyAddress, err)
		}
		if u.Scheme != "socks5" && u.Scheme != "socks5h" {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedProxyScheme, u.Scheme)
		}
		address = u.Host
	}

	if !isValidProxyAddress(address) {
		return "", ErrInvalidProxyAddress
	}
	return address, nil
}

// CheckProxy verifies that something accepts TCP connections on the proxy
// address. It does not speak SOCKS5.
func CheckProxy(ctx context.Context, address string) error {
	addr, err := ProxyAddress(address)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProxyUnreachable, addr, err)
	}
	return conn.Close()
}

func socksDialer(address string) (proxy.Dialer, error) {
	addr, err := ProxyAddress(address)
	if err != nil {
		return nil, err
	}

	var auth *proxy.Auth
	if u, err := url.Parse(address); err == nil && u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}

	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	return dialer, nil
}

func dialContext(dialer proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// headerInjectingTransport adds the configured cookie and headers to
// requests whose host matches host.
type headerInjectingTransport struct {
	base    http.RoundTripper
	host    string
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil || !strings.EqualFold(req.URL.Host, t.host) {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
