package transport

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrUnsupportedProxyScheme is returned for proxy URLs other than socks5.
	ErrUnsupportedProxyScheme = errors.New("unsupported proxy scheme: only socks5 is supported")

	// ErrNoSiteHost is returned when a cookie or headers are set without the
	// host they belong to.
	ErrNoSiteHost = errors.New("cookie and headers require a site host")

	// ErrProxyUnreachable is returned by CheckProxy when nothing listens on the proxy address.
	ErrProxyUnreachable = errors.New("proxy is not reachable")
)
