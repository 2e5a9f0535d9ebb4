// Package transport builds the HTTP client used to fetch listing pages.
//
// The client has a request timeout, a cookie jar, a redirect limit and an
// optional SOCKS5 proxy. Site-specific cookies and headers from the site
// configuration are injected into every request, redirects included, by a
// wrapping RoundTripper.
package transport
