package model

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoOrigin is returned when a URL has no scheme or host to derive an origin from.
var ErrNoOrigin = errors.New("url has no scheme or host")

// Origin is the scheme and host of a fetched page.
// It is derived once per page and never cached across pages.
type Origin struct {
	// Scheme is the URL scheme, e.g. "http".
	Scheme string `json:"scheme"`

	// Host is the host including a non-default port, e.g. "127.0.0.1:8080".
	Host string `json:"host"`
}

// OriginOf returns the origin of pageURL.
func OriginOf(pageURL *url.URL) (Origin, error) {
	if pageURL == nil || pageURL.Scheme == "" || pageURL.Host == "" {
		return Origin{}, ErrNoOrigin
	}
	return Origin{
		Scheme: strings.ToLower(pageURL.Scheme),
		Host:   strings.ToLower(pageURL.Host),
	}, nil
}

// String returns the origin as "scheme://host".
func (o Origin) String() string {
	if o.Scheme == "" || o.Host == "" {
		return ""
	}
	return o.Scheme + "://" + o.Host
}

// IsZero reports whether the origin is unset.
func (o Origin) IsZero() bool {
	return o.Scheme == "" && o.Host == ""
}

// Resolve turns href into an absolute URL under this origin.
//
// A root-relative href ("/author/Jane") is appended to the origin, which is
// the common case on listing sites. A href that is already absolute is
// returned unchanged, and a path-relative href is resolved against the
// origin root. An empty href resolves to an empty string.
func (o Origin) Resolve(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	if o.IsZero() {
		return "", ErrNoOrigin
	}
	base := &url.URL{Scheme: o.Scheme, Host: o.Host, Path: "/"}
	return base.ResolveReference(ref).String(), nil
}
