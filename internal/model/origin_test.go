package model

import (
	"errors"
	"net/url"
	"testing"
)

// TestOriginOf tests deriving an origin from a page URL.
func TestOriginOf(t *testing.T) {
	t.Parallel()

	t.Run("keeps scheme and host", func(t *testing.T) {
		t.Parallel()

		u, err := url.Parse("http://example.com/page/1/")
		if err != nil {
			t.Fatalf("failed to parse url: %v", err)
		}

		origin, err := OriginOf(u)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if origin.String() != "http://example.com" {
			t.Errorf("expected http://example.com, got %q", origin.String())
		}
	})

	t.Run("keeps non-default port", func(t *testing.T) {
		t.Parallel()

		u, err := url.Parse("http://127.0.0.1:8080/page/2/")
		if err != nil {
			t.Fatalf("failed to parse url: %v", err)
		}

		origin, err := OriginOf(u)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if origin.Host != "127.0.0.1:8080" {
			t.Errorf("expected host with port, got %q", origin.Host)
		}
	})

	t.Run("lowercases scheme and host", func(t *testing.T) {
		t.Parallel()

		u, err := url.Parse("HTTP://Example.COM/")
		if err != nil {
			t.Fatalf("failed to parse url: %v", err)
		}

		origin, err := OriginOf(u)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if origin.String() != "http://example.com" {
			t.Errorf("expected lowercased origin, got %q", origin.String())
		}
	})

	t.Run("relative URL has no origin", func(t *testing.T) {
		t.Parallel()

		u, err := url.Parse("/page/1/")
		if err != nil {
			t.Fatalf("failed to parse url: %v", err)
		}

		if _, err := OriginOf(u); !errors.Is(err, ErrNoOrigin) {
			t.Errorf("expected ErrNoOrigin, got %v", err)
		}
	})

	t.Run("nil URL has no origin", func(t *testing.T) {
		t.Parallel()

		if _, err := OriginOf(nil); !errors.Is(err, ErrNoOrigin) {
			t.Errorf("expected ErrNoOrigin, got %v", err)
		}
	})
}

// TestOriginResolve tests turning hrefs into absolute URLs.
func TestOriginResolve(t *testing.T) {
	t.Parallel()

	origin := Origin{Scheme: "http", Host: "example.com"}

	tests := []struct {
		name string
		href string
		want string
	}{
		{
			name: "root-relative href is appended to origin",
			href: "/author/Jane",
			want: "http://example.com/author/Jane",
		},
		{
			name: "trailing slash is kept",
			href: "/page/2/",
			want: "http://example.com/page/2/",
		},
		{
			name: "absolute href is unchanged",
			href: "https://other.example/author/Bob",
			want: "https://other.example/author/Bob",
		},
		{
			name: "path-relative href resolves against root",
			href: "author/Jane",
			want: "http://example.com/author/Jane",
		},
		{
			name: "surrounding whitespace is ignored",
			href: "  /author/Jane\n",
			want: "http://example.com/author/Jane",
		},
		{
			name: "empty href resolves to empty string",
			href: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := origin.Resolve(tt.href)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}

	t.Run("zero origin cannot resolve relative href", func(t *testing.T) {
		t.Parallel()

		if _, err := (Origin{}).Resolve("/author/Jane"); !errors.Is(err, ErrNoOrigin) {
			t.Errorf("expected ErrNoOrigin, got %v", err)
		}
	})
}
