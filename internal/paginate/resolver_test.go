package paginate

import (
	"errors"
	"testing"
)

// TestResolvers tests each navigation resolver against the same markup.
func TestResolvers(t *testing.T) {
	t.Parallel()

	body := `<html><body><nav>` +
		`<a href="/page/1/">Previous</a>` +
		`<a href="/page/9/">Jump</a>` +
		`<a href="/page/3/" rel="next nofollow">NEXT page</a>` +
		`</nav></body></html>`

	tests := []struct {
		name     string
		resolver Resolver
		wantHref string
	}{
		{name: "count", resolver: CountResolver{}, wantHref: "/page/9/"},
		{name: "rel-next", resolver: RelNextResolver{}, wantHref: "/page/3/"},
		{name: "label", resolver: LabelResolver{Label: "next"}, wantHref: "/page/3/"},
		{name: "label default", resolver: LabelResolver{}, wantHref: "/page/3/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			anchors := mustDoc(t, body).Find("nav").First().Find("a")
			anchor, err := tt.resolver.Resolve(anchors)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			href, _ := anchor.Attr("href")
			if href != tt.wantHref {
				t.Errorf("expected %q, got %q", tt.wantHref, href)
			}
		})
	}
}

// TestResolversNoCandidate tests that resolvers report ErrNoAnchors.
func TestResolversNoCandidate(t *testing.T) {
	t.Parallel()

	body := `<html><body><nav><a href="/page/1/">Previous</a></nav></body></html>`

	for _, r := range []Resolver{RelNextResolver{}, LabelResolver{Label: "Next"}} {
		t.Run(r.Name(), func(t *testing.T) {
			t.Parallel()

			anchors := mustDoc(t, body).Find("nav a")
			if _, err := r.Resolve(anchors); !errors.Is(err, ErrNoAnchors) {
				t.Errorf("expected ErrNoAnchors, got %v", err)
			}
		})
	}

	t.Run("count with no anchors", func(t *testing.T) {
		t.Parallel()

		anchors := mustDoc(t, `<nav></nav>`).Find("nav a")
		if _, err := (CountResolver{}).Resolve(anchors); !errors.Is(err, ErrNoAnchors) {
			t.Errorf("expected ErrNoAnchors, got %v", err)
		}
	})
}

// TestDriverWithRelNextResolver tests that the gate still applies to other resolvers.
func TestDriverWithRelNextResolver(t *testing.T) {
	t.Parallel()

	body := `<html><body><nav><a href="/page/1/">Previous</a><a rel="next" href="/page/3/">Next</a></nav></body></html>`
	driver := NewDriver(WithResolver(RelNextResolver{}))

	decision, _ := driver.NextPage(mustDoc(t, body), mustURL(t, "http://example.com/page/2/"), State{ExpectedPage: 2})
	if !decision.Continue() {
		t.Fatalf("expected next page, got %v", decision.Err)
	}

	decision, _ = driver.NextPage(mustDoc(t, body), mustURL(t, "http://example.com/page/2/"), State{ExpectedPage: 5})
	if decision.Continue() {
		t.Error("expected gate to reject page 3 when page 6 is expected")
	}
}

// TestResolverByName tests resolver lookup.
func TestResolverByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: ResolverCount},
		{name: "count", want: ResolverCount},
		{name: "REL-NEXT", want: ResolverRelNext},
		{name: "label", want: ResolverLabel},
		{name: "xpath", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := ResolverByName(tt.name, "Next")
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownResolver) {
					t.Errorf("expected ErrUnknownResolver, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Name() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, r.Name())
			}
		})
	}
}
