package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newQuoteSite serves pages 1..total with two quotes each. The first page
// is served at "/" and at /page/1/.
func newQuoteSite(t *testing.T, total int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := 1
		if r.URL.Path != "/" {
			parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
			if len(parts) != 2 || parts[0] != "page" {
				http.NotFound(w, r)
				return
			}
			v, err := strconv.Atoi(parts[1])
			if err != nil || v < 1 || v > total {
				http.NotFound(w, r)
				return
			}
			n = v
		}

		var sb strings.Builder
		sb.WriteString("<html><body>")
		for i := 1; i <= 2; i++ {
			fmt.Fprintf(&sb, `<div class="quote">
  <span class="text">Quote %d.%d</span>
  <small class="author">Author %d</small>
  <a href="/author/a%d">(about)</a>
  <meta class="keywords" content="page%d,shared">
</div>`, n, i, i, i, n)
		}
		sb.WriteString(`<nav><ul class="pager">`)
		if n > 1 {
			fmt.Fprintf(&sb, `<li class="previous"><a href="/page/%d/">Previous</a></li>`, n-1)
		}
		if n < total {
			fmt.Fprintf(&sb, `<li class="next"><a href="/page/%d/">Next</a></li>`, n+1)
		}
		sb.WriteString(`</ul></nav></body></html>`)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, sb.String())
	}))
	t.Cleanup(srv.Close)
	return srv
}

// runRoot executes the root command with args and returns stdout and stderr.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr syncBuffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
