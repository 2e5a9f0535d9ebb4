package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/quotecrawl/internal/crawler"
	"github.com/nao1215/quotecrawl/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	factory := func(string) *Pipeline { return New() }

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory)
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory, WithConcurrency(5))
		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory, WithConcurrency(0))
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(factory, WithBatchLogger(nil))
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "noop"})
			return p
		})

		seeds := []string{"http://a.example/", "http://b.example/", "http://c.example/"}
		results, err := bp.ProcessBatch(context.Background(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(seeds) {
			t.Fatalf("expected %d results, got %d", len(seeds), len(results))
		}
		for i, result := range results {
			if result.Seed != seeds[i] {
				t.Errorf("result[%d]: got %q, expected %q", i, result.Seed, seeds[i])
			}
		}
	})

	t.Run("factory receives each seed", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := make(map[string]int)

		bp := NewBatchProcessor(func(seed string) *Pipeline {
			mu.Lock()
			seen[seed]++
			mu.Unlock()
			return New()
		})

		seeds := []string{"http://a.example/", "http://b.example/"}
		if _, err := bp.ProcessBatch(context.Background(), seeds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, seed := range seeds {
			if seen[seed] != 1 {
				t.Errorf("factory called %d times for %s", seen[seed], seed)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32

		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "slow",
				doFunc: func(context.Context, *model.CrawlReport) error {
					n := current.Add(1)
					for {
						old := peak.Load()
						if n <= old || peak.CompareAndSwap(old, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					current.Add(-1)
					return nil
				},
			})
			return p
		}, WithConcurrency(2))

		seeds := make([]string, 8)
		for i := range seeds {
			seeds[i] = fmt.Sprintf("http://s%d.example/", i)
		}
		if _, err := bp.ProcessBatch(context.Background(), seeds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("peak concurrency %d, expected <= 2", peak.Load())
		}
	})

	t.Run("continues after individual branch failure", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(seed string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "maybe-fail",
				doFunc: func(context.Context, *model.CrawlReport) error {
					if strings.Contains(seed, "bad") {
						return errors.New("branch failed")
					}
					return nil
				},
			})
			return p
		})

		seeds := []string{"http://good.example/", "http://bad.example/", "http://good2.example/"}
		results, err := bp.ProcessBatch(context.Background(), seeds)
		if err != nil {
			t.Fatalf("batch should not fail because of one branch: %v", err)
		}
		if results[1].ErrorMessage != "branch failed" {
			t.Errorf("expected error in failed report, got %q", results[1].ErrorMessage)
		}
		if results[0].ErrorMessage != "" || results[2].ErrorMessage != "" {
			t.Error("expected other branches to succeed")
		}
	})

	t.Run("cancelled batch marks unstarted seeds", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "noop"})
			return p
		})

		results, err := bp.ProcessBatch(ctx, []string{"http://a.example/", "http://b.example/"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		for i, r := range results {
			if r == nil {
				t.Fatalf("result[%d] is nil", i)
			}
			if r.StopReason != model.StopCancelled {
				t.Errorf("result[%d]: StopReason = %q, want %q", i, r.StopReason, model.StopCancelled)
			}
		}
	})
}

// TestBatchBranchesAreIndependent tests that concurrent branches keep
// separate page state and record streams.
func TestBatchBranchesAreIndependent(t *testing.T) {
	t.Parallel()

	newSite := func(author string) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<div class="quote"><span class="text">q</span><small class="author">%s</small><a href="/a">a</a><meta class="keywords" content="t"></div>`, author)
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	first := newSite("First")
	second := newSite("Second")

	var callbacks atomic.Int32
	bp := NewBatchProcessor(func(string) *Pipeline {
		return DefaultPipeline(BranchConfig{Spider: crawler.NewSpider(nil)})
	}, WithConcurrency(2))

	seeds := []string{first.URL + "/", second.URL + "/"}
	err := bp.ProcessBatchWithCallback(context.Background(), seeds, func(report *model.CrawlReport, index int) {
		callbacks.Add(1)
		want := "First"
		if index == 1 {
			want = "Second"
		}
		if report.RecordCount() != 1 || report.Records[0].Author != want {
			t.Errorf("branch %d: unexpected records %+v", index, report.Records)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if callbacks.Load() != 2 {
		t.Errorf("expected 2 callbacks, got %d", callbacks.Load())
	}
}
