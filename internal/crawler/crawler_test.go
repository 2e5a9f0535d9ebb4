package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/quotecrawl/internal/metrics"
	"github.com/nao1215/quotecrawl/internal/model"
	"github.com/nao1215/quotecrawl/internal/paginate"
)

const quotesPerPage = 2

// quoteSite serves a paginated listing shaped like quotes.toscrape.com.
type quoteSite struct {
	total int

	mu   sync.Mutex
	hits map[string]int
}

func newQuoteSite(t *testing.T, total int) (*quoteSite, *httptest.Server) {
	t.Helper()

	site := &quoteSite{total: total, hits: make(map[string]int)}
	server := httptest.NewServer(site)
	t.Cleanup(server.Close)
	return site, server
}

func (s *quoteSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	n := 1
	if r.URL.Path != "/" {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "page" {
			http.NotFound(w, r)
			return
		}
		var err error
		if n, err = strconv.Atoi(parts[1]); err != nil || n < 1 || (s.total > 0 && n > s.total) {
			http.NotFound(w, r)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(s.page(n))) //nolint:errcheck
}

// page renders page n. A total of zero means the site never ends.
func (s *quoteSite) page(n int) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Quotes</title></head><body><div class="col-md-8">`)
	for i := range quotesPerPage {
		fmt.Fprintf(&b, `<div class="quote">
<span class="text">quote %d-%d</span>
<span>by <small class="author">Author %d</small> <a href="/author/Author-%d">(about)</a></span>
<div class="tags">Tags: <meta class="keywords" content="page%d,item%d"></div>
</div>`, n, i, n, n, n, i)
	}

	b.WriteString(`<nav><ul class="pager">`)
	if n > 1 {
		fmt.Fprintf(&b, `<li class="previous"><a href="/page/%d/"><span>&larr;</span> Previous</a></li>`, n-1)
	}
	if s.total == 0 || n < s.total {
		fmt.Fprintf(&b, `<li class="next"><a href="/page/%d/">Next <span>&rarr;</span></a></li>`, n+1)
	}
	b.WriteString(`</ul></nav></div></body></html>`)
	return b.String()
}

func (s *quoteSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *quoteSite) totalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// TestSpiderCrawl tests the fetch loop on a finite site.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("three page site terminates after the last page", func(t *testing.T) {
		t.Parallel()

		site, server := newQuoteSite(t, 3)

		var (
			mu      sync.Mutex
			emitted []model.Record
		)
		spider := NewSpider(server.Client(), WithEmitter(func(records []model.Record) error {
			mu.Lock()
			defer mu.Unlock()
			emitted = append(emitted, records...)
			return nil
		}))

		report, err := spider.Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.PageCount() != 3 {
			t.Fatalf("expected 3 pages, got %d", report.PageCount())
		}
		if site.totalHits() != 3 {
			t.Errorf("expected exactly 3 fetches, got %d", site.totalHits())
		}
		for _, path := range []string{"/", "/page/2/", "/page/3/"} {
			if site.hitCount(path) != 1 {
				t.Errorf("expected %s to be fetched once, got %d", path, site.hitCount(path))
			}
		}

		// Page 3 only links back to page 2, which the gate rejects.
		if report.StopReason != model.StopPageMismatch {
			t.Errorf("expected stop reason %q, got %q", model.StopPageMismatch, report.StopReason)
		}

		if len(emitted) != 3*quotesPerPage {
			t.Fatalf("expected %d emitted records, got %d", 3*quotesPerPage, len(emitted))
		}
		seen := make(map[string]bool)
		for i, rec := range emitted {
			want := fmt.Sprintf("quote %d-%d", i/quotesPerPage+1, i%quotesPerPage)
			if rec.Quote != want {
				t.Errorf("record %d: expected %q, got %q", i, want, rec.Quote)
			}
			if seen[rec.Quote] {
				t.Errorf("record %q emitted twice", rec.Quote)
			}
			seen[rec.Quote] = true
		}
		if len(report.Records) != len(emitted) {
			t.Errorf("report holds %d records, emitted %d", len(report.Records), len(emitted))
		}
	})

	t.Run("page summaries carry next links", func(t *testing.T) {
		t.Parallel()

		_, server := newQuoteSite(t, 2)

		report, err := NewSpider(server.Client()).Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.Pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(report.Pages))
		}
		if report.Pages[0].NextURL != server.URL+"/page/2/" {
			t.Errorf("expected next link to page 2, got %q", report.Pages[0].NextURL)
		}
		if report.Pages[1].NextURL != "" {
			t.Errorf("expected no next link on last page, got %q", report.Pages[1].NextURL)
		}
		if report.Pages[0].Hash == "" {
			t.Error("expected page hash to be set")
		}
		if report.Pages[1].Number != 2 || report.Pages[1].RecordCount != quotesPerPage {
			t.Errorf("unexpected summary %+v", report.Pages[1])
		}
		if report.FinishedAt.Before(report.StartedAt) {
			t.Error("expected FinishedAt after StartedAt")
		}
	})

	t.Run("about links are absolute", func(t *testing.T) {
		t.Parallel()

		_, server := newQuoteSite(t, 1)

		report, err := NewSpider(server.Client()).Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Records) == 0 {
			t.Fatal("expected records")
		}
		if want := server.URL + "/author/Author-1"; report.Records[0].About != want {
			t.Errorf("expected %q, got %q", want, report.Records[0].About)
		}
		if report.Records[0].Tags != "page1,item0" {
			t.Errorf("expected raw tags, got %q", report.Records[0].Tags)
		}
	})

	t.Run("single page site ends with no next link", func(t *testing.T) {
		t.Parallel()

		_, server := newQuoteSite(t, 1)

		report, err := NewSpider(server.Client()).Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.StopReason != model.StopNoNextLink {
			t.Errorf("expected %q, got %q", model.StopNoNextLink, report.StopReason)
		}
	})
}

// TestSpiderMaxPages tests the runaway guard on a site that never ends.
func TestSpiderMaxPages(t *testing.T) {
	t.Parallel()

	site, server := newQuoteSite(t, 0)

	report, err := NewSpider(server.Client(), WithMaxPages(4)).Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.PageCount() != 4 {
		t.Errorf("expected 4 pages, got %d", report.PageCount())
	}
	if site.totalHits() != 4 {
		t.Errorf("expected 4 fetches, got %d", site.totalHits())
	}
	if report.StopReason != model.StopMaxPages {
		t.Errorf("expected %q, got %q", model.StopMaxPages, report.StopReason)
	}
	if report.StopDetail != server.URL+"/page/5/" {
		t.Errorf("expected unfetched page 5 as detail, got %q", report.StopDetail)
	}
}

// TestSpiderFetchErrors tests failures of the fetch layer.
func TestSpiderFetchErrors(t *testing.T) {
	t.Parallel()

	t.Run("error status on a later page keeps earlier records", func(t *testing.T) {
		t.Parallel()

		site := &quoteSite{total: 3, hits: make(map[string]int)}
		mux := http.NewServeMux()
		mux.HandleFunc("/page/2/", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		mux.Handle("/", site)
		server := httptest.NewServer(mux)
		defer server.Close()

		recorder := metrics.NewRecorder()
		report, err := NewSpider(server.Client(), WithRecorder(recorder)).Crawl(context.Background(), server.URL+"/")

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected StatusError, got %v", err)
		}
		if statusErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", statusErr.StatusCode)
		}
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Error("expected error to wrap ErrUnexpectedStatus")
		}

		if report == nil {
			t.Fatal("expected partial report")
		}
		if report.PageCount() != 1 || report.RecordCount() != quotesPerPage {
			t.Errorf("expected first page to be kept, got %d pages %d records", report.PageCount(), report.RecordCount())
		}
		if report.StopReason != model.StopFetchError {
			t.Errorf("expected %q, got %q", model.StopFetchError, report.StopReason)
		}
		if report.ErrorMessage == "" {
			t.Error("expected error message in report")
		}
		if got := counterValues(t, recorder)["quotecrawl_fetch_errors_total"]; got != 1 {
			t.Errorf("expected 1 fetch error, got %v", got)
		}
	})

	t.Run("non-HTML page is a fetch error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"quotes":[]}`)) //nolint:errcheck
		}))
		defer server.Close()

		_, err := NewSpider(server.Client()).Crawl(context.Background(), server.URL+"/")
		if !errors.Is(err, ErrNotHTML) {
			t.Errorf("expected ErrNotHTML, got %v", err)
		}
	})

	t.Run("unreachable seed", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		seed := server.URL + "/"
		server.Close()

		report, err := NewSpider(server.Client()).Crawl(context.Background(), seed)
		if err == nil {
			t.Fatal("expected error")
		}
		if report.StopReason != model.StopFetchError || report.PageCount() != 0 {
			t.Errorf("unexpected report %+v", report)
		}
	})
}

// TestSpiderBodySize tests the response body limit.
func TestSpiderBodySize(t *testing.T) {
	t.Parallel()

	// The navigation sits after the padding, so a cut body would lose it.
	paddedSite := func(t *testing.T, padding int) *httptest.Server {
		t.Helper()

		mux := http.NewServeMux()
		mux.HandleFunc("/page/2/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><div class="quote"><span class="text">last</span></div></body></html>`)) //nolint:errcheck
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body><!--" + strings.Repeat("x", padding) + "-->" + //nolint:errcheck
				`<nav><a href="/page/2/">Next</a></nav></body></html>`))
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		return server
	}

	t.Run("larger limit reads the whole page", func(t *testing.T) {
		t.Parallel()

		server := paddedSite(t, DefaultMaxBodySize+1024*1024)
		report, err := NewSpider(server.Client(), WithMaxBodySize(16*1024*1024)).Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.PageCount() != 2 {
			t.Errorf("expected 2 pages, got %d (stop %q: %s)", report.PageCount(), report.StopReason, report.StopDetail)
		}
		if report.Pages[1].Number != 2 {
			t.Errorf("expected second page numbered 2, got %d", report.Pages[1].Number)
		}
	})

	t.Run("oversized body is a fetch error", func(t *testing.T) {
		t.Parallel()

		server := paddedSite(t, 4096)
		report, err := NewSpider(server.Client(), WithMaxBodySize(1024)).Crawl(context.Background(), server.URL+"/")
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Fatalf("expected ErrBodyTooLarge, got %v", err)
		}
		if report.StopReason != model.StopFetchError || report.PageCount() != 0 {
			t.Errorf("expected fetch_error without pages, got %q with %d pages", report.StopReason, report.PageCount())
		}
	})

	t.Run("body of exactly the limit is accepted", func(t *testing.T) {
		t.Parallel()

		body := `<html><body></body></html>`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(body)) //nolint:errcheck
		}))
		defer server.Close()

		report, err := NewSpider(server.Client(), WithMaxBodySize(int64(len(body)))).Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.PageCount() != 1 {
			t.Errorf("expected 1 page, got %d", report.PageCount())
		}
	})
}

// TestSpiderInvalidSeed tests seed validation.
func TestSpiderInvalidSeed(t *testing.T) {
	t.Parallel()

	for _, seed := range []string{"", "quotes.toscrape.com", "ftp://example.com/", "http://"} {
		t.Run(seed, func(t *testing.T) {
			t.Parallel()

			report, err := NewSpider(http.DefaultClient).Crawl(context.Background(), seed)
			if !errors.Is(err, ErrInvalidSeed) {
				t.Errorf("expected ErrInvalidSeed, got %v", err)
			}
			if report != nil {
				t.Error("expected nil report")
			}
		})
	}
}

// TestSpiderCancellation tests that a cancelled context stops the branch.
func TestSpiderCancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before the first fetch", func(t *testing.T) {
		t.Parallel()

		site, server := newQuoteSite(t, 3)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := NewSpider(server.Client()).Crawl(ctx, server.URL+"/")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if report.StopReason != model.StopCancelled {
			t.Errorf("expected %q, got %q", model.StopCancelled, report.StopReason)
		}
		if site.totalHits() != 0 {
			t.Errorf("expected no fetch, got %d", site.totalHits())
		}
	})

	t.Run("cancelled during the politeness delay", func(t *testing.T) {
		t.Parallel()

		_, server := newQuoteSite(t, 3)
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		report, err := NewSpider(server.Client(), WithDelay(time.Minute)).Crawl(ctx, server.URL+"/")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
		if report.PageCount() != 1 {
			t.Errorf("expected first page before the delay, got %d", report.PageCount())
		}
		if !report.TimedOut {
			t.Error("expected TimedOut to be set")
		}
	})
}

// TestSpiderEmitterError tests that a failing emitter ends the branch.
func TestSpiderEmitterError(t *testing.T) {
	t.Parallel()

	site, server := newQuoteSite(t, 3)
	errDisk := errors.New("disk full")

	report, err := NewSpider(server.Client(), WithEmitter(func([]model.Record) error {
		return errDisk
	})).Crawl(context.Background(), server.URL+"/")

	if !errors.Is(err, errDisk) {
		t.Fatalf("expected emitter error, got %v", err)
	}
	if report.StopReason != model.StopOutputError {
		t.Errorf("expected %q, got %q", model.StopOutputError, report.StopReason)
	}
	if site.totalHits() != 1 {
		t.Errorf("expected crawl to stop after first page, got %d fetches", site.totalHits())
	}
}

// TestSpiderConcurrentBranches tests that branches do not share page state.
func TestSpiderConcurrentBranches(t *testing.T) {
	t.Parallel()

	_, server := newQuoteSite(t, 3)
	spider := NewSpider(server.Client())

	const branches = 4
	reports := make([]*model.CrawlReport, branches)
	errs := make([]error, branches)

	var wg sync.WaitGroup
	for i := range branches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i], errs[i] = spider.Crawl(context.Background(), server.URL+"/")
		}()
	}
	wg.Wait()

	for i := range branches {
		if errs[i] != nil {
			t.Fatalf("branch %d: unexpected error: %v", i, errs[i])
		}
		if reports[i].PageCount() != 3 {
			t.Errorf("branch %d: expected 3 pages, got %d", i, reports[i].PageCount())
		}
	}
}

// TestSpiderRequestHeaders tests the headers sent with each fetch.
func TestSpiderRequestHeaders(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		userAgent string
		accept    string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		userAgent = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body></body></html>`)) //nolint:errcheck
	}))
	defer server.Close()

	_, err := NewSpider(server.Client(), WithUserAgent("TestBot/1.0")).Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if userAgent != "TestBot/1.0" {
		t.Errorf("expected TestBot/1.0, got %q", userAgent)
	}
	if !strings.Contains(accept, "text/html") {
		t.Errorf("expected Accept to include text/html, got %q", accept)
	}
}

// TestSpiderCharset tests decoding of pages in legacy encodings.
func TestSpiderCharset(t *testing.T) {
	t.Parallel()

	// "café" in ISO-8859-1.
	body := []byte("<html><body><div class=\"quote\"><span class=\"text\">caf\xe9</span></div></body></html>")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write(body) //nolint:errcheck
	}))
	defer server.Close()

	report, err := NewSpider(server.Client()).Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(report.Records))
	}
	if report.Records[0].Quote != "café" {
		t.Errorf("expected café, got %q", report.Records[0].Quote)
	}
	if report.StopReason != model.StopNoNavigation {
		t.Errorf("expected %q, got %q", model.StopNoNavigation, report.StopReason)
	}
}

// TestSpiderWithResolver tests a spider driven by a non-default resolver.
func TestSpiderWithResolver(t *testing.T) {
	t.Parallel()

	_, server := newQuoteSite(t, 3)
	driver := paginate.NewDriver(paginate.WithResolver(paginate.LabelResolver{Label: "Next"}))

	report, err := NewSpider(server.Client(), WithDriver(driver)).Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.PageCount() != 3 {
		t.Errorf("expected 3 pages, got %d", report.PageCount())
	}
	// The label resolver finds no "Next" on the last page.
	if report.StopReason != model.StopNoNextLink {
		t.Errorf("expected %q, got %q", model.StopNoNextLink, report.StopReason)
	}
}

// TestSpiderMetrics tests that the recorder sees every page.
func TestSpiderMetrics(t *testing.T) {
	t.Parallel()

	_, server := newQuoteSite(t, 3)
	recorder := metrics.NewRecorder()

	if _, err := NewSpider(server.Client(), WithRecorder(recorder)).Crawl(context.Background(), server.URL+"/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values := counterValues(t, recorder)
	if values["quotecrawl_pages_fetched_total"] != 3 {
		t.Errorf("expected 3 pages fetched, got %v", values["quotecrawl_pages_fetched_total"])
	}
	if values["quotecrawl_records_extracted_total"] != 3*quotesPerPage {
		t.Errorf("expected %d records, got %v", 3*quotesPerPage, values["quotecrawl_records_extracted_total"])
	}
	if values["quotecrawl_branch_stops_total"] != 1 {
		t.Errorf("expected 1 branch stop, got %v", values["quotecrawl_branch_stops_total"])
	}
}

// counterValues sums every counter family of recorder by name.
func counterValues(t *testing.T, recorder *metrics.Recorder) map[string]float64 {
	t.Helper()

	families, err := recorder.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	return values
}

// TestSpiderOptions tests spider configuration options.
func TestSpiderOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(nil)
		if spider.client != http.DefaultClient {
			t.Error("expected default client")
		}
		if spider.maxPages != DefaultMaxPages {
			t.Errorf("expected maxPages %d, got %d", DefaultMaxPages, spider.maxPages)
		}
		if spider.userAgent != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", spider.userAgent)
		}
		if spider.extractor == nil || spider.driver == nil {
			t.Error("expected default extractor and driver")
		}
	})

	t.Run("WithMaxBodySize sets max body size", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(http.DefaultClient, WithMaxBodySize(1024*1024))
		if spider.maxBodySize != 1024*1024 {
			t.Errorf("expected maxBodySize 1MB, got %d", spider.maxBodySize)
		}
	})

	t.Run("WithDelay sets delay", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(http.DefaultClient, WithDelay(2*time.Second))
		if spider.delay != 2*time.Second {
			t.Errorf("expected delay 2s, got %v", spider.delay)
		}
	})
}
