package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/quotecrawl/internal/extract"
	"github.com/nao1215/quotecrawl/internal/metrics"
	"github.com/nao1215/quotecrawl/internal/model"
	"github.com/nao1215/quotecrawl/internal/paginate"
)

const (
	// DefaultMaxPages bounds a branch when the site never stops paginating.
	DefaultMaxPages = 1000

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultUserAgent identifies the crawler.
	DefaultUserAgent = "quotecrawl/1.0 (+https://github.com/nao1215/quotecrawl)"
)

// Emitter receives the records of one page, in document order, as soon as
// the page is extracted. An error ends the branch.
type Emitter func(records []model.Record) error

// Spider follows the pagination chain of a listing site.
// A Spider keeps no per-branch state; concurrent Crawl calls each get their
// own page counter.
type Spider struct {
	client      *http.Client
	maxPages    int
	delay       time.Duration
	userAgent   string
	maxBodySize int64
	extractor   *extract.Extractor
	driver      *paginate.Driver
	emitter     Emitter
	recorder    *metrics.Recorder
	logger      *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the maximum number of pages per branch.
// Zero or less disables the limit.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the delay between two fetches of a branch.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithExtractor sets the page extractor.
func WithExtractor(e *extract.Extractor) SpiderOption {
	return func(s *Spider) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithDriver sets the pagination driver.
func WithDriver(d *paginate.Driver) SpiderOption {
	return func(s *Spider) {
		if d != nil {
			s.driver = d
		}
	}
}

// WithEmitter sets the callback receiving each page's records.
func WithEmitter(e Emitter) SpiderOption {
	return func(s *Spider) {
		s.emitter = e
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) SpiderOption {
	return func(s *Spider) {
		s.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider fetching pages with client.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		maxPages:    DefaultMaxPages,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = http.DefaultClient
	}
	if s.extractor == nil {
		s.extractor = extract.NewExtractor(extract.WithLogger(s.logger))
	}
	if s.driver == nil {
		s.driver = paginate.NewDriver(paginate.WithLogger(s.logger))
	}
	return s
}

// Crawl follows the branch starting at seed until it ends.
//
// The returned report is non-nil whenever seed is valid, also when an
// error is returned: it holds every page and record processed before the
// failure.
func (s *Spider) Crawl(ctx context.Context, seed string) (*model.CrawlReport, error) {
	start, err := url.Parse(seed)
	if err != nil || (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}

	report := model.NewCrawlReport(seed)
	report.StartedAt = time.Now()
	defer func() {
		report.FinishedAt = time.Now()
		s.recorder.BranchStopped(report.StopReason)
	}()

	state := paginate.NewState()
	next := start

	for number := 1; next != nil; number++ {
		if err := ctx.Err(); err != nil {
			return s.cancelled(report, err)
		}

		if s.maxPages > 0 && number > s.maxPages {
			report.Stop(model.StopMaxPages, next.String())
			s.logger.Warn("page limit reached", "seed", seed, "max_pages", s.maxPages, "next", next.String())
			break
		}

		if number > 1 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return s.cancelled(report, ctx.Err())
			case <-time.After(s.delay):
			}
		}

		fetched, err := s.fetchPage(ctx, next.String(), number)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.cancelled(report, ctxErr)
			}
			s.recorder.FetchFailed()
			report.Stop(model.StopFetchError, err.Error())
			report.Error = err
			report.ErrorMessage = err.Error()
			s.logger.Warn("failed to fetch page", "url", next.String(), "page", number, "error", err)
			return report, err
		}

		result := s.extractor.Extract(fetched.doc, fetched.url)
		for _, m := range result.Missing {
			s.recorder.MissingField(m.Field)
		}

		summary := model.PageSummary{
			Number:        fetched.page.Number,
			URL:           fetched.url.String(),
			StatusCode:    fetched.page.StatusCode,
			Hash:          fetched.page.Hash,
			MissingFields: len(result.Missing),
		}

		if s.emitter != nil {
			if err := s.emitter(result.Records); err != nil {
				err = fmt.Errorf("failed to emit records of %s: %w", summary.URL, err)
				report.AddPage(summary, result.Records)
				report.Stop(model.StopOutputError, err.Error())
				report.Error = err
				report.ErrorMessage = err.Error()
				return report, err
			}
		}
		s.recorder.RecordsExtracted(len(result.Records))

		var decision paginate.Decision
		decision, state = s.driver.NextPage(fetched.doc, fetched.url, state)
		if decision.Continue() {
			summary.NextURL = decision.Next.String()
		}
		report.AddPage(summary, result.Records)

		s.logger.Debug("page processed",
			"url", summary.URL,
			"page", number,
			"records", len(result.Records),
			"missing_fields", len(result.Missing),
			"next", summary.NextURL,
		)

		if !decision.Continue() {
			report.Stop(paginate.ReasonFor(decision.Err), errString(decision.Err))
			break
		}
		next = decision.Next
	}

	s.logger.Debug("branch finished",
		"seed", seed,
		"pages", report.PageCount(),
		"records", report.RecordCount(),
		"reason", string(report.StopReason),
		"detail", report.StopDetail,
	)
	return report, nil
}

func (s *Spider) cancelled(report *model.CrawlReport, err error) (*model.CrawlReport, error) {
	report.Stop(model.StopCancelled, err.Error())
	report.TimedOut = errors.Is(err, context.DeadlineExceeded)
	report.Error = err
	report.ErrorMessage = err.Error()
	return report, err
}

// fetchedPage is a fetched page with its parsed document.
type fetchedPage struct {
	page *model.Page
	doc  *goquery.Document
	// url is the final URL after redirects.
	url *url.URL
}

// fetchPage fetches pageURL as page number of its branch and parses the body.
// A body larger than maxBodySize is an error, never parsed in part.
func (s *Spider) fetchPage(ctx context.Context, pageURL string, number int) (*fetchedPage, error) {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	if int64(len(body)) > s.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, pageURL, s.maxBodySize)
	}

	page := &model.Page{
		URL:        pageURL,
		Number:     number,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Raw:        body,
	}
	page.ContentType = page.GetHeader("Content-Type")
	page.ComputeHash()

	if !page.IsHTML() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotHTML, pageURL, page.ContentType)
	}

	doc, err := parseDocument(page.Raw, page.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pageURL, err)
	}

	finalURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	page.URL = finalURL.String()
	doc.Url = finalURL

	s.recorder.PageFetched(time.Since(started))
	return &fetchedPage{page: page, doc: doc, url: finalURL}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
