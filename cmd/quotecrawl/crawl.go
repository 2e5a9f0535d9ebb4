package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/quotecrawl/internal/config"
	"github.com/nao1215/quotecrawl/internal/crawler"
	"github.com/nao1215/quotecrawl/internal/database"
	"github.com/nao1215/quotecrawl/internal/extract"
	applog "github.com/nao1215/quotecrawl/internal/log"
	"github.com/nao1215/quotecrawl/internal/metrics"
	"github.com/nao1215/quotecrawl/internal/model"
	"github.com/nao1215/quotecrawl/internal/output"
	"github.com/nao1215/quotecrawl/internal/paginate"
	"github.com/nao1215/quotecrawl/internal/pipeline"
	"github.com/nao1215/quotecrawl/internal/transport"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl quote listings starting at the given URLs",
		Long: `Crawl fetches each seed URL, extracts every quote block and follows the
next-page link while it points to the expected page number.

Records are written to stdout (or --output) as soon as a page is processed.
A summary of each crawl is written to stderr (and --report-file).
Every seed is crawled independently; several seeds run concurrently.

Examples:
  # Crawl http://quotes.toscrape.com/ and print JSON lines
  quotecrawl crawl

  # Write CSV to a file
  quotecrawl crawl -f csv -o quotes.csv http://quotes.toscrape.com/

  # Crawl two sites, at most 5 pages each, with a Markdown summary
  quotecrawl crawl -p 5 --report markdown --report-file report.md \
    http://quotes.toscrape.com/ http://localhost:8080/

  # Route requests through a SOCKS5 proxy
  quotecrawl crawl --proxy socks5://127.0.0.1:1080`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("format", "f", output.FormatJSONL,
		"Record format: jsonl, json or csv")
	cmd.Flags().StringP("output", "o", "",
		"Write records to this file instead of stdout")
	cmd.Flags().String("report", output.ReportText,
		"Summary format: text, markdown or json")
	cmd.Flags().String("report-file", "",
		"Also write the summary to this file")

	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum pages per seed")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause between two page fetches of one seed")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().String("resolver", paginate.ResolverCount,
		"Next-link resolver: count, rel-next or label")
	cmd.Flags().String("next-label", paginate.DefaultNextLabel,
		"Anchor text used by the label resolver")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy, e.g. socks5://127.0.0.1:1080")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	cmd.Flags().StringP("config", "c", "",
		"Site file path (default: .quotecrawl in current or home directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not store the runs in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics in text format to this file after the crawl")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLogs)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// boolFlag reads a boolean flag from the command or the root's persistent flags.
func boolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// newLogger creates the redacting logger selected by the global flags.
func newLogger(w io.Writer, verbose, jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return applog.NewJSONLogger(w, verbose)
	}
	return applog.NewLogger(w, verbose)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	if len(args) > 0 {
		cfg.Seeds = args
	}

	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ReportFormat, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.Resolver, err = flags.GetString("resolver"); err != nil {
		return nil, err
	}
	if cfg.NextLabel, err = flags.GetString("next-label"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.Verbose = boolFlag(cmd, "verbose")
	cfg.JSONLogs = boolFlag(cmd, "json-logs")

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicit site file must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// runCrawl crawls every seed of cfg. Records go to stdout or cfg.OutputFile,
// summaries to stderr and cfg.ReportFile.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	if cfg.ProxyAddress != "" {
		if err := transport.CheckProxy(ctx, cfg.ProxyAddress); err != nil {
			return fmt.Errorf("proxy check failed: %w", err)
		}
		logger.Info("proxy reachable", "proxy", cfg.ProxyAddress)
	}

	recordsOut, closeRecordsOut, err := openOutput(cfg.OutputFile, stdout)
	if err != nil {
		return err
	}
	defer closeRecordsOut() //nolint:errcheck // closed and checked below

	records, err := output.NewRecordWriter(cfg.Format, recordsOut)
	if err != nil {
		return err
	}

	summary, closeSummary, err := newSummaryWriter(cfg, stderr)
	if err != nil {
		return err
	}
	defer closeSummary() //nolint:errcheck // closed and checked below

	branch := pipeline.BranchConfig{
		Recorder: metrics.NewRecorder(),
		Logger:   logger,
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		branch.Store = db
		logger.Debug("database opened", "path", db.Path())
	}

	spiders := make(map[string]*crawler.Spider, len(cfg.Seeds))
	for _, seed := range cfg.Seeds {
		if _, ok := spiders[seed]; ok {
			continue
		}
		spider, err := newSpider(cfg, seed, records, branch.Recorder, logger)
		if err != nil {
			return fmt.Errorf("failed to set up crawl of %s: %w", seed, err)
		}
		spiders[seed] = spider
	}

	bp := pipeline.NewBatchProcessor(
		func(seed string) *pipeline.Pipeline {
			b := branch
			b.Spider = spiders[seed]
			return pipeline.DefaultPipeline(b)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var (
		mu     sync.Mutex
		failed int
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(report *model.CrawlReport, _ int) {
		mu.Lock()
		defer mu.Unlock()

		if report.StopReason.IsFailure() {
			failed++
		}
		if _, err := summary.Write(report); err != nil {
			logger.Error("failed to write summary", "seed", report.Seed, "error", err)
		}
	})

	closeErr := records.Close()
	if err := closeRecordsOut(); err != nil && closeErr == nil {
		closeErr = err
	}
	summaryErr := closeSummary()

	if cfg.MetricsFile != "" {
		if err := branch.Recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics file", "path", cfg.MetricsFile, "error", err)
		}
	}

	if batchErr != nil {
		return fmt.Errorf("crawl interrupted: %w", batchErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finish record output: %w", closeErr)
	}
	if summaryErr != nil {
		return fmt.Errorf("failed to finish report file: %w", summaryErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(cfg.Seeds))
	}
	return nil
}

// newSpider builds the spider for one seed from the merged site settings.
func newSpider(cfg *config.Config, seed string, records output.RecordWriter, recorder *metrics.Recorder, logger *slog.Logger) (*crawler.Spider, error) {
	site := cfg.SiteFor(seed)

	clientOpts := []transport.ClientOption{
		transport.WithTimeout(cfg.Timeout),
		transport.WithSiteHost(seedHost(seed)),
	}
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, transport.WithProxy(cfg.ProxyAddress))
	}
	if site.Cookie != "" {
		clientOpts = append(clientOpts, transport.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		clientOpts = append(clientOpts, transport.WithHeaders(site.Headers))
	}
	client, err := transport.NewHTTPClient(clientOpts...)
	if err != nil {
		return nil, err
	}

	resolver, err := paginate.ResolverByName(site.Resolver, site.NextLabel)
	if err != nil {
		return nil, err
	}

	branchLogger := logger.With("seed", seed)
	driverOpts := []paginate.DriverOption{
		paginate.WithResolver(resolver),
		paginate.WithLogger(branchLogger),
	}
	if site.Selectors.Navigation != "" {
		driverOpts = append(driverOpts, paginate.WithNavSelector(site.Selectors.Navigation))
	}

	extractor := extract.NewExtractor(
		extract.WithSelectors(site.Selectors.Extract()),
		extract.WithLogger(branchLogger),
	)

	return crawler.NewSpider(client,
		crawler.WithMaxPages(site.MaxPages),
		crawler.WithDelay(site.Delay),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithExtractor(extractor),
		crawler.WithDriver(paginate.NewDriver(driverOpts...)),
		crawler.WithEmitter(records.WriteRecords),
		crawler.WithRecorder(recorder),
		crawler.WithLogger(branchLogger),
	), nil
}

// seedHost returns the host[:port] of seed, the key of its site settings.
func seedHost(seed string) string {
	u, err := url.Parse(seed)
	if err != nil {
		return ""
	}
	return u.Host
}

// newSummaryWriter writes summaries to stderr and, when set, to cfg.ReportFile.
func newSummaryWriter(cfg *config.Config, stderr io.Writer) (output.ReportWriter, func() error, error) {
	console, err := output.NewReportWriter(cfg.ReportFormat, stderr, getVersion())
	if err != nil {
		return nil, nil, err
	}
	if cfg.ReportFile == "" {
		return console, noClose, nil
	}

	f, closeFile, err := openOutput(cfg.ReportFile, nil)
	if err != nil {
		return nil, nil, err
	}
	file, err := output.NewReportWriter(cfg.ReportFormat, f, getVersion())
	if err != nil {
		_ = closeFile() //nolint:errcheck // the writer error is reported
		return nil, nil, err
	}
	return output.NewMultiWriter(console, file), closeFile, nil
}

func noClose() error { return nil }

// openOutput opens path for writing, creating parent directories.
// An empty path returns fallback. The returned closer may be called more
// than once; every call reports the result of the first close.
func openOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return fallback, noClose, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	var (
		once     sync.Once
		closeErr error
	)
	return f, func() error {
		once.Do(func() {
			if err := f.Close(); err != nil {
				closeErr = fmt.Errorf("failed to close %s: %w", path, err)
			}
		})
		return closeErr
	}, nil
}
