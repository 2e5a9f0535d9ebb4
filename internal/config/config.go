package config

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/quotecrawl/internal/output"
	"github.com/nao1215/quotecrawl/internal/paginate"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "quotecrawl"

	// DefaultSeedURL is crawled when no seed is given.
	DefaultSeedURL = "http://quotes.toscrape.com/"

	// DefaultTimeout applies to each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDelay is the pause between two page fetches of one branch.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultMaxPages stops a branch that keeps finding next pages.
	DefaultMaxPages = 1000

	// DefaultBatchSize is the number of seeds crawled concurrently.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies quotecrawl in HTTP requests.
	DefaultUserAgent = "quotecrawl/1.0 (+https://github.com/nao1215/quotecrawl)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Config holds all options of a crawl invocation. It is populated from CLI
// flags and passed down explicitly.
type Config struct {
	// Seeds are the start URLs. Each seed is crawled as its own branch.
	Seeds []string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxPages caps pages per branch. Zero means DefaultMaxPages.
	MaxPages int

	// BatchSize is the number of branches crawled concurrently.
	BatchSize int

	// CrawlDelay is the pause between page fetches of one branch.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// Format is the record output format (jsonl, json, csv).
	Format string

	// OutputFile receives the records. Empty means stdout.
	OutputFile string

	// ReportFormat is the run summary format (text, markdown, json).
	ReportFormat string

	// ReportFile additionally receives the run summary when set.
	ReportFile string

	// Resolver picks the next-link candidate (count, rel-next, label).
	Resolver string

	// NextLabel is the anchor text matched by the label resolver.
	NextLabel string

	// ProxyAddress is an optional SOCKS5 proxy for all requests.
	ProxyAddress string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB stores every run in the history database.
	SaveToDB bool

	// MetricsFile receives the Prometheus text exposition after the crawl.
	MetricsFile string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLogs switches log output to JSON.
	JSONLogs bool

	// ConfigFilePath is an explicit path to the site file.
	ConfigFilePath string

	// SiteConfigs holds the loaded site file, nil when none was found.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Seeds:        []string{DefaultSeedURL},
		Timeout:      DefaultTimeout,
		MaxPages:     DefaultMaxPages,
		BatchSize:    DefaultBatchSize,
		CrawlDelay:   DefaultCrawlDelay,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		Format:       output.FormatJSONL,
		ReportFormat: output.ReportText,
		Resolver:     paginate.ResolverCount,
		NextLabel:    paginate.DefaultNextLabel,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for quotecrawl.
// On Linux: ~/.local/share/quotecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	for _, seed := range c.Seeds {
		if err := ValidateSeed(seed); err != nil {
			return err
		}
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if _, err := output.NewRecordWriter(c.Format, io.Discard); err != nil {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, c.Format, strings.Join(output.RecordFormats(), ", "))
	}
	if _, err := output.NewReportWriter(c.ReportFormat, io.Discard, ""); err != nil {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnknownReportFormat, c.ReportFormat, strings.Join(output.ReportFormats(), ", "))
	}
	if _, err := paginate.ResolverByName(c.Resolver, c.NextLabel); err != nil {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnknownResolver, c.Resolver, strings.Join(paginate.ResolverNames(), ", "))
	}

	if c.SiteConfigs != nil {
		for host, site := range c.SiteConfigs.Sites {
			if site.Resolver == "" {
				continue
			}
			if _, err := paginate.ResolverByName(site.Resolver, site.NextLabel); err != nil {
				return fmt.Errorf("%w: %q for site %s", ErrUnknownResolver, site.Resolver, host)
			}
		}
	}

	return nil
}

// ValidateSeed reports whether seed is an absolute http or https URL.
func ValidateSeed(seed string) error {
	u, err := url.Parse(seed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	return nil
}

// SiteFor returns the site settings for seed, merged over the file defaults.
// Settings not given by the file fall back to the command line values.
func (c *Config) SiteFor(seed string) SiteConfig {
	var site SiteConfig
	if c.SiteConfigs != nil {
		host := seed
		if u, err := url.Parse(seed); err == nil && u.Host != "" {
			host = u.Host
		}
		site = c.SiteConfigs.GetSiteConfig(host)
	}

	if site.MaxPages == 0 {
		site.MaxPages = c.MaxPages
	}
	if site.MaxPages == 0 {
		site.MaxPages = DefaultMaxPages
	}
	if site.Resolver == "" {
		site.Resolver = c.Resolver
	}
	if site.NextLabel == "" {
		site.NextLabel = c.NextLabel
	}
	if site.Delay == 0 {
		site.Delay = c.CrawlDelay
	}
	return site
}
