package config

import (
	"maps"
	"strings"
	"time"

	"github.com/nao1215/quotecrawl/internal/extract"
)

// SelectorConfig overrides the CSS selectors used on a site.
// Empty fields keep the built-in selectors.
type SelectorConfig struct {
	Quote      string `yaml:"quote,omitempty"`
	Text       string `yaml:"text,omitempty"`
	Author     string `yaml:"author,omitempty"`
	About      string `yaml:"about,omitempty"`
	Tags       string `yaml:"tags,omitempty"`
	Navigation string `yaml:"navigation,omitempty"`
}

// Extract returns the record selectors of c.
func (c SelectorConfig) Extract() extract.Selectors {
	return extract.Selectors{
		Quote:  c.Quote,
		Text:   c.Text,
		Author: c.Author,
		About:  c.About,
		Tags:   c.Tags,
	}
}

// merge fills empty fields of c from fallback.
func (c SelectorConfig) merge(fallback SelectorConfig) SelectorConfig {
	pick := func(v, fb string) string {
		if v != "" {
			return v
		}
		return fb
	}
	return SelectorConfig{
		Quote:      pick(c.Quote, fallback.Quote),
		Text:       pick(c.Text, fallback.Text),
		Author:     pick(c.Author, fallback.Author),
		About:      pick(c.About, fallback.About),
		Tags:       pick(c.Tags, fallback.Tags),
		Navigation: pick(c.Navigation, fallback.Navigation),
	}
}

// SiteConfig holds the crawl settings for one host.
type SiteConfig struct {
	// Cookie is sent with every request, e.g. "name=value; other=value".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Selectors overrides the record and navigation selectors.
	Selectors SelectorConfig `yaml:"selectors,omitempty"`

	// Resolver picks the next-link candidate: count, rel-next or label.
	Resolver string `yaml:"resolver,omitempty"`

	// NextLabel is the anchor text matched by the label resolver.
	NextLabel string `yaml:"nextLabel,omitempty"`

	// MaxPages overrides the page limit for this host.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Delay overrides the pause between fetches, e.g. "500ms".
	Delay time.Duration `yaml:"delay,omitempty"`
}

// File represents the structure of the .quotecrawl site file.
type File struct {
	// Sites maps hosts (with port when not default) to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host merged over the defaults.
// Host matching is case-insensitive.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		for key, sc := range cf.Sites {
			if strings.EqualFold(key, host) {
				siteConfig, ok = sc, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	result.Selectors = siteConfig.Selectors.merge(result.Selectors)
	if siteConfig.Resolver != "" {
		result.Resolver = siteConfig.Resolver
	}
	if siteConfig.NextLabel != "" {
		result.NextLabel = siteConfig.NextLabel
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.Delay != 0 {
		result.Delay = siteConfig.Delay
	}

	return result
}
