package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default site file name.
const DefaultConfigFile = ".quotecrawl"

// ErrConfigNotFound is returned when the site file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads a YAML site file. Host keys are lowercased.
// A missing file returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	var raw File
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := checkSite("defaults", raw.Defaults); err != nil {
		return nil, err
	}

	cf := &File{
		Defaults: raw.Defaults,
		Sites:    make(map[string]SiteConfig, len(raw.Sites)),
	}
	for host, site := range raw.Sites {
		if err := checkSite(host, site); err != nil {
			return nil, err
		}
		key := strings.ToLower(strings.TrimSpace(host))
		if _, dup := cf.Sites[key]; dup {
			return nil, fmt.Errorf("%w: host %q is listed twice", ErrInvalidSiteConfig, key)
		}
		cf.Sites[key] = site
	}
	return cf, nil
}

func checkSite(name string, site SiteConfig) error {
	if site.MaxPages < 0 {
		return fmt.Errorf("%w: %s: maxPages must not be negative", ErrInvalidSiteConfig, name)
	}
	if site.Delay < 0 {
		return fmt.Errorf("%w: %s: delay must not be negative", ErrInvalidSiteConfig, name)
	}
	return nil
}

// FindConfigFile returns the site file to load: configPath when it is set
// and exists, otherwise DefaultConfigFile in the working directory or the
// home directory. It returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, dir := range dirs {
		if candidate := filepath.Join(dir, DefaultConfigFile); fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
