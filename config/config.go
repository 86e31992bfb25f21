package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/scipunch/labnews/cache"
)

const baseCfgPath = "labnews/config.toml"

const (
	DefaultFeedURL      = "http://dilfridge.blogspot.com/feeds/posts/default/-/lab-measurement"
	DefaultTTL          = time.Hour
	DefaultTimeout      = 5 * time.Second
	DefaultSummaryLimit = 4
	DefaultFullLimit    = 14
	DefaultNewsPage     = "news.html"
)

type Config struct {
	Feed              FeedConfig        `toml:"feed"`
	CacheDirectory    string            `toml:"cache_directory"`
	OutputDirectory   string            `toml:"output_directory"`   // Directory for generated pages
	TemplateDirectory string            `toml:"template_directory"` // Overrides the embedded page templates when set
	NewsPage          string            `toml:"news_page"`          // Link target of the summary entries
	SummaryLimit      int               `toml:"summary_limit"`
	FullLimit         int               `toml:"full_limit"`
	LogFile           string            `toml:"log_file"` // Rotated log file, stderr when empty
	Filters           map[string]Filter `toml:"filters"`  // Named filters that can be referenced by the feed
}

type FeedConfig struct {
	URL               string   `toml:"url"`
	TTL               Duration `toml:"ttl"` // 0 refetches on every run
	Timeout           Duration `toml:"timeout"`
	UserAgent         string   `toml:"user_agent"`
	MaxRetries        int      `toml:"max_retries"` // 0 means a single attempt per generation
	ServeStaleOnError bool     `toml:"serve_stale_on_error"`
	FilterNames       []string `toml:"filters"` // Names of filters to apply (pipeline)
}

// Filter defines rules for filtering feed items
type Filter struct {
	MinLength         int      `toml:"min_length"`         // Minimum character count (0 = no limit)
	MinWords          int      `toml:"min_words"`          // Minimum word count (0 = no limit)
	ExcludePatterns   []string `toml:"exclude_patterns"`   // Regex patterns to exclude
	RequireParagraphs bool     `toml:"require_paragraphs"` // Must have multiple lines/paragraphs
}

// Duration is a time.Duration written as a Go duration string ("1h", "5s")
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid config at %s with %w", path, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	slog.Info("config written", "at", cfgPath)
	return nil
}

// Validate reports every problem found in the config at once
func (c Config) Validate() error {
	var errs []error
	if c.Feed.URL == "" {
		errs = append(errs, errors.New("feed.url is required"))
	} else if u, err := url.Parse(c.Feed.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("feed.url '%s' is not an absolute URL", c.Feed.URL))
	}
	if c.Feed.TTL.Duration < 0 {
		errs = append(errs, errors.New("feed.ttl must not be negative"))
	}
	if c.Feed.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("feed.timeout must be positive"))
	}
	if c.Feed.MaxRetries < 0 {
		errs = append(errs, errors.New("feed.max_retries must not be negative"))
	}
	if c.SummaryLimit < 0 || c.FullLimit < 0 {
		errs = append(errs, errors.New("display limits must not be negative"))
	}
	if c.CacheDirectory == "" {
		errs = append(errs, errors.New("cache_directory is required"))
	}
	for _, name := range c.Feed.FilterNames {
		if _, ok := c.Filters[name]; !ok {
			errs = append(errs, fmt.Errorf("feed references unknown filter '%s'", name))
		}
	}
	return errors.Join(errs...)
}

func Default() Config {
	var home = os.Getenv("HOME")
	var outputDir = path.Join(home, "labnews")
	return Config{
		Feed: FeedConfig{
			URL:     DefaultFeedURL,
			TTL:     Duration{DefaultTTL},
			Timeout: Duration{DefaultTimeout},
		},
		CacheDirectory:  cache.DefaultDir(),
		OutputDirectory: outputDir,
		NewsPage:        DefaultNewsPage,
		SummaryLimit:    DefaultSummaryLimit,
		FullLimit:       DefaultFullLimit,
	}
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config file")
}
