package fetcher

import (
	"fmt"
	"net/url"

	"github.com/scipunch/labnews/config"
)

// NewFromConfig creates the fetcher described by the [feed] config section
func NewFromConfig(cfg config.FeedConfig, store Store) (*RSSFetcher, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL '%s': %w", cfg.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported feed URL scheme: %s", u.Scheme)
	}
	if store == nil {
		return nil, fmt.Errorf("feed %s has no cache store", cfg.URL)
	}

	retry := DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	return NewRSSFetcher(Options{
		URL:               cfg.URL,
		TTL:               cfg.TTL.Duration,
		Timeout:           cfg.Timeout.Duration,
		UserAgent:         cfg.UserAgent,
		Retry:             retry,
		ServeStaleOnError: cfg.ServeStaleOnError,
	}, store), nil
}
