package fetcher

import (
	"context"
	"net/http"
	"time"

	"github.com/scipunch/labnews/cache"
	"github.com/scipunch/labnews/config"
)

const (
	defaultUserAgent = "labnews/1.0 (+feed reader)"
	maxDocumentSize  = 10 << 20
)

// Store persists raw feed documents between runs
type Store interface {
	Get(ctx context.Context, url string) (cache.Entry, bool, error)
	Set(ctx context.Context, e cache.Entry) error
	Touch(ctx context.Context, url string, at time.Time) error
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures an RSSFetcher
type Options struct {
	URL       string
	TTL       time.Duration // Age below which the cached document is served as is, 0 refetches every time
	Timeout   time.Duration // Bound of a single HTTP attempt
	UserAgent string
	Retry     RetryConfig

	// ServeStaleOnError returns the expired cached document when a refresh
	// fails instead of an empty feed
	ServeStaleOnError bool

	Client Doer
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = config.DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
