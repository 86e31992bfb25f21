package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/labnews/cache"
	"github.com/scipunch/labnews/fetcher/types"
)

// RSSFetcher fetches one RSS/Atom feed through a read-through cache
type RSSFetcher struct {
	opts   Options
	store  Store
	parser *gofeed.Parser
}

// response is the outcome of a successful HTTP exchange
type response struct {
	body         []byte
	etag         string
	lastModified string
	notModified  bool
}

// NewRSSFetcher creates a fetcher for opts.URL backed by store
func NewRSSFetcher(opts Options, store Store) *RSSFetcher {
	return &RSSFetcher{
		opts:   opts.withDefaults(),
		store:  store,
		parser: gofeed.NewParser(),
	}
}

// FetchItems returns the feed items in document order. Any failure is
// logged and yields an empty slice.
func (f *RSSFetcher) FetchItems(ctx context.Context) []types.FeedItem {
	feed, err := f.Fetch(ctx)
	switch {
	case err == nil:
		return feed.Items
	case errors.Is(err, ErrEmptyFeed):
		slog.Info("feed is empty", "url", f.opts.URL)
	default:
		slog.Warn("feed unavailable, rendering no news", "url", f.opts.URL, "error", err)
	}
	return []types.FeedItem{}
}

// Fetch returns the parsed feed, serving the cached document while it is
// younger than the TTL and downloading it otherwise
func (f *RSSFetcher) Fetch(ctx context.Context) (types.Feed, error) {
	now := f.opts.Now()

	entry, cached, err := f.store.Get(ctx, f.opts.URL)
	if err != nil {
		slog.Warn("feed cache lookup failed", "url", f.opts.URL, "error", err)
		cached = false
	}

	if cached && entry.Age(now) < f.opts.TTL {
		feed, err := f.parse(entry.Document)
		if err == nil {
			slog.Debug("feed cache hit", "url", f.opts.URL, "age", entry.Age(now))
			return nonEmpty(feed)
		}
		slog.Warn("cached feed is unreadable, refetching", "url", f.opts.URL, "error", err)
		cached = false
	}

	resp, err := f.download(ctx, entry, cached)
	if err != nil {
		return f.stale(entry, cached, err)
	}

	if resp.notModified {
		slog.Debug("feed not modified", "url", f.opts.URL)
		if err := f.store.Touch(ctx, f.opts.URL, now); err != nil {
			slog.Warn("failed to refresh feed cache timestamp", "url", f.opts.URL, "error", err)
		}
		feed, err := f.parse(entry.Document)
		if err != nil {
			return types.Feed{}, err
		}
		return nonEmpty(feed)
	}

	feed, err := f.parse(resp.body)
	if err != nil {
		return f.stale(entry, cached, err)
	}

	err = f.store.Set(ctx, cache.Entry{
		URL:          f.opts.URL,
		Document:     resp.body,
		ETag:         resp.etag,
		LastModified: resp.lastModified,
		FetchedAt:    now,
	})
	if err != nil {
		slog.Warn("failed to cache feed", "url", f.opts.URL, "error", err)
	}
	slog.Info("feed fetched", "url", f.opts.URL, "items", len(feed.Items), "bytes", len(resp.body))

	return nonEmpty(feed)
}

// stale serves the expired cached document in place of a failed refresh
// when that is enabled, and returns cause otherwise
func (f *RSSFetcher) stale(entry cache.Entry, cached bool, cause error) (types.Feed, error) {
	if !cached || !f.opts.ServeStaleOnError {
		return types.Feed{}, cause
	}
	feed, err := f.parse(entry.Document)
	if err != nil {
		return types.Feed{}, errors.Join(cause, err)
	}
	slog.Warn("serving stale feed", "url", f.opts.URL, "fetched_at", entry.FetchedAt, "error", cause)
	return nonEmpty(feed)
}

// download performs the GET, repeating it per the retry policy
func (f *RSSFetcher) download(ctx context.Context, prev cache.Entry, conditional bool) (response, error) {
	var lastErr error
	backoff := f.opts.Retry.InitialBackoff

	for attempt := 0; attempt <= f.opts.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying feed download", "url", f.opts.URL, "attempt", attempt, "backoff", backoff)
			if err := sleep(ctx, backoff); err != nil {
				return response{}, lastErr
			}
			backoff = f.opts.Retry.next(backoff)
		}

		resp, err := f.get(ctx, prev, conditional)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	return response{}, lastErr
}

func (f *RSSFetcher) get(ctx context.Context, prev cache.Entry, conditional bool) (response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.URL, nil)
	if err != nil {
		return response{}, &FetchError{URL: f.opts.URL, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/atom+xml, application/rss+xml, application/xml;q=0.9, */*;q=0.8")
	if conditional {
		if prev.ETag != "" {
			req.Header.Set("If-None-Match", prev.ETag)
		}
		if prev.LastModified != "" {
			req.Header.Set("If-Modified-Since", prev.LastModified)
		}
	}

	resp, err := f.opts.Client.Do(req)
	if err != nil {
		return response{}, &FetchError{URL: f.opts.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && conditional {
		return response{notModified: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return response{}, &FetchError{URL: f.opts.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return response{}, &FetchError{URL: f.opts.URL, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return response{
		body:         body,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// parse converts a raw RSS/Atom document into our Feed type
func (f *RSSFetcher) parse(doc []byte) (types.Feed, error) {
	var feed types.Feed

	gofeedFeed, err := f.parser.Parse(bytes.NewReader(doc))
	if err != nil {
		return feed, &ParseError{URL: f.opts.URL, Err: err}
	}

	feed.Title = gofeedFeed.Title
	feed.Description = gofeedFeed.Description
	feed.Items = make([]types.FeedItem, 0, len(gofeedFeed.Items))
	for _, item := range gofeedFeed.Items {
		if item == nil {
			continue
		}
		feed.Items = append(feed.Items, convertItem(item))
	}

	return feed, nil
}

func convertItem(item *gofeed.Item) types.FeedItem {
	feedItem := types.FeedItem{
		Title:   item.Title,
		Link:    item.Link,
		Content: item.Content,
		GUID:    item.GUID,
	}
	if feedItem.Content == "" {
		feedItem.Content = item.Description
	}

	feedItem.Published = publishedText(item.Published, item.PublishedParsed)
	if feedItem.Published == "" {
		feedItem.Published = publishedText(item.Updated, item.UpdatedParsed)
	}

	return feedItem
}

// rssDateLayouts are the pubDate forms rewritten to RFC 3339
var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
}

// publishedText keeps ISO-8601 timestamps as written, so the date before
// "T" is the feed's own day. Other forms (RSS pubDate) are rewritten to
// RFC 3339 in the offset they carry.
func publishedText(raw string, parsed *time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if isISODate(raw) {
		return raw
	}
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	if parsed != nil {
		return parsed.Format(time.RFC3339)
	}
	return raw
}

// isISODate reports whether s starts with a YYYY-MM-DD date
func isISODate(s string) bool {
	if len(s) < 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s[:10])
	return err == nil
}

func nonEmpty(feed types.Feed) (types.Feed, error) {
	if len(feed.Items) == 0 {
		return feed, ErrEmptyFeed
	}
	return feed, nil
}
