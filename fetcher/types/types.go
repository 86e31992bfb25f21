package types

import "context"

// Feed represents a parsed feed document
type Feed struct {
	Title       string
	Description string
	Items       []FeedItem
}

// FeedItem represents a single entry of a feed
type FeedItem struct {
	Title     string
	Link      string
	Published string // RFC 3339 when the feed date could be parsed, raw text otherwise
	Content   string // HTML body, rendered verbatim
	GUID      string
}

// FeedFetcher returns the items of a configured feed. Implementations never
// fail: an unavailable feed yields an empty slice.
type FeedFetcher interface {
	FetchItems(ctx context.Context) []FeedItem
}
