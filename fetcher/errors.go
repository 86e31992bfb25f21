package fetcher

import (
	"errors"
	"fmt"
)

// ErrEmptyFeed is returned when a feed document parsed fine but holds no items
var ErrEmptyFeed = errors.New("feed has no items")

// FetchError is a transport failure or an unexpected HTTP status
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError means the fetched or cached document is not a valid RSS/Atom feed
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
