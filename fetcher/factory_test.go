package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipunch/labnews/config"
)

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().Feed
	cfg.MaxRetries = 2
	cfg.ServeStaleOnError = true

	f, err := NewFromConfig(cfg, newTestStore(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFeedURL, f.opts.URL)
	assert.Equal(t, time.Hour, f.opts.TTL)
	assert.Equal(t, 5*time.Second, f.opts.Timeout)
	assert.Equal(t, 2, f.opts.Retry.MaxRetries)
	assert.True(t, f.opts.ServeStaleOnError)
	assert.NotEmpty(t, f.opts.UserAgent)
}

func TestNewFromConfig_ZeroTTLIsKept(t *testing.T) {
	cfg := config.Default().Feed
	cfg.TTL = config.Duration{}
	cfg.Timeout = config.Duration{}

	f, err := NewFromConfig(cfg, newTestStore(t))
	require.NoError(t, err)
	assert.Zero(t, f.opts.TTL)
	assert.Equal(t, config.DefaultTimeout, f.opts.Timeout)
}

func TestNewFromConfig_Invalid(t *testing.T) {
	cfg := config.Default().Feed

	cfg.URL = "ftp://example.com/feed"
	_, err := NewFromConfig(cfg, newTestStore(t))
	assert.Error(t, err)

	cfg.URL = "https://example.com/feed"
	_, err = NewFromConfig(cfg, nil)
	assert.Error(t, err)
}
