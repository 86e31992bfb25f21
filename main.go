package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/template"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/scipunch/labnews/cache"
	"github.com/scipunch/labnews/config"
	"github.com/scipunch/labnews/fetcher"
	"github.com/scipunch/labnews/fetcher/types"
	"github.com/scipunch/labnews/filter"
	"github.com/scipunch/labnews/render"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	indexFile = "index.html"
	newsFile  = "news.html"
)

// Page is the data handed to the page templates
type Page struct {
	News     string
	NewsPage string
}

func main() {
	var cfgPath string
	var outDir string
	var cleanCache bool
	flag.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML config")
	flag.StringVar(&outDir, "out", "", "directory for the generated pages (overrides output_directory)")
	flag.BoolVar(&cleanCache, "clean", false, "remove all cache entries")
	flag.Parse()

	// Read config and create if default is missing
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, conf); err != nil {
			log.Fatalf("failed to write default config with %s", err)
		}
	} else if err != nil {
		log.Fatalf("failed to read config with %s", err)
	}
	if outDir != "" {
		conf.OutputDirectory = outDir
	}

	logCloser := setupLogging(conf.LogFile)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feedCache, err := cache.NewCache(conf.CacheDirectory)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
	defer feedCache.Close()

	// Handle -clean flag
	if cleanCache {
		if err := feedCache.Clear(); err != nil {
			log.Fatalf("failed to clear cache: %v", err)
		}
		slog.Info("cache cleared successfully")
		return
	}

	stats, err := feedCache.Stats()
	if err != nil {
		slog.Warn("failed to get cache stats", "error", err)
	} else {
		slog.Info("cache initialized", "dir", conf.CacheDirectory, "entries", stats.Entries, "oldest", stats.OldestEntry, "last_accessed", stats.LastAccessed)
	}

	feedFetcher, err := fetcher.NewFromConfig(conf.Feed, feedCache)
	if err != nil {
		log.Fatalf("failed to initialize fetcher with %s", err)
	}

	filterPipeline, err := filter.NewFilterPipeline(conf.Filters)
	if err != nil {
		log.Fatalf("failed to initialize filters: %s", err)
	}
	if len(conf.Feed.FilterNames) > 0 {
		slog.Info("initialized filters", "count", len(conf.Feed.FilterNames))
	}

	pages, err := loadTemplates(conf.TemplateDirectory)
	if err != nil {
		log.Fatalf("failed to load page templates: %s", err)
	}

	if err := generate(ctx, conf, feedFetcher, filterPipeline, pages); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted by user, pages left untouched")
			return
		}
		log.Fatalf("failed to generate pages: %s", err)
	}
}

// generate fetches the news once and writes both pages
func generate(ctx context.Context, conf config.Config, f types.FeedFetcher, pipeline *filter.FilterPipeline, pages *template.Template) error {
	items := f.FetchItems(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	items = pipeline.Apply(items, conf.Feed.FilterNames)
	slog.Info("news items ready", "items", len(items))

	if err := os.MkdirAll(conf.OutputDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create output directory at '%s' with %w", conf.OutputDirectory, err)
	}

	r := render.New(conf.NewsPage)
	outputs := []struct {
		file string
		page Page
	}{
		{indexFile, Page{News: r.Summary(items, conf.SummaryLimit), NewsPage: conf.NewsPage}},
		{newsFile, Page{News: r.Full(items, conf.FullLimit), NewsPage: conf.NewsPage}},
	}

	var errs []error
	for _, out := range outputs {
		path := filepath.Join(conf.OutputDirectory, out.file)
		if err := writePage(path, pages, out.file, out.page); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("HTML file generated", "path", path)
	}
	return errors.Join(errs...)
}

// loadTemplates parses the page templates from dir, or the embedded ones
// when dir is empty
func loadTemplates(dir string) (*template.Template, error) {
	if dir == "" {
		return template.ParseFS(templatesFS, "templates/*.html")
	}
	t, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates in '%s' with %w", dir, err)
	}
	for _, name := range []string{indexFile, newsFile} {
		if t.Lookup(name) == nil {
			return nil, fmt.Errorf("template directory '%s' has no %s", dir, name)
		}
	}
	return t, nil
}

// writePage renders the page next to its destination and renames it into
// place, so readers never see a partially written file
func writePage(path string, pages *template.Template, name string, page Page) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := pages.ExecuteTemplate(tmp, name, page); err != nil {
		tmp.Close()
		return fmt.Errorf("could not render %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("could not set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not move %s into place: %w", path, err)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging installs the default slog logger, writing to a rotated file
// when logFile is set
func setupLogging(logFile string) io.Closer {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w, closer = rotated, rotated
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return closer
}
