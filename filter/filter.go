package filter

import (
	"html"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/scipunch/labnews/config"
	"github.com/scipunch/labnews/fetcher/types"
)

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	blockRe = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6])\s*/?>`)
)

// FilterPipeline applies a series of named filters to feed items
type FilterPipeline struct {
	filters map[string]*CompiledFilter
}

// CompiledFilter contains compiled regex patterns for efficient matching
type CompiledFilter struct {
	config          config.Filter
	excludePatterns []*regexp.Regexp
	patternSources  []string
}

// NewFilterPipeline creates a new filter pipeline from config
func NewFilterPipeline(filtersConfig map[string]config.Filter) (*FilterPipeline, error) {
	compiled := make(map[string]*CompiledFilter, len(filtersConfig))

	for name, filterCfg := range filtersConfig {
		cf := &CompiledFilter{
			config:          filterCfg,
			excludePatterns: make([]*regexp.Regexp, 0, len(filterCfg.ExcludePatterns)),
		}

		for _, pattern := range filterCfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				slog.Warn("invalid regex pattern in filter", "filter", name, "pattern", pattern, "error", err)
				continue
			}
			cf.excludePatterns = append(cf.excludePatterns, re)
			cf.patternSources = append(cf.patternSources, pattern)
		}

		compiled[name] = cf
	}

	return &FilterPipeline{filters: compiled}, nil
}

// Apply keeps the items passing every filter in filterNames, preserving order
func (fp *FilterPipeline) Apply(items []types.FeedItem, filterNames []string) []types.FeedItem {
	if len(filterNames) == 0 {
		return items
	}

	kept := make([]types.FeedItem, 0, len(items))
	for _, item := range items {
		if ok, reason := fp.ShouldInclude(item, filterNames); !ok {
			slog.Debug("item filtered out", "title", item.Title, "reason", reason, "url", item.Link)
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// ShouldInclude returns true if the item passes all filters in the pipeline
// filterNames is a list of filter names to apply in order
func (fp *FilterPipeline) ShouldInclude(item types.FeedItem, filterNames []string) (bool, string) {
	for _, filterName := range filterNames {
		filter, exists := fp.filters[filterName]
		if !exists {
			slog.Warn("filter not found, skipping", "filter_name", filterName)
			continue
		}

		if shouldInclude, reason := filter.apply(item, filterName); !shouldInclude {
			return false, reason
		}
	}

	return true, ""
}

func (cf *CompiledFilter) apply(item types.FeedItem, filterName string) (bool, string) {
	text := item.Title + "\n" + plainText(item.Content)

	if cf.config.MinLength > 0 && len([]rune(text)) < cf.config.MinLength {
		return false, filterName + ":min_length"
	}

	if cf.config.MinWords > 0 && countWords(text) < cf.config.MinWords {
		return false, filterName + ":min_words"
	}

	for i, pattern := range cf.excludePatterns {
		if pattern.MatchString(text) {
			return false, filterName + ":exclude_pattern[" + cf.patternSources[i] + "]"
		}
	}

	// The title alone is one line, the body has to add another
	if cf.config.RequireParagraphs && !hasMultipleParagraphs(plainText(item.Content)) {
		return false, filterName + ":require_paragraphs"
	}

	return true, ""
}

// plainText drops markup from an HTML body, turning block ends into newlines
func plainText(s string) string {
	s = blockRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	return html.UnescapeString(s)
}

// countWords counts the number of words in text
func countWords(text string) int {
	words := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	return words
}

func hasMultipleParagraphs(text string) bool {
	nonEmptyLines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			nonEmptyLines++
		}
	}
	return nonEmptyLines >= 2
}
