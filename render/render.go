// Package render turns feed items into the HTML fragments embedded in the
// index and news pages.
//
// Fragments are produced with text/template, so item titles and bodies are
// written without escaping. The feed is trusted.
package render

import (
	"log/slog"
	"strings"
	"text/template"

	"github.com/scipunch/labnews/fetcher/types"
)

// DefaultNewsPage is the page the summary entries link to
const DefaultNewsPage = "news.html"

const summaryTmpl = `
{{- range $i, $item := .Items -}}
<li><a href='{{$.NewsPage}}#pos{{pos $i}}'>{{if eq $i 0}}<b>{{end}}{{date $item.Published}}: {{$item.Title}}{{if eq $i 0}}</b>{{end}}</a></li>
{{end -}}
`

const fullTmpl = `
{{- range $i, $item := .Items -}}
<a name='pos{{pos $i}}'><h2>{{$item.Title}} &nbsp; <font size='-1'>(posted {{date $item.Published}})</font></h2></a>
<p>{{$item.Content}}</p>

{{end -}}
`

var funcs = template.FuncMap{
	"date": DatePart,
	"pos":  func(i int) int { return i + 1 },
}

var (
	summaryTemplate = template.Must(template.New("summary").Funcs(funcs).Parse(summaryTmpl))
	fullTemplate    = template.Must(template.New("full").Funcs(funcs).Parse(fullTmpl))
	defaultRenderer = New(DefaultNewsPage)
)

// Renderer renders fragments whose anchors point at newsPage
type Renderer struct {
	newsPage string
}

type fragment struct {
	NewsPage string
	Items    []types.FeedItem
}

func New(newsPage string) *Renderer {
	if newsPage == "" {
		newsPage = DefaultNewsPage
	}
	return &Renderer{newsPage: newsPage}
}

// Summary renders one list entry per item, up to limit, the first in bold
func (r *Renderer) Summary(items []types.FeedItem, limit int) string {
	return r.execute(summaryTemplate, items, limit)
}

// Full renders a heading and the raw body per item, up to limit
func (r *Renderer) Full(items []types.FeedItem, limit int) string {
	return r.execute(fullTemplate, items, limit)
}

func (r *Renderer) execute(t *template.Template, items []types.FeedItem, limit int) string {
	items = First(items, limit)
	if len(items) == 0 {
		return ""
	}

	var out strings.Builder
	if err := t.Execute(&out, fragment{NewsPage: r.newsPage, Items: items}); err != nil {
		slog.Error("failed to render news fragment", "template", t.Name(), "error", err)
		return ""
	}
	return out.String()
}

// RenderSummary renders the index page fragment linking to DefaultNewsPage
func RenderSummary(items []types.FeedItem, limit int) string {
	return defaultRenderer.Summary(items, limit)
}

// RenderFull renders the news page fragment
func RenderFull(items []types.FeedItem, limit int) string {
	return defaultRenderer.Full(items, limit)
}

// First returns at most limit leading items
func First(items []types.FeedItem, limit int) []types.FeedItem {
	if limit <= 0 {
		return nil
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

// DatePart returns the date of an ISO-8601 timestamp, i.e. everything
// before the first "T"
func DatePart(published string) string {
	date, _, _ := strings.Cut(published, "T")
	return date
}
