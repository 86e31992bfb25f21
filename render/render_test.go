package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipunch/labnews/fetcher/types"
)

func sampleItems(n int) []types.FeedItem {
	items := make([]types.FeedItem, n)
	for i := range items {
		items[i] = types.FeedItem{
			Title:     fmt.Sprintf("Post %d", i+1),
			Link:      fmt.Sprintf("https://example.com/post/%d", i+1),
			Published: fmt.Sprintf("2021-05-%02dT14:22:00Z", 20-i),
			Content:   fmt.Sprintf("<p>Body %d</p>", i+1),
		}
	}
	return items
}

func TestRenderSummary_FirstFourOfFive(t *testing.T) {
	out := RenderSummary(sampleItems(5), 4)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "<li><a href='news.html#pos1'><b>2021-05-20: Post 1</b></a></li>", lines[0])
	assert.Equal(t, "<li><a href='news.html#pos2'>2021-05-19: Post 2</a></li>", lines[1])
	assert.Equal(t, "<li><a href='news.html#pos4'>2021-05-17: Post 4</a></li>", lines[3])
	assert.Equal(t, 1, strings.Count(out, "<b>"))
	assert.NotContains(t, out, "Post 5")
}

func TestRenderSummary_FewerItemsThanLimit(t *testing.T) {
	for n := 0; n < 4; n++ {
		t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
			out := RenderSummary(sampleItems(n), 4)
			assert.Equal(t, n, strings.Count(out, "<li>"))
		})
	}
}

func TestRenderSummary_NonPositiveLimit(t *testing.T) {
	assert.Empty(t, RenderSummary(sampleItems(3), 0))
	assert.Empty(t, RenderFull(sampleItems(3), -1))
}

func TestRenderFull(t *testing.T) {
	items := sampleItems(20)
	out := RenderFull(items, 14)

	assert.Equal(t, 14, strings.Count(out, "<h2>"))
	assert.Contains(t, out, "<a name='pos14'>")
	assert.NotContains(t, out, "pos15")

	first := "<a name='pos1'><h2>Post 1 &nbsp; <font size='-1'>(posted 2021-05-20)</font></h2></a>\n<p><p>Body 1</p></p>\n\n"
	assert.True(t, strings.HasPrefix(out, first), "unexpected fragment start: %q", out[:len(first)])
}

func TestRender_DoesNotEscape(t *testing.T) {
	items := []types.FeedItem{{
		Title:     "Tom & Jerry <i>live</i>",
		Published: "2021-05-03T14:22:00Z",
		Content:   `<img src="x.png"> a & b`,
	}}

	assert.Contains(t, RenderSummary(items, 4), "Tom & Jerry <i>live</i>")
	assert.Contains(t, RenderFull(items, 14), `<p><img src="x.png"> a & b</p>`)
}

func TestRender_Deterministic(t *testing.T) {
	items := sampleItems(6)
	assert.Equal(t, RenderSummary(items, 4), RenderSummary(items, 4))
	assert.Equal(t, RenderFull(items, 14), RenderFull(items, 14))
}

func TestRenderer_NewsPage(t *testing.T) {
	r := New("news.php")
	assert.Contains(t, r.Summary(sampleItems(1), 4), "href='news.php#pos1'")

	assert.Contains(t, New("").Summary(sampleItems(1), 4), "href='news.html#pos1'")
}

func TestDatePart(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2021-05-03T14:22:00Z", "2021-05-03"},
		{"2021-05-03T14:22:00.000-07:00", "2021-05-03"},
		{"2021-05-03", "2021-05-03"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DatePart(tt.in))
		})
	}
}

func TestFirst(t *testing.T) {
	items := sampleItems(3)
	assert.Len(t, First(items, 2), 2)
	assert.Len(t, First(items, 10), 3)
	assert.Nil(t, First(items, 0))
}
