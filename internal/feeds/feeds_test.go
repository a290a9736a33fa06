package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Markets</title>
    <item>
      <title>  Fed signals rate cut  </title>
      <description><![CDATA[<p>The <b>Federal Reserve</b> said&nbsp;rates may fall.</p><script>track()</script>]]></description>
      <link>https://example.com/fed</link>
      <pubDate>Thu, 15 Oct 2026 14:30:00 -0400</pubDate>
    </item>
    <item>
      <title></title>
      <description>untitled items are skipped</description>
    </item>
    <item>
      <title>Quarterly report attached</title>
      <link>https://example.com/q3</link>
      <enclosure url="https://example.com/q3.pdf" type="application/pdf" length="1000"/>
      <pubDate>not a date</pubDate>
    </item>
  </channel>
</rss>`

func TestParse_RSS(t *testing.T) {
	items, err := Parse([]byte(sampleRSS))
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "Fed signals rate cut", first.Title)
	assert.Equal(t, "The Federal Reserve said rates may fall.", first.Description)
	assert.Equal(t, "https://example.com/fed", first.Link)
	assert.True(t, first.HasDate)
	assert.Equal(t, time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC), first.Published)

	second := items[1]
	assert.False(t, second.HasDate)
	assert.True(t, second.Enclosure.IsPDF())
	assert.Empty(t, second.Description)
}

func TestParse_NestedItems(t *testing.T) {
	body := `<feed><section><group><item><title>Deep</title></item></group></section></feed>`
	items, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Deep", items[0].Title)
}

func TestParse_AtomYieldsNoItems(t *testing.T) {
	body := `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><entry><title>x</title></entry></feed>`
	items, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`<rss><channel><item><title>broken</channel>`))
	assert.Error(t, err)
}

func TestParse_Latin1(t *testing.T) {
	body := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><rss><channel><item><title>Caf`), 0xE9)
	body = append(body, []byte(` earnings</title></item></channel></rss>`)...)
	items, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Café earnings", items[0].Title)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"Mon, 12 Oct 2026 08:00:00 GMT", time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC), true},
		{"Mon, 12 Oct 2026 08:00:00 +0900", time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC), true},
		{"12 Oct 2026 08:00 EST", time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC), true},
		{"2026-10-12T08:00:00Z", time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC), true},
		{"2026-10-12 08:00:00", time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			require.Equal(t, tt.ok, ok)
			require.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain text", StripHTML("  plain \n text "))
	assert.Equal(t, "AT&T shares rose 5%", StripHTML("<div>AT&amp;T <i>shares</i> rose 5%</div>"))
	assert.Equal(t, "", StripHTML("<style>p{}</style>"))
}

func TestCatalog_URLsDeduplicated(t *testing.T) {
	c := Catalog{Providers: []Provider{
		{Name: "a", URLs: []string{"https://x/1", "https://x/2"}},
		{Name: "b", URLs: []string{"https://x/2", " ", "https://x/3"}},
	}}
	assert.Equal(t, []string{"https://x/1", "https://x/2", "https://x/3"}, c.URLs())
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Len(t, c.Providers, 9)
	assert.Len(t, c.URLs(), 25)
}

func TestCatalog_SourceName(t *testing.T) {
	c := DefaultCatalog()
	tests := map[string]string{
		"https://feeds.finance.yahoo.com/rss/2.0/headline":     "Yahoo Finance",
		"https://feeds.marketwatch.com/marketwatch/topstories/": "MarketWatch",
		"https://feeds.bloomberg.com/markets/news.rss":          "Bloomberg",
		"https://feeds.reuters.com/reuters/businessNews":        "Reuters",
		"https://www.ft.com/rss/home":                           "Financial News",
	}
	for url, want := range tests {
		assert.Equal(t, want, c.SourceName(url), url)
	}
	assert.Equal(t, "Financial News", Catalog{}.SourceName("https://x"))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(sampleRSS))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 2048)))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	body, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, sampleRSS, string(body))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "unexpected status 410")

	f.MaxBytes = 1024
	_, err = f.Fetch(context.Background(), srv.URL+"/big")
	assert.ErrorContains(t, err, "exceeds")
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewFetcher(50*time.Millisecond).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFillFromEnclosures_KeepsEmptyOnBadPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a pdf"))
	}))
	defer srv.Close()

	items := []Item{
		{Title: "a", Enclosure: Enclosure{URL: srv.URL + "/a.pdf", Type: "application/pdf"}},
		{Title: "b", Description: "already set", Enclosure: Enclosure{URL: srv.URL + "/b.pdf", Type: "application/pdf"}},
	}
	n := NewFetcher(time.Second).FillFromEnclosures(context.Background(), items)
	assert.Zero(t, n)
	assert.Empty(t, items[0].Description)
	assert.Equal(t, "already set", items[1].Description)
}
