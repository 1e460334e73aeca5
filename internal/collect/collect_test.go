package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/catalysts/internal/config"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Earnings Wire</title>
  <link>https://example.com</link>
  <description>test</description>
  <item>
    <title>Apple to report Q1 results</title>
    <link>https://example.com/apple</link>
    <description>&lt;p&gt;Apple reports Jan 30 after market close.&lt;/p&gt;</description>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>Old news</title>
    <link>https://example.com/old</link>
    <description>stale</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://example.com/untitled</link>
  </item>
</channel>
</rss>`

const pageBody = `<!DOCTYPE html>
<html><head><title>Earnings Calendar</title></head>
<body>
<nav>Home | Markets</nav>
<article>
<h1>Earnings Calendar</h1>
<p>The following companies report earnings this week. Dates are confirmed by the companies and
timing is shown relative to the trading session for each report.</p>
<p>Microsoft</p>
<p>Jan 28</p>
<p>After market close, conference call at 5:30 PM Eastern with the full management team.</p>
<p>Tesla</p>
<p>Jan 29</p>
<p>Before market open, results will be posted on the investor relations site ahead of the call.</p>
</article>
</body></html>`

func newSourcesServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, rssBody, time.Now().UTC().Format(time.RFC1123Z))
	})
	mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageBody)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedParserParseAll(t *testing.T) {
	srv := newSourcesServer(t)
	fp := NewFeedParser([]SourceConfig{{URL: srv.URL + "/feed.xml", Name: "Wire"}}, srv.Client())

	docs := fp.ParseAll(context.Background(), 7)
	if len(docs) != 1 {
		t.Fatalf("expected 1 recent titled item, got %d: %+v", len(docs), docs)
	}
	doc := docs[0]
	if doc.Source != "Wire" || doc.URL != "https://example.com/apple" {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.Text != "Apple to report Q1 results\nApple reports Jan 30 after market close." {
		t.Errorf("unexpected text %q", doc.Text)
	}
	if doc.PublishedDate == "" {
		t.Error("expected published date")
	}
}

func TestFeedParserSkipsBrokenFeed(t *testing.T) {
	srv := newSourcesServer(t)
	fp := NewFeedParser([]SourceConfig{
		{URL: srv.URL + "/missing"},
		{URL: srv.URL + "/feed.xml"},
	}, srv.Client())

	if docs := fp.ParseAll(context.Background(), 7); len(docs) != 1 {
		t.Errorf("expected the working feed to still be parsed, got %d documents", len(docs))
	}
}

func TestPageFetcherFetch(t *testing.T) {
	srv := newSourcesServer(t)
	pf := NewPageFetcher(nil, srv.Client())

	doc, err := pf.Fetch(context.Background(), SourceConfig{URL: srv.URL + "/calendar", Name: "Calendar"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	for _, want := range []string{"Microsoft", "Jan 28", "Tesla"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("expected %q in page text %q", want, doc.Text)
		}
	}
	for _, line := range strings.Split(doc.Text, "\n") {
		if line == "" || strings.TrimSpace(line) != line {
			t.Errorf("expected trimmed non-empty lines, got %q", line)
		}
	}
}

func TestPageFetcherSkipsFailedDomain(t *testing.T) {
	var calendarHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
		calendarHits++
		fmt.Fprint(w, pageBody)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	pf := NewPageFetcher([]SourceConfig{
		{URL: srv.URL + "/missing"},
		{URL: srv.URL + "/calendar"},
	}, srv.Client())

	docs, failed := pf.FetchAll(context.Background())
	if len(docs) != 0 || failed != 2 {
		t.Errorf("expected both pages to fail, got docs=%d failed=%d", len(docs), failed)
	}
	if calendarHits != 0 {
		t.Errorf("expected the second page on a failed domain to be skipped, got %d hits", calendarHits)
	}
}

func TestCollectorCollect(t *testing.T) {
	srv := newSourcesServer(t)
	cfg := &config.Config{Sources: config.Sources{
		Feeds:    []config.Source{{URL: srv.URL + "/feed.xml", Name: "Wire"}},
		Pages:    []config.Source{{URL: srv.URL + "/calendar", Name: "Calendar"}},
		DaysBack: 7,
	}}

	docs, r := NewCollector(cfg, srv.Client()).Collect(context.Background())
	if len(docs) != 2 || r.TotalFound != 2 {
		t.Fatalf("expected 2 documents, got %d (%+v)", len(docs), r)
	}
	if r.FeedItems != 1 || r.Pages != 1 || r.Failed != 0 {
		t.Errorf("unexpected result %+v", r)
	}
	if r.Sources["Wire"] != 1 || r.Sources["Calendar"] != 1 {
		t.Errorf("unexpected per-source counts %v", r.Sources)
	}
}

func TestCollectorNoSources(t *testing.T) {
	docs, r := NewCollector(&config.Config{}, nil).Collect(context.Background())
	if len(docs) != 0 || r.TotalFound != 0 {
		t.Errorf("expected nothing collected, got %+v", r)
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Q3&nbsp;results &amp; guidance</p>\n<br/>AMC")
	if got != "Q3 results & guidance AMC" {
		t.Errorf("unexpected stripped text %q", got)
	}
}

func TestExtractSourceName(t *testing.T) {
	tests := map[string]string{
		"https://feeds.marketwatch.com/marketwatch/topstories/": "Marketwatch",
		"https://www.nasdaq.com/feed":                           "Nasdaq",
		"localhost":                                             "localhost",
	}
	for in, want := range tests {
		if got := extractSourceName(in); got != want {
			t.Errorf("extractSourceName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsWithinWindow(t *testing.T) {
	cutoff := time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC)
	if !isWithinWindow("", cutoff) {
		t.Error("expected undated items to be kept")
	}
	if !isWithinWindow("2025-01-10", cutoff) {
		t.Error("expected the cutoff day to be inside the window")
	}
	if isWithinWindow("2025-01-09", cutoff) {
		t.Error("expected earlier items to be dropped")
	}
}
