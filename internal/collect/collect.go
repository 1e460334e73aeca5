// Package collect gathers text documents (feed items and web pages) that
// may mention upcoming earnings dates.
package collect

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/TobiSchelling/catalysts/internal/config"
)

// Document is a piece of text from an external source.
type Document struct {
	Source        string `json:"source"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Text          string `json:"text"`
	PublishedDate string `json:"publishedDate,omitempty"` // YYYY-MM-DD or empty
}

// Result holds the results of a collection run.
type Result struct {
	TotalFound int
	FeedItems  int
	Pages      int
	Failed     int
	Sources    map[string]int
}

// Collector orchestrates document collection from feeds and pages.
type Collector struct {
	feeds    *FeedParser
	pages    *PageFetcher
	daysBack int
}

// NewCollector creates a collector for the configured sources. A nil client
// uses a default client with a 15 second timeout.
func NewCollector(cfg *config.Config, client *http.Client) *Collector {
	if client == nil {
		client = NewHTTPClient(15 * time.Second)
	}
	c := &Collector{daysBack: cfg.Sources.DaysBack}

	if len(cfg.Sources.Feeds) > 0 {
		c.feeds = NewFeedParser(toSources(cfg.Sources.Feeds), client)
	}
	if len(cfg.Sources.Pages) > 0 {
		c.pages = NewPageFetcher(toSources(cfg.Sources.Pages), client)
	}
	return c
}

func toSources(in []config.Source) []SourceConfig {
	out := make([]SourceConfig, len(in))
	for i, s := range in {
		out[i] = SourceConfig{URL: s.URL, Name: s.Name}
	}
	return out
}

// Collect fetches documents from all configured sources.
func (c *Collector) Collect(ctx context.Context) ([]Document, *Result) {
	r := &Result{Sources: make(map[string]int)}
	var docs []Document

	if c.feeds != nil {
		log.Println("Collecting from RSS feeds...")
		items := c.feeds.ParseAll(ctx, c.daysBack)
		r.FeedItems = len(items)
		docs = append(docs, items...)
	}

	if c.pages != nil {
		log.Println("Fetching calendar pages...")
		pages, failed := c.pages.FetchAll(ctx)
		r.Pages = len(pages)
		r.Failed = failed
		docs = append(docs, pages...)
	}

	r.TotalFound = len(docs)
	for _, d := range docs {
		r.Sources[d.Source]++
	}

	log.Printf("Collection complete: %d documents (%d feed items, %d pages, %d failed)",
		r.TotalFound, r.FeedItems, r.Pages, r.Failed)
	return docs, r
}

// NewHTTPClient returns a client that follows at most 10 redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}
