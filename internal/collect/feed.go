package collect

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 20

const userAgent = "catalysts/1.0 (earnings calendar)"

// SourceConfig represents a single feed or page.
type SourceConfig struct {
	URL  string
	Name string
}

// FeedParser parses RSS/Atom feeds into documents.
type FeedParser struct {
	feeds  []SourceConfig
	client *http.Client
	now    func() time.Time
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []SourceConfig, client *http.Client) *FeedParser {
	return &FeedParser{feeds: feeds, client: client, now: time.Now}
}

// ParseAll parses all configured feeds and returns items within daysBack.
// A feed that fails is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, daysBack int) []Document {
	cutoff := fp.now().AddDate(0, 0, -daysBack)
	var all []Document

	parser := gofeed.NewParser()
	parser.Client = fp.client
	parser.UserAgent = userAgent
	for _, fc := range fp.feeds {
		name := sourceName(fc)

		docs, err := parseFeed(ctx, parser, fc.URL, name, cutoff)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		all = append(all, docs...)
		log.Printf("Parsed %d entries from %s (within %d days)", len(docs), name, daysBack)
	}

	return all
}

func sourceName(sc SourceConfig) string {
	if sc.Name != "" {
		return sc.Name
	}
	return extractSourceName(sc.URL)
}

func parseFeed(ctx context.Context, parser *gofeed.Parser, feedURL, sourceName string, cutoff time.Time) ([]Document, error) {
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, item := range feed.Items {
		if len(docs) >= maxPerFeed {
			break
		}

		doc := parseItem(item, sourceName)
		if doc == nil {
			continue
		}
		if isWithinWindow(doc.PublishedDate, cutoff) {
			docs = append(docs, *doc)
		}
	}

	return docs, nil
}

func parseItem(item *gofeed.Item, source string) *Document {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}

	// The title goes on its own line so the calendar window sees it
	// separately from the body.
	text := title
	if content != "" {
		text += "\n" + content
	}

	return &Document{
		Source:        source,
		Title:         title,
		URL:           itemURL,
		Text:          text,
		PublishedDate: publishedDate,
	}
}

func isWithinWindow(publishedDate string, cutoff time.Time) bool {
	if publishedDate == "" {
		return true // benefit of the doubt
	}
	pub, err := time.Parse("2006-01-02", publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff.Truncate(24 * time.Hour))
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
