package collect

import (
	"bytes"
	"errors"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// maxPageBytes bounds how much of a page body is read.
const maxPageBytes = 5 << 20

// PageFetcher downloads web pages and extracts their readable text.
type PageFetcher struct {
	pages  []SourceConfig
	client *http.Client
}

// NewPageFetcher creates a new page fetcher.
func NewPageFetcher(pages []SourceConfig, client *http.Client) *PageFetcher {
	return &PageFetcher{pages: pages, client: client}
}

// FetchAll fetches every configured page. After an HTTP error the
// remaining pages on the same domain are skipped.
func (f *PageFetcher) FetchAll(ctx context.Context) ([]Document, int) {
	var docs []Document
	failed := 0
	failedDomains := make(map[string]struct{})

	for _, page := range f.pages {
		domain := ""
		if u, err := url.Parse(page.URL); err == nil {
			domain = strings.ToLower(u.Host)
		}

		if _, skip := failedDomains[domain]; skip {
			failed++
			continue
		}

		doc, err := f.Fetch(ctx, page)
		if err != nil {
			failed++
			var he *httpError
			if errors.As(err, &he) && domain != "" {
				failedDomains[domain] = struct{}{}
				log.Printf("HTTP error for %s, skipping remaining pages from %s", page.URL, domain)
			} else {
				log.Printf("Failed to fetch %s: %v", page.URL, err)
			}
			continue
		}
		if doc.Text == "" {
			failed++
			log.Printf("No extractable content from: %s", page.URL)
			continue
		}

		docs = append(docs, *doc)
		log.Printf("Fetched page: %s", doc.Title)
	}

	return docs, failed
}

// Fetch downloads one page and runs readability over it.
func (f *PageFetcher) Fetch(ctx context.Context, page SourceConfig) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}

	parsedURL, _ := url.Parse(page.URL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = page.URL
	}

	return &Document{
		Source: sourceName(page),
		Title:  title,
		URL:    page.URL,
		Text:   cleanText(article.TextContent),
	}, nil
}

// cleanText trims each line and drops blank ones, keeping the line
// structure the calendar window depends on.
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, http.StatusText(e.code))
}
