// Package news scrapes recent finance headlines for a stock from the
// Sina news search page. The scraper is best-effort: callers treat any
// failure as "no news" and analysis continues without it.
package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

const (
	defaultSearchURL = "https://search.sina.com.cn/"
	defaultLimit     = 5
	maxBodySize      = 4 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Item is one headline.
type Item struct {
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
	Source string `json:"source,omitempty"`
	Time   string `json:"time,omitempty"`
}

// Client fetches headlines for a stock name.
type Client struct {
	client    *http.Client
	searchURL string
	limit     int
}

// NewClient creates a headline client. limit caps the number of items
// per fetch; zero means the default.
func NewClient(limit int) *Client {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{
		client:    &http.Client{Timeout: 10 * time.Second},
		searchURL: defaultSearchURL,
		limit:     limit,
	}
}

// Fetch returns up to limit recent headlines mentioning the stock name,
// newest first as the search page orders them.
func (c *Client) Fetch(ctx context.Context, name string) ([]Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s?q=%s&c=news&from=channel", c.searchURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch headlines: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read headlines: %w", err)
	}
	// Older Sina pages still ship GBK.
	if !utf8.Valid(body) {
		if out, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), simplifiedchinese.GBK.NewDecoder())); err == nil {
			body = out
		}
	}

	return c.parse(body)
}

// parse extracts headline blocks from the search result markup.
func (c *Client) parse(body []byte) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse headlines: %w", err)
	}

	var items []Item
	doc.Find("div.box-result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		a := s.Find("h2 a").First()
		title := strings.TrimSpace(a.Text())
		if title == "" {
			return true
		}
		item := Item{Title: title}
		if href, ok := a.Attr("href"); ok {
			item.URL = strings.TrimSpace(href)
		}
		// The meta line reads "<source> <date> <time>".
		if meta := strings.Fields(s.Find("span.fgray_time").First().Text()); len(meta) > 0 {
			item.Source = meta[0]
			if len(meta) > 1 {
				item.Time = strings.Join(meta[1:], " ")
			}
		}
		items = append(items, item)
		return len(items) < c.limit
	})
	return items, nil
}
