// Package rss pulls extra news feeds (RSS, Atom, JSON Feed).
package rss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"animebot/internal/news"
)

// DefaultLimit caps entries per feed when Feed.Limit is unset.
const DefaultLimit = 20

type Feed struct {
	Name    string
	URL     string
	Limit   int           // 0 means DefaultLimit
	Timeout time.Duration // per feed; 0 means 15s
}

type Fetcher struct {
	feeds  []Feed
	parser *gofeed.Parser
}

// New builds a fetcher; client may be nil.
func New(feeds []Feed, userAgent string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &Fetcher{feeds: append([]Feed(nil), feeds...), parser: parser}
}

func (f *Fetcher) Len() int { return len(f.feeds) }

// FetchAll reads every feed in order. A failing feed does not stop the others;
// its error is joined into the returned error next to the items that did load.
func (f *Fetcher) FetchAll(ctx context.Context) ([]news.Item, error) {
	var (
		out  []news.Item
		errs []error
	)
	for _, feed := range f.feeds {
		items, err := f.fetch(ctx, feed)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, items...)
	}
	return out, errors.Join(errs...)
}

func (f *Fetcher) fetch(ctx context.Context, feed Feed) ([]news.Item, error) {
	timeout := feed.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(feed.URL, cctx)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", label(feed), err)
	}

	community := strings.TrimSpace(feed.Name)
	if community == "" {
		community = strings.TrimSpace(parsed.Title)
	}

	limit := feed.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	items := make([]news.Item, 0, min(len(parsed.Items), limit))
	for _, e := range parsed.Items {
		if len(items) >= limit {
			break
		}
		if e == nil || strings.TrimSpace(e.Title) == "" {
			continue
		}
		guid := strings.TrimSpace(e.GUID)
		if guid == "" {
			guid = strings.TrimSpace(e.Link)
		}
		if guid == "" {
			continue
		}
		it := news.Item{
			Title:     strings.TrimSpace(e.Title),
			URL:       e.Link,
			Community: community,
			GUID:      guid,
			Source:    news.SourceFeed,
		}
		switch {
		case e.PublishedParsed != nil:
			it.Created = e.PublishedParsed.UTC()
		case e.UpdatedParsed != nil:
			it.Created = e.UpdatedParsed.UTC()
		}
		items = append(items, it)
	}
	return items, nil
}

func label(f Feed) string {
	if f.Name != "" {
		return f.Name
	}
	return f.URL
}
