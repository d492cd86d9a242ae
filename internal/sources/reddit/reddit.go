// Package reddit fetches the newest posts of a subreddit through the public
// read-only API.
package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goreddit "github.com/vartanbeno/go-reddit/v2/reddit"

	"animebot/internal/news"
)

type Config struct {
	Subreddit  string
	Limit      int
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client // optional; Timeout is ignored when set
}

type Fetcher struct {
	client    *goreddit.Client
	initErr   error
	subreddit string
	limit     int
}

func New(cfg Config) *Fetcher {
	sub := strings.TrimPrefix(strings.TrimSpace(cfg.Subreddit), "r/")
	if sub == "" {
		sub = "anime"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 15
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "animebot/1.0"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	client, err := goreddit.NewReadonlyClient(goreddit.WithHTTPClient(hc), goreddit.WithUserAgent(cfg.UserAgent))
	return &Fetcher{client: client, initErr: err, subreddit: sub, limit: cfg.Limit}
}

func (f *Fetcher) Subreddit() string { return f.subreddit }

// FetchNew returns the newest posts, newest first, unfiltered.
func (f *Fetcher) FetchNew(ctx context.Context) ([]news.Item, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	posts, _, err := f.client.Subreddit.NewPosts(ctx, f.subreddit, &goreddit.ListOptions{Limit: f.limit})
	if err != nil {
		return nil, fmt.Errorf("reddit: r/%s new: %w", f.subreddit, err)
	}

	items := make([]news.Item, 0, len(posts))
	for _, p := range posts {
		if p == nil || strings.TrimSpace(p.Title) == "" {
			continue
		}
		// the creation time is the post's identity
		created, ok := timestampToTime(p.Created)
		if !ok {
			continue
		}
		community := p.SubredditName
		if community == "" {
			community = f.subreddit
		}
		items = append(items, news.Item{
			Title:     p.Title,
			URL:       canonicalPostURL(p.Permalink),
			Community: community,
			Created:   created,
			Source:    news.SourceReddit,
		})
	}
	return items, nil
}

func canonicalPostURL(permalink string) string {
	switch {
	case permalink == "":
		return ""
	case strings.HasPrefix(permalink, "http://"), strings.HasPrefix(permalink, "https://"):
		return permalink
	case strings.HasPrefix(permalink, "/"):
		return "https://www.reddit.com" + permalink
	default:
		return "https://www.reddit.com/" + permalink
	}
}

func timestampToTime(ts *goreddit.Timestamp) (time.Time, bool) {
	if ts == nil || ts.Time.IsZero() {
		return time.Time{}, false
	}
	return ts.Time.UTC(), true
}
