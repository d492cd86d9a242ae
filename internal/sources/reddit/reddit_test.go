package reddit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// redirect sends every request to the test server, keeping path and query.
type redirect struct{ target *url.URL }

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = r.target.Scheme
	out.URL.Host = r.target.Host
	out.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func newTestFetcher(t *testing.T, cfg Config, h http.HandlerFunc) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	cfg.HTTPClient = &http.Client{Transport: redirect{target: u}, Timeout: 2 * time.Second}
	return New(cfg)
}

const listing = `{"kind":"Listing","data":{"after":null,"before":null,"children":[
 {"kind":"t3","data":{"id":"a1","name":"t3_a1","title":"Frieren Season 2 announced","permalink":"/r/anime/comments/a1/frieren/","subreddit":"anime","created_utc":1760000000}},
 {"kind":"t3","data":{"id":"a2","name":"t3_a2","title":"","permalink":"/r/anime/comments/a2/x/","subreddit":"anime","created_utc":1760000100}},
 {"kind":"t3","data":{"id":"a3","name":"t3_a3","title":"Weekly discussion","permalink":"/r/anime/comments/a3/weekly/","subreddit":"","created_utc":1760000200}},
 {"kind":"t3","data":{"id":"a4","name":"t3_a4","title":"Sequel leak, no timestamp","permalink":"/r/anime/comments/a4/x/","subreddit":"anime"}},
 {"kind":"t3","data":{"id":"a5","name":"t3_a5","title":"Another undated post","permalink":"/r/anime/comments/a5/x/","subreddit":"anime"}}
]}}`

func TestFetchNew(t *testing.T) {
	t.Parallel()
	f := newTestFetcher(t, Config{Subreddit: "r/anime", Limit: 15, UserAgent: "animebot-test"}, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/r/anime/new") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "15" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		if !strings.Contains(r.Header.Get("User-Agent"), "animebot-test") {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, listing)
	})

	items, err := f.FetchNew(context.Background())
	if err != nil {
		t.Fatalf("FetchNew: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	first := items[0]
	if first.Title != "Frieren Season 2 announced" || first.URL != "https://www.reddit.com/r/anime/comments/a1/frieren/" {
		t.Fatalf("first = %+v", first)
	}
	if first.Community != "anime" || first.ID() != "news_1760000000" {
		t.Fatalf("first community=%q id=%q", first.Community, first.ID())
	}
	if items[1].Community != "anime" {
		t.Fatalf("community fallback = %q", items[1].Community)
	}
	for _, it := range items {
		if it.Created.IsZero() {
			t.Fatalf("undated post %q was kept with id %q", it.Title, it.ID())
		}
	}
}

func TestFetchNewError(t *testing.T) {
	t.Parallel()
	f := newTestFetcher(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Service Unavailable","error":503}`, http.StatusServiceUnavailable)
	})
	if _, err := f.FetchNew(context.Background()); err == nil || !strings.Contains(err.Error(), "r/anime") {
		t.Fatalf("err = %v", err)
	}
}

func TestCanonicalPostURL(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"", ""},
		{"/r/anime/comments/x/", "https://www.reddit.com/r/anime/comments/x/"},
		{"r/anime/comments/x/", "https://www.reddit.com/r/anime/comments/x/"},
		{"https://redd.it/x", "https://redd.it/x"},
	}
	for _, tt := range tests {
		if got := canonicalPostURL(tt.in); got != tt.want {
			t.Fatalf("canonicalPostURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
