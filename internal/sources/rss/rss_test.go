package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"animebot/internal/news"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Anime News Network</title>
<item><title>Dandadan season 2 trailer</title><link>https://example.com/a</link><guid>ann-1</guid><pubDate>Mon, 13 Oct 2025 10:00:00 +0000</pubDate></item>
<item><title>No guid here</title><link>https://example.com/b</link></item>
<item><title>   </title><link>https://example.com/c</link></item>
<item><title>Over the limit</title><guid>ann-4</guid></item>
</channel></rss>`

func TestFetchAll(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, sampleRSS)
	}))
	t.Cleanup(srv.Close)

	f := New([]Feed{
		{URL: srv.URL + "/feed.xml", Limit: 2, Timeout: 2 * time.Second},
		{Name: "broken", URL: srv.URL + "/broken"},
	}, "animebot-test", srv.Client())

	items, err := f.FetchAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "feed broken") {
		t.Fatalf("err = %v, want broken feed error", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	first := items[0]
	if first.ID() != "feed_ann-1" || first.Community != "Anime News Network" || first.Source != news.SourceFeed {
		t.Fatalf("first = %+v (id %q)", first, first.ID())
	}
	if want := time.Date(2025, 10, 13, 10, 0, 0, 0, time.UTC); !first.Created.Equal(want) {
		t.Fatalf("created = %v", first.Created)
	}
	if items[1].ID() != "feed_https://example.com/b" {
		t.Fatalf("link fallback id = %q", items[1].ID())
	}
}

func TestFetchAllEmpty(t *testing.T) {
	t.Parallel()
	items, err := New(nil, "", nil).FetchAll(context.Background())
	if err != nil || len(items) != 0 {
		t.Fatalf("items=%v err=%v", items, err)
	}
}

func TestFetchAllDefaultLimit(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Big</title>`)
	for i := range 50 {
		fmt.Fprintf(&b, `<item><title>Item %d</title><guid>big-%d</guid></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, b.String())
	}))
	t.Cleanup(srv.Close)

	items, err := New([]Feed{{URL: srv.URL}}, "", srv.Client()).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(items) != DefaultLimit || items[0].GUID != "big-0" {
		t.Fatalf("got %d items, want %d newest-first entries", len(items), DefaultLimit)
	}
}
