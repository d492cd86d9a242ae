package filter

import (
	"strings"
	"testing"
	"time"

	"animebot/internal/news"
)

var keywords = []string{"season 2", "sequel", "announced", "leak"}

func TestMatch(t *testing.T) {
	t.Parallel()
	f, err := New(Config{Keywords: keywords, SeriesTerms: []string{"Dandadan"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tests := []struct {
		title  string
		extra  []string
		expect bool
	}{
		{"Frieren SEASON 2 confirmed for 2026", nil, true},
		{"Sequel announced!", nil, true},
		{"DANDADAN episode 5 discussion", nil, true},
		{"Weekly meme thread", nil, false},
		{"Weekly meme thread", []string{"  MEME thread "}, true},
		{"Weekly meme thread", []string{"", "  "}, false},
	}
	for _, tt := range tests {
		if got := f.Match(tt.title, tt.extra...); got != tt.expect {
			t.Fatalf("Match(%q, %v) = %v, want %v", tt.title, tt.extra, got, tt.expect)
		}
	}
}

func TestTermsAreNormalized(t *testing.T) {
	t.Parallel()
	f, _ := New(Config{Keywords: []string{" Leak ", "leak", ""}, SeriesTerms: []string{"One Piece"}})
	got := strings.Join(f.Terms(), ",")
	if got != "leak,one piece" {
		t.Fatalf("terms = %q", got)
	}
}

func TestApplyWithRule(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	f, err := New(Config{Keywords: keywords, Rule: `source == "reddit" && age_hours < 24 && !(title contains "[Meme]")`})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	items := []news.Item{
		{Title: "Season 2 announced", Source: news.SourceReddit, Created: now.Add(-time.Hour)},
		{Title: "[Meme] sequel leak", Source: news.SourceReddit, Created: now.Add(-time.Hour)},
		{Title: "Old sequel news", Source: news.SourceReddit, Created: now.Add(-48 * time.Hour)},
		{Title: "Feed sequel", Source: news.SourceFeed, Created: now},
		{Title: "nothing relevant", Source: news.SourceReddit, Created: now},
	}
	got, err := f.Apply(items, nil, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Season 2 announced" {
		t.Fatalf("kept = %+v", got)
	}
}

func TestApplyFollowed(t *testing.T) {
	t.Parallel()
	f, _ := New(Config{Keywords: keywords})
	items := []news.Item{{Title: "Spy x Family chapter 120"}, {Title: "Random"}}
	got, err := f.Apply(items, []string{"Spy x Family"}, time.Now())
	if err != nil || len(got) != 1 {
		t.Fatalf("kept=%+v err=%v", got, err)
	}
}

func TestNewRejectsBadRule(t *testing.T) {
	t.Parallel()
	for _, rule := range []string{`title ==`, `title`, `len(title) + 1`} {
		if _, err := New(Config{Rule: rule}); err == nil {
			t.Fatalf("rule %q compiled", rule)
		}
	}
}
