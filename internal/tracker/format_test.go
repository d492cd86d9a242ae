package tracker

import (
	"strings"
	"testing"

	"animebot/internal/news"
)

func TestAnnouncementMessage(t *testing.T) {
	t.Parallel()
	a := news.Announcement{Title: "Example <Anime>", URL: "https://anilist.co/anime/1", Format: "TV", Date: "2027-1-?"}
	want := strings.Join([]string{
		`@fans 🎊 <b>New anime announced!</b>`,
		`🎬 <b><a href="https://anilist.co/anime/1">Example &lt;Anime&gt;</a></b>`,
		``,
		`• <b>Format</b>: TV`,
		`• <b>Est. date</b>: 2027-1-?`,
		`• <b>Type</b>: New anime`,
		``,
		`<i>AniList</i>`,
	}, "\n")
	msg := AnnouncementMessage(a, "@fans")
	if msg.Text != want {
		t.Fatalf("text:\n%s\nwant:\n%s", msg.Text, want)
	}
	if !msg.Opt.DisablePreview {
		t.Fatal("preview should be off")
	}
	if got := AnnouncementMessage(a, "").Text; !strings.HasPrefix(got, "🎊 <b>") {
		t.Fatalf("no-mention lead = %q", strings.SplitN(got, "\n", 2)[0])
	}
}

func TestNewsMessageSources(t *testing.T) {
	t.Parallel()
	reddit := NewsMessage(news.Item{Title: "Sequel", Community: "anime", Source: news.SourceReddit}).Text
	if !strings.Contains(reddit, "r/anime") || !strings.Contains(reddit, "Reddit news") {
		t.Fatalf("reddit card = %q", reddit)
	}
	feed := NewsMessage(news.Item{Title: "Sequel", Community: "ANN", Source: news.SourceFeed}).Text
	if strings.Contains(feed, "r/ANN") || !strings.Contains(feed, "<b>Source</b>: ANN") {
		t.Fatalf("feed card = %q", feed)
	}
}
