package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"animebot/internal/news"
	"animebot/internal/notifier"
	"animebot/internal/sources/anilist"
	kit "animebot/internal/transport"
	"animebot/pkg/tgui"
)

const descriptionLimit = 200

// AnnouncementMessage renders a new-anime card, mention first.
func AnnouncementMessage(a news.Announcement, mention string) tgui.Message {
	lead := tgui.JoinH(" ", tgui.Esc(mention), tgui.Raw("🎊"), tgui.B("New anime announced!"))
	return tgui.New().
		Lead(lead).
		Title("🎬", a.Title, a.URL).
		KV("Format", a.Format).
		KV("Est. date", a.Date).
		KV("Type", "New anime").
		Footer("AniList").
		Build()
}

// NewsMessage renders a possible-news card.
func NewsMessage(it news.Item) tgui.Message {
	source, kind := it.Community, "Feed news"
	if it.Source == news.SourceReddit {
		source, kind = "r/"+it.Community, "Reddit news"
	}
	return tgui.New().
		Lead(tgui.JoinH(" ", tgui.Raw("🔍"), tgui.B("Possible news / leak"))).
		Title("📰", it.Title, it.URL).
		KV("Source", source).
		KV("Type", kind).
		Footer("⚠️ Unconfirmed information").
		Build()
}

func chatLabel(info kit.ChatInfo, dest kit.ChatTarget) string {
	label := info.DisplayName()
	if label == "" {
		label = strconv.FormatInt(dest.ChatID, 10)
	}
	if dest.ThreadID != 0 {
		label += " (topic " + strconv.Itoa(dest.ThreadID) + ")"
	}
	return label
}

func setupMessage(label, mention string) tgui.Message {
	if mention == "" {
		mention = "none"
	}
	return tgui.New().
		Title("✅", "Setup complete", "").
		KV("News chat", label).
		KV("Mention", mention).
		KV("Status", "Monitoring active").
		Build()
}

type statusView struct {
	Destination string
	Monitoring  bool
	Followed    Followed
	Seen        int
	Schedule    string
	Next        time.Time
	Last        *CycleReport
	Ping        time.Duration
	PingErr     error
	Polling     bool
	LastSent    *notifier.HistoryItem
	CoolingDown []string
}

func statusMessage(v statusView, now time.Time) tgui.Message {
	b := tgui.New().Title("🤖", "Bot status", "")
	dest := v.Destination
	if dest == "" {
		dest = "Not configured"
	}
	b.KV("News chat", dest)
	if v.Monitoring {
		b.KV("Monitoring", "✅ Yes")
	} else {
		b.KV("Monitoring", "❌ No")
	}
	b.KV("Followed series", fmt.Sprintf("%d manga, %d anime", len(v.Followed.Manga), len(v.Followed.Anime)))
	b.KV("Recent items", strconv.Itoa(v.Seen))
	if v.Polling {
		b.KV("Check", "running now")
	}
	b.KV("Schedule", v.Schedule)
	if !v.Next.IsZero() {
		b.KV("Next check", "in "+roundDuration(v.Next.Sub(now)))
	}
	if v.Last != nil {
		b.KV("Last check", fmt.Sprintf("%s ago, %d sent", roundDuration(now.Sub(v.Last.Started)), v.Last.Emitted()))
	}
	if v.LastSent != nil {
		b.KV("Last post", roundDuration(now.Sub(v.LastSent.At))+" ago")
	}
	if len(v.CoolingDown) > 0 {
		b.KV("Paused sources", strings.Join(v.CoolingDown, ", "))
	}
	switch {
	case v.PingErr != nil:
		b.KV("Ping", "error")
	case v.Ping > 0:
		b.KV("Ping", strconv.FormatInt(v.Ping.Milliseconds(), 10)+"ms")
	}
	return b.Build()
}

func roundDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Minute).String()
}

const seriesListMax = 10

func seriesMessage(f Followed) tgui.Message {
	b := tgui.New().Title("📚", "Followed series", "")
	section := func(title string, names []string) {
		b.Section(fmt.Sprintf("%s (%d)", title, len(names)))
		if len(names) == 0 {
			b.Line("nothing yet")
			return
		}
		shown := names
		if len(shown) > seriesListMax {
			shown = shown[:seriesListMax]
		}
		b.Bullets(shown...)
		if more := len(names) - len(shown); more > 0 {
			b.RawLine(tgui.I(fmt.Sprintf("…and %d more", more)))
		}
	}
	section("🎬 Anime", f.Anime)
	section("📖 Manga", f.Manga)
	return b.Build()
}

func recentMessage(ids []string) tgui.Message {
	b := tgui.New().Title("📰", "Latest tracked items", "")
	if len(ids) == 0 {
		b.Line("Nothing tracked yet.")
		return b.Build()
	}
	for _, id := range ids {
		b.RawLine(tgui.JoinH(" ", tgui.Raw("•"), tgui.Code(id)))
	}
	return b.Build()
}

func episodesOrUnknown(n int) string {
	if n <= 0 {
		return "?"
	}
	return strconv.Itoa(n)
}

func nextAiring(m *anilist.Media) string {
	if m.NextAiringEpisode == nil || m.NextAiringEpisode.AiringAt == 0 {
		return ""
	}
	return fmt.Sprintf("Ep %d, %s", m.NextAiringEpisode.Episode, m.NextAiringEpisode.Time().UTC().Format("2006-01-02 15:04 UTC"))
}

func infoMessage(m *anilist.Media) tgui.Message {
	b := tgui.New().
		Title("🎬", m.DisplayTitle(), m.SiteURL).
		KV("Status", anilist.HumanStatus(m.Status)).
		KV("Episodes", episodesOrUnknown(m.Episodes)).
		KV("Format", m.Format).
		KV("Next episode", nextAiring(m))
	if d := anilist.CleanDescription(m.Description, descriptionLimit); d != "" {
		b.Blank().Line(d)
	}
	return b.Footer("AniList").Build()
}

type lookupResult struct {
	Kind  anilist.Kind
	Media *anilist.Media
}

func lookupMessage(title string, results []lookupResult) tgui.Message {
	b := tgui.New().Title("💫", title, "")
	for _, r := range results {
		m := r.Media
		if r.Kind == anilist.KindManga {
			b.Section("📖 Manga")
		} else {
			b.Section("🎬 Anime")
		}
		if m.SiteURL != "" {
			b.RawLine(tgui.Link(m.DisplayTitle(), m.SiteURL))
		} else {
			b.RawLine(tgui.B(m.DisplayTitle()))
		}
		b.KV("Status", anilist.HumanStatus(m.Status))
		if r.Kind == anilist.KindManga {
			b.KV("Chapters", episodesOrUnknown(m.Chapters))
		} else {
			b.KV("Episodes", episodesOrUnknown(m.Episodes))
			b.KV("Next episode", nextAiring(m))
		}
	}
	if len(results) == 1 {
		if d := anilist.CleanDescription(results[0].Media.Description, descriptionLimit); d != "" {
			b.Blank().Line(d)
		}
	}
	return b.Footer("AniList").Build()
}

func quoteName(s string) string {
	return "“" + strings.TrimSpace(s) + "”"
}
