// Package news holds the items the bot announces and their identity keys.
package news

import (
	"strconv"
	"strings"
	"time"
)

type Source string

const (
	SourceAniList Source = "anilist"
	SourceReddit  Source = "reddit"
	SourceFeed    Source = "feed"
)

// Announcement is an upcoming title reported by AniList.
type Announcement struct {
	Title  string
	URL    string
	Format string
	Date   string
}

func (a Announcement) ID() string { return AnnouncementID(a.Title) }

// Item is a news post from a community feed.
type Item struct {
	Title     string
	URL       string
	Community string
	Created   time.Time
	GUID      string
	Source    Source
}

// ID returns the dedupe key. Feed items with a GUID use it; everything else
// is keyed by creation time.
func (it Item) ID() string {
	if it.Source == SourceFeed {
		if g := strings.TrimSpace(it.GUID); g != "" {
			return "feed_" + g
		}
	}
	return NewsID(it.Created)
}

func AnnouncementID(title string) string { return "announcement_" + title }

func NewsID(created time.Time) string {
	return "news_" + strconv.FormatInt(created.Unix(), 10)
}

// FormatDate renders a partial date as Y-M-D with "?" for unknown parts.
// A date with no parts at all is "TBA".
func FormatDate(year, month, day int) string {
	if year == 0 && month == 0 && day == 0 {
		return "TBA"
	}
	part := func(v int) string {
		if v == 0 {
			return "?"
		}
		return strconv.Itoa(v)
	}
	return part(year) + "-" + part(month) + "-" + part(day)
}

// PickTitle prefers the romaji title and falls back to English.
func PickTitle(romaji, english string) string {
	if t := strings.TrimSpace(romaji); t != "" {
		return t
	}
	return strings.TrimSpace(english)
}
