package anilist

import (
	"strings"
	"time"

	"animebot/internal/news"
)

// Kind is AniList's MediaType.
type Kind string

const (
	KindAnime Kind = "ANIME"
	KindManga Kind = "MANGA"
)

// ParseKind accepts anime/manga in any case.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindAnime:
		return KindAnime, true
	case KindManga:
		return KindManga, true
	}
	return "", false
}

type Title struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
}

type FuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d FuzzyDate) String() string { return news.FormatDate(d.Year, d.Month, d.Day) }

type AiringEpisode struct {
	Episode  int   `json:"episode"`
	AiringAt int64 `json:"airingAt"`
}

func (a AiringEpisode) Time() time.Time { return time.Unix(a.AiringAt, 0) }

type Media struct {
	ID                int            `json:"id"`
	Title             Title          `json:"title"`
	Type              Kind           `json:"type"`
	Format            string         `json:"format"`
	Status            string         `json:"status"`
	Episodes          int            `json:"episodes"`
	Chapters          int            `json:"chapters"`
	StartDate         FuzzyDate      `json:"startDate"`
	NextAiringEpisode *AiringEpisode `json:"nextAiringEpisode"`
	SiteURL           string         `json:"siteUrl"`
	Description       string         `json:"description"`
}

func (m Media) DisplayTitle() string { return news.PickTitle(m.Title.Romaji, m.Title.English) }

// HumanStatus turns NOT_YET_RELEASED into "Not yet released".
func HumanStatus(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown"
	}
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:]
}
