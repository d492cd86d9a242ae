package anilist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"animebot/internal/news"
)

const upcomingQuery = `query ($perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(status: NOT_YET_RELEASED, type: ANIME, sort: ID_DESC) {
      id
      title { romaji english }
      startDate { year month day }
      siteUrl
      format
    }
  }
}`

const searchQuery = `query ($search: String, $type: MediaType) {
  Media(search: $search, type: $type) {
    id
    type
    title { romaji english }
    status
    format
    episodes
    chapters
    nextAiringEpisode { episode airingAt }
    siteUrl
    description
  }
}`

// Upcoming returns up to n not-yet-released anime, newest entry first.
func (c *Client) Upcoming(ctx context.Context, n int) ([]Media, error) {
	if n <= 0 {
		n = 10
	}
	var out struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	}
	if err := c.do(ctx, upcomingQuery, map[string]any{"perPage": n}, &out); err != nil {
		return nil, err
	}
	return out.Page.Media, nil
}

// FetchUpcoming maps Upcoming into announcements. Entries without any title
// are dropped.
func (c *Client) FetchUpcoming(ctx context.Context, n int) ([]news.Announcement, error) {
	media, err := c.Upcoming(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]news.Announcement, 0, len(media))
	for _, m := range media {
		title := m.DisplayTitle()
		if title == "" {
			continue
		}
		format := m.Format
		if format == "" {
			format = "?"
		}
		out = append(out, news.Announcement{
			Title:  title,
			URL:    m.SiteURL,
			Format: format,
			Date:   m.StartDate.String(),
		})
	}
	return out, nil
}

// Search looks a single title up. A search without a match returns nil, nil.
func (c *Client) Search(ctx context.Context, name string, kind Kind) (*Media, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("anilist: empty search")
	}
	if kind == "" {
		kind = KindAnime
	}
	var out struct {
		Media *Media `json:"Media"`
	}
	err := c.do(ctx, searchQuery, map[string]any{"search": name, "type": string(kind)}, &out)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Media, nil
}
