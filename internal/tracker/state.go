package tracker

import (
	"errors"
	"slices"
	"strings"
	"sync"

	kit "animebot/internal/transport"
)

// Errors returned by Follow.
var (
	ErrAlreadyFollowed = errors.New("series already followed")
	ErrUnknownKind     = errors.New("kind must be manga or anime")
	ErrEmptyName       = errors.New("series name is empty")
)

// Kind is the media kind a followed series belongs to.
type Kind string

const (
	KindManga Kind = "manga"
	KindAnime Kind = "anime"
)

// ParseKind accepts manga/anime in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindManga:
		return KindManga, nil
	case KindAnime:
		return KindAnime, nil
	}
	return "", ErrUnknownKind
}

// Followed lists the series names the bot reports on.
type Followed struct {
	Manga []string
	Anime []string
}

// All returns manga then anime names.
func (f Followed) All() []string {
	return append(append([]string(nil), f.Manga...), f.Anime...)
}

// State is everything the bot mutates at runtime. It lives in memory only.
type State struct {
	mu       sync.RWMutex
	dest     kit.ChatTarget
	mention  string
	seen     *SeenSet
	seenCap  int
	followed Followed
}

// NewState starts with an empty SeenSet. A non-positive seenCap means 100.
func NewState(dest kit.ChatTarget, mention string, seenCap int, followed Followed) *State {
	if seenCap <= 0 {
		seenCap = 100
	}
	return &State{
		dest:    dest,
		mention: strings.TrimSpace(mention),
		seen:    NewSeenSet(),
		seenCap: seenCap,
		followed: Followed{
			Manga: slices.Clone(followed.Manga),
			Anime: slices.Clone(followed.Anime),
		},
	}
}

// Destination returns the news chat and the mention prepended to posts.
// A zero ChatID means none is configured.
func (s *State) Destination() (kit.ChatTarget, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dest, s.mention
}

// SetDestination replaces the news chat, as /setup does.
func (s *State) SetDestination(dest kit.ChatTarget, mention string) {
	s.mu.Lock()
	s.dest = dest
	s.mention = strings.TrimSpace(mention)
	s.mu.Unlock()
}

// Seen reports whether an item id was already posted.
func (s *State) Seen(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen.Has(id)
}

// MarkSeen records id. The cap is only enforced by TrimSeen.
func (s *State) MarkSeen(id string) {
	s.mu.Lock()
	s.seen.Add(id)
	s.mu.Unlock()
}

func (s *State) SeenLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen.Len()
}

// RecentSeen returns up to n seen ids, newest first.
func (s *State) RecentSeen(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen.Recent(n)
}

// TrimSeen enforces the cap and returns the number of evicted ids. It never
// keeps fewer than minKeep entries, so a cycle that fetched more items than
// the cap does not evict ids its sources will return again.
func (s *State) TrimSeen(minKeep int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.Trim(max(s.seenCap, minKeep))
}

// Followed returns a copy of the followed series.
func (s *State) Followed() Followed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Followed{Manga: slices.Clone(s.followed.Manga), Anime: slices.Clone(s.followed.Anime)}
}

// Follow appends name to the kind's list. Names compare case-insensitively.
func (s *State) Follow(kind Kind, name string) error {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var list *[]string
	switch kind {
	case KindManga:
		list = &s.followed.Manga
	case KindAnime:
		list = &s.followed.Anime
	default:
		return ErrUnknownKind
	}
	for _, have := range *list {
		if strings.EqualFold(have, name) {
			return ErrAlreadyFollowed
		}
	}
	*list = append(*list, name)
	return nil
}
