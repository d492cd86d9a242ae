package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"animebot/internal/eventbus"
	"animebot/internal/filter"
	"animebot/internal/news"
	"animebot/internal/sources/breaker"
	"animebot/internal/task/scheduler"
	kit "animebot/internal/transport"
	logx "animebot/pkg/logx"
)

var (
	// ErrPollInFlight is returned when a cycle is already running.
	ErrPollInFlight = errors.New("poll already in progress")
	// ErrNoDestination is returned when no news chat has been set up.
	ErrNoDestination = errors.New("no destination chat configured")
)

// AnnouncementSource lists upcoming releases; *anilist.Client implements it.
type AnnouncementSource interface {
	FetchUpcoming(ctx context.Context, n int) ([]news.Announcement, error)
}

// NewsSource returns the latest community posts.
type NewsSource interface {
	FetchNew(ctx context.Context) ([]news.Item, error)
}

type FeedSource interface {
	FetchAll(ctx context.Context) ([]news.Item, error)
}

// Sender delivers one notification; *notifier.Service implements it.
type Sender interface {
	Send(ctx context.Context, n kit.Notification) error
}

type PollerConfig struct {
	AnnouncementLimit int // default 10
}

type Poller struct {
	cfg      PollerConfig
	state    *State
	upcoming AnnouncementSource
	reddit   NewsSource
	feeds    FeedSource // optional
	filter   *filter.Filter
	sender   Sender
	resolver kit.ChatResolver // optional
	breaker  *breaker.Breaker // optional
	log      logx.Logger
	bus      eventbus.Bus

	inFlight atomic.Bool
	last     atomic.Pointer[CycleReport]
}

// PollerDeps wires the poller. Feeds, Resolver and Breaker may be nil.
type PollerDeps struct {
	State    *State
	Upcoming AnnouncementSource
	Reddit   NewsSource
	Feeds    FeedSource
	Filter   *filter.Filter
	Sender   Sender
	Resolver kit.ChatResolver
	Breaker  *breaker.Breaker
	Log      logx.Logger
	Bus      eventbus.Bus
}

// NewPoller fills defaults. Without a Filter only followed series match.
func NewPoller(cfg PollerConfig, d PollerDeps) *Poller {
	if cfg.AnnouncementLimit <= 0 {
		cfg.AnnouncementLimit = 10
	}
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Filter == nil {
		d.Filter, _ = filter.New(filter.Config{})
	}
	return &Poller{
		cfg:      cfg,
		state:    d.State,
		upcoming: d.Upcoming,
		reddit:   d.Reddit,
		feeds:    d.Feeds,
		filter:   d.Filter,
		sender:   d.Sender,
		resolver: d.Resolver,
		breaker:  d.Breaker,
		log:      d.Log,
		bus:      d.Bus,
	}
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	ID            string
	Trigger       string
	Started       time.Time
	Duration      time.Duration
	Skipped       bool
	Announcements int // fetched
	NewsFetched   int // after filtering
	Announced     int // emitted
	NewsSent      int // emitted
	SendErrors    int
	Evicted       int
}

// Emitted counts items posted this cycle.
func (r CycleReport) Emitted() int { return r.Announced + r.NewsSent }

// Running reports whether a cycle is in progress.
func (p *Poller) Running() bool { return p.inFlight.Load() }

// Last returns the most recent finished cycle, if any.
func (p *Poller) Last() (CycleReport, bool) {
	r := p.last.Load()
	if r == nil {
		return CycleReport{}, false
	}
	return *r, true
}

// PollOnce runs one fetch-filter-emit-trim cycle. Only one cycle runs at a
// time; a concurrent call gets ErrPollInFlight. Fetch and send failures are
// logged, never returned.
func (p *Poller) PollOnce(ctx context.Context, trigger string) (rep CycleReport, err error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		eventbus.Publish(p.bus, eventbus.PollSkipped, map[string]any{"trigger": trigger})
		return CycleReport{Trigger: trigger, Skipped: true}, ErrPollInFlight
	}
	defer p.inFlight.Store(false)

	rep = CycleReport{ID: uuid.NewString(), Trigger: trigger, Started: time.Now()}
	log := p.log.With(logx.String("cycle", rep.ID), logx.String("trigger", trigger))
	eventbus.Publish(p.bus, eventbus.PollStarted, rep)
	defer func() {
		rep.Duration = time.Since(rep.Started)
		done := rep
		p.last.Store(&done)
		eventbus.Publish(p.bus, eventbus.PollFinished, done)
	}()

	dest, mention, err := p.destination(ctx)
	if err != nil {
		rep.Skipped = true
		log.Info("poll skipped", logx.Err(err))
		return rep, err
	}

	anns := p.FetchAnnouncements(ctx)
	items := p.FetchNews(ctx)
	rep.Announcements, rep.NewsFetched = len(anns), len(items)

	for _, a := range anns {
		id := a.ID()
		if p.state.Seen(id) {
			continue
		}
		msg := AnnouncementMessage(a, mention)
		if err := p.send(ctx, dest, id, msg.Text, msg.Opt); err != nil {
			rep.SendErrors++
			log.Warn("announcement send failed; skipping rest of source", logx.String("id", id), logx.Err(err))
			break
		}
		p.state.MarkSeen(id)
		rep.Announced++
	}

	for _, it := range items {
		id := it.ID()
		if p.state.Seen(id) {
			continue
		}
		msg := NewsMessage(it)
		if err := p.send(ctx, dest, id, msg.Text, msg.Opt); err != nil {
			rep.SendErrors++
			log.Warn("news send failed; skipping rest of source", logx.String("id", id), logx.Err(err))
			break
		}
		p.state.MarkSeen(id)
		rep.NewsSent++
	}

	rep.Evicted = p.state.TrimSeen(len(anns) + len(items))
	log.Info("poll finished",
		logx.Int("announcements", rep.Announcements),
		logx.Int("news", rep.NewsFetched),
		logx.Int("emitted", rep.Emitted()),
		logx.Int("evicted", rep.Evicted),
		logx.Duration("dur", time.Since(rep.Started)),
	)
	return rep, nil
}

func (p *Poller) destination(ctx context.Context) (kit.ChatTarget, string, error) {
	dest, mention := p.state.Destination()
	if dest.IsZero() {
		return dest, mention, ErrNoDestination
	}
	if p.resolver != nil {
		if _, err := p.resolver.ResolveChat(ctx, dest.ChatID); err != nil {
			return dest, mention, fmt.Errorf("%w: chat %d: %v", ErrNoDestination, dest.ChatID, err)
		}
	}
	return dest, mention, nil
}

func (p *Poller) send(ctx context.Context, to kit.ChatTarget, key, text string, opt *kit.SendOptions) error {
	return p.sender.Send(ctx, kit.Notification{
		Channel: "telegram",
		Key:     key,
		Target:  to,
		Text:    text,
		Options: opt,
	})
}

// CoolingDown lists sources currently skipped after repeated failures.
func (p *Poller) CoolingDown(now time.Time) []string {
	keys := p.breaker.Open(now)
	slices.Sort(keys)
	return keys
}

// Source keys used for breaker state.
const (
	SourceAniList = "anilist"
	SourceReddit  = "reddit"
	SourceFeeds   = "feeds"
)

// try runs fetch unless key is cooling down, and records the outcome.
// Fetches cut short by ctx (shutdown, command timeout) are not held against
// the source.
func (p *Poller) try(ctx context.Context, key string, fetch func() error) {
	now := time.Now()
	if ok, until := p.breaker.Allow(key, now); !ok {
		p.log.Debug("source cooling down", logx.String("source", key), logx.Time("until", until))
		return
	}
	err := fetch()
	if ctx.Err() == nil {
		p.breaker.Record(key, time.Now(), err)
	}
	if err != nil {
		p.log.Warn("fetch failed", logx.String("source", key), logx.Err(err))
	}
}

// FetchAnnouncements returns the newest upcoming anime, or nothing on error.
func (p *Poller) FetchAnnouncements(ctx context.Context) []news.Announcement {
	if p.upcoming == nil {
		return nil
	}
	anns := []news.Announcement{}
	p.try(ctx, SourceAniList, func() error {
		got, err := p.upcoming.FetchUpcoming(ctx, p.cfg.AnnouncementLimit)
		if err == nil {
			anns = got
		}
		return err
	})
	return anns
}

// FetchNews returns filtered posts from the subreddit and any extra feeds.
// Failing sources contribute nothing.
func (p *Poller) FetchNews(ctx context.Context) []news.Item {
	var all []news.Item
	if p.reddit != nil {
		p.try(ctx, SourceReddit, func() error {
			items, err := p.reddit.FetchNew(ctx)
			all = append(all, items...)
			return err
		})
	}
	if p.feeds != nil {
		// partial results still count
		p.try(ctx, SourceFeeds, func() error {
			items, err := p.feeds.FetchAll(ctx)
			all = append(all, items...)
			if err != nil && len(items) > 0 {
				p.log.Warn("some feeds failed", logx.Err(err))
				return nil
			}
			return err
		})
	}

	kept, err := p.filter.Apply(all, p.state.Followed().All(), time.Now())
	if err != nil {
		p.log.Warn("filter rule failed", logx.Err(err))
	}
	return kept
}

// Job adapts PollOnce for the scheduler. Skips (no destination, cycle in
// flight) are not failures.
func (p *Poller) Job() scheduler.Job {
	return func(ctx context.Context) error {
		_, err := p.PollOnce(ctx, "schedule")
		if errors.Is(err, ErrNoDestination) || errors.Is(err, ErrPollInFlight) {
			return nil
		}
		return err
	}
}
