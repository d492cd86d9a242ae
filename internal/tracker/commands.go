package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"animebot/internal/eventbus"
	"animebot/internal/notifier"
	"animebot/internal/sources/anilist"
	"animebot/internal/task/scheduler"
	kit "animebot/internal/transport"
	"animebot/internal/transport/telegram/router"
	logx "animebot/pkg/logx"
)

// PollSchedule is the scheduler entry name of the periodic check.
const PollSchedule = "tracker.poll"

// MediaSearcher finds one AniList entry by name; *anilist.Client implements it.
type MediaSearcher interface {
	Search(ctx context.Context, name string, kind anilist.Kind) (*anilist.Media, error)
}

// Monitor is the part of the scheduler the status command reads.
type Monitor interface {
	Snapshot() scheduler.Snapshot
}

// DeliveryLog exposes recent deliveries; *notifier.Service implements it.
type DeliveryLog interface {
	History() []notifier.HistoryItem
}

type LookupQuery struct {
	Search string
	Kind   anilist.Kind
}

// Lookup is a fixed-series command such as /roshidere.
type Lookup struct {
	Command string
	Title   string
	Queries []LookupQuery
}

type BotDeps struct {
	State        *State
	Poller       *Poller
	Search       MediaSearcher
	Monitor      Monitor
	Deliveries   DeliveryLog
	Bus          eventbus.Bus
	Log          logx.Logger
	Lookups      []Lookup
	CheckTimeout time.Duration // /check budget, default 2m
}

// Bot holds the chat command handlers.
type Bot struct {
	d BotDeps
}

// NewBot fills defaults. Monitor, Deliveries and Bus may be nil.
func NewBot(d BotDeps) *Bot {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.CheckTimeout <= 0 {
		d.CheckTimeout = 2 * time.Minute
	}
	return &Bot{d: d}
}

// Commands returns the command table for the router.
func (b *Bot) Commands() []router.Command {
	cmds := []router.Command{
		{
			Name:        "setup",
			Description: "Post news to this chat (optionally mention someone)",
			Usage:       "/setup [@mention]",
			Access:      router.AccessChatAdmin,
			Handle:      b.handleSetup,
		},
		{
			Name:        "status",
			Aliases:     []string{"estado"},
			Description: "Bot status",
			Usage:       "/status",
			Handle:      b.handleStatus,
		},
		{
			Name:        "test",
			Description: "Check that the bot answers",
			Usage:       "/test",
			Handle: func(ctx context.Context, req *router.Request) error {
				return req.Reply(ctx, "✅ Bot is working.", nil)
			},
		},
		{
			Name:        "check",
			Aliases:     []string{"forzar_verificacion"},
			Description: "Check for news right now",
			Usage:       "/check",
			Timeout:     b.d.CheckTimeout,
			Handle:      b.handleCheck,
		},
		{
			Name:        "series",
			Description: "List followed series",
			Usage:       "/series",
			Handle:      b.handleSeries,
		},
		{
			Name:        "add",
			Aliases:     []string{"agregar"},
			Description: "Follow a series",
			Usage:       "/add <manga|anime> <name>",
			Handle:      b.handleAdd,
		},
		{
			Name:        "info",
			Description: "Look an anime up on AniList",
			Usage:       "/info <name>",
			Handle:      b.handleInfo,
		},
		{
			Name:        "news",
			Aliases:     []string{"noticias"},
			Description: "Latest tracked items",
			Usage:       "/news",
			Handle:      b.handleNews,
		},
	}
	for _, l := range b.d.Lookups {
		desc := "Info about " + l.Title
		if l.Title == "" {
			desc = "Info about " + l.Command
		}
		cmds = append(cmds, router.Command{
			Name:        l.Command,
			Description: desc,
			Usage:       "/" + l.Command,
			Handle: func(ctx context.Context, req *router.Request) error {
				return b.handleLookup(ctx, req, l)
			},
		})
	}
	return cmds
}

func (b *Bot) handleSetup(ctx context.Context, req *router.Request) error {
	_, mention := b.d.State.Destination()
	for _, a := range req.Args {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			mention = a
			break
		}
	}
	dest := req.Chat
	b.d.State.SetDestination(dest, mention)
	eventbus.Publish(b.d.Bus, eventbus.DestinationChanged, dest)
	req.Logger.Info("destination set", logx.Int64("chat_id", dest.ChatID), logx.Int("thread_id", dest.ThreadID), logx.String("mention", mention))

	var info kit.ChatInfo
	if r, ok := req.Adapter.(kit.ChatResolver); ok {
		if ci, err := r.ResolveChat(ctx, dest.ChatID); err == nil {
			info = ci
		}
	}
	msg := setupMessage(chatLabel(info, dest), mention)
	return req.Reply(ctx, msg.Text, msg.Opt)
}

func (b *Bot) handleStatus(ctx context.Context, req *router.Request) error {
	now := time.Now()
	dest, _ := b.d.State.Destination()
	v := statusView{
		Followed: b.d.State.Followed(),
		Seen:     b.d.State.SeenLen(),
	}
	if !dest.IsZero() {
		var info kit.ChatInfo
		if r, ok := req.Adapter.(kit.ChatResolver); ok {
			info, _ = r.ResolveChat(ctx, dest.ChatID)
		}
		v.Destination = chatLabel(info, dest)
	}
	if b.d.Monitor != nil {
		snap := b.d.Monitor.Snapshot()
		v.Monitoring = snap.Running
		if it, ok := snap.Find(PollSchedule); ok {
			v.Schedule = it.Spec
			v.Next = it.Next
		}
	}
	if b.d.Poller != nil {
		v.Polling = b.d.Poller.Running()
		if last, ok := b.d.Poller.Last(); ok {
			v.Last = &last
		}
		v.CoolingDown = b.d.Poller.CoolingDown(now)
	}
	if b.d.Deliveries != nil {
		if h := b.d.Deliveries.History(); len(h) > 0 {
			v.LastSent = &h[len(h)-1]
		}
	}
	if p, ok := req.Adapter.(kit.Pinger); ok {
		v.Ping, v.PingErr = p.Ping(ctx)
	}
	msg := statusMessage(v, now)
	return req.Reply(ctx, msg.Text, msg.Opt)
}

func (b *Bot) handleCheck(ctx context.Context, req *router.Request) error {
	if err := req.Reply(ctx, "🔍 Checking for news...", nil); err != nil {
		req.Logger.Debug("check ack failed", logx.Err(err))
	}

	rep, err := b.d.Poller.PollOnce(ctx, "manual")
	switch {
	case errors.Is(err, ErrPollInFlight):
		return req.Reply(ctx, "⏳ A check is already running, try again shortly.", nil)
	case errors.Is(err, ErrNoDestination):
		return req.Reply(ctx, "⚠️ No news chat configured. Run /setup in the chat that should receive news.", nil)
	case err != nil:
		return err
	}
	text := fmt.Sprintf("✅ Check complete: %d new (%d announcements, %d news).", rep.Emitted(), rep.Announced, rep.NewsSent)
	if rep.SendErrors > 0 {
		text += fmt.Sprintf(" %d failed to send.", rep.SendErrors)
	}
	return req.Reply(ctx, text, nil)
}

func (b *Bot) handleSeries(ctx context.Context, req *router.Request) error {
	msg := seriesMessage(b.d.State.Followed())
	return req.Reply(ctx, msg.Text, msg.Opt)
}

const addUsage = "Usage: /add <manga|anime> <name>"

func (b *Bot) handleAdd(ctx context.Context, req *router.Request) error {
	name := req.Rest(1)
	if len(req.Args) < 2 || strings.TrimSpace(name) == "" {
		return req.Reply(ctx, "❌ "+addUsage, nil)
	}
	kind, err := ParseKind(req.Arg(0))
	if err != nil {
		return req.Reply(ctx, "❌ Type must be manga or anime.\n"+addUsage, nil)
	}
	name = strings.Trim(strings.TrimSpace(name), `"'`)

	switch err := b.d.State.Follow(kind, name); {
	case errors.Is(err, ErrAlreadyFollowed):
		return req.Reply(ctx, fmt.Sprintf("ℹ️ %s is already followed.", quoteName(name)), nil)
	case err != nil:
		return req.Reply(ctx, "❌ "+err.Error()+"\n"+addUsage, nil)
	}
	eventbus.Publish(b.d.Bus, eventbus.SeriesFollowed, map[string]any{"kind": string(kind), "name": name})
	return req.Reply(ctx, fmt.Sprintf("✅ Added %s to followed %s.", quoteName(name), kind), nil)
}

func (b *Bot) handleInfo(ctx context.Context, req *router.Request) error {
	name := strings.TrimSpace(req.ArgText)
	if name == "" {
		return req.Reply(ctx, "❌ Usage: /info <name>", nil)
	}
	m, err := b.d.Search.Search(ctx, name, anilist.KindAnime)
	if err != nil {
		req.Logger.Warn("anilist search failed", logx.String("query", name), logx.Err(err))
		return req.Reply(ctx, "❌ AniList is not answering right now, try again later.", nil)
	}
	if m == nil {
		return req.Reply(ctx, "❌ Nothing found for "+quoteName(name)+".", nil)
	}
	msg := infoMessage(m)
	return req.Reply(ctx, msg.Text, msg.Opt)
}

func (b *Bot) handleNews(ctx context.Context, req *router.Request) error {
	msg := recentMessage(b.d.State.RecentSeen(5))
	return req.Reply(ctx, msg.Text, msg.Opt)
}

func (b *Bot) handleLookup(ctx context.Context, req *router.Request, l Lookup) error {
	var results []lookupResult
	for _, q := range l.Queries {
		m, err := b.d.Search.Search(ctx, q.Search, q.Kind)
		if err != nil {
			req.Logger.Warn("anilist lookup failed", logx.String("query", q.Search), logx.String("kind", string(q.Kind)), logx.Err(err))
			continue
		}
		if m != nil {
			results = append(results, lookupResult{Kind: q.Kind, Media: m})
		}
	}
	title := l.Title
	if title == "" {
		title = l.Command
	}
	if len(results) == 0 {
		return req.Reply(ctx, "❌ Could not find information about "+title+".", nil)
	}
	msg := lookupMessage(title, results)
	return req.Reply(ctx, msg.Text, msg.Opt)
}
