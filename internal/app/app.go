package app

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"animebot/internal/config"
	"animebot/internal/eventbus"
	"animebot/internal/filter"
	"animebot/internal/notifier"
	"animebot/internal/runtime/supervisor"
	"animebot/internal/sources/anilist"
	"animebot/internal/sources/breaker"
	"animebot/internal/sources/reddit"
	"animebot/internal/sources/rss"
	"animebot/internal/task/scheduler"
	"animebot/internal/tracker"
	kit "animebot/internal/transport"
	telegram "animebot/internal/transport/telegram/adapter"
	"animebot/internal/transport/telegram/router"
	logx "animebot/pkg/logx"
)

type App struct {
	cfg *config.Config

	sup  *supervisor.Supervisor
	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	adapter kit.Adapter
	router  *router.Router
	sched   *scheduler.Service
	notif   *notifier.Service

	state  *tracker.State
	poller *tracker.Poller

	pollTimeout time.Duration
	updates     chan kit.Update
}

// New wires every component from cfg. Nothing touches the network until
// Start.
func New(cfg *config.Config) (*App, error) {
	pollTimeout, err := config.Duration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}
	return build(cfg, ad)
}

// build is New after the adapter exists; tests pass a fake adapter.
func build(cfg *config.Config, ad kit.Adapter) (*App, error) {
	logs, log := logx.New(logConfig(cfg.Logging), ad)
	log = log.With(logx.String("comp", "app"))
	bus := eventbus.New()

	ncfg, err := notifierConfig(cfg.Notifier)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")), bus)

	src := cfg.Sources
	anilistTimeout, err := config.Duration("sources.anilist.timeout", src.AniList.Timeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	redditTimeout, err := config.Duration("sources.reddit.timeout", src.Reddit.Timeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	al := anilist.New(anilist.Config{
		Endpoint:      src.AniList.Endpoint,
		Timeout:       anilistTimeout,
		RatePerMinute: src.AniList.RatePerMinute,
		UserAgent:     src.UserAgent,
	})
	rd := reddit.New(reddit.Config{
		Subreddit: src.Reddit.Subreddit,
		Limit:     src.Reddit.Limit,
		Timeout:   redditTimeout,
		UserAgent: src.UserAgent,
	})
	var feeds tracker.FeedSource
	if len(src.Feeds) > 0 {
		fs := make([]rss.Feed, 0, len(src.Feeds))
		for i, f := range src.Feeds {
			d, err := config.Duration(fmt.Sprintf("sources.feeds[%d].timeout", i), f.Timeout, 15*time.Second)
			if err != nil {
				return nil, err
			}
			fs = append(fs, rss.Feed{Name: f.Name, URL: f.URL, Limit: cmp.Or(f.Limit, config.DefaultFeedLimit), Timeout: d})
		}
		feeds = rss.New(fs, src.UserAgent, nil)
	}

	tc := cfg.Tracker
	flt, err := filter.New(filter.Config{Keywords: tc.Keywords, SeriesTerms: tc.SeriesTerms, Rule: tc.Rule})
	if err != nil {
		return nil, err
	}

	state := tracker.NewState(
		kit.ChatTarget{ChatID: tc.ChatID, ThreadID: tc.ThreadID},
		tc.Mention,
		tc.SeenCap,
		tracker.Followed{Manga: tc.Followed.Manga, Anime: tc.Followed.Anime},
	)
	brk, err := breakerFor(src.Breaker)
	if err != nil {
		return nil, err
	}
	var resolver kit.ChatResolver
	if r, ok := ad.(kit.ChatResolver); ok {
		resolver = r
	}
	poller := tracker.NewPoller(tracker.PollerConfig{AnnouncementLimit: src.AniList.Limit}, tracker.PollerDeps{
		State:    state,
		Upcoming: al,
		Reddit:   rd,
		Feeds:    feeds,
		Filter:   flt,
		Sender:   notif,
		Resolver: resolver,
		Breaker:  brk,
		Log:      log.With(logx.String("comp", "tracker")),
		Bus:      bus,
	})

	pollTimeout, err := config.Duration("scheduler.timeout", cfg.Scheduler.Timeout, 2*time.Minute)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(scheduler.Config{Timezone: cfg.Scheduler.Timezone}, log.With(logx.String("comp", "scheduler")))
	var opts []scheduler.ScheduleOption
	if cfg.Scheduler.RunOnStart {
		opts = append(opts, scheduler.RunImmediately())
	}
	if err := sched.AddSchedule(tracker.PollSchedule, cfg.Scheduler.Schedule, pollTimeout, poller.Job(), opts...); err != nil {
		return nil, err
	}

	bot := tracker.NewBot(tracker.BotDeps{
		State:        state,
		Poller:       poller,
		Search:       al,
		Monitor:      sched,
		Deliveries:   notif,
		Bus:          bus,
		Log:          log.With(logx.String("comp", "commands")),
		Lookups:      lookups(tc.Lookups),
		CheckTimeout: pollTimeout,
	})
	rt := router.New(router.Config{
		Owners:  cfg.Telegram.OwnerUserIDs,
		Workers: cfg.Telegram.Workers,
	}, ad, log.With(logx.String("comp", "router")))
	rt.SetCommands(bot.Commands())

	return &App{
		cfg:         cfg,
		log:         log,
		logs:        logs,
		bus:         bus,
		adapter:     ad,
		router:      rt,
		sched:       sched,
		notif:       notif,
		state:       state,
		poller:      poller,
		pollTimeout: pollTimeout,
		updates:     make(chan kit.Update, 256),
	}, nil
}

// Done is closed once the app context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	// a panic while routing restarts the dispatcher instead of ending the process
	a.sup.GoRestart("commands.dispatch", func(c context.Context) error {
		return a.router.Run(c, a.updates)
	},
		supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
		supervisor.WithMaxRestarts(20),
	)

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	a.sched.Start(a.sup.Context())

	dest, _ := a.state.Destination()
	if dest.IsZero() {
		a.log.Warn("no news chat configured; run /setup in the target chat")
	}
	a.log.Info("started",
		logx.String("schedule", a.cfg.Scheduler.Schedule),
		logx.Int64("chat_id", dest.ChatID),
		logx.Int("thread_id", dest.ThreadID),
	)
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sup.Cancel()

	// step bounds one shutdown stage so a stuck component cannot stall the rest
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < limit {
				limit = max(rem, 0)
			}
		}
		stepCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 3*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped",
		logx.Uint64("events_dropped", a.bus.Dropped()),
		logx.Int("goroutines_left", a.sup.Active()),
	)
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func logConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
		Chat: logx.ChatConfig{
			Enabled:    c.Telegram.Enabled,
			ChatID:     c.Telegram.ChatID,
			ThreadID:   c.Telegram.ThreadID,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}

func notifierConfig(c config.NotifierConfig) (notifier.Config, error) {
	timeout, err := config.Duration("notifier.send_timeout", c.SendTimeout, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:     c.Enabled,
		RatePerSec:  c.RatePerSec,
		Burst:       c.Burst,
		SendTimeout: timeout,
		HistorySize: c.HistorySize,
	}, nil
}

func lookups(in []config.LookupConfig) []tracker.Lookup {
	out := make([]tracker.Lookup, 0, len(in))
	for _, l := range in {
		tl := tracker.Lookup{Command: l.Command, Title: l.Title}
		for _, q := range l.Queries {
			kind, ok := anilist.ParseKind(q.Kind)
			if !ok {
				continue
			}
			tl.Queries = append(tl.Queries, tracker.LookupQuery{Search: q.Search, Kind: kind})
		}
		out = append(out, tl)
	}
	return out
}

func breakerFor(c config.BreakerConfig) (*breaker.Breaker, error) {
	base, err := config.Duration("sources.breaker.base_delay", c.BaseDelay, 0)
	if err != nil {
		return nil, err
	}
	maxDelay, err := config.Duration("sources.breaker.max_delay", c.MaxDelay, 0)
	if err != nil {
		return nil, err
	}
	reset, err := config.Duration("sources.breaker.reset_after", c.ResetAfter, 0)
	if err != nil {
		return nil, err
	}
	return breaker.New(breaker.Config{Trip: c.Trip, BaseDelay: base, MaxDelay: maxDelay, ResetAfter: reset}), nil
}
