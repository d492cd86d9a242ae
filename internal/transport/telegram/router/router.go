package router

import (
	"context"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	rtsup "animebot/internal/runtime/supervisor"
	kit "animebot/internal/transport"
	logx "animebot/pkg/logx"
)

type Config struct {
	Owners         []int64
	Workers        int           // default max(2, NumCPU)
	QueueSize      int           // default 64
	DefaultTimeout time.Duration // default 60s
}

// Router dispatches chat commands through a name/alias lookup table onto a
// bounded worker pool.
type Router struct {
	cfg     Config
	log     logx.Logger
	adapter kit.Adapter

	mu     sync.RWMutex
	table  map[string]*Command // name and aliases -> command
	unique []*Command          // registration order, no aliases

	jobs chan func()
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = max(2, runtime.NumCPU())
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 60 * time.Second
	}
	cfg.Owners = append([]int64(nil), cfg.Owners...)
	r := &Router{
		cfg:     cfg,
		log:     log,
		adapter: adapter,
		table:   map[string]*Command{},
		jobs:    make(chan func(), cfg.QueueSize),
	}
	r.SetCommands(nil)
	return r
}

// SetCommands replaces the lookup table. /help is always registered first;
// later entries lose name clashes to earlier ones.
func (r *Router) SetCommands(cmds []Command) {
	help := Command{
		Name:        "help",
		Aliases:     []string{"h"},
		Description: "Show this help",
		Usage:       "/help [command]",
		Handle: func(ctx context.Context, req *Request) error {
			return req.ReplyHTML(ctx, r.helpText(req.Arg(0)))
		},
	}
	cmds = append([]Command{help}, cmds...)

	table := map[string]*Command{}
	var unique []*Command
	for _, c := range cmds {
		name := sanitizeCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		if _, taken := table[name]; taken {
			r.log.Warn("duplicate command ignored", logx.String("name", name))
			continue
		}
		cc := c
		cc.Name = name
		cc.Aliases = nil
		for _, a := range c.Aliases {
			a = sanitizeCommand(a)
			if a == "" || a == name {
				continue
			}
			if _, taken := table[a]; taken {
				continue
			}
			cc.Aliases = append(cc.Aliases, a)
		}
		table[name] = &cc
		for _, a := range cc.Aliases {
			table[a] = &cc
		}
		unique = append(unique, &cc)
	}

	r.mu.Lock()
	r.table = table
	r.unique = unique
	r.mu.Unlock()
}

// Lookup resolves a name or alias.
func (r *Router) Lookup(word string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.table[strings.ToLower(word)]
	if !ok {
		return Command{}, false
	}
	return *c, true
}

func (r *Router) commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.unique))
	for _, c := range r.unique {
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run consumes updates until ctx ends or updates closes. Commands execute on
// the worker pool; Run waits briefly for in-flight commands before returning.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.New(ctx,
		rtsup.WithLogger(r.log),
		rtsup.WithCancelOnError(false),
	)
	r.log.Info("command dispatcher started", logx.Int("workers", r.cfg.Workers), logx.Int("queue_cap", cap(r.jobs)))

	for i := range r.cfg.Workers {
		sup.GoRestart("command.worker."+strconv.Itoa(i), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-r.jobs:
					job()
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithStopOnCleanExit(true),
		)
	}

	if up, ok := r.adapter.(kit.CommandMenuUpdater); ok {
		menu := buildMenu(r.commands())
		sup.Go("telegram.menu.update", func(c context.Context) error {
			cctx, cancel := context.WithTimeout(c, 10*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(cctx, menu); err != nil {
				r.log.Warn("menu update failed", logx.Err(err))
			}
			return nil
		})
	}

	defer func() {
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Stop(wctx)
		cancel()
		r.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.route(sup.Context(), up)
		}
	}
}

func (r *Router) route(ctx context.Context, up kit.Update) {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return
	}
	msg := up.Message
	word, bot, rest, ok := splitCommand(msg.Text)
	if !ok {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	cmd, found := r.Lookup(word)
	if !found {
		// "/cmd@otherbot" in a group is somebody else's command
		if bot == "" {
			_, _ = r.adapter.SendText(ctx, chat, "❓ Unknown command. Try /help", nil)
		}
		return
	}

	rid := newReqID()
	req := &Request{
		Message: msg,
		Chat:    chat,
		FromID:  msg.FromID,
		Command: cmd.Name,
		Args:    tokenize(rest),
		ArgText: rest,
		ReqID:   rid,
		Adapter: r.adapter,
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int("thread_id", msg.ThreadID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}
	final := Chain(
		cmd.Handle,
		MWPanicRecover(),
		MWRequestLog(),
		MWTimeout(timeout),
		MWAccess(cmd.Access, r.cfg.Owners),
	)

	select {
	case r.jobs <- func() { _ = final(ctx, req) }:
	default:
		_, _ = r.adapter.SendText(ctx, chat, "⏳ Busy, try again in a moment.", nil)
	}
}
