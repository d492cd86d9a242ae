package router

import (
	"context"
	"strings"
	"time"

	kit "animebot/internal/transport"
	logx "animebot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	// AccessChatAdmin allows chat administrators, configured owners and
	// anyone in a private chat with the bot.
	AccessChatAdmin
)

type HandlerFunc func(ctx context.Context, req *Request) error

// Command is one entry of the lookup table. Name and Aliases must already be
// Telegram-safe ([a-z0-9_]); anything else is sanitized on registration.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	Timeout     time.Duration // 0 uses the router default
	Handle      HandlerFunc
}

type Request struct {
	Message *kit.Message
	Chat    kit.ChatTarget
	FromID  int64
	Command string // canonical name, even when invoked via alias
	Args    []string
	// ArgText is everything after the command word, untouched.
	ArgText string
	ReqID   string

	Adapter kit.Adapter
	Logger  logx.Logger
}

// Reply sends text back to the chat (and thread) the command came from.
func (r *Request) Reply(ctx context.Context, text string, opt *kit.SendOptions) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, opt)
	return err
}

// ReplyHTML is Reply with HTML parse mode and link previews off.
func (r *Request) ReplyHTML(ctx context.Context, html string) error {
	return r.Reply(ctx, html, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
}

// Arg returns the i-th positional argument or "".
func (r *Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// Rest returns ArgText without its first n words.
func (r *Request) Rest(n int) string {
	s := strings.TrimSpace(r.ArgText)
	for ; n > 0 && s != ""; n-- {
		i := strings.IndexAny(s, " \t\n")
		if i < 0 {
			return ""
		}
		s = strings.TrimSpace(s[i:])
	}
	return s
}
