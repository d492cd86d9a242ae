// Package transporttest provides an in-memory chat adapter for tests.
package transporttest

import (
	"context"
	"errors"
	"sync"
	"time"

	kit "animebot/internal/transport"
)

type Sent struct {
	To   kit.ChatTarget
	Text string
	Opt  kit.SendOptions
}

// Adapter records every send. The zero value is ready to use.
type Adapter struct {
	mu   sync.Mutex
	sent []Sent
	out  chan<- kit.Update

	// SendErr, when set, decides the result of each send (1-based index).
	SendErr func(n int, text string) error

	Chats  map[int64]kit.ChatInfo
	Admins map[int64]map[int64]bool
	RTT    time.Duration
}

var ErrChatNotFound = errors.New("chat not found")

func (a *Adapter) Start(_ context.Context, out chan<- kit.Update) error {
	a.mu.Lock()
	a.out = out
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Stop(context.Context) error {
	a.mu.Lock()
	a.out = nil
	a.mu.Unlock()
	return nil
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.sent) + 1
	if a.SendErr != nil {
		if err := a.SendErr(n, text); err != nil {
			return kit.MessageRef{}, err
		}
	}
	var o kit.SendOptions
	if opt != nil {
		o = *opt
	}
	a.sent = append(a.sent, Sent{To: to, Text: text, Opt: o})
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: n}, nil
}

func (a *Adapter) ResolveChat(_ context.Context, chatID int64) (kit.ChatInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Chats == nil {
		return kit.ChatInfo{ID: chatID}, nil
	}
	info, ok := a.Chats[chatID]
	if !ok {
		return kit.ChatInfo{}, ErrChatNotFound
	}
	return info, nil
}

func (a *Adapter) IsChatAdmin(_ context.Context, chatID, userID int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Admins[chatID][userID], nil
}

func (a *Adapter) Ping(context.Context) (time.Duration, error) { return a.RTT, nil }

// Sent returns a copy of everything sent so far.
func (a *Adapter) Sent() []Sent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Sent(nil), a.sent...)
}

// Reset forgets recorded sends.
func (a *Adapter) Reset() {
	a.mu.Lock()
	a.sent = nil
	a.mu.Unlock()
}

// Push delivers an inbound text message as if a user had typed it.
func (a *Adapter) Push(msg kit.Message) bool {
	a.mu.Lock()
	out := a.out
	a.mu.Unlock()
	if out == nil {
		return false
	}
	out <- kit.Update{Kind: kit.UpdateMessage, Message: &msg}
	return true
}
