package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"animebot/internal/eventbus"
	kit "animebot/internal/transport"
	"animebot/internal/transport/transporttest"
	logx "animebot/pkg/logx"
)

func TestSendDeliversAndRecords(t *testing.T) {
	t.Parallel()
	ad := &transporttest.Adapter{}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{Enabled: true, RatePerSec: 100}, ad, logx.Nop(), bus)
	n := kit.Notification{Channel: "telegram", Key: "announcement_X", Target: kit.ChatTarget{ChatID: 7, ThreadID: 3}, Text: "hello"}
	if err := s.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sent := ad.Sent()
	if len(sent) != 1 || sent[0].Text != "hello" || sent[0].To.ThreadID != 3 {
		t.Fatalf("sent = %+v", sent)
	}
	if h := s.History(); len(h) != 1 || h[0].Key != "announcement_X" {
		t.Fatalf("history = %+v", h)
	}
	e := <-events
	if e.Type != eventbus.NotifySent {
		t.Fatalf("event = %q, want %q", e.Type, eventbus.NotifySent)
	}
	if ev, ok := e.Data.(NotificationEvent); !ok || ev.Key != "announcement_X" {
		t.Fatalf("event data = %#v", e.Data)
	}
}

func TestSendFailurePublishesAndWraps(t *testing.T) {
	t.Parallel()
	boom := errors.New("forbidden")
	ad := &transporttest.Adapter{SendErr: func(int, string) error { return boom }}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{Enabled: true, RatePerSec: 100}, ad, logx.Nop(), bus)
	err := s.Send(context.Background(), kit.Notification{Key: "news_1", Target: kit.ChatTarget{ChatID: 1}, Text: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("Send err = %v, want wrapped %v", err, boom)
	}
	if len(s.History()) != 0 {
		t.Fatal("failed send should not enter history")
	}
	if e := <-events; e.Type != eventbus.NotifyFailed {
		t.Fatalf("event = %q, want %q", e.Type, eventbus.NotifyFailed)
	}
}

func TestSendRejectsInvalid(t *testing.T) {
	t.Parallel()
	ad := &transporttest.Adapter{}
	tests := []struct {
		name string
		cfg  Config
		n    kit.Notification
		want error
	}{
		{name: "disabled", cfg: Config{}, n: kit.Notification{Target: kit.ChatTarget{ChatID: 1}, Text: "x"}, want: ErrDisabled},
		{name: "no target", cfg: Config{Enabled: true}, n: kit.Notification{Text: "x"}, want: ErrNoTarget},
		{name: "blank text", cfg: Config{Enabled: true}, n: kit.Notification{Target: kit.ChatTarget{ChatID: 1}, Text: "  "}, want: ErrEmptyText},
	}
	for _, tt := range tests {
		s := New(tt.cfg, ad, logx.Nop(), nil)
		if err := s.Send(context.Background(), tt.n); !errors.Is(err, tt.want) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
	if len(ad.Sent()) != 0 {
		t.Fatal("rejected notifications must not reach the adapter")
	}
}

func TestSendHonorsCancelledContext(t *testing.T) {
	t.Parallel()
	ad := &transporttest.Adapter{}
	s := New(Config{Enabled: true, RatePerSec: 1, Burst: 1}, ad, logx.Nop(), nil)
	target := kit.ChatTarget{ChatID: 1}
	if err := s.Send(context.Background(), kit.Notification{Target: target, Text: "first"}); err != nil {
		t.Fatalf("first send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Send(ctx, kit.Notification{Target: target, Text: "second"}); err == nil {
		t.Fatal("expected rate limit wait to fail on a short deadline")
	}
}

func TestHistoryIsBounded(t *testing.T) {
	t.Parallel()
	ad := &transporttest.Adapter{}
	s := New(Config{Enabled: true, RatePerSec: 1000, Burst: 100, HistorySize: 2}, ad, logx.Nop(), nil)
	for _, txt := range []string{"a", "b", "c"} {
		if err := s.Send(context.Background(), kit.Notification{Target: kit.ChatTarget{ChatID: 1}, Text: txt}); err != nil {
			t.Fatalf("Send %s: %v", txt, err)
		}
	}
	h := s.History()
	if len(h) != 2 || h[0].Text != "b" || h[1].Text != "c" {
		t.Fatalf("history = %+v", h)
	}
}
