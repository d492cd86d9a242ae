package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"animebot/internal/eventbus"
	kit "animebot/internal/transport"
	logx "animebot/pkg/logx"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrNoTarget  = errors.New("notification has no target chat")
	ErrEmptyText = errors.New("notification text is empty")
)

// Service delivers notifications synchronously: rate limit, one bounded
// send, history, bus event. It never retries; the caller decides what a
// failure means.
//
// It is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	log     logx.Logger
	adapter kit.Adapter
	bus     eventbus.Bus

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{adapter: adapter, log: log, bus: bus}
	s.Apply(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	s.mu.Lock()
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst)
	s.mu.Unlock()
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Send blocks until the notification is delivered, rejected or ctx ends.
func (s *Service) Send(ctx context.Context, n kit.Notification) error {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	switch {
	case !cfg.Enabled:
		return ErrDisabled
	case n.Target.IsZero():
		return ErrNoTarget
	case strings.TrimSpace(n.Text) == "":
		return ErrEmptyText
	}

	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	_, err := s.adapter.SendText(callCtx, n.Target, n.Text, n.Options)
	cancel()

	ev := NotificationEvent{
		Channel:  n.Channel,
		ChatID:   n.Target.ChatID,
		ThreadID: n.Target.ThreadID,
		Key:      n.Key,
		At:       time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
		eventbus.Publish(s.bus, eventbus.NotifyFailed, ev)
		s.log.Debug("notify send failed", logx.String("key", n.Key), logx.Err(err))
		return fmt.Errorf("send %q: %w", n.Key, err)
	}

	s.appendHistory(HistoryItem{At: ev.At, Key: n.Key, Text: n.Text}, cfg.HistorySize)
	eventbus.Publish(s.bus, eventbus.NotifySent, ev)
	return nil
}

// History returns recently delivered notifications, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) appendHistory(it HistoryItem, size int) {
	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > size {
		s.history = s.history[len(s.history)-size:]
	}
	s.hmu.Unlock()
}
