package notifier

import "time"

// Config controls outbound delivery.
type Config struct {
	Enabled     bool
	RatePerSec  int
	Burst       int
	SendTimeout time.Duration
	HistorySize int
}

type HistoryItem struct {
	At   time.Time
	Key  string
	Text string
}

// NotificationEvent is published on the event bus for every delivery attempt.
type NotificationEvent struct {
	Channel  string    `json:"channel"`
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	Key      string    `json:"key"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
