package config

// Config is the whole process configuration. The file is decoded over
// Default(), so anything it omits keeps its default value.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Notifier  NotifierConfig  `json:"notifier"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Sources   SourcesConfig   `json:"sources"`
	Tracker   TrackerConfig   `json:"tracker"`
}

type TelegramConfig struct {
	// Token is normally supplied via TELEGRAM_TOKEN; keep it out of files.
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
	Workers     int    `json:"workers"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors log lines at or above MinLevel into a chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// NotifierConfig controls outbound news delivery.
type NotifierConfig struct {
	Enabled     bool   `json:"enabled"`
	RatePerSec  int    `json:"rate_per_sec"`
	Burst       int    `json:"burst"`
	SendTimeout string `json:"send_timeout"`
	HistorySize int    `json:"history_size"`
}

// SchedulerConfig controls when the poll cycle fires.
//
// Schedule accepts a cron expression ("*/10 * * * *", "@every 10m"), a Go
// duration ("10m") or HH:MM ("00:10").
type SchedulerConfig struct {
	Schedule   string `json:"schedule"`
	Timezone   string `json:"timezone,omitempty"`
	Timeout    string `json:"timeout"`
	RunOnStart bool   `json:"run_on_start"`
}

type SourcesConfig struct {
	UserAgent string        `json:"user_agent"`
	AniList   AniListConfig `json:"anilist"`
	Reddit    RedditConfig  `json:"reddit"`
	Feeds     []FeedConfig  `json:"feeds"`
	Breaker   BreakerConfig `json:"breaker"`
}

// BreakerConfig pauses a source after Trip consecutive failed fetches.
// Trip < 0 disables it.
type BreakerConfig struct {
	Trip       int    `json:"trip"`
	BaseDelay  string `json:"base_delay"`
	MaxDelay   string `json:"max_delay"`
	ResetAfter string `json:"reset_after"`
}

type AniListConfig struct {
	Endpoint      string `json:"endpoint"`
	Timeout       string `json:"timeout"`
	RatePerMinute int    `json:"rate_per_minute"`
	Limit         int    `json:"limit"`
}

type RedditConfig struct {
	Subreddit string `json:"subreddit"`
	Limit     int    `json:"limit"`
	Timeout   string `json:"timeout"`
}

// FeedConfig is an extra RSS/Atom source filtered like the subreddit.
type FeedConfig struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	// Limit caps entries per cycle; 0 means DefaultFeedLimit.
	Limit   int    `json:"limit"`
	Timeout string `json:"timeout"`
}

type TrackerConfig struct {
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id"`
	Mention  string `json:"mention"`

	SeenCap     int      `json:"seen_cap"`
	Keywords    []string `json:"keywords"`
	SeriesTerms []string `json:"series_terms"`
	// Rule is an optional expr-lang boolean expression every news item must
	// satisfy, e.g. `source != "feed" || title contains "Season"`.
	Rule string `json:"rule"`

	Followed FollowedConfig `json:"followed"`
	Lookups  []LookupConfig `json:"lookups"`
}

type FollowedConfig struct {
	Manga []string `json:"manga"`
	Anime []string `json:"anime"`
}

// LookupConfig defines a fixed-series command such as /roshidere.
type LookupConfig struct {
	Command string        `json:"command"`
	Title   string        `json:"title"`
	Queries []LookupQuery `json:"queries"`
}

type LookupQuery struct {
	Search string `json:"search"`
	// Kind is ANIME or MANGA.
	Kind string `json:"kind"`
}
