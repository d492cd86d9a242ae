package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

var ErrMissingToken = errors.New("telegram token missing (set TELEGRAM_TOKEN)")

// DefaultKeywords are matched as lowercase substrings of news titles.
var DefaultKeywords = []string{
	"season 2", "season 3", "sequel", "announced", "confirmed", "leak",
	"rumor", "adaptation", "trailer", "release date", "anime awards",
	"cancel", "renewed", "delay",
}

var DefaultSeriesTerms = []string{
	"roshidere", "100 girlfriends", "dandadan", "spy x family", "one piece",
	"when will her tears dry",
}

// DefaultFeedLimit is the per-feed entry cap when a feed sets none.
const DefaultFeedLimit = 20

const hundredGirlfriends = "The 100 Girlfriends Who Really, Really, Really, Really, Really Love You"

func Default() Config {
	return Config{
		Telegram: TelegramConfig{PollTimeout: "10s", Workers: 4},
		Logging:  LoggingConfig{Level: "info", Console: true},
		Notifier: NotifierConfig{Enabled: true, RatePerSec: 1, Burst: 3, SendTimeout: "10s", HistorySize: 50},
		Scheduler: SchedulerConfig{
			Schedule:   "@every 10m",
			Timeout:    "2m",
			RunOnStart: true,
		},
		Sources: SourcesConfig{
			UserAgent: "animebot/1.0",
			AniList:   AniListConfig{Endpoint: "https://graphql.anilist.co", Timeout: "15s", RatePerMinute: 60, Limit: 10},
			Reddit:    RedditConfig{Subreddit: "anime", Limit: 15, Timeout: "15s"},
			Breaker:   BreakerConfig{Trip: 3, BaseDelay: "5m", MaxDelay: "1h", ResetAfter: "6h"},
		},
		Tracker: TrackerConfig{
			SeenCap:     100,
			Keywords:    append([]string(nil), DefaultKeywords...),
			SeriesTerms: append([]string(nil), DefaultSeriesTerms...),
			Followed: FollowedConfig{
				Manga: []string{hundredGirlfriends, "One Piece", "Spy x Family", "Dandadan", "When Will Her Tears Dry"},
				Anime: []string{hundredGirlfriends, "Spy x Family", "Dandadan", "When Will Her Tears Dry"},
			},
		},
	}
}

// DefaultLookups backs /roshidere and /cien_novias when the file defines none.
func DefaultLookups() []LookupConfig {
	return []LookupConfig{
		{
			Command: "roshidere",
			Title:   "Roshidere",
			Queries: []LookupQuery{{Search: "When Will Her Tears Dry", Kind: "MANGA"}},
		},
		{
			Command: "cien_novias",
			Title:   "100 Girlfriends",
			Queries: []LookupQuery{
				{Search: hundredGirlfriends, Kind: "MANGA"},
				{Search: hundredGirlfriends, Kind: "ANIME"},
			},
		},
	}
}

// Load reads path (JSON or YAML by extension) over the defaults, then applies
// environment overrides and validates. A missing file is not an error.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := Parse(path, b, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if cfg.Tracker.Lookups == nil {
		cfg.Tracker.Lookups = DefaultLookups()
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse strictly decodes data into cfg. Unknown keys and trailing documents
// are errors.
func Parse(path string, data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if isYAML(path) {
		j, err := yamlToJSON(data)
		if err != nil {
			return err
		}
		data = j
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing data")
		}
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	env := func(k string) string { return strings.TrimSpace(getenv(k)) }

	if v := env("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	} else if v := env("BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := env("NEWS_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("NEWS_CHAT_ID: %w", err)
		}
		cfg.Tracker.ChatID = id
	}
	if v := env("NEWS_THREAD_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NEWS_THREAD_ID: %w", err)
		}
		cfg.Tracker.ThreadID = id
	}
	if v := env("MENTION"); v != "" {
		cfg.Tracker.Mention = v
	}
	if v := env("CHECK_INTERVAL"); v != "" {
		cfg.Scheduler.Schedule = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks everything that can be checked without the network.
// Schedule syntax is checked by the scheduler when the job is registered.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, ErrMissingToken)
	}

	durations := []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"notifier.send_timeout", c.Notifier.SendTimeout},
		{"scheduler.timeout", c.Scheduler.Timeout},
		{"sources.anilist.timeout", c.Sources.AniList.Timeout},
		{"sources.reddit.timeout", c.Sources.Reddit.Timeout},
		{"sources.breaker.base_delay", c.Sources.Breaker.BaseDelay},
		{"sources.breaker.max_delay", c.Sources.Breaker.MaxDelay},
		{"sources.breaker.reset_after", c.Sources.Breaker.ResetAfter},
	}
	perCycle := c.Sources.AniList.Limit + c.Sources.Reddit.Limit
	for i, f := range c.Sources.Feeds {
		switch {
		case f.Limit < 0:
			errs = append(errs, fmt.Errorf("sources.feeds[%d].limit: must be >= 0", i))
		case f.Limit == 0:
			perCycle += DefaultFeedLimit
		default:
			perCycle += f.Limit
		}
		durations = append(durations, struct{ path, raw string }{fmt.Sprintf("sources.feeds[%d].timeout", i), f.Timeout})
		if strings.TrimSpace(f.URL) == "" {
			errs = append(errs, fmt.Errorf("sources.feeds[%d].url: required", i))
		}
	}
	for _, d := range durations {
		if _, err := Duration(d.path, d.raw, 0); err != nil {
			errs = append(errs, err)
		}
	}

	if strings.TrimSpace(c.Scheduler.Schedule) == "" {
		errs = append(errs, fmt.Errorf("scheduler.schedule: required"))
	}
	switch {
	case c.Tracker.SeenCap <= 0:
		errs = append(errs, fmt.Errorf("tracker.seen_cap: must be > 0"))
	case c.Tracker.SeenCap <= perCycle:
		// a smaller cap evicts ids the sources return again next cycle
		errs = append(errs, fmt.Errorf("tracker.seen_cap: %d must exceed the %d items fetched per cycle", c.Tracker.SeenCap, perCycle))
	}
	if c.Sources.AniList.Limit <= 0 || c.Sources.AniList.Limit > 50 {
		errs = append(errs, fmt.Errorf("sources.anilist.limit: must be in 1..50"))
	}
	if c.Sources.Reddit.Limit <= 0 || c.Sources.Reddit.Limit > 100 {
		errs = append(errs, fmt.Errorf("sources.reddit.limit: must be in 1..100"))
	}

	seen := map[string]bool{}
	for i, l := range c.Tracker.Lookups {
		cmd := strings.ToLower(strings.TrimSpace(l.Command))
		if cmd == "" || len(l.Queries) == 0 {
			errs = append(errs, fmt.Errorf("tracker.lookups[%d]: command and queries required", i))
			continue
		}
		if seen[cmd] {
			errs = append(errs, fmt.Errorf("tracker.lookups[%d]: duplicate command %q", i, cmd))
		}
		seen[cmd] = true
		for j, q := range l.Queries {
			switch strings.ToUpper(q.Kind) {
			case "ANIME", "MANGA":
			default:
				errs = append(errs, fmt.Errorf("tracker.lookups[%d].queries[%d].kind: want ANIME or MANGA", i, j))
			}
		}
	}
	return errors.Join(errs...)
}
