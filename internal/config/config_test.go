package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := load(filepath.Join(t.TempDir(), "nope.json"), envMap(map[string]string{"TELEGRAM_TOKEN": "t"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduler.Schedule != "@every 10m" {
		t.Fatalf("schedule = %q", cfg.Scheduler.Schedule)
	}
	if cfg.Sources.AniList.Limit != 10 || cfg.Sources.Reddit.Limit != 15 || cfg.Tracker.SeenCap != 100 {
		t.Fatalf("limits = %d/%d/%d", cfg.Sources.AniList.Limit, cfg.Sources.Reddit.Limit, cfg.Tracker.SeenCap)
	}
	if len(cfg.Tracker.Lookups) != 2 || cfg.Tracker.Lookups[0].Command != "roshidere" {
		t.Fatalf("lookups = %+v", cfg.Tracker.Lookups)
	}
	if len(cfg.Tracker.Followed.Manga) != 5 || len(cfg.Tracker.Followed.Anime) != 4 {
		t.Fatalf("followed = %+v", cfg.Tracker.Followed)
	}
}

func TestLoadMissingToken(t *testing.T) {
	t.Parallel()
	_, err := load("", envMap(nil))
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Parallel()
	cfg, err := load("", envMap(map[string]string{
		"BOT_TOKEN":      "fallback",
		"NEWS_CHAT_ID":   "-1001234",
		"NEWS_THREAD_ID": "42",
		"MENTION":        "@anime_fans",
		"CHECK_INTERVAL": "5m",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "fallback" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Tracker.ChatID != -1001234 || cfg.Tracker.ThreadID != 42 {
		t.Fatalf("destination = %d/%d", cfg.Tracker.ChatID, cfg.Tracker.ThreadID)
	}
	if cfg.Tracker.Mention != "@anime_fans" || cfg.Scheduler.Schedule != "5m" {
		t.Fatalf("mention=%q schedule=%q", cfg.Tracker.Mention, cfg.Scheduler.Schedule)
	}

	_, err = load("", envMap(map[string]string{"TELEGRAM_TOKEN": "t", "NEWS_CHAT_ID": "abc"}))
	if err == nil || !strings.Contains(err.Error(), "NEWS_CHAT_ID") {
		t.Fatalf("err = %v, want NEWS_CHAT_ID error", err)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "bot.yaml", `
telegram:
  owner_user_ids: [1, 2]
tracker:
  keywords: ["season 2"]
  lookups:
    - command: frieren
      title: Frieren
      queries:
        - search: Sousou no Frieren
          kind: ANIME
sources:
  feeds:
    - name: ann
      url: https://example.com/rss
`)
	cfg, err := load(p, envMap(map[string]string{"TELEGRAM_TOKEN": "t"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 2 {
		t.Fatalf("owners = %v", cfg.Telegram.OwnerUserIDs)
	}
	if len(cfg.Tracker.Keywords) != 1 || cfg.Tracker.Keywords[0] != "season 2" {
		t.Fatalf("keywords = %v", cfg.Tracker.Keywords)
	}
	if len(cfg.Tracker.Lookups) != 1 || cfg.Tracker.Lookups[0].Command != "frieren" {
		t.Fatalf("lookups = %+v", cfg.Tracker.Lookups)
	}
	if cfg.Sources.Reddit.Subreddit != "anime" {
		t.Fatalf("defaults lost: subreddit = %q", cfg.Sources.Reddit.Subreddit)
	}
	if len(cfg.Sources.Feeds) != 1 {
		t.Fatalf("feeds = %+v", cfg.Sources.Feeds)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, path, body string
	}{
		{"unknown key", "c.json", `{"telegram":{"tokn":"x"}}`},
		{"trailing data", "c.json", `{} {}`},
		{"bad yaml", "c.yml", "telegram: [unclosed"},
		{"unknown yaml key", "c.yaml", "scheduler:\n  cron: x\n"},
	}
	for _, tt := range tests {
		cfg := Default()
		if err := Parse(tt.path, []byte(tt.body), &cfg); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"bad duration", func(c *Config) { c.Notifier.SendTimeout = "soon" }, "notifier.send_timeout"},
		{"negative duration", func(c *Config) { c.Scheduler.Timeout = "-1s" }, "scheduler.timeout"},
		{"bad breaker delay", func(c *Config) { c.Sources.Breaker.BaseDelay = "later" }, "sources.breaker.base_delay"},
		{"feed without url", func(c *Config) { c.Sources.Feeds = []FeedConfig{{Name: "x"}} }, "sources.feeds[0].url"},
		{"zero cap", func(c *Config) { c.Tracker.SeenCap = 0 }, "tracker.seen_cap"},
		{"cap below fetched per cycle", func(c *Config) {
			c.Sources.Feeds = []FeedConfig{{URL: "https://a"}, {URL: "https://b", Limit: 60}}
		}, "must exceed the 105 items"},
		{"negative feed limit", func(c *Config) { c.Sources.Feeds = []FeedConfig{{URL: "https://a", Limit: -1}} }, "sources.feeds[0].limit"},
		{"bad kind", func(c *Config) {
			c.Tracker.Lookups = []LookupConfig{{Command: "x", Queries: []LookupQuery{{Search: "x", Kind: "NOVEL"}}}}
		}, "kind"},
		{"duplicate lookup", func(c *Config) {
			q := []LookupQuery{{Search: "x", Kind: "ANIME"}}
			c.Tracker.Lookups = []LookupConfig{{Command: "x", Queries: q}, {Command: "X", Queries: q}}
		}, "duplicate"},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Telegram.Token = "t"
		tt.mut(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: err = %v, want mention of %q", tt.name, err, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	if d, err := Duration("x", "", 3*time.Second); err != nil || d != 3*time.Second {
		t.Fatalf("empty: %v %v", d, err)
	}
	if d, err := Duration("x", "0s", time.Second); err != nil || d != time.Second {
		t.Fatalf("zero: %v %v", d, err)
	}
	if d, err := Duration("x", "90s", 0); err != nil || d != 90*time.Second {
		t.Fatalf("90s: %v %v", d, err)
	}
	if _, err := Duration("x", "nope", 0); err == nil {
		t.Fatal("expected parse error")
	}
}
