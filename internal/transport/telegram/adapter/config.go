package adapter

import "time"

type Config struct {
	Token       string
	PollTimeout time.Duration
	// APIURL overrides the Bot API endpoint; empty means api.telegram.org.
	APIURL string
}

func (c Config) apiURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	return "https://api.telegram.org"
}
