// Package anilist is a small client for the AniList GraphQL API.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultEndpoint = "https://graphql.anilist.co"

type Config struct {
	Endpoint      string
	Timeout       time.Duration
	RatePerMinute int
	UserAgent     string
	HTTPClient    *http.Client // optional; Timeout is ignored when set
}

type Client struct {
	endpoint string
	ua       string
	http     *http.Client
	lim      *rate.Limiter
}

func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	var lim *rate.Limiter
	if cfg.RatePerMinute > 0 {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}
	return &Client{endpoint: cfg.Endpoint, ua: cfg.UserAgent, http: hc, lim: lim}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// errNotFound is AniList's answer to a search without a match.
var errNotFound = errors.New("anilist: not found")

// do posts one GraphQL query and decodes "data" into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if c.lim != nil {
		if err := c.lim.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("anilist: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("anilist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("anilist: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("anilist: read response: %w", err)
	}

	var gr gqlResponse
	decodeErr := json.Unmarshal(raw, &gr)

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && len(gr.Errors) > 0 {
			msg = gr.Errors[0].Message
		}
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("anilist: status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("anilist: decode response: %w", decodeErr)
	}
	if len(gr.Errors) > 0 {
		if gr.Errors[0].Status == http.StatusNotFound {
			return errNotFound
		}
		return fmt.Errorf("anilist: %s", gr.Errors[0].Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("anilist: decode data: %w", err)
	}
	return nil
}
