package tgui

import (
	"context"
	"strings"

	kit "animebot/internal/transport"
)

// Message is rendered text plus the options it must be sent with.
type Message struct {
	Text string
	Opt  *kit.SendOptions
}

func (m Message) Send(ctx context.Context, ad kit.Adapter, to kit.ChatTarget) (kit.MessageRef, error) {
	return ad.SendText(ctx, to, m.Text, m.Opt)
}

// Builder assembles an HTML card. Link previews are off unless Preview is
// called.
type Builder struct {
	preview bool
	head    []string
	lines   []string
	footer  string
}

func New() *Builder { return &Builder{} }

func (b *Builder) Preview(v bool) *Builder {
	b.preview = v
	return b
}

// Lead puts a line above the title, e.g. a mention.
func (b *Builder) Lead(s H) *Builder {
	if strings.TrimSpace(s.String()) != "" {
		b.head = append(b.head, s.String())
	}
	return b
}

// Title adds a bold title, linked when url is not empty.
func (b *Builder) Title(emoji, title, url string) *Builder {
	title = strings.TrimSpace(title)
	if title == "" {
		return b
	}
	t := B(title)
	if url = strings.TrimSpace(url); url != "" {
		t = wrap("b", Link(title, url))
	}
	b.head = append(b.head, JoinH(" ", Esc(strings.TrimSpace(emoji)), t).String())
	return b
}

func (b *Builder) Section(title string) *Builder {
	if t := strings.TrimSpace(title); t != "" {
		b.lines = append(b.lines, "", B(t).String())
	}
	return b
}

func (b *Builder) Line(s string) *Builder {
	b.lines = append(b.lines, Esc(s).String())
	return b
}

func (b *Builder) RawLine(s H) *Builder {
	b.lines = append(b.lines, s.String())
	return b
}

func (b *Builder) Blank() *Builder {
	b.lines = append(b.lines, "")
	return b
}

// KV adds "• key: value". Empty values are skipped.
func (b *Builder) KV(key, value string) *Builder {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" || value == "" {
		return b
	}
	b.lines = append(b.lines, "• "+B(key).String()+": "+Esc(value).String())
	return b
}

// KVH is KV with a pre-rendered value such as a link.
func (b *Builder) KVH(key string, value H) *Builder {
	key = strings.TrimSpace(key)
	if key == "" || strings.TrimSpace(value.String()) == "" {
		return b
	}
	b.lines = append(b.lines, "• "+B(key).String()+": "+value.String())
	return b
}

func (b *Builder) Bullets(items ...string) *Builder {
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			b.lines = append(b.lines, "• "+Esc(it).String())
		}
	}
	return b
}

func (b *Builder) Footer(s string) *Builder {
	b.footer = strings.TrimSpace(s)
	return b
}

func (b *Builder) Build() Message {
	parts := append([]string(nil), b.head...)
	if len(b.lines) > 0 {
		if len(parts) > 0 && b.lines[0] != "" {
			parts = append(parts, "")
		}
		parts = append(parts, b.lines...)
	}
	if b.footer != "" {
		parts = append(parts, "", I(b.footer).String())
	}
	text := strings.Trim(strings.Join(parts, "\n"), "\n")
	return Message{
		Text: text,
		Opt:  &kit.SendOptions{ParseMode: "HTML", DisablePreview: !b.preview},
	}
}
