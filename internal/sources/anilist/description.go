package anilist

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// CleanDescription converts AniList's HTML description to plain text and
// cuts it to limit runes, appending "..." when cut. limit <= 0 disables the cut.
func CleanDescription(s string, limit int) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break loop
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	blank := false
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l == "" {
			// collapse runs of empty lines into one
			if !blank && len(kept) > 0 {
				kept = append(kept, "")
			}
			blank = true
			continue
		}
		blank = false
		kept = append(kept, l)
	}
	text := strings.TrimSpace(strings.Join(kept, "\n"))

	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:limit])) + "..."
}
