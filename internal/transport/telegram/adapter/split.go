package adapter

import "strings"

// textLimit stays under Telegram's 4096 character cap to leave room for
// entities.
const textLimit = 4000

// splitText cuts s into chunks of at most limit runes, preferring newline
// boundaries. With HTML parse mode it avoids cutting inside a tag.
func splitText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	html := strings.EqualFold(parseMode, "HTML")

	var out []string
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i-start >= limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		if html && end < len(rs) {
			if open := danglingTag(rs[start:end]); open > 1 {
				end = start + open
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

// danglingTag returns the index of a '<' that has no closing '>' in rs, or -1.
func danglingTag(rs []rune) int {
	lastOpen, lastClose := -1, -1
	for i, r := range rs {
		switch r {
		case '<':
			lastOpen = i
		case '>':
			lastClose = i
		}
	}
	if lastOpen > lastClose {
		return lastOpen
	}
	return -1
}
