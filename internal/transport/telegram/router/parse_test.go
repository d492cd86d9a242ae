package router

import (
	"reflect"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in              string
		word, bot, rest string
		ok              bool
	}{
		{in: "/status", word: "status", ok: true},
		{in: "  /Check@AnimeBot  ", word: "check", bot: "AnimeBot", ok: true},
		{in: "/add anime Spy x Family", word: "add", rest: "anime Spy x Family", ok: true},
		{in: "/info@bot  One Piece", word: "info", bot: "bot", rest: "One Piece", ok: true},
		{in: "hello", ok: false},
		{in: "/", ok: false},
		{in: "/@bot", ok: false},
	}
	for _, tt := range tests {
		word, bot, rest, ok := splitCommand(tt.in)
		if ok != tt.ok || word != tt.word || bot != tt.bot || rest != tt.rest {
			t.Fatalf("splitCommand(%q) = %q,%q,%q,%v", tt.in, word, bot, rest, ok)
		}
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"anime Dandadan", []string{"anime", "Dandadan"}},
		{`anime "Spy x Family"`, []string{"anime", "Spy x Family"}},
		{`manga 'One  Piece'`, []string{"manga", "One  Piece"}},
		{`a\ b c`, []string{"a b", "c"}},
		{`x ""`, []string{"x", ""}},
	}
	for _, tt := range tests {
		if got := tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("tokenize(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeCommand(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"Status", "status"},
		{"/cien-novias", "cien_novias"},
		{"  spaced name ", "spaced_name"},
		{"héllo", "hllo"},
		{"__x__", "x"},
		{"abcdefghijklmnopqrstuvwxyz0123456789", "abcdefghijklmnopqrstuvwxyz012345"},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Fatalf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequestRest(t *testing.T) {
	t.Parallel()
	req := &Request{ArgText: "anime  Spy x Family"}
	if got := req.Rest(1); got != "Spy x Family" {
		t.Fatalf("Rest(1) = %q", got)
	}
	if got := req.Rest(0); got != "anime  Spy x Family" {
		t.Fatalf("Rest(0) = %q", got)
	}
	if got := req.Rest(5); got != "" {
		t.Fatalf("Rest(5) = %q", got)
	}
}
