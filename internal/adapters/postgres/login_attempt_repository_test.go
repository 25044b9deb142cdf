package postgres

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateKeepsCharacters(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "chrome", n: 64, want: "chrome"},
		{name: "ascii cut", in: "abcdef", n: 3, want: "abc"},
		{name: "multibyte cut", in: "héllo wörld", n: 7, want: "héllo w"},
		{name: "cjk exact", in: "日本語", n: 3, want: "日本語"},
		{name: "cjk cut", in: "日本語テキスト", n: 2, want: "日本"},
		{name: "emoji", in: "🔐🔐🔐", n: 1, want: "🔐"},
		{name: "zero", in: "abc", n: 0, want: ""},
		{name: "invalid bytes", in: "ab\xffcd", n: 3, want: "ab�"},
	}
	for _, tc := range cases {
		got := truncate(tc.in, tc.n)
		if got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("%s: result is not valid utf-8: %q", tc.name, got)
		}
	}
}

func TestTruncateLongUserAgent(t *testing.T) {
	t.Parallel()

	agent := strings.Repeat("ü", maxAttemptAgentLen+10)
	got := truncate(agent, maxAttemptAgentLen)
	if utf8.RuneCountInString(got) != maxAttemptAgentLen || !utf8.ValidString(got) {
		t.Fatalf("expected %d valid characters, got %d", maxAttemptAgentLen, utf8.RuneCountInString(got))
	}
}
