package knowledge

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{
			name: "short message unchanged",
			msg:  "extraction failed",
			want: "extraction failed",
		},
		{
			name: "exactly at the bound",
			msg:  strings.Repeat("a", maxErrorMessageLen),
			want: strings.Repeat("a", maxErrorMessageLen),
		},
		{
			name: "ascii overflow cut at the bound",
			msg:  strings.Repeat("a", maxErrorMessageLen+500),
			want: strings.Repeat("a", maxErrorMessageLen),
		},
		{
			// The bound falls mid-rune: é is two bytes starting at offset
			// 1999, so the cut must back off to the rune boundary.
			name: "multibyte rune straddling the bound",
			msg:  strings.Repeat("a", maxErrorMessageLen-1) + strings.Repeat("é", 10),
			want: strings.Repeat("a", maxErrorMessageLen-1),
		},
		{
			// Three-byte runes never align with the even bound.
			name: "all multibyte content",
			msg:  strings.Repeat("世", 1000),
			want: strings.Repeat("世", 666),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateError(errors.New(tt.msg))
			if !utf8.ValidString(got) {
				t.Fatalf("truncated message is invalid UTF-8; a TEXT column insert would reject it")
			}
			if len(got) > maxErrorMessageLen {
				t.Errorf("len = %d, want <= %d", len(got), maxErrorMessageLen)
			}
			if got != tt.want {
				t.Errorf("truncateError = %q..., want %q...", head(got), head(tt.want))
			}
		})
	}
}

func head(s string) string {
	if len(s) > 40 {
		return s[:40]
	}
	return s
}
