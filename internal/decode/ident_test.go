package decode

import (
	"testing"

	"pgregory.net/rapid"
)

func TestIdent(t *testing.T) {
	tests := []struct {
		hour   int
		minute int
		want   string
	}{
		{hour: 0, minute: 0, want: "A00"},
		{hour: 0, minute: 5, want: "A05"},
		{hour: 10, minute: 30, want: "K30"},
		{hour: 13, minute: 30, want: "N30"},
		{hour: 14, minute: 0, want: "P00"},
		{hour: 23, minute: 59, want: "Y59"},
	}

	for _, tt := range tests {
		if got := Ident(tt.hour, tt.minute); got != tt.want {
			t.Errorf("Ident(%d, %d) got = %q, want %q", tt.hour, tt.minute, got, tt.want)
		}
	}
}

func TestIdentSkipsLetterO(t *testing.T) {
	for h := 0; h < 24; h++ {
		if got := Ident(h, 0); got[0] == 'O' {
			t.Errorf("Ident(%d, 0) = %q uses the letter O", h, got)
		}
	}
}

func TestIdentInjective(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h1 := rapid.IntRange(0, 23).Draw(t, "h1")
		m1 := rapid.IntRange(0, 59).Draw(t, "m1")
		h2 := rapid.IntRange(0, 23).Draw(t, "h2")
		m2 := rapid.IntRange(0, 59).Draw(t, "m2")
		if (h1 != h2 || m1 != m2) && Ident(h1, m1) == Ident(h2, m2) {
			t.Fatalf("Ident collision: (%d,%d) and (%d,%d) both map to %q", h1, m1, h2, m2, Ident(h1, m1))
		}
	})
}
