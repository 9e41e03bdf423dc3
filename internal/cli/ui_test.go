package cli

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPadShortString(t *testing.T) {
	got := pad("abc", 8)
	if !strings.HasPrefix(got, "abc") {
		t.Errorf("pad(%q) = %q, want prefix %q", "abc", got, "abc")
	}
	if utf8.RuneCountInString(got) != 10 {
		t.Errorf("pad width = %d, want 10", utf8.RuneCountInString(got))
	}
}

func TestPadTruncatesLongString(t *testing.T) {
	got := pad("averylongusername", 8)
	if !strings.Contains(got, "…") {
		t.Errorf("pad(%q) = %q, want ellipsis", "averylongusername", got)
	}
	if utf8.RuneCountInString(got) != 10 {
		t.Errorf("pad width = %d, want 10", utf8.RuneCountInString(got))
	}
}

func TestPadRowHeaderWidths(t *testing.T) {
	row := padRow("LOGIN", "NAME", "EMAIL", "LOCATION", "FOLLOWERS")
	if !strings.HasPrefix(row, "LOGIN") {
		t.Errorf("padRow = %q, want LOGIN first", row)
	}
	if !strings.Contains(row, "FOLLOWERS") {
		t.Errorf("padRow = %q, missing FOLLOWERS", row)
	}
}
